package facebook

import (
	"context"
	"fmt"

	"github.com/pagebridge/pagebridge/internal/config"
)

// Deliverer resolves the page access token for a fanpage and delivers text
// through the Send API. It satisfies the pending reply delivery contract.
type Deliverer struct {
	client *Client
	pages  []config.PageConfig
}

func NewDeliverer(client *Client, pages []config.PageConfig) *Deliverer {
	return &Deliverer{client: client, pages: pages}
}

func (d *Deliverer) SendText(ctx context.Context, pageID, fbUserID, text string) (string, error) {
	for _, page := range d.pages {
		if page.ID == pageID {
			return d.client.SendText(ctx, fbUserID, page.Token, text)
		}
	}
	return "", fmt.Errorf("page %s is not configured", pageID)
}

// ProfileNames adapts Client for identity resolution, which only needs the
// display name.
type ProfileNames struct {
	client *Client
}

func NewProfileNames(client *Client) *ProfileNames {
	return &ProfileNames{client: client}
}

func (p *ProfileNames) FetchProfile(ctx context.Context, userID, pageToken string) (string, error) {
	profile, err := p.client.FetchProfile(ctx, userID, pageToken)
	if err != nil {
		return "", err
	}
	return profile.Name(), nil
}
