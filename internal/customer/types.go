package customer

import "time"

// Customer is one durable identity per (Facebook user, fanpage) pair. The
// internal ID is stable for the lifetime of the row; name and avatar are
// best-effort profile data and may be refreshed, the identity never changes.
type Customer struct {
	ID        int64
	FBUserID  string
	PageID    string
	Name      string
	Avatar    string
	CreatedAt time.Time
	// Synthetic marks an unpersisted fallback record built when storage was
	// unavailable. Synthetic customers have a zero ID.
	Synthetic bool
}
