package translate

import (
	"context"
	"log/slog"
	"strings"
)

// Translator is the outbound translation dependency of Service. *Client
// satisfies it; tests substitute fakes.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (Result, error)
}

// Translation is the operator-facing outcome of translating an inbound text.
type Translation struct {
	Text       string
	SourceLang string
	Translated bool
}

// Service translates relay traffic in both directions, consulting the shared
// cache first and degrading to the original text whenever the translation
// service fails. Translation failure is never fatal.
type Service struct {
	client       Translator
	cache        *Cache
	operatorLang string
	customerLang string
	logger       *slog.Logger
}

// NewService creates a translation service.
func NewService(log *slog.Logger, client Translator, cache *Cache, operatorLang, customerLang string) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		client:       client,
		cache:        cache,
		operatorLang: operatorLang,
		customerLang: customerLang,
		logger:       log.With(slog.String("service", "translate")),
	}
}

// OperatorLang returns the configured operator-facing language tag.
func (s *Service) OperatorLang() string { return s.operatorLang }

// CustomerLang returns the configured customer-facing language tag.
func (s *Service) CustomerLang() string { return s.customerLang }

// ToOperator translates an inbound customer text into the operator language.
// Texts that already read as the operator language are passed through
// untranslated, as are texts whose translation comes back identical.
func (s *Service) ToOperator(ctx context.Context, text string) Translation {
	if strings.TrimSpace(text) == "" {
		return Translation{Text: text, SourceLang: LangUnknown}
	}
	detected := DetectLanguage(text)
	if detected == s.operatorLang {
		return Translation{Text: text, SourceLang: detected}
	}
	translated, err := s.translate(ctx, text, s.operatorLang)
	if err != nil {
		s.logger.Warn("translate to operator language failed", slog.Any("error", err))
		return Translation{Text: text, SourceLang: LangUnknown}
	}
	if strings.EqualFold(strings.TrimSpace(translated), strings.TrimSpace(text)) {
		return Translation{Text: text, SourceLang: s.operatorLang}
	}
	return Translation{Text: translated, SourceLang: detected, Translated: true}
}

// ToCustomer translates an operator reply into the customer language, falling
// back to the original text on failure.
func (s *Service) ToCustomer(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	translated, err := s.translate(ctx, text, s.customerLang)
	if err != nil {
		s.logger.Warn("translate to customer language failed", slog.Any("error", err))
		return text
	}
	return translated
}

func (s *Service) translate(ctx context.Context, text, targetLang string) (string, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Lookup(text, targetLang); ok {
			return cached, nil
		}
	}
	result, err := s.client.Translate(ctx, text, targetLang)
	if err != nil {
		return "", err
	}
	if s.cache != nil {
		s.cache.Store(text, targetLang, result.Text)
	}
	return result.Text, nil
}
