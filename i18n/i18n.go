// Package i18n renders user-facing messages (warnings, report headers) in
// English or Hebrew. Message files are embedded and loaded on first use.
package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

const (
	English = "en"
	Hebrew  = "he"
)

var (
	bundle        *i18n.Bundle
	loadOnce      sync.Once
	loadErr       error
	defaultLocale = English
)

type ctxKey struct{}

// Init loads all locale files and sets the default locale. It is safe to
// call more than once; only the first call loads files.
func Init(defLocale string) error {
	if defLocale != "" {
		defaultLocale = Normalize(defLocale)
	}
	loadOnce.Do(func() { loadErr = load() })
	return loadErr
}

func load() error {
	bundle = i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return fmt.Errorf("i18n: read locales dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return fmt.Errorf("i18n: read %s: %w", e.Name(), err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, e.Name()); err != nil {
			return fmt.Errorf("i18n: parse %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Normalize maps a locale or Accept-Language value onto a supported locale.
func Normalize(locale string) string {
	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		return defaultLocale
	}
	matcher := language.NewMatcher([]language.Tag{language.English, language.Hebrew})
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return defaultLocale
	}
	if idx == 1 {
		return Hebrew
	}
	return English
}

// IsRTL reports whether the locale is written right to left.
func IsRTL(locale string) bool {
	return strings.HasPrefix(Normalize(locale), Hebrew)
}

// WithLocale returns a new context carrying the given locale string.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, ctxKey{}, locale)
}

// LocaleFromContext extracts the locale from the context.
// Returns the configured default locale if not set.
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok && v != "" {
		return v
	}
	return defaultLocale
}

// T translates a message ID using the locale from the context.
func T(ctx context.Context, messageID string, templateData ...map[string]any) string {
	return Tr(LocaleFromContext(ctx), messageID, templateData...)
}

// Tr translates a message ID for an explicit locale. Unknown IDs come back
// unchanged.
func Tr(locale, messageID string, templateData ...map[string]any) string {
	if err := Init(""); err != nil {
		return messageID
	}
	l := i18n.NewLocalizer(bundle, locale, defaultLocale)

	cfg := &i18n.LocalizeConfig{MessageID: messageID}
	if len(templateData) > 0 && templateData[0] != nil {
		cfg.TemplateData = templateData[0]
	}

	msg, err := l.Localize(cfg)
	if err != nil {
		return messageID
	}
	return msg
}
