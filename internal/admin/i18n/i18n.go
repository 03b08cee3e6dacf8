package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var embedded embed.FS

const (
	// DefaultLocale is used when nothing else matches.
	DefaultLocale = "en"
	// CookieName stores an explicit locale preference.
	CookieName = "admin_locale"
)

// Bundle holds message dictionaries keyed by locale.
type Bundle struct {
	dict      map[string]map[string]string
	fallback  string
	supported []language.Tag
	matcher   language.Matcher
}

// Load reads the embedded dictionaries. The fallback locale must exist.
func Load(fallback string) (*Bundle, error) {
	entries, err := embedded.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("i18n: read locales: %w", err)
	}
	raw := make(map[string][]byte, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := embedded.ReadFile(path.Join("locales", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", entry.Name(), err)
		}
		raw[strings.TrimSuffix(entry.Name(), ".json")] = data
	}
	return New(fallback, raw)
}

// New builds a Bundle from raw JSON dictionaries keyed by locale.
func New(fallback string, raw map[string][]byte) (*Bundle, error) {
	fallback = strings.ToLower(strings.TrimSpace(fallback))
	if fallback == "" {
		fallback = DefaultLocale
	}
	b := &Bundle{
		dict:     make(map[string]map[string]string, len(raw)),
		fallback: fallback,
	}

	locales := make([]string, 0, len(raw))
	for locale := range raw {
		locales = append(locales, locale)
	}
	sort.Strings(locales)

	// The fallback goes first so the matcher prefers it on ties.
	tags := []language.Tag{}
	for _, locale := range locales {
		var m map[string]string
		if err := json.Unmarshal(raw[locale], &m); err != nil {
			return nil, fmt.Errorf("i18n: unmarshal %s: %w", locale, err)
		}
		key := strings.ToLower(locale)
		b.dict[key] = m
		tag, err := language.Parse(key)
		if err != nil {
			return nil, fmt.Errorf("i18n: parse locale %s: %w", locale, err)
		}
		if key == fallback {
			tags = append([]language.Tag{tag}, tags...)
			continue
		}
		tags = append(tags, tag)
	}
	if _, ok := b.dict[fallback]; !ok {
		return nil, fmt.Errorf("i18n: fallback locale %s not loaded", fallback)
	}
	b.supported = tags
	b.matcher = language.NewMatcher(tags)
	return b, nil
}

// Fallback returns the configured fallback locale.
func (b *Bundle) Fallback() string { return b.fallback }

// Supported lists the loaded locales with the fallback first.
func (b *Bundle) Supported() []string {
	out := make([]string, 0, len(b.supported))
	for _, tag := range b.supported {
		out = append(out, tag.String())
	}
	return out
}

// T returns the message for key in lang, falling back to the default
// locale and finally to the key itself.
func (b *Bundle) T(lang, key string) string {
	if b == nil {
		return key
	}
	if m, ok := b.dict[b.Normalize(lang)]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if m, ok := b.dict[b.fallback]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}

// Normalize maps any BCP 47 string onto a supported locale.
func (b *Bundle) Normalize(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return b.fallback
	}
	if _, ok := b.dict[strings.ToLower(lang)]; ok {
		return strings.ToLower(lang)
	}
	return b.Match(lang)
}

// Match picks the best supported locale for the preferences, which may be
// plain tags or Accept-Language header values.
func (b *Bundle) Match(prefs ...string) string {
	var tags []language.Tag
	for _, pref := range prefs {
		if strings.TrimSpace(pref) == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(pref)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	if len(tags) == 0 {
		return b.fallback
	}
	_, index, confidence := b.matcher.Match(tags...)
	if confidence == language.No || index < 0 || index >= len(b.supported) {
		return b.fallback
	}
	return b.supported[index].String()
}

// Resolve chooses the request locale: explicit query, then cookie, then
// the Accept-Language header.
func (b *Bundle) Resolve(r *http.Request) string {
	if r == nil {
		return b.fallback
	}
	if q := strings.TrimSpace(r.URL.Query().Get("lang")); q != "" {
		return b.Normalize(q)
	}
	if c, err := r.Cookie(CookieName); err == nil && strings.TrimSpace(c.Value) != "" {
		return b.Normalize(c.Value)
	}
	return b.Match(r.Header.Get("Accept-Language"))
}

type localeContextKey struct{}

// WithLocale stores the resolved locale on the context.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeContextKey{}, locale)
}

// LocaleFromContext returns the stored locale or DefaultLocale.
func LocaleFromContext(ctx context.Context) string {
	if ctx != nil {
		if v, ok := ctx.Value(localeContextKey{}).(string); ok && v != "" {
			return v
		}
	}
	return DefaultLocale
}

type bundleContextKey struct{}

// WithBundle stores the bundle on the context for templates.
func WithBundle(ctx context.Context, b *Bundle) context.Context {
	return context.WithValue(ctx, bundleContextKey{}, b)
}

// BundleFromContext returns the bundle stored on the context, if any.
func BundleFromContext(ctx context.Context) *Bundle {
	if ctx == nil {
		return nil
	}
	b, _ := ctx.Value(bundleContextKey{}).(*Bundle)
	return b
}

// T translates key using the bundle and locale stored on the context.
func T(ctx context.Context, key string) string {
	return BundleFromContext(ctx).T(LocaleFromContext(ctx), key)
}
