package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedLocales(t *testing.T) {
	t.Parallel()

	b, err := Load("en")
	require.NoError(t, err)
	require.Equal(t, "en", b.Fallback())
	require.Equal(t, "en", b.Supported()[0])
	require.ElementsMatch(t, []string{"en", "es", "ja"}, b.Supported())

	require.Equal(t, "Log in", b.T("en", "Login.login"))
	require.Equal(t, "ログイン", b.T("ja", "Login.login"))
	require.Equal(t, "Iniciar sesión", b.T("es-MX", "Login.login"))
}

func TestEveryLocaleCarriesTheFallbackKeys(t *testing.T) {
	t.Parallel()

	b, err := Load("en")
	require.NoError(t, err)
	for key := range b.dict["en"] {
		for _, locale := range []string{"ja", "es"} {
			_, ok := b.dict[locale][key]
			require.Truef(t, ok, "locale %s missing %s", locale, key)
		}
	}
}

func TestTranslateFallsBack(t *testing.T) {
	t.Parallel()

	b, err := New("en", map[string][]byte{
		"en": []byte(`{"greeting":"hello","only.en":"english"}`),
		"ja": []byte(`{"greeting":"こんにちは"}`),
	})
	require.NoError(t, err)

	require.Equal(t, "こんにちは", b.T("ja", "greeting"))
	require.Equal(t, "english", b.T("ja", "only.en"))
	require.Equal(t, "missing.key", b.T("ja", "missing.key"))
	require.Equal(t, "hello", b.T("fr", "greeting"))

	var nilBundle *Bundle
	require.Equal(t, "greeting", nilBundle.T("en", "greeting"))
}

func TestNewRejectsMissingFallback(t *testing.T) {
	t.Parallel()

	_, err := New("de", map[string][]byte{"en": []byte(`{}`)})
	require.Error(t, err)

	_, err = New("en", map[string][]byte{"en": []byte(`{`)})
	require.Error(t, err)
}

func TestMatchHonorsQValues(t *testing.T) {
	t.Parallel()

	b, err := Load("ja")
	require.NoError(t, err)
	require.Equal(t, "en", b.Match("ja;q=0.8, en;q=0.9"))
	require.Equal(t, "ja", b.Match("fr-FR"))
	require.Equal(t, "ja", b.Match(""))
	require.Equal(t, "es", b.Match("es-419,en;q=0.5"))
}

func TestResolvePrecedence(t *testing.T) {
	t.Parallel()

	b, err := Load("en")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin/login?lang=ja", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "es"})
	req.Header.Set("Accept-Language", "en")
	require.Equal(t, "ja", b.Resolve(req))

	req = httptest.NewRequest(http.MethodGet, "/admin/login", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "es"})
	req.Header.Set("Accept-Language", "ja")
	require.Equal(t, "es", b.Resolve(req))

	req = httptest.NewRequest(http.MethodGet, "/admin/login", nil)
	req.Header.Set("Accept-Language", "ja-JP,ja;q=0.9")
	require.Equal(t, "ja", b.Resolve(req))

	require.Equal(t, "en", b.Resolve(nil))
}

func TestContextHelpers(t *testing.T) {
	t.Parallel()

	b, err := Load("en")
	require.NoError(t, err)

	ctx := WithBundle(WithLocale(context.Background(), "ja"), b)
	require.Equal(t, "ja", LocaleFromContext(ctx))
	require.Equal(t, "ログイン", T(ctx, "Login.login"))

	require.Equal(t, DefaultLocale, LocaleFromContext(context.Background()))
	require.Equal(t, "Login.login", T(context.Background(), "Login.login"))
}
