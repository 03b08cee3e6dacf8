package httpserver_test

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"finitefield.org/tutor-admin/internal/admin/httpserver/middleware"
	"finitefield.org/tutor-admin/internal/admin/testutil"
)

const linkQuery = "apiKey=key&oobCode=code-123&mode=signIn"

type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newBrowser(t *testing.T, base string) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:    t,
		base: base,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) do(req *http.Request) (*http.Response, []byte) {
	b.t.Helper()
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp, body
}

func (b *browser) get(path string, header http.Header) (*http.Response, []byte) {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.base+path, nil)
	require.NoError(b.t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	return b.do(req)
}

func (b *browser) post(path string, form url.Values, header http.Header) (*http.Response, []byte) {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range header {
		req.Header[k] = v
	}
	return b.do(req)
}

func (b *browser) cookie(name, path string) string {
	b.t.Helper()
	u, err := url.Parse(b.base + path)
	require.NoError(b.t, err)
	for _, c := range b.client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// loginForm opens the login page and returns the hidden fields it carries.
func (b *browser) loginForm(path string) (*goquery.Document, url.Values) {
	b.t.Helper()
	resp, body := b.get(path, nil)
	require.Equal(b.t, http.StatusOK, resp.StatusCode)
	doc := testutil.ParseHTML(b.t, body)
	form := url.Values{}
	doc.Find("#login-view form input[type=hidden]").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		value, _ := s.Attr("value")
		form.Set(name, value)
	})
	require.NotEmpty(b.t, form.Get("view"))
	require.NotEmpty(b.t, form.Get(middleware.CSRFFormField))
	return doc, form
}

func htmxHeader(csrf string) http.Header {
	h := http.Header{}
	h.Set("HX-Request", "true")
	h.Set("X-CSRF-Token", csrf)
	return h
}

func TestRootRedirectsWithoutAuth(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	b := newBrowser(t, ts.URL)

	resp, _ := b.get("/admin", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/admin/login", resp.Header.Get("Location"))
}

func TestLoginPageSuspendsShell(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	b := newBrowser(t, ts.URL)

	doc, _ := b.loginForm("/admin/login")

	class, _ := doc.Find("html").Attr("class")
	require.NotContains(t, class, "has-navbar-fixed-top")
	require.NotContains(t, class, "has-aside-left")
	require.Zero(t, doc.Find("nav.navbar").Length())
	require.Zero(t, doc.Find("aside").Length())

	require.Equal(t, "Log in | Tutor Admin", doc.Find("title").Text())
	view := doc.Find("#login-view")
	require.Equal(t, "password_sign_in", view.AttrOr("data-mode", ""))
	require.Equal(t, "Password", strings.TrimSpace(view.Find("label[for=login-password]").Text()))
	_, hasTrigger := view.Find("#login-email").Attr("hx-post")
	require.False(t, hasTrigger, "password mode does not validate on keystrokes")
	require.Equal(t, "/admin/recover-password", view.Find("a[data-forgot-password]").AttrOr("href", ""))

	resp, _ := b.get("/admin/login", nil)
	require.Equal(t, "no-store, max-age=0", resp.Header.Get("Cache-Control"))
}

func TestPasswordSignInEndToEnd(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	b := newBrowser(t, ts.URL)

	_, form := b.loginForm("/admin/login")

	form.Set("email", "staff@example.com")
	form.Set("password", "wrong")
	resp, body := b.post("/admin/login", form, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	doc := testutil.ParseHTML(t, body)
	require.Equal(t, "The email or password is incorrect.", strings.TrimSpace(doc.Find("[data-login-error]").Text()))
	require.Equal(t, "failed", doc.Find("#login-view").AttrOr("data-phase", ""))
	require.Equal(t, "staff@example.com", doc.Find("#login-email").AttrOr("value", ""))
	require.Empty(t, doc.Find("#login-password").AttrOr("value", ""))

	form.Set("view", doc.Find("input[name=view]").AttrOr("value", ""))
	form.Set("password", "correct-horse")
	resp, _ = b.post("/admin/login", form, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin", resp.Header.Get("Location"))
	require.True(t, strings.HasPrefix(b.cookie("Authorization", "/admin"), "Bearer static-"))

	resp, body = b.get("/admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc = testutil.ParseHTML(t, body)
	class, _ := doc.Find("html").Attr("class")
	require.Contains(t, class, "has-navbar-fixed-top")
	require.Contains(t, class, "has-aside-left")
	require.Equal(t, 1, doc.Find("nav.navbar").Length())
	require.Equal(t, 1, doc.Find("aside").Length())
	require.Equal(t, "password", doc.Find("[data-sign-in-method]").AttrOr("data-sign-in-method", ""))

	// Signed-in users are sent straight back to the console.
	resp, _ = b.get("/admin/login", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/admin", resp.Header.Get("Location"))
}

func TestReloadAfterFailedSignInStartsClean(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	b := newBrowser(t, ts.URL)

	_, form := b.loginForm("/admin/login")
	form.Set("email", "staff@example.com")
	form.Set("password", "wrong")
	resp, _ := b.post("/admin/login", form, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	doc, reloaded := b.loginForm("/admin/login")
	require.Zero(t, doc.Find("[data-login-error]").Length())
	require.Equal(t, "idle", doc.Find("#login-view").AttrOr("data-phase", ""))
	require.NotEqual(t, form.Get("view"), reloaded.Get("view"))

	class, _ := doc.Find("html").Attr("class")
	require.NotContains(t, class, "has-aside-left")

	// The superseded view id is re-activated instead of reviving old state.
	form.Set("password", "correct-horse")
	resp, _ = b.post("/admin/login", form, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestLoginHonoursSafeNext(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	b := newBrowser(t, ts.URL)

	_, form := b.loginForm("/admin/login?next=%2Fadmin%2Fsections")
	form.Set("email", "staff@example.com")
	form.Set("password", "correct-horse")
	resp, _ := b.post("/admin/login?next=%2Fadmin%2Fsections", form, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/sections", resp.Header.Get("Location"))

	other := newBrowser(t, ts.URL)
	_, form = other.loginForm("/admin/login?next=https%3A%2F%2Fevil.example")
	form.Set("email", "staff@example.com")
	form.Set("password", "correct-horse")
	resp, _ = other.post("/admin/login?next=https%3A%2F%2Fevil.example", form, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin", resp.Header.Get("Location"))
}

func TestLoginRejectsMissingCSRF(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	b := newBrowser(t, ts.URL)

	_, form := b.loginForm("/admin/login")
	form.Del(middleware.CSRFFormField)
	form.Set("email", "staff@example.com")
	form.Set("password", "correct-horse")
	resp, _ := b.post("/admin/login", form, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Empty(t, b.cookie("Authorization", "/admin"))
}

func TestHTMXSubmitReturnsFragment(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	b := newBrowser(t, ts.URL)

	_, form := b.loginForm("/admin/login")
	csrf := form.Get(middleware.CSRFFormField)

	form.Set("email", "")
	form.Set("password", "")
	resp, body := b.post("/admin/login", form, htmxHeader(csrf))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := testutil.ParseHTML(t, body)
	require.Zero(t, doc.Find("html > head > title").Length(), "fragment only")
	require.Equal(t, 1, doc.Find("#login-view").Length())

	form.Set("email", "staff@example.com")
	form.Set("password", "correct-horse")
	resp, _ = b.post("/admin/login", form, htmxHeader(csrf))
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "/admin", resp.Header.Get("HX-Redirect"))
}

func TestEmailLinkSetsNewPassword(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	b := newBrowser(t, ts.URL)

	doc, form := b.loginForm("/admin/login?" + linkQuery)
	view := doc.Find("#login-view")
	require.Equal(t, "set_new_password", view.AttrOr("data-mode", ""))
	require.Equal(t, "Set a new password | Tutor Admin", doc.Find("title").Text())
	require.Equal(t, "New password", strings.TrimSpace(view.Find("label[for=login-password]").Text()))
	require.Equal(t, "/admin/login/validate", view.Find("#login-password").AttrOr("hx-post", ""))
	require.Equal(t, "/admin/login?"+linkQuery, view.Find("form").AttrOr("action", ""))

	csrf := form.Get(middleware.CSRFFormField)
	form.Set("email", "not-an-email")
	form.Set("password", "abc")
	resp, body := b.post("/admin/login/validate", form, htmxHeader(csrf))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	frag := testutil.ParseHTML(t, body)
	require.Equal(t, "Enter a valid email address.", strings.TrimSpace(frag.Find("[data-field-error=email]").Text()))
	require.Equal(t, "Password is too short.", strings.TrimSpace(frag.Find("[data-field-error=password]").Text()))
	button := frag.Find("#login-submit")
	require.Equal(t, "true", button.AttrOr("hx-swap-oob", ""))
	_, disabled := button.Attr("disabled")
	require.True(t, disabled)

	form.Set("email", "staff@example.com")
	form.Set("password", "brand-new-secret")
	resp, body = b.post("/admin/login/validate", form, htmxHeader(csrf))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	frag = testutil.ParseHTML(t, body)
	require.Zero(t, frag.Find("[data-field-error]").Length())
	_, disabled = frag.Find("#login-submit").Attr("disabled")
	require.False(t, disabled)

	resp, _ = b.post("/admin/login?"+linkQuery, form, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin", resp.Header.Get("Location"))

	resp, body = b.get("/admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "emailLink", testutil.ParseHTML(t, body).Find("[data-sign-in-method]").AttrOr("data-sign-in-method", ""))
}

func TestValidateRefreshesUnknownView(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	b := newBrowser(t, ts.URL)

	_, form := b.loginForm("/admin/login")
	form.Set("view", "gone")
	resp, _ := b.post("/admin/login/validate", form, htmxHeader(form.Get(middleware.CSRFFormField)))
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "true", resp.Header.Get("HX-Refresh"))
}

func TestLogoutReturnsToLogin(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	b := newBrowser(t, ts.URL)

	_, form := b.loginForm("/admin/login")
	form.Set("email", "staff@example.com")
	form.Set("password", "correct-horse")
	resp, _ := b.post("/admin/login", form, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, body := b.get("/admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	logout := testutil.ParseHTML(t, body).Find("form[data-user-menu-logout]")
	require.Equal(t, "/admin/logout", logout.AttrOr("action", ""))
	csrf := logout.Find("input[name=csrf_token]").AttrOr("value", "")
	require.NotEmpty(t, csrf)

	resp, _ = b.post("/admin/logout", url.Values{middleware.CSRFFormField: {csrf}}, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/login?status=logged_out", resp.Header.Get("Location"))
	require.Empty(t, b.cookie("Authorization", "/admin"))

	doc, _ := b.loginForm("/admin/login?status=logged_out")
	require.Equal(t, "You have been signed out.", strings.TrimSpace(doc.Find("[data-login-message]").Text()))
}

func TestSectionsRequireCapability(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "learner-desk", Roles: []string{"teacher"}}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))
	b := newBrowser(t, ts.URL)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+auth.Token)

	resp, body := b.get("/admin/learners", header)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Nav.learners", testutil.ParseHTML(t, body).Find("[data-section]").AttrOr("data-section", ""))

	resp, _ = b.get("/admin/users", header)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestLocaleQuerySwitchesLanguage(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	b := newBrowser(t, ts.URL)

	resp, body := b.get("/admin/login?lang=ja", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ja", resp.Header.Get("Content-Language"))
	doc := testutil.ParseHTML(t, body)
	require.Equal(t, "ja", doc.Find("html").AttrOr("lang", ""))
	require.Equal(t, "ja", b.cookie("admin_locale", "/admin"))
}

type tokenAuthenticator struct {
	Token string
	Roles []string
}

func (t *tokenAuthenticator) Authenticate(_ *http.Request, token string) (*middleware.User, error) {
	if token != t.Token {
		return nil, middleware.ErrUnauthorized
	}
	return &middleware.User{
		UID:   "tester",
		Email: "tester@example.com",
		Token: token,
		Roles: t.Roles,
	}, nil
}
