package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultEndpoint is the public Identity Toolkit REST endpoint.
const DefaultEndpoint = "https://identitytoolkit.googleapis.com"

const defaultTimeout = 10 * time.Second

var tracer = otel.Tracer("finitefield.org/tutor-admin/internal/admin/identity")

// HTTPClient matches the subset of http.Client used by Client.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// PasswordUpdater is the Admin SDK surface used to set a password.
type PasswordUpdater interface {
	UpdateUser(ctx context.Context, uid string, user *firebaseauth.UserToUpdate) (*firebaseauth.UserRecord, error)
}

// Session is the result of a successful sign-in.
type Session struct {
	IDToken      string
	RefreshToken string
	UID          string
	Email        string
	ExpiresIn    time.Duration
	Method       string
}

// Sign-in methods recorded on Session.Method.
const (
	MethodPassword  = "password"
	MethodEmailLink = "emailLink"
)

// Client talks to the Identity Toolkit REST API for end-user sign-in.
type Client struct {
	base    *url.URL
	apiKey  string
	client  HTTPClient
	timeout time.Duration
	admin   PasswordUpdater
}

// Option customises Client instances.
type Option func(*Client)

// WithEndpoint overrides the REST endpoint, e.g. for the auth emulator.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		endpoint = strings.TrimSpace(endpoint)
		if endpoint == "" {
			return
		}
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return
		}
		// Keep emulator path prefixes when resolving v1/ methods.
		if !strings.HasSuffix(parsed.Path, "/") {
			parsed.Path += "/"
		}
		c.base = parsed
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client HTTPClient) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithTimeout bounds every provider call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithPasswordUpdater sets passwords through the Admin SDK instead of the
// REST accounts:update call.
func WithPasswordUpdater(admin PasswordUpdater) Option {
	return func(c *Client) {
		c.admin = admin
	}
}

// NewClient constructs a Client for the web API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("identity: api key is required: %w", ErrNotConfigured)
	}
	base, _ := url.Parse(DefaultEndpoint)
	c := &Client{
		base:    base,
		apiKey:  apiKey,
		client:  http.DefaultClient,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

type tokenResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
}

func (t tokenResponse) session(method string) *Session {
	secs, _ := strconv.Atoi(strings.TrimSpace(t.ExpiresIn))
	return &Session{
		IDToken:      t.IDToken,
		RefreshToken: t.RefreshToken,
		UID:          t.LocalID,
		Email:        t.Email,
		ExpiresIn:    time.Duration(secs) * time.Second,
		Method:       method,
	}
}

// SignInWithPassword signs in with email and password.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var out tokenResponse
	err := c.call(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             strings.TrimSpace(email),
		"password":          password,
		"returnSecureToken": true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.session(MethodPassword), nil
}

// SignInWithEmailLink exchanges the one-time code of an email link.
func (c *Client) SignInWithEmailLink(ctx context.Context, email, oobCode string) (*Session, error) {
	if strings.TrimSpace(oobCode) == "" {
		return nil, &ProviderError{Code: "MISSING_OOB_CODE", Reason: ReasonLinkInvalid}
	}
	var out tokenResponse
	err := c.call(ctx, "accounts:signInWithEmailLink", map[string]any{
		"email":   strings.TrimSpace(email),
		"oobCode": oobCode,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.session(MethodEmailLink), nil
}

// SetPassword signs in with the email link and then sets newPassword on the
// account. The returned session is valid for the new password.
func (c *Client) SetPassword(ctx context.Context, email, newPassword, link string) (*Session, error) {
	if !IsSignInWithEmailLink(link) {
		return nil, &ProviderError{Code: "INVALID_OOB_CODE", Reason: ReasonLinkInvalid}
	}
	linked, err := c.SignInWithEmailLink(ctx, email, OOBCode(link))
	if err != nil {
		return nil, err
	}

	if c.admin != nil {
		if err := c.updateWithAdmin(ctx, linked.UID, newPassword); err != nil {
			return nil, err
		}
		return c.SignInWithPassword(ctx, email, newPassword)
	}

	var out tokenResponse
	err = c.call(ctx, "accounts:update", map[string]any{
		"idToken":           linked.IDToken,
		"password":          newPassword,
		"returnSecureToken": true,
	}, &out)
	if err != nil {
		return nil, err
	}
	sess := out.session(MethodEmailLink)
	if sess.UID == "" {
		sess.UID = linked.UID
	}
	if sess.Email == "" {
		sess.Email = linked.Email
	}
	return sess, nil
}

func (c *Client) updateWithAdmin(ctx context.Context, uid, password string) error {
	ctx, span := tracer.Start(ctx, "identity.UpdateUser", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	ctx, cancel := c.contextWithTimeout(ctx)
	defer cancel()

	_, err := c.admin.UpdateUser(ctx, uid, (&firebaseauth.UserToUpdate{}).Password(password))
	if err == nil {
		return nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "update user")
	reason := ReasonUnavailable
	if strings.Contains(strings.ToLower(err.Error()), "password") {
		reason = ReasonWeakPassword
	}
	return &ProviderError{Code: "ADMIN_UPDATE_USER", Reason: reason, Err: err}
}

func (c *Client) call(ctx context.Context, method string, payload, out any) error {
	ctx, span := tracer.Start(ctx, "identity."+method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("identity.method", method))

	ctx, cancel := c.contextWithTimeout(ctx)
	defer cancel()

	req, err := c.newJSONRequest(ctx, method, payload)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return &ProviderError{Code: "NETWORK_REQUEST_FAILED", Reason: ReasonUnavailable, Err: err}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		perr := errorFromResponse(resp)
		span.SetStatus(codes.Error, string(perr.Reason))
		return perr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProviderError{Code: "DECODE", Reason: ReasonUnavailable, Err: fmt.Errorf("decode %s: %w", method, err)}
	}
	return nil
}

func (c *Client) newJSONRequest(ctx context.Context, method string, payload any) (*http.Request, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("identity: encode payload: %w", err)
	}
	ref := &url.URL{Path: "v1/" + method}
	target := c.base.ResolveReference(ref)
	q := target.Query()
	q.Set("key", c.apiKey)
	target.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), &buf)
	if err != nil {
		return nil, fmt.Errorf("identity: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) contextWithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func errorFromResponse(resp *http.Response) *ProviderError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var payload struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
			code := errorCode(payload.Error.Message)
			reason := classify(code)
			if reason == ReasonUnknown && resp.StatusCode >= http.StatusInternalServerError {
				reason = ReasonUnavailable
			}
			return &ProviderError{Code: code, Reason: reason, Err: errors.New(payload.Error.Message)}
		}
	}
	reason := ReasonUnknown
	if resp.StatusCode >= http.StatusInternalServerError {
		reason = ReasonUnavailable
	}
	return &ProviderError{
		Code:   strconv.Itoa(resp.StatusCode),
		Reason: reason,
		Err:    fmt.Errorf("status %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
