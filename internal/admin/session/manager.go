package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	defaultCookieName  = "admin_session"
	defaultLifetime    = 12 * time.Hour
	defaultIdleTimeout = 30 * time.Minute
	sessionIDBytes     = 32
)

var (
	// ErrExpired is returned by Load when the cookie is past its idle or
	// absolute limit. Callers start a fresh session and may tell the user.
	ErrExpired = errors.New("session expired")
	// ErrInvalidConfig reports an unusable Config.
	ErrInvalidConfig = errors.New("session: invalid config")
)

// Config describes the session cookie and its limits.
type Config struct {
	CookieName     string
	HashKey        []byte
	BlockKey       []byte
	CookiePath     string
	CookieDomain   string
	CookieSecure   bool
	CookieHTTPOnly *bool
	CookieSameSite http.SameSite

	IdleTimeout time.Duration
	Lifetime    time.Duration
	Now         func() time.Time
}

// Manager stores sessions in a signed, optionally encrypted, cookie.
type Manager struct {
	cfg      Config
	codec    *securecookie.SecureCookie
	httpOnly bool
}

// NewManager validates cfg and fills in defaults.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.HashKey) == 0 {
		return nil, fmt.Errorf("%w: hash key is required", ErrInvalidConfig)
	}
	switch len(cfg.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: block key must be 16, 24 or 32 bytes", ErrInvalidConfig)
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = defaultLifetime
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})

	httpOnly := true
	if cfg.CookieHTTPOnly != nil {
		httpOnly = *cfg.CookieHTTPOnly
	}
	return &Manager{cfg: cfg, codec: codec, httpOnly: httpOnly}, nil
}

// New starts an empty session.
func (m *Manager) New() *Session {
	now := m.cfg.Now().UTC()
	return &Session{
		data: Data{
			ID:         newID(),
			CreatedAt:  now,
			LastActive: now,
			ExpiresAt:  now.Add(m.cfg.Lifetime),
		},
		dirty: true,
	}
}

// Load decodes the request cookie. A missing or tampered cookie yields a new
// session; an aged-out one yields ErrExpired.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	c, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return m.New(), nil
	}
	var data Data
	if err := m.codec.Decode(m.cfg.CookieName, c.Value, &data); err != nil || data.ID == "" {
		return m.New(), nil
	}
	if err := m.checkLimits(data, m.cfg.Now().UTC()); err != nil {
		return nil, err
	}
	return &Session{data: data}, nil
}

// Save writes the session cookie, or a clearing cookie once destroyed.
func (m *Manager) Save(w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return errors.New("session: nil session")
	}
	if sess.destroyed {
		m.Destroy(w)
		return nil
	}

	now := m.cfg.Now().UTC()
	sess.Touch(now)
	value, err := m.codec.Encode(m.cfg.CookieName, sess.data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	c := m.cookie(value)
	if exp := sess.data.ExpiresAt; !exp.IsZero() {
		c.Expires = exp.UTC()
		c.MaxAge = -1
		if left := exp.Sub(now); left > 0 {
			c.MaxAge = int(left.Round(time.Second) / time.Second)
		}
	}
	http.SetCookie(w, c)
	return nil
}

// Destroy clears the session cookie.
func (m *Manager) Destroy(w http.ResponseWriter) {
	c := m.cookie("")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	http.SetCookie(w, c)
}

func (m *Manager) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    value,
		Path:     m.cfg.CookiePath,
		Domain:   m.cfg.CookieDomain,
		Secure:   m.cfg.CookieSecure,
		HttpOnly: m.httpOnly,
		SameSite: m.cfg.CookieSameSite,
	}
}

func (m *Manager) checkLimits(d Data, now time.Time) error {
	if !d.ExpiresAt.IsZero() && now.After(d.ExpiresAt) {
		return fmt.Errorf("%w: lifetime ended at %s", ErrExpired, d.ExpiresAt.Format(time.RFC3339))
	}
	last := d.LastActive
	if last.IsZero() {
		last = d.CreatedAt
	}
	if idle := now.Sub(last); !last.IsZero() && idle > m.cfg.IdleTimeout {
		return fmt.Errorf("%w: idle for %s", ErrExpired, idle.Truncate(time.Second))
	}
	return nil
}

func newID() string {
	buf := make([]byte, sessionIDBytes)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Errorf("session: read random id: %w", err))
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
