package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// StaticProvider is an in-memory provider for local development and tests.
type StaticProvider struct {
	mu       sync.Mutex
	accounts map[string]string
	// Delay simulates provider latency.
	Delay time.Duration
}

// NewStaticProvider seeds the provider with email to password pairs.
func NewStaticProvider(accounts map[string]string) *StaticProvider {
	seeded := make(map[string]string, len(accounts))
	for email, pw := range accounts {
		seeded[strings.ToLower(strings.TrimSpace(email))] = pw
	}
	return &StaticProvider{accounts: seeded}
}

// SignInWithPassword checks the seeded password.
func (p *StaticProvider) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	key := strings.ToLower(strings.TrimSpace(email))
	p.mu.Lock()
	want, ok := p.accounts[key]
	p.mu.Unlock()
	if !ok || want != password {
		return nil, &ProviderError{Code: "INVALID_LOGIN_CREDENTIALS", Reason: ReasonInvalidCredentials}
	}
	return staticSession(key, MethodPassword), nil
}

// SetPassword accepts any well-formed email link for a seeded account.
func (p *StaticProvider) SetPassword(ctx context.Context, email, newPassword, link string) (*Session, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	if !IsSignInWithEmailLink(link) {
		return nil, &ProviderError{Code: "INVALID_OOB_CODE", Reason: ReasonLinkInvalid}
	}
	key := strings.ToLower(strings.TrimSpace(email))
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.accounts[key]; !ok {
		return nil, &ProviderError{Code: "EMAIL_NOT_FOUND", Reason: ReasonInvalidCredentials}
	}
	p.accounts[key] = newPassword
	return staticSession(key, MethodEmailLink), nil
}

func (p *StaticProvider) wait(ctx context.Context) error {
	if p.Delay <= 0 {
		return nil
	}
	timer := time.NewTimer(p.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return &ProviderError{Code: "DEADLINE_EXCEEDED", Reason: ReasonUnavailable, Err: ctx.Err()}
	case <-timer.C:
		return nil
	}
}

func staticSession(email, method string) *Session {
	sum := sha256.Sum256([]byte(email))
	uid := hex.EncodeToString(sum[:8])
	return &Session{
		IDToken:      "static-" + uid,
		RefreshToken: "static-refresh-" + uid,
		UID:          uid,
		Email:        email,
		ExpiresIn:    time.Hour,
		Method:       method,
	}
}
