// Package auth signs the single bookkeeping account in and out. Sessions are
// HS256 JWTs; signing out revokes the token id until it would have expired.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const defaultIssuer = "contas"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired session")
)

// EventKind names a change of authentication state.
type EventKind string

const (
	EventSignedIn  EventKind = "SIGNED_IN"
	EventSignedOut EventKind = "SIGNED_OUT"
)

// Event is delivered to subscribers on sign in and sign out.
type Event struct {
	Kind      EventKind
	Email     string
	SessionID string
	At        time.Time
}

// Session is an authenticated session.
type Session struct {
	Token     string    `json:"token"`
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Claims carried in the session token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Config struct {
	Secret       []byte
	Email        string
	PasswordHash string
	TTL          time.Duration
	Issuer       string
	Now          func() time.Time
}

type Provider struct {
	secret []byte
	email  string
	hash   []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time

	mu          sync.Mutex
	revoked     map[string]time.Time
	subscribers map[int]func(Event)
	nextSub     int
}

func NewProvider(cfg Config) (*Provider, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("auth secret is required")
	}
	if strings.TrimSpace(cfg.Email) == "" || cfg.PasswordHash == "" {
		return nil, errors.New("auth account is required")
	}
	if _, err := bcrypt.Cost([]byte(cfg.PasswordHash)); err != nil {
		return nil, fmt.Errorf("password hash: %w", err)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaultIssuer
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Provider{
		secret:      cfg.Secret,
		email:       normalizeEmail(cfg.Email),
		hash:        []byte(cfg.PasswordHash),
		ttl:         cfg.TTL,
		issuer:      cfg.Issuer,
		now:         cfg.Now,
		revoked:     map[string]time.Time{},
		subscribers: map[int]func(Event){},
	}, nil
}

// HashPassword returns the bcrypt hash to configure as ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// SignIn checks the credentials and opens a session.
func (p *Provider) SignIn(ctx context.Context, email, password string) (Session, error) {
	// Compare the hash even on a wrong email so both failures cost the same.
	hashErr := bcrypt.CompareHashAndPassword(p.hash, []byte(password))
	if normalizeEmail(email) != p.email || hashErr != nil {
		slog.WarnContext(ctx, "Sign in rejected", "email", email)
		return Session{}, ErrInvalidCredentials
	}

	now := p.now()
	claims := Claims{
		Email: p.email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    p.issuer,
			Subject:   p.email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}

	s := Session{
		Token:     token,
		ID:        claims.ID,
		Email:     p.email,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}
	slog.InfoContext(ctx, "Signed in", "email", s.Email, "session_id", s.ID)
	p.emit(Event{Kind: EventSignedIn, Email: s.Email, SessionID: s.ID, At: now})
	return s, nil
}

// Session returns the session behind token, or ErrInvalidToken.
func (p *Provider) Session(token string) (Session, error) {
	claims, err := p.parse(token)
	if err != nil {
		return Session{}, err
	}

	p.mu.Lock()
	_, revoked := p.revoked[claims.ID]
	p.mu.Unlock()
	if revoked {
		return Session{}, ErrInvalidToken
	}

	return Session{
		Token:     token,
		ID:        claims.ID,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}

// SignOut revokes the session. Signing out twice is an error.
func (p *Provider) SignOut(ctx context.Context, token string) error {
	s, err := p.Session(token)
	if err != nil {
		return err
	}

	now := p.now()
	p.mu.Lock()
	for id, exp := range p.revoked {
		if !exp.After(now) {
			delete(p.revoked, id)
		}
	}
	p.revoked[s.ID] = s.ExpiresAt
	p.mu.Unlock()

	slog.InfoContext(ctx, "Signed out", "email", s.Email, "session_id", s.ID)
	p.emit(Event{Kind: EventSignedOut, Email: s.Email, SessionID: s.ID, At: now})
	return nil
}

// Subscribe registers fn for every later event and returns a function that
// removes it.
func (p *Provider) Subscribe(fn func(Event)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subscribers[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subscribers, id)
		p.mu.Unlock()
	}
}

func (p *Provider) parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return p.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

func (p *Provider) emit(ev Event) {
	p.mu.Lock()
	subs := make([]func(Event), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
