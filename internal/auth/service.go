// Package auth issues and checks the signed session tokens that bind a
// websocket connection to one canvas.
//
// There are no user accounts. The server is meant for one user or a trusted
// network, and anyone who can reach /api can mint a token for any existing
// canvas and can use the REST routes, which are not gated. A token scopes a
// live editing connection to the canvas it names and expires; it is not an
// access control boundary. Deployments exposed beyond a trusted network need
// an authenticating proxy in front of both /api and /ws.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/inamate/freecanvas/internal/typeid"
)

const DefaultTokenTTL = 24 * time.Hour

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrWrongCanvas   = errors.New("token is for another canvas")
	ErrMissingSecret = errors.New("token secret is empty")
)

// Claims carry the canvas a session may edit. The subject is a fresh
// session id.
type Claims struct {
	CanvasID string `json:"canvas"`
	jwt.RegisteredClaims
}

// Session is an issued token.
type Session struct {
	Token     string    `json:"token"`
	SessionID string    `json:"sessionId"`
	CanvasID  string    `json:"canvasId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Service)

func WithTTL(d time.Duration) Option {
	return func(s *Service) { s.ttl = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(secret string, opts ...Option) (*Service, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	s := &Service{
		secret: []byte(secret),
		ttl:    DefaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token for canvasID.
func (s *Service) Issue(canvasID string) (*Session, error) {
	now := s.now()
	sess := &Session{
		SessionID: typeid.NewSessionID(),
		CanvasID:  canvasID,
		ExpiresAt: now.Add(s.ttl).Truncate(time.Second),
	}
	claims := Claims{
		CanvasID: canvasID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.SessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	sess.Token = signed
	return sess, nil
}

// Validate checks the signature and expiry and returns the claims.
func (s *Service) Validate(token string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.CanvasID == "" {
		return nil, fmt.Errorf("%w: no canvas claim", ErrInvalidToken)
	}
	return &claims, nil
}

// Authorize validates token and checks that it was issued for canvasID.
func (s *Service) Authorize(token, canvasID string) (*Claims, error) {
	claims, err := s.Validate(token)
	if err != nil {
		return nil, err
	}
	if claims.CanvasID != canvasID {
		return nil, ErrWrongCanvas
	}
	return claims, nil
}
