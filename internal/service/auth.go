// Package service — AuthService handles agency sign-in, JWT issuance and
// session introspection.
package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
)

var authTracer = otel.Tracer("service/auth")

const bcryptCost = 12

// DemoAgency is the tenant every demo sign-in resolves to.
var DemoAgency = domain.Agency{
	ID:    "demo",
	Name:  "Demo Agency",
	Email: "demo@example.com",
}

// AuthService authenticates agencies and issues access tokens. The only
// credential pair accepted is the configured demo account; session state
// follows uninitialized -> loading -> anonymous|authenticated and never
// rests in loading.
type AuthService struct {
	demoEmail    string
	demoPassHash []byte
	jwtSecret    []byte
	accessTTL    time.Duration
	logger       *zap.Logger

	mu    sync.RWMutex
	state domain.SessionState
}

// NewAuthService creates a new auth service. If demoPassHash is empty, the
// literal password "demo" is hashed at startup so the demo flow works out
// of the box.
func NewAuthService(demoEmail, demoPassHash, jwtSecret string, accessTTL time.Duration, logger *zap.Logger) *AuthService {
	if demoPassHash == "" {
		hash, err := bcrypt.GenerateFromPassword([]byte("demo"), bcryptCost)
		if err != nil {
			panic("hash demo password: " + err.Error())
		}
		demoPassHash = string(hash)
	}
	return &AuthService{
		demoEmail:    demoEmail,
		demoPassHash: []byte(demoPassHash),
		jwtSecret:    []byte(jwtSecret),
		accessTTL:    accessTTL,
		logger:       logger,
		state:        domain.SessionUninitialized,
	}
}

// Initialize drives the startup transition of the session machine:
// uninitialized goes through loading and settles on anonymous before any
// route protection runs. Tokens are stateless, so there is no server-side
// session to restore here; a client presenting a still-valid token
// re-resolves through Restore. Idempotent: once the machine has left
// uninitialized, Initialize only reports the current state.
func (s *AuthService) Initialize(ctx context.Context) domain.SessionState {
	_, span := authTracer.Start(ctx, "AuthService.Initialize")
	defer span.End()

	s.mu.Lock()
	if s.state != domain.SessionUninitialized {
		state := s.state
		s.mu.Unlock()
		return state
	}
	s.state = domain.SessionLoading
	s.mu.Unlock()

	s.setState(domain.SessionAnonymous)
	s.logger.Info("session initialized", zap.String("state", string(domain.SessionAnonymous)))
	return domain.SessionAnonymous
}

// Restore resolves the session for a client that holds a previously
// issued access token. A valid token transitions the machine to
// authenticated; an invalid or absent one leaves it where Initialize
// settled.
func (s *AuthService) Restore(ctx context.Context, tokenString string) domain.SessionState {
	_, span := authTracer.Start(ctx, "AuthService.Restore")
	defer span.End()

	s.Initialize(ctx)

	if tokenString == "" {
		return s.SessionState()
	}
	if _, err := s.ValidateAccessToken(tokenString); err != nil {
		s.logger.Debug("session restore rejected", zap.Error(err))
		return s.SessionState()
	}

	s.setState(domain.SessionAuthenticated)
	return domain.SessionAuthenticated
}

// Login verifies the demo credentials and returns a signed access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.LoginResponse, error) {
	_, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()
	span.SetAttributes(attribute.String("email", email))

	s.setState(domain.SessionLoading)

	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.demoEmail)) == 1
	passErr := bcrypt.CompareHashAndPassword(s.demoPassHash, []byte(password))
	if !emailOK || passErr != nil {
		s.setState(domain.SessionAnonymous)
		s.logger.Warn("login rejected", zap.String("email", email))
		return nil, &domain.ErrUnauthorized{Message: "invalid email or password"}
	}

	token, err := s.signAccessToken(DemoAgency.ID, email)
	if err != nil {
		s.setState(domain.SessionAnonymous)
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	s.setState(domain.SessionAuthenticated)
	s.logger.Info("agency logged in", zap.String("agency_id", DemoAgency.ID))

	return &domain.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int(s.accessTTL.Seconds()),
		Agency:      DemoAgency,
	}, nil
}

// Logout transitions the session back to anonymous. Tokens are stateless,
// so the client discards its copy; there is no server-side revocation.
func (s *AuthService) Logout(ctx context.Context) {
	_, span := authTracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	s.setState(domain.SessionAnonymous)
	s.logger.Info("agency logged out")
}

// SessionState returns the current lifecycle state.
func (s *AuthService) SessionState() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *AuthService) setState(state domain.SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// JWTClaims represents the custom claims in access tokens.
type JWTClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Type  string `json:"type"`
	jwt.RegisteredClaims
}

// ValidateAccessToken parses and verifies an access token.
func (s *AuthService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if claims.Type != "access" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token type"}
	}
	return claims, nil
}

func (s *AuthService) signAccessToken(agencyID, email string) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Sub:   agencyID,
		Email: email,
		Type:  "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    "leadgen-api",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
