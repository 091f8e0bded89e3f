package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"rollcall/internal/apperr"
	"rollcall/internal/model"
)

// Token tiers carried in the "type" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Default lifetimes of the two tiers.
const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Claims represents JWT payload.
type Claims struct {
	Username string `json:"username,omitempty"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

// SignedConfig configures a SignedService. Key is required.
type SignedConfig struct {
	Key        string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Now overrides the clock used for minting and expiry checks.
	Now func() time.Time
}

// SignedService mints and verifies HS256 access/refresh tokens. It keeps no
// server-side state, so Revoke cannot invalidate outstanding tokens.
type SignedService struct {
	creds      Authenticator
	key        []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewSignedService creates a signed token service.
func NewSignedService(creds Authenticator, cfg SignedConfig) (*SignedService, error) {
	if cfg.Key == "" {
		return nil, errors.New("signing key required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &SignedService{
		creds:      creds,
		key:        []byte(cfg.Key),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
	}, nil
}

func (s *SignedService) Scheme() string { return SchemeBearer }

// Issue authenticates and mints an access/refresh pair.
func (s *SignedService) Issue(ctx context.Context, creds Credentials) (TokenSet, error) {
	t, err := s.creds.Authenticate(ctx, creds.Username, creds.Password)
	if err != nil {
		return TokenSet{}, err
	}
	p := principalOf(t)

	accessToken, accessExp, err := s.mint(p, TypeAccess, s.accessTTL)
	if err != nil {
		return TokenSet{}, err
	}
	refreshToken, refreshExp, err := s.mint(p, TypeRefresh, s.refreshTTL)
	if err != nil {
		return TokenSet{}, err
	}

	return TokenSet{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// Validate accepts only unexpired, well-signed access tokens.
func (s *SignedService) Validate(_ context.Context, token string) (model.Principal, error) {
	claims, err := s.parse(token, TypeAccess)
	if err != nil {
		return model.Principal{}, err
	}
	return s.principal(claims)
}

// Refresh trades a refresh token for a new access token. The refresh token is not rotated.
func (s *SignedService) Refresh(_ context.Context, refreshToken string) (TokenSet, error) {
	claims, err := s.parse(refreshToken, TypeRefresh)
	if err != nil {
		return TokenSet{}, err
	}
	p, err := s.principal(claims)
	if err != nil {
		return TokenSet{}, err
	}
	accessToken, accessExp, err := s.mint(p, TypeAccess, s.accessTTL)
	if err != nil {
		return TokenSet{}, err
	}
	return TokenSet{AccessToken: accessToken, AccessExp: accessExp}, nil
}

// Revoke is a no-op: clients discard signed tokens themselves.
func (s *SignedService) Revoke(context.Context, model.Principal) error {
	return nil
}

func (s *SignedService) mint(p model.Principal, typ string, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(ttl)
	claims := Claims{
		Username: p.Username,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   p.ID.String(),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, exp, nil
}

func (s *SignedService) parse(tokenStr, wantType string) (Claims, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return Claims{}, apperr.ErrUnauthenticated
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	}, opts...)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", apperr.ErrUnauthenticated, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, apperr.ErrUnauthenticated
	}
	if claims.Type != wantType {
		return Claims{}, apperr.ErrWrongTokenType
	}
	return *claims, nil
}

func (s *SignedService) principal(c Claims) (model.Principal, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return model.Principal{}, fmt.Errorf("%w: bad subject", apperr.ErrUnauthenticated)
	}
	return model.Principal{ID: id, Username: c.Username}, nil
}
