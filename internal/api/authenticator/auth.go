package authenticator

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/taigaio/taiga/internal/config"
	"github.com/taigaio/taiga/internal/services/user"
)

const tokenIssuer = "taiga"

var (
	ErrInvalidToken = errors.New("invalid access token")
	ErrOIDCDisabled = errors.New("single sign-on is not configured")
)

// UserClaims are the claims of the access tokens issued by GenerateToken
type UserClaims struct {
	UserID   uuid.UUID `json:"uid"`
	Username string    `json:"username"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	*oidc.Provider
	oauth2.Config

	secret      []byte
	tokenTTL    time.Duration
	stateSecret string
	oidcEnabled bool
}

// New builds an Authenticator. OIDC login is only set up when OIDC_ISSUER is configured.
func New(conf *config.Config) (*Authenticator, error) {
	secret := []byte(conf.JWT_SECRET)
	if len(secret) == 0 {
		slog.Warn("JWT_SECRET is not set, using a random secret. Tokens will not survive a restart")
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
	}

	a := &Authenticator{
		secret:      secret,
		tokenTTL:    conf.JWT_TTL,
		stateSecret: conf.STATE_SECRET,
	}
	if a.stateSecret == "" {
		a.stateSecret = string(secret)
	}

	if conf.OIDC_ISSUER == "" {
		return a, nil
	}

	provider, err := oidc.NewProvider(context.Background(), conf.OIDC_ISSUER)
	if err != nil {
		return nil, fmt.Errorf("failed to discover oidc provider: %w", err)
	}

	a.Provider = provider
	a.Config = oauth2.Config{
		ClientID:     conf.OIDC_CLIENT_ID,
		ClientSecret: conf.OIDC_CLIENT_SECRET,
		RedirectURL:  conf.OIDC_CALLBACK_URL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}
	a.oidcEnabled = true

	return a, nil
}

func (a *Authenticator) OIDCEnabled() bool {
	return a.oidcEnabled
}

func (a *Authenticator) TokenTTL() time.Duration {
	return a.tokenTTL
}

// GenerateToken issues an HS256 access token for u
func (a *Authenticator) GenerateToken(u *user.User) (string, error) {
	now := time.Now()
	claims := UserClaims{
		UserID:   u.ID,
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) VerifyAccessToken(token string) (*UserClaims, error) {
	var claims UserClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}

	return &claims, nil
}

// VerifyIDToken verifies that an *oauth2.Token is a valid *oidc.IDToken.
func (a *Authenticator) VerifyIDToken(ctx context.Context, token *oauth2.Token) (*oidc.IDToken, error) {
	if !a.oidcEnabled {
		return nil, ErrOIDCDisabled
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("no id_token field in oauth2 token")
	}

	oidcConfig := &oidc.Config{
		ClientID: a.ClientID,
	}

	return a.Verifier(oidcConfig).Verify(ctx, rawIDToken)
}

type OAuthState struct {
	CSRF      string `json:"csrf"`
	Redirect  string `json:"redirect"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

func (a *Authenticator) GetSignedState(state OAuthState) (string, error) {
	payload, err := sonic.Marshal(state)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, []byte(a.stateSecret))
	mac.Write(payload)
	sig := mac.Sum(nil)

	combined := append(payload, sig...)
	return base64.RawURLEncoding.EncodeToString(combined), nil
}

func (a *Authenticator) VerifySignedState(encodedState string) (*OAuthState, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encodedState)
	if err != nil {
		return nil, errors.New("invalid base64")
	}

	if len(raw) < sha256.Size {
		return nil, errors.New("state too short")
	}

	payload := raw[:len(raw)-sha256.Size]
	sig := raw[len(raw)-sha256.Size:]

	mac := hmac.New(sha256.New, []byte(a.stateSecret))
	mac.Write(payload)
	expectedSig := mac.Sum(nil)
	if !hmac.Equal(sig, expectedSig) {
		return nil, errors.New("invalid state signature")
	}

	var state OAuthState
	if err := sonic.Unmarshal(payload, &state); err != nil {
		return nil, errors.New("invalid state payload")
	}

	if time.Now().Unix() > state.ExpiresAt {
		return nil, errors.New("state expired")
	}

	return &state, nil
}

// NewState returns a signed login state that expires after ttl
func (a *Authenticator) NewState(redirect string, ttl time.Duration) (string, error) {
	csrf := make([]byte, 16)
	if _, err := rand.Read(csrf); err != nil {
		return "", err
	}

	now := time.Now()
	return a.GetSignedState(OAuthState{
		CSRF:      base64.RawURLEncoding.EncodeToString(csrf),
		Redirect:  redirect,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	})
}
