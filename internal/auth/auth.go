// Package auth verifies the bearer tokens presented to the REST API and the
// websocket endpoint.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"

	"github.com/thenoetrevino/kanban/internal/models"
)

var (
	ErrMissingToken = fmt.Errorf("missing authorization header: %w", models.ErrUnauthenticated)
	ErrBadHeader    = fmt.Errorf("bad auth header: %w", models.ErrUnauthenticated)
	ErrInvalidToken = fmt.Errorf("invalid token: %w", models.ErrUnauthenticated)
	ErrNoVerifier   = errors.New("either a jwt secret or a jwks url is required")
)

// Identity is the caller a verified token speaks for
type Identity struct {
	UserID string
	Name   string
	Email  string
}

// User converts the identity into the record kept for display names
func (i Identity) User() models.User {
	name := i.Name
	if name == "" {
		name = i.UserID
	}
	return models.User{ID: i.UserID, Name: name, Email: i.Email}
}

// Options selects the verification mode. JWKSURL wins when both are set.
type Options struct {
	Secret   string
	JWKSURL  string
	Audience string
	Issuer   string
	Log      logrus.FieldLogger
}

// Authenticator validates incoming JWT tokens, either signed with a shared
// HS256 secret or with RS256 keys published at a JWKS endpoint.
type Authenticator struct {
	jwks     *keyfunc.JWKS
	secret   []byte
	audience string
	issuer   string
	parser   *jwt.Parser
}

// New builds an authenticator. With a JWKS url the key set is fetched once and
// refreshed in the background until Close.
func New(opts Options) (*Authenticator, error) {
	a := &Authenticator{audience: opts.Audience, issuer: opts.Issuer}
	switch {
	case opts.JWKSURL != "":
		log := opts.Log
		if log == nil {
			log = logrus.StandardLogger()
		}
		jwks, err := keyfunc.Get(opts.JWKSURL, keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				log.WithError(err).Warn("jwks refresh failed")
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch jwks: %w", err)
		}
		a.jwks = jwks
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}))
	case opts.Secret != "":
		a.secret = []byte(opts.Secret)
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	default:
		return nil, ErrNoVerifier
	}
	return a, nil
}

// Close stops the background JWKS refresh
func (a *Authenticator) Close() {
	if a.jwks != nil {
		a.jwks.EndBackground()
	}
}

func (a *Authenticator) keyfunc(token *jwt.Token) (interface{}, error) {
	if a.jwks != nil {
		return a.jwks.Keyfunc(token)
	}
	return a.secret, nil
}

// Verify parses tokenStr and returns the identity in its claims
func (a *Authenticator) Verify(tokenStr string) (Identity, error) {
	if strings.Count(tokenStr, ".") != 2 {
		return Identity{}, ErrBadHeader
	}
	token, err := a.parser.Parse(tokenStr, a.keyfunc)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}

	now := time.Now().Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return Identity{}, fmt.Errorf("%w: token expired", ErrInvalidToken)
	}
	if !claims.VerifyNotBefore(now, false) {
		return Identity{}, fmt.Errorf("%w: token not valid yet", ErrInvalidToken)
	}
	// aud and iss are only checked when configured
	if a.audience != "" && !claims.VerifyAudience(a.audience, true) {
		return Identity{}, fmt.Errorf("%w: invalid audience", ErrInvalidToken)
	}
	if a.issuer != "" && !claims.VerifyIssuer(a.issuer, true) {
		return Identity{}, fmt.Errorf("%w: invalid issuer", ErrInvalidToken)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	name, _ := claims["name"].(string)
	email, _ := claims["email"].(string)
	return Identity{UserID: sub, Name: name, Email: email}, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrBadHeader
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrBadHeader
	}
	return token, nil
}

// FromRequest reads the token from the Authorization header, falling back to
// the token query parameter browsers use for websockets.
func FromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		return BearerToken(h)
	}
	if t := r.URL.Query().Get("token"); t != "" {
		return t, nil
	}
	return "", ErrMissingToken
}

// Authenticate verifies the credential carried by r
func (a *Authenticator) Authenticate(r *http.Request) (Identity, error) {
	token, err := FromRequest(r)
	if err != nil {
		return Identity{}, err
	}
	return a.Verify(token)
}

// IssueParams describes a token minted for local development
type IssueParams struct {
	UserID   string
	Name     string
	Email    string
	Audience string
	Issuer   string
	TTL      time.Duration
}

// Issue signs an HS256 token with secret
func Issue(secret string, p IssueParams) (string, error) {
	if secret == "" {
		return "", ErrNoVerifier
	}
	if p.UserID == "" {
		return "", errors.New("user id is required")
	}
	if p.TTL <= 0 {
		p.TTL = 24 * time.Hour
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": p.UserID,
		"iat": now.Unix(),
		"exp": now.Add(p.TTL).Unix(),
	}
	if p.Name != "" {
		claims["name"] = p.Name
	}
	if p.Email != "" {
		claims["email"] = p.Email
	}
	if p.Audience != "" {
		claims["aud"] = p.Audience
	}
	if p.Issuer != "" {
		claims["iss"] = p.Issuer
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Subject reads the sub claim without verifying the signature. Clients use
// it to learn who they are; servers must use Verify.
func Subject(tokenStr string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	return sub, nil
}
