// auth.go
// --------
// Credential schemes. A client carries exactly one; it is applied to every
// physical attempt just before the transport call, so refreshed tokens are
// picked up between retries.
package edgeclient

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/oauth2"
)

// Credentials attaches authentication to an outbound request.
type Credentials interface {
	Apply(req *http.Request) error
}

// TokenCredentials sends a static bearer token.
type TokenCredentials struct {
	Token string
}

func (t TokenCredentials) Apply(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+t.Token)
	return nil
}

// KeyCredentials sends the legacy email + API key header pair.
type KeyCredentials struct {
	Email string
	Key   string
}

func (k KeyCredentials) Apply(req *http.Request) error {
	req.Header.Set("X-Auth-Email", k.Email)
	req.Header.Set("X-Auth-Key", k.Key)
	return nil
}

// OAuthCredentials draws bearer tokens from an oauth2 token source, which
// handles refresh on its own schedule.
type OAuthCredentials struct {
	Source oauth2.TokenSource
}

func (o OAuthCredentials) Apply(req *http.Request) error {
	token, err := o.Source.Token()
	if err != nil {
		return err
	}
	token.SetAuthHeader(req)
	return nil
}

// ServiceTokenCredentials mints a short-lived HS256-signed service token
// per request, for gateways that validate a shared-secret JWT instead of
// a stored API token.
type ServiceTokenCredentials struct {
	ClientID string
	Secret   []byte
	TTL      time.Duration // defaults to 5 minutes

	now func() time.Time // test hook
}

func (s ServiceTokenCredentials) Apply(req *http.Request) error {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	claims := jwt.RegisteredClaims{
		Issuer:    s.ClientID,
		IssuedAt:  jwt.NewNumericDate(now()),
		ExpiresAt: jwt.NewNumericDate(now().Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+signed)
	return nil
}
