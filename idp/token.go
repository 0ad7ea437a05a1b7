package idp

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

// expirySkew is subtracted from the token lifetime so a token close to
// expiring is never sent to the provider.
const expirySkew = 30 * time.Second

// tokenSource caches a client-credentials access token until close to its
// expiry. Concurrent refreshes collapse into a single token request.
type tokenSource struct {
	conf *clientcredentials.Config

	mu          sync.Mutex
	accessToken string
	expiry      time.Time

	group singleflight.Group
}

func newTokenSource(tokenURL, clientID, clientSecret string) *tokenSource {
	return &tokenSource{
		conf: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
		},
	}
}

// Token returns a valid cached access token, refreshing it when expired.
func (t *tokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	if t.accessToken != "" && time.Now().Before(t.expiry) {
		accessToken := t.accessToken
		t.mu.Unlock()
		return accessToken, nil
	}
	t.mu.Unlock()

	val, err, _ := t.group.Do("token", func() (any, error) {
		tok, err := t.conf.Token(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed obtaining access token")
		}
		t.mu.Lock()
		t.accessToken = tok.AccessToken
		t.expiry = tok.Expiry.Add(-expirySkew)
		t.mu.Unlock()
		return tok.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return val.(string), nil
}

// Invalidate discards the cached token if it still matches accessToken,
// forcing the next call to fetch a fresh one. Used when the provider
// rejects a request with 401.
func (t *tokenSource) Invalidate(accessToken string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.accessToken == accessToken {
		t.accessToken = ""
		t.expiry = time.Time{}
	}
}
