package simulate

import (
	"fmt"
	"sync"

	"github.com/okian/vouch/internal/adapters/http/api"
)

// tokenSource mints and caches bearer tokens per identity. Tokens are
// signed with the same secret the server verifies against, so the
// simulator can act as any participant including the authority.
type tokenSource struct {
	auth *api.Authenticator

	mu    sync.Mutex
	cache map[string]string
}

// newTokenSource creates a token source for the given auth secret.
func newTokenSource(secret string) *tokenSource {
	return &tokenSource{
		auth:  api.NewAuthenticator(secret),
		cache: make(map[string]string),
	}
}

// Token returns a bearer token for the identity, minting on first use.
func (t *tokenSource) Token(identity string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if token, ok := t.cache[identity]; ok {
		return token, nil
	}

	token, err := t.auth.Mint(identity, TokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to mint token for %s: %w", identity, err)
	}
	t.cache[identity] = token
	return token, nil
}
