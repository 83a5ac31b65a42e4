// Package identity consumes the external identity service. Credentials are
// never inspected here; a token goes in, an authenticated identity comes out.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voxhall/voxhall/internal/domain"
)

// Provider resolves an opaque client token into an authenticated identity.
type Provider interface {
	Resolve(ctx context.Context, token string) (domain.UserIdentity, error)
}

// RetryPolicy bounds re-attempts against the identity service. After the
// last attempt the failure is surfaced to the caller, never swallowed.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// HTTPProvider calls GET {baseURL}/resolve with a bearer token.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
	retry   RetryPolicy
}

func NewHTTPProvider(baseURL string, retry RetryPolicy) *HTTPProvider {
	if retry.Attempts < 1 {
		retry.Attempts = 1
	}
	return &HTTPProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		retry:   retry,
	}
}

func (p *HTTPProvider) Resolve(ctx context.Context, token string) (domain.UserIdentity, error) {
	var lastErr error
	for attempt := 1; attempt <= p.retry.Attempts; attempt++ {
		id, retryable, err := p.resolveOnce(ctx, token)
		if err == nil {
			return id, nil
		}
		if !retryable {
			return domain.UserIdentity{}, err
		}
		lastErr = err
		log.Warn().Err(err).Str("module", "identity").
			Int("attempt", attempt).Int("max", p.retry.Attempts).
			Msg("identity resolve failed")
		if attempt == p.retry.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return domain.UserIdentity{}, ctx.Err()
		case <-time.After(p.retry.Backoff):
		}
	}
	return domain.UserIdentity{}, fmt.Errorf("identity resolve exhausted %d attempts: %w", p.retry.Attempts, lastErr)
}

func (p *HTTPProvider) resolveOnce(ctx context.Context, token string) (domain.UserIdentity, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/resolve", nil)
	if err != nil {
		return domain.UserIdentity{}, false, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.UserIdentity{}, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var id domain.UserIdentity
		if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
			return domain.UserIdentity{}, false, fmt.Errorf("decode identity: %w", err)
		}
		return id, false, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.UserIdentity{}, false, domain.ErrUnauthorized
	default:
		return domain.UserIdentity{}, true, fmt.Errorf("identity service status %d", resp.StatusCode)
	}
}

// StaticProvider maps fixed tokens to identities. Test helper.
type StaticProvider struct {
	Identities map[string]domain.UserIdentity
}

func (p *StaticProvider) Resolve(_ context.Context, token string) (domain.UserIdentity, error) {
	id, ok := p.Identities[token]
	if !ok {
		return domain.UserIdentity{}, domain.ErrUnauthorized
	}
	return id, nil
}
