package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"leavehr/internal/domain/auth"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnavailable     = errors.New("identity provider unavailable")
)

// Provider resolves a bearer token into the calling principal.
type Provider interface {
	Validate(ctx context.Context, token string) (auth.UserContext, error)
}

// JWTProvider validates HS256 tokens signed with a shared secret.
type JWTProvider struct {
	Secret string
}

func NewJWTProvider(secret string) *JWTProvider {
	return &JWTProvider{Secret: secret}
}

func (p *JWTProvider) Validate(ctx context.Context, token string) (auth.UserContext, error) {
	claims, err := auth.ParseToken(p.Secret, token)
	if err != nil {
		return auth.UserContext{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return auth.UserContext{UserID: claims.UserID, RoleName: claims.RoleName}, nil
}

// RemoteProvider asks an external auth service: GET {base}/validate with the
// bearer token forwarded, answering {"userId": "...", "role": "..."}.
type RemoteProvider struct {
	BaseURL string
	Client  *http.Client
}

func NewRemoteProvider(baseURL string, timeout time.Duration) *RemoteProvider {
	return &RemoteProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

func (p *RemoteProvider) Validate(ctx context.Context, token string) (auth.UserContext, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/validate", nil)
	if err != nil {
		return auth.UserContext{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := p.Client.Do(req)
	if err != nil {
		return auth.UserContext{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return auth.UserContext{}, ErrUnauthenticated
	case resp.StatusCode != http.StatusOK:
		return auth.UserContext{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var user auth.UserContext
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return auth.UserContext{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if user.UserID == "" || !auth.ValidRole(user.RoleName) {
		return auth.UserContext{}, ErrUnauthenticated
	}
	return user, nil
}
