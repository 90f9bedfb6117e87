package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPIdentityVerifier resolves provider tokens against the provider's
// token-info endpoint. Endpoints are injected so tests can point at a local
// server.
type HTTPIdentityVerifier struct {
	client    *http.Client
	endpoints map[string]string
}

// DefaultProviderEndpoints are the token-info URLs for supported providers.
var DefaultProviderEndpoints = map[string]string{
	"google": "https://oauth2.googleapis.com/tokeninfo",
}

func NewHTTPIdentityVerifier(endpoints map[string]string) *HTTPIdentityVerifier {
	if endpoints == nil {
		endpoints = DefaultProviderEndpoints
	}
	return &HTTPIdentityVerifier{
		client:    &http.Client{Timeout: 10 * time.Second},
		endpoints: endpoints,
	}
}

func (v *HTTPIdentityVerifier) Verify(ctx context.Context, provider, providerToken string) (*ExternalIdentity, error) {
	endpoint, ok := v.endpoints[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}

	reqURL := endpoint + "?id_token=" + url.QueryEscape(providerToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider rejected token, status %d", resp.StatusCode)
	}

	var payload struct {
		Email         string `json:"email"`
		EmailVerified string `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("provider response malformed: %w", err)
	}

	if payload.Email == "" {
		return nil, fmt.Errorf("provider response missing email")
	}

	return &ExternalIdentity{
		Provider:      provider,
		Email:         payload.Email,
		DisplayName:   payload.Name,
		EmailVerified: payload.EmailVerified == "true",
	}, nil
}
