package token

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/devmadlani/auth-service/internal/keys"
)

// KeySource yields the public key set access tokens are verified against.
type KeySource interface {
	JWKS(ctx context.Context) (jose.JSONWebKeySet, error)
}

// LocalKeys serves the public keys of an in-process key provider.
type LocalKeys struct {
	Provider keys.Provider
}

func (l LocalKeys) JWKS(ctx context.Context) (jose.JSONWebKeySet, error) {
	return keys.JWKS(ctx, l.Provider)
}

// RemoteKeys serves a JWKS fetched from a URL and refreshed in the
// background by a jwk.Cache.
type RemoteKeys struct {
	url   string
	cache *jwk.Cache
}

// NewRemoteKeys registers url with a new cache. ctx bounds the lifetime of
// the cache's refresh goroutines.
func NewRemoteKeys(ctx context.Context, url string, client *http.Client) (*RemoteKeys, error) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	cache, err := jwk.NewCache(ctx, httprc.NewClient(httprc.WithHTTPClient(client)))
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS cache: %w", err)
	}

	registrationCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cache.Register(registrationCtx, url); err != nil {
		return nil, fmt.Errorf("failed to register JWKS URL: %w", err)
	}
	return &RemoteKeys{url: url, cache: cache}, nil
}

func (r *RemoteKeys) JWKS(ctx context.Context) (jose.JSONWebKeySet, error) {
	set, err := r.cache.Lookup(ctx, r.url)
	if err != nil {
		return jose.JSONWebKeySet{}, fmt.Errorf("failed to lookup JWKS: %w", err)
	}
	// Both libraries speak RFC 7517 JSON; round-trip into the go-jose form
	// the verifier works with.
	raw, err := json.Marshal(set)
	if err != nil {
		return jose.JSONWebKeySet{}, fmt.Errorf("failed to encode JWKS: %w", err)
	}
	var out jose.JSONWebKeySet
	if err := json.Unmarshal(raw, &out); err != nil {
		return jose.JSONWebKeySet{}, fmt.Errorf("failed to decode JWKS: %w", err)
	}
	return out, nil
}

var (
	_ KeySource = LocalKeys{}
	_ KeySource = (*RemoteKeys)(nil)
)
