// Package keys supplies the access token signing key and the public keys
// published for verification. Keys are loaded once at startup and never
// change for the life of the process; rotation happens by restarting with
// the old key moved to the fallback list.
package keys

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
)

// SigningKey is the private key used to sign access tokens.
type SigningKey struct {
	KeyID     string
	Algorithm string
	Key       crypto.Signer
}

// PublicKey is the public half of a signing key, safe to publish.
type PublicKey struct {
	KeyID     string
	Algorithm string
	Key       crypto.PublicKey
}

// Provider supplies key material to the token service and the JWKS endpoint.
type Provider interface {
	// SigningKey returns the current signing key.
	SigningKey(ctx context.Context) (SigningKey, error)
	// PublicKeys returns every key tokens may be verified with, current
	// signing key first.
	PublicKeys(ctx context.Context) ([]PublicKey, error)
}

// ErrNoSigningKey is returned when no signing key path is configured.
var ErrNoSigningKey = errors.New("signing key file is required")

// FileProvider serves keys loaded from PEM files.
type FileProvider struct {
	signing SigningKey
	public  []PublicKey
}

// NewFileProvider loads the signing key and any fallback keys. Fallback
// files may hold private or public keys; only their public half is used.
func NewFileProvider(signingKeyPath string, fallbackPaths ...string) (*FileProvider, error) {
	if signingKeyPath == "" {
		return nil, ErrNoSigningKey
	}
	signer, err := LoadSigningKey(signingKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing key: %w", err)
	}
	signing, err := newSigningKey(signer)
	if err != nil {
		return nil, err
	}

	public := []PublicKey{signing.public()}
	seen := map[string]bool{signing.KeyID: true}
	for _, path := range fallbackPaths {
		pub, _, err := LoadKey(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load fallback key %s: %w", path, err)
		}
		pk, err := newPublicKey(pub)
		if err != nil {
			return nil, fmt.Errorf("fallback key %s: %w", path, err)
		}
		if seen[pk.KeyID] {
			continue
		}
		seen[pk.KeyID] = true
		public = append(public, pk)
	}
	return &FileProvider{signing: signing, public: public}, nil
}

func (p *FileProvider) SigningKey(_ context.Context) (SigningKey, error) { return p.signing, nil }

func (p *FileProvider) PublicKeys(_ context.Context) ([]PublicKey, error) {
	out := make([]PublicKey, len(p.public))
	copy(out, p.public)
	return out, nil
}

// GeneratingProvider holds an in-memory RSA key created at startup. Tokens
// it signs stop verifying after a restart, so it is meant for development
// and tests only.
type GeneratingProvider struct {
	signing SigningKey
}

// NewGeneratingProvider generates a fresh 2048-bit RSA key.
func NewGeneratingProvider() (*GeneratingProvider, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	signing, err := newSigningKey(key)
	if err != nil {
		return nil, err
	}
	return &GeneratingProvider{signing: signing}, nil
}

func (p *GeneratingProvider) SigningKey(_ context.Context) (SigningKey, error) { return p.signing, nil }

func (p *GeneratingProvider) PublicKeys(_ context.Context) ([]PublicKey, error) {
	return []PublicKey{p.signing.public()}, nil
}

func newSigningKey(signer crypto.Signer) (SigningKey, error) {
	pk, err := newPublicKey(signer.Public())
	if err != nil {
		return SigningKey{}, err
	}
	return SigningKey{KeyID: pk.KeyID, Algorithm: pk.Algorithm, Key: signer}, nil
}

func newPublicKey(pub crypto.PublicKey) (PublicKey, error) {
	alg, err := DeriveAlgorithm(pub)
	if err != nil {
		return PublicKey{}, fmt.Errorf("failed to derive algorithm: %w", err)
	}
	kid, err := DeriveKeyID(pub)
	if err != nil {
		return PublicKey{}, fmt.Errorf("failed to derive key ID: %w", err)
	}
	return PublicKey{KeyID: kid, Algorithm: alg, Key: pub}, nil
}

func (k SigningKey) public() PublicKey {
	return PublicKey{KeyID: k.KeyID, Algorithm: k.Algorithm, Key: k.Key.Public()}
}

var (
	_ Provider = (*FileProvider)(nil)
	_ Provider = (*GeneratingProvider)(nil)
)
