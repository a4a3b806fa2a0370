package keys

import (
	"context"

	"github.com/go-jose/go-jose/v4"
)

// JWKS returns the public key set of p in JSON Web Key Set form.
func JWKS(ctx context.Context, p Provider) (jose.JSONWebKeySet, error) {
	pubs, err := p.PublicKeys(ctx)
	if err != nil {
		return jose.JSONWebKeySet{}, err
	}
	set := jose.JSONWebKeySet{Keys: make([]jose.JSONWebKey, 0, len(pubs))}
	for _, k := range pubs {
		set.Keys = append(set.Keys, jose.JSONWebKey{
			Key:       k.Key,
			KeyID:     k.KeyID,
			Algorithm: k.Algorithm,
			Use:       "sig",
		})
	}
	return set, nil
}
