/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package checker

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/trustbloc/sdjwt-vc-go/vermethod"
)

// CachingResolver keeps the most recently resolved keys. Failed resolutions are not cached.
type CachingResolver struct {
	resolver PublicKeyResolver
	cache    *lru.Cache[string, *vermethod.VerificationMethod]
}

// NewCachingResolver wraps resolver with an LRU cache of the given size.
func NewCachingResolver(resolver PublicKeyResolver, size int) (*CachingResolver, error) {
	cache, err := lru.New[string, *vermethod.VerificationMethod](size)
	if err != nil {
		return nil, fmt.Errorf("create key cache: %w", err)
	}

	return &CachingResolver{resolver: resolver, cache: cache}, nil
}

// ResolvePublicKey returns cached key or resolves it.
func (r *CachingResolver) ResolvePublicKey(ctx context.Context, keyID string) (*vermethod.VerificationMethod, error) {
	if vm, ok := r.cache.Get(keyID); ok {
		return vm, nil
	}

	vm, err := r.resolver.ResolvePublicKey(ctx, keyID)
	if err != nil {
		return nil, err
	}

	r.cache.Add(keyID, vm)

	return vm, nil
}
