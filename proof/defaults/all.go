/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package defaults

import (
	"fmt"

	"github.com/trustbloc/sdjwt-vc-go/proof/checker"
)

const defaultKeyCacheSize = 100

// NewDefaultProofChecker creates a checker accepting every registered jwt alg.
func NewDefaultProofChecker(resolver checker.PublicKeyResolver) *checker.ProofChecker {
	return checker.New(resolver)
}

// NewCachingProofChecker creates a default checker that keeps resolved keys in an LRU cache.
func NewCachingProofChecker(resolver checker.PublicKeyResolver, cacheSize int) (*checker.ProofChecker, error) {
	if cacheSize <= 0 {
		cacheSize = defaultKeyCacheSize
	}

	cached, err := checker.NewCachingResolver(resolver, cacheSize)
	if err != nil {
		return nil, fmt.Errorf("default proof checker: %w", err)
	}

	return checker.New(cached), nil
}
