/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vermethod

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/trustbloc/kms-go/doc/jose/jwk"
)

// ErrNotFound is returned when no key exists for the requested key id.
var ErrNotFound = errors.New("verification method not found")

// VerificationMethod is defined either as raw public key bytes (Value field) or as JSON Web Key.
type VerificationMethod struct {
	Type  string
	Value []byte
	JWK   *jwk.JWK
}

// StaticResolver resolves verification methods from a fixed key id map.
type StaticResolver map[string]*VerificationMethod

// ResolvePublicKey returns the verification method registered under keyID.
func (r StaticResolver) ResolvePublicKey(ctx context.Context, keyID string) (*VerificationMethod, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vm, ok := r[keyID]
	if !ok {
		return nil, fmt.Errorf("key %s: %w", keyID, ErrNotFound)
	}

	return vm, nil
}

// SplitDIDURL splits a DID URL into the DID and the "#fragment". ok is false for non DID URLs.
func SplitDIDURL(didURL string) (string, string, bool) {
	if !strings.HasPrefix(didURL, "did:") {
		return "", "", false
	}

	methodDID, fragment, found := strings.Cut(didURL, "#")
	if !found || fragment == "" {
		return methodDID, "", true
	}

	return methodDID, "#" + fragment, true
}
