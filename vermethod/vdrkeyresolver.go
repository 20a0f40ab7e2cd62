/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vermethod

import (
	"context"
	"fmt"
	"strings"

	"github.com/trustbloc/did-go/doc/did"
	vdrapi "github.com/trustbloc/did-go/vdr/api"
)

type didResolver interface {
	Resolve(did string, opts ...vdrapi.DIDMethodOption) (*did.DocResolution, error)
}

// VDRResolver resolves DID URLs to public keys using vdr.Registry.
// Only verification relationships usable for assertions are considered; key agreement keys are skipped.
type VDRResolver struct {
	vdr didResolver
}

// NewVDRResolver creates VDRResolver.
func NewVDRResolver(vdr didResolver) *VDRResolver {
	return &VDRResolver{vdr: vdr}
}

type resolution struct {
	doc *did.DocResolution
	err error
}

// ResolvePublicKey resolves verification method by DID URL key id. The registry call does not accept
// a context, so it runs in its own goroutine and ctx cancellation returns early.
func (r *VDRResolver) ResolvePublicKey(ctx context.Context, keyID string) (*VerificationMethod, error) {
	methodDID, fragment, ok := SplitDIDURL(keyID)
	if !ok || fragment == "" {
		return nil, fmt.Errorf("wrong id %s to resolve", keyID)
	}

	done := make(chan resolution, 1)

	go func() {
		docResolution, err := r.vdr.Resolve(methodDID)
		done <- resolution{doc: docResolution, err: err}
	}()

	var res resolution

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("resolve DID %s: %w", methodDID, ctx.Err())
	case res = <-done:
	}

	if res.err != nil {
		return nil, fmt.Errorf("resolve DID %s: %w", methodDID, res.err)
	}

	if res.doc == nil || res.doc.DIDDocument == nil {
		return nil, fmt.Errorf("resolve DID %s: empty document", methodDID)
	}

	for _, verifications := range res.doc.DIDDocument.VerificationMethods() {
		for _, verification := range verifications {
			if verification.Relationship == did.KeyAgreement {
				continue
			}

			vmID := verification.VerificationMethod.ID
			if vmID != keyID && vmID != fragment && !strings.HasSuffix(vmID, fragment) {
				continue
			}

			return &VerificationMethod{
				Type:  verification.VerificationMethod.Type,
				Value: verification.VerificationMethod.Value,
				JWK:   verification.VerificationMethod.JSONWebKey(),
			}, nil
		}
	}

	return nil, fmt.Errorf("public key with KID %s is not found for DID %s: %w", fragment, methodDID, ErrNotFound)
}
