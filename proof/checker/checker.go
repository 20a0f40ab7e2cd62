/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package checker

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"
	"github.com/trustbloc/kms-go/doc/jose"
	"github.com/trustbloc/kms-go/spi/kms"

	"github.com/trustbloc/sdjwt-vc-go/crypto-ext/pubkey"
	proofdesc "github.com/trustbloc/sdjwt-vc-go/proof"
	"github.com/trustbloc/sdjwt-vc-go/proof/jwtproofs"
	"github.com/trustbloc/sdjwt-vc-go/vcerr"
	"github.com/trustbloc/sdjwt-vc-go/vermethod"
)

//go:generate mockgen -destination ../../internal/mock/keyresolver/keyresolver.go -package keyresolver . PublicKeyResolver

// PublicKeyResolver maps a key identifier to public key material.
type PublicKeyResolver interface {
	ResolvePublicKey(ctx context.Context, keyID string) (*vermethod.VerificationMethod, error)
}

// nolint: gochecknoglobals
var possibleIssuerPath = []string{
	"vc.issuer.id",
	"vc.issuer",
	"issuer.id",
	"issuer",
	"iss",
}

// ProofChecker checks JWS signatures of tokens against keys returned by a resolver.
type ProofChecker struct {
	resolver    PublicKeyResolver
	allowedAlgs []jwtproofs.Algorithm
}

// Opt represent checker creation options.
type Opt func(c *ProofChecker)

// WithJWTAlg restricts accepted algorithms. By default every registered algorithm is accepted.
func WithJWTAlg(algs ...jwtproofs.Algorithm) Opt {
	return func(c *ProofChecker) {
		c.allowedAlgs = append(c.allowedAlgs, algs...)
	}
}

// New creates new proof checker.
func New(resolver PublicKeyResolver, opts ...Opt) *ProofChecker {
	c := &ProofChecker{resolver: resolver}

	for _, opt := range opts {
		opt(c)
	}

	if len(c.allowedAlgs) == 0 {
		c.allowedAlgs = jwtproofs.Algorithms()
	}

	return c
}

// CheckJWTProof checks jwt proof. The key is looked up by the kid header; a relative kid ("#key-1")
// is resolved against expectedProofIssuer, and a missing kid falls back to expectedProofIssuer.
func (c *ProofChecker) CheckJWTProof(ctx context.Context, headers jose.Headers, expectedProofIssuer string,
	msg, signature []byte) error {
	supportedProof, err := c.supportedProof(headers)
	if err != nil {
		return err
	}

	keyID := resolveKeyID(headers, expectedProofIssuer)
	if keyID == "" {
		return vcerr.New(vcerr.KindResolutionFailed, "missed kid in jwt header")
	}

	if err = checkKeyIssuer(keyID, expectedProofIssuer); err != nil {
		return err
	}

	if c.resolver == nil {
		return vcerr.New(vcerr.KindResolutionFailed, "no public key resolver for kid %s", keyID)
	}

	vm, err := c.resolver.ResolvePublicKey(ctx, keyID)
	if err != nil {
		return vcerr.Wrap(vcerr.KindResolutionFailed, fmt.Errorf("invalid public key id: %w", err))
	}

	return c.verify(supportedProof, vm, msg, signature)
}

// CheckJWTProofWithKey checks jwt proof against a key already known to the caller (e.g. a cnf JWK).
func (c *ProofChecker) CheckJWTProofWithKey(headers jose.Headers, vm *vermethod.VerificationMethod,
	msg, signature []byte) error {
	supportedProof, err := c.supportedProof(headers)
	if err != nil {
		return err
	}

	return c.verify(supportedProof, vm, msg, signature)
}

func (c *ProofChecker) supportedProof(headers jose.Headers) (*jwtproofs.Proof, error) {
	alg, ok := headers.Algorithm()
	if !ok {
		return nil, vcerr.New(vcerr.KindUnsupportedAlgorithm, "missed alg in jwt header")
	}

	supportedProof, err := jwtproofs.Lookup(alg)
	if err != nil {
		return nil, err
	}

	if !lo.Contains(c.allowedAlgs, supportedProof.Algorithm()) {
		return nil, vcerr.New(vcerr.KindUnsupportedAlgorithm, "alg '%s' is not in the allowed list", alg)
	}

	return supportedProof, nil
}

func (c *ProofChecker) verify(supportedProof *jwtproofs.Proof, vm *vermethod.VerificationMethod,
	msg, signature []byte) error {
	pubKey, err := convertToPublicKey(supportedProof.SupportedVerificationMethods(), vm)
	if err != nil {
		return vcerr.New(vcerr.KindUnsupportedAlgorithm, "jwt with alg %s check: %w",
			supportedProof.JWTAlgorithm(), err)
	}

	return supportedProof.Verify(signature, msg, pubKey)
}

// FindIssuer finds issuer in payload.
func (c *ProofChecker) FindIssuer(payload []byte) string {
	parsed := gjson.ParseBytes(payload)

	for _, p := range possibleIssuerPath {
		if str := parsed.Get(p).Str; str != "" {
			return str
		}
	}

	return ""
}

func resolveKeyID(headers jose.Headers, expectedProofIssuer string) string {
	keyID, ok := headers.KeyID()
	if !ok || keyID == "" {
		return expectedProofIssuer
	}

	if strings.HasPrefix(keyID, "#") && strings.HasPrefix(expectedProofIssuer, "did:") {
		return expectedProofIssuer + keyID
	}

	return keyID
}

// checkKeyIssuer makes sure a DID key belongs to the expected DID issuer.
func checkKeyIssuer(keyID, expectedProofIssuer string) error {
	keyDID, _, ok := vermethod.SplitDIDURL(keyID)
	if !ok || !strings.HasPrefix(expectedProofIssuer, "did:") {
		return nil
	}

	if expectedDID, _, _ := vermethod.SplitDIDURL(expectedProofIssuer); keyDID != expectedDID {
		return vcerr.New(vcerr.KindClaimsConstraintViolation, "invalid issuer. expected %q got %q",
			expectedDID, keyDID)
	}

	return nil
}

func convertToPublicKey(
	supportedMethods []proofdesc.SupportedVerificationMethod,
	vm *vermethod.VerificationMethod,
) (*pubkey.PublicKey, error) {
	if vm == nil {
		return nil, fmt.Errorf("verification method is empty")
	}

	for _, supported := range supportedMethods {
		if supported.VerificationMethodType != vm.Type {
			continue
		}

		if vm.JWK == nil && supported.RequireJWK {
			continue
		}

		if vm.JWK != nil && (supported.JWKKeyType != vm.JWK.Kty || supported.JWKCurve != vm.JWK.Crv) {
			continue
		}

		return createPublicKey(vm, supported.KMSKeyType), nil
	}

	jwkKty := ""
	jwkCrv := ""

	if vm.JWK != nil {
		jwkKty = vm.JWK.Kty
		jwkCrv = vm.JWK.Crv
	}

	return nil, fmt.Errorf("can't verifiy with %q verification method (jwk type %q, jwk curve %q)",
		vm.Type, jwkKty, jwkCrv)
}

func createPublicKey(vm *vermethod.VerificationMethod, keyType kms.KeyType) *pubkey.PublicKey {
	if vm.JWK != nil {
		return &pubkey.PublicKey{Type: keyType, JWK: vm.JWK}
	}

	return &pubkey.PublicKey{Type: keyType, BytesKey: &pubkey.BytesKey{Bytes: vm.Value}}
}
