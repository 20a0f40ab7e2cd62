/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

/*
Package verifier enables the Verifier: an entity that requests, checks and extracts the claims from an SD-JWT
and respective Disclosures.

Checks run in a fixed order. Disclosure integrity is checked first, so a tampered presentation is rejected
as such before any key resolution. The issuer signature is checked next over the exact received bytes.
*/
package verifier

import (
	"context"
	"crypto"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/trustbloc/sdjwt-vc-go/jwt"
	"github.com/trustbloc/sdjwt-vc-go/sdjwt/common"
	"github.com/trustbloc/sdjwt-vc-go/vcerr"
)

// Presentation is a decoded SD-JWT presentation. Nothing in it is trusted until CheckIntegrity and
// VerifySignature succeed.
type Presentation struct {
	Token       *common.SDToken
	IssuerJWT   *jwt.CompactToken
	Payload     map[string]interface{}
	Hash        crypto.Hash
	Disclosures []*common.DisclosureClaim

	reconstruction *common.Reconstruction
	signatureValid bool
}

// Decode splits the combined format and decodes the issuer JWT and disclosures without any verification.
func Decode(sdJWT string) (*Presentation, error) {
	token, err := common.ParseSDToken(sdJWT)
	if err != nil {
		return nil, err
	}

	issuerJWT, err := jwt.Decode(token.IssuerJWT)
	if err != nil {
		return nil, fmt.Errorf("decode issuer-signed JWT: %w", err)
	}

	if err = jwt.CheckHeaders(issuerJWT.Headers); err != nil {
		return nil, fmt.Errorf("issuer-signed JWT headers: %w", err)
	}

	payload, err := jwt.PayloadToMap(issuerJWT.Payload)
	if err != nil {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "issuer-signed JWT payload: %w", err)
	}

	hash, err := common.GetCryptoHashFromClaims(payload)
	if err != nil {
		return nil, err
	}

	disclosures, err := common.ParseDisclosures(token.Disclosures, hash)
	if err != nil {
		return nil, err
	}

	return &Presentation{
		Token:       token,
		IssuerJWT:   issuerJWT,
		Payload:     payload,
		Hash:        hash,
		Disclosures: disclosures,
	}, nil
}

// CheckIntegrity makes sure every disclosure is referenced exactly once and no digest repeats.
func (p *Presentation) CheckIntegrity() error {
	if err := common.CheckForDuplicateDigests(p.Payload, p.Disclosures...); err != nil {
		return err
	}

	rec, err := common.Reconstruct(p.Payload, p.Disclosures)
	if err != nil {
		return err
	}

	p.reconstruction = rec

	return nil
}

// CheckType rejects the issuer JWT unless its typ header is one of expected. Empty expected accepts any typ.
func (p *Presentation) CheckType(expected ...string) error {
	if len(expected) == 0 {
		return nil
	}

	typ, _ := p.IssuerJWT.Headers.Type()

	if !lo.Contains(expected, typ) {
		return vcerr.New(vcerr.KindMalformedEncoding, "unexpected issuer JWT typ %q, expected one of %v", typ, expected)
	}

	return nil
}

// CheckNonSelectivelyDisclosable rejects disclosures of the given top-level claims.
func (p *Presentation) CheckNonSelectivelyDisclosable(names ...string) error {
	if p.reconstruction == nil {
		return vcerr.New(vcerr.KindDisclosureIntegrityViolation, "integrity is not checked")
	}

	for _, dc := range p.Disclosures {
		path := p.reconstruction.Locations[dc.Digest].Path

		if lo.Contains(names, strings.TrimPrefix(path, "/")) {
			return vcerr.New(vcerr.KindClaimsConstraintViolation,
				"claim '%s' must not be selectively disclosable", dc.Name)
		}
	}

	return nil
}

// VerifySignature checks the issuer signature. The signing key must belong to the "iss" DID if both are DIDs.
func (p *Presentation) VerifySignature(ctx context.Context, checker jwt.ProofChecker) error {
	iss, _ := p.Payload["iss"].(string)

	if err := p.IssuerJWT.Verify(ctx, checker, iss); err != nil {
		return err
	}

	p.signatureValid = true

	return nil
}

// DisclosedClaims returns the claims with disclosures applied. Integrity must be checked first.
func (p *Presentation) DisclosedClaims() (map[string]interface{}, error) {
	if p.reconstruction == nil {
		return nil, vcerr.New(vcerr.KindDisclosureIntegrityViolation, "integrity is not checked")
	}

	return p.reconstruction.Claims, nil
}

// DisclosedPaths returns JSON pointer of every presented disclosure.
func (p *Presentation) DisclosedPaths() []string {
	if p.reconstruction == nil {
		return nil
	}

	return lo.Map(p.Disclosures, func(dc *common.DisclosureClaim, _ int) string {
		return p.reconstruction.Locations[dc.Digest].Path
	})
}

// SignatureVerified reports whether VerifySignature succeeded.
func (p *Presentation) SignatureVerified() bool {
	return p.signatureValid
}

// parseOpts holds options for the SD-JWT parsing.
type parseOpts struct {
	proofChecker  jwt.ProofChecker
	nonSDClaims   []string
	expectedTyp   []string
	skipSignature bool
}

// ParseOpt is the SD-JWT Parser option.
type ParseOpt func(opts *parseOpts)

// WithSignatureVerifier option sets the checker of the issuer signature.
func WithSignatureVerifier(checker jwt.ProofChecker) ParseOpt {
	return func(opts *parseOpts) {
		opts.proofChecker = checker
	}
}

// WithNonSelectivelyDisclosableClaims option lists top-level claims that must be in plain text.
func WithNonSelectivelyDisclosableClaims(names ...string) ParseOpt {
	return func(opts *parseOpts) {
		opts.nonSDClaims = names
	}
}

// WithExpectedTyp option accepts issuer JWTs with one of the given typ headers only.
func WithExpectedTyp(typ ...string) ParseOpt {
	return func(opts *parseOpts) {
		opts.expectedTyp = typ
	}
}

// WithSDJWTVCRules option rejects selective disclosure of iss, nbf, exp, cnf, vct and status.
func WithSDJWTVCRules() ParseOpt {
	return WithNonSelectivelyDisclosableClaims("iss", "nbf", "exp", "cnf", "vct", "status")
}

// WithInsecureSkipSignatureVerification option disables issuer signature check.
func WithInsecureSkipSignatureVerification() ParseOpt {
	return func(opts *parseOpts) {
		opts.skipSignature = true
	}
}

// Parse decodes the presentation, checks disclosure integrity, then the issuer signature,
// and returns the disclosed claims.
func Parse(ctx context.Context, sdJWT string, opts ...ParseOpt) (*Presentation, map[string]interface{}, error) {
	pOpts := &parseOpts{}

	for _, opt := range opts {
		opt(pOpts)
	}

	p, err := Decode(sdJWT)
	if err != nil {
		return nil, nil, err
	}

	if err = p.CheckType(pOpts.expectedTyp...); err != nil {
		return nil, nil, err
	}

	if err = p.CheckIntegrity(); err != nil {
		return nil, nil, err
	}

	if err = p.CheckNonSelectivelyDisclosable(pOpts.nonSDClaims...); err != nil {
		return nil, nil, err
	}

	if !pOpts.skipSignature {
		if err = p.VerifySignature(ctx, pOpts.proofChecker); err != nil {
			return nil, nil, err
		}
	}

	claims, err := p.DisclosedClaims()
	if err != nil {
		return nil, nil, err
	}

	return p, claims, nil
}
