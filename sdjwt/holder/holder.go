/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

/*
Package holder enables the Holder: an entity that receives SD-JWTs from the Issuer and has control over them.
The Holder decides which disclosures to pass to the Verifier and may attach a Key Binding JWT.
*/
package holder

import (
	"context"
	"crypto"
	"fmt"
	"sort"

	"github.com/go-openapi/jsonpointer"
	"github.com/samber/lo"

	"github.com/trustbloc/sdjwt-vc-go/jwt"
	"github.com/trustbloc/sdjwt-vc-go/sdjwt/common"
	"github.com/trustbloc/sdjwt-vc-go/vcerr"
)

// Claim is a disclosure with its place in the claims.
type Claim struct {
	*common.DisclosureClaim

	// Path is JSON pointer of the claim in fully disclosed claims.
	Path string
	// Parent is digest of the enclosing disclosure, empty for disclosures embedded in the signed payload.
	Parent string
}

// SDJWT is a parsed issuance: issuer-signed JWT plus all disclosures.
type SDJWT struct {
	Token       *common.SDToken
	SignedJWT   *jwt.JSONWebToken
	Hash        crypto.Hash
	Disclosures []*Claim

	disclosed map[string]interface{}
}

// parseOpts holds options for the SD-JWT parsing.
type parseOpts struct {
	ctx            context.Context
	proofChecker   jwt.ProofChecker
	expectedIssuer string
}

// ParseOpt is the SD-JWT Parser option.
type ParseOpt func(opts *parseOpts)

// WithProofChecker option verifies issuer signature on parse.
func WithProofChecker(proofChecker jwt.ProofChecker) ParseOpt {
	return func(opts *parseOpts) {
		opts.proofChecker = proofChecker
	}
}

// WithExpectedIssuer option sets expected issuer of the signing key.
func WithExpectedIssuer(issuer string) ParseOpt {
	return func(opts *parseOpts) {
		opts.expectedIssuer = issuer
	}
}

// WithContext option sets context passed to the proof checker.
func WithContext(ctx context.Context) ParseOpt {
	return func(opts *parseOpts) {
		opts.ctx = ctx
	}
}

// Parse parses issuance combined format and annotates every disclosure with its claim path.
// Signature is verified only if proof checker is provided.
func Parse(combinedFormatForIssuance string, opts ...ParseOpt) (*SDJWT, error) {
	pOpts := &parseOpts{ctx: context.Background()}

	for _, opt := range opts {
		opt(pOpts)
	}

	token, err := common.ParseSDToken(combinedFormatForIssuance)
	if err != nil {
		return nil, err
	}

	if token.KeyBindingJWT != "" {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "key binding JWT is not expected in issued SD-JWT")
	}

	jwtOpts := []jwt.ParseOpt{jwt.WithContext(pOpts.ctx), jwt.WithExpectedIssuer(pOpts.expectedIssuer)}
	if pOpts.proofChecker != nil {
		jwtOpts = append(jwtOpts, jwt.WithProofChecker(pOpts.proofChecker))
	}

	signedJWT, _, err := jwt.Parse(token.IssuerJWT, jwtOpts...)
	if err != nil {
		return nil, fmt.Errorf("parse issuer-signed JWT: %w", err)
	}

	hash, err := common.GetCryptoHashFromClaims(signedJWT.Payload)
	if err != nil {
		return nil, err
	}

	disclosures, err := common.ParseDisclosures(token.Disclosures, hash)
	if err != nil {
		return nil, err
	}

	if err = common.CheckForDuplicateDigests(signedJWT.Payload, disclosures...); err != nil {
		return nil, err
	}

	rec, err := common.Reconstruct(signedJWT.Payload, disclosures)
	if err != nil {
		return nil, err
	}

	claims := lo.Map(disclosures, func(dc *common.DisclosureClaim, _ int) *Claim {
		loc := rec.Locations[dc.Digest]

		return &Claim{DisclosureClaim: dc, Path: loc.Path, Parent: loc.Parent}
	})

	return &SDJWT{
		Token:       token,
		SignedJWT:   signedJWT,
		Hash:        hash,
		Disclosures: claims,
		disclosed:   rec.Claims,
	}, nil
}

// Claims returns fully disclosed claims.
func (s *SDJWT) Claims() (map[string]interface{}, error) {
	return common.DiscloseClaims(s.SignedJWT.Payload,
		lo.Map(s.Disclosures, func(c *Claim, _ int) *common.DisclosureClaim { return c.DisclosureClaim }))
}

// Paths returns sorted JSON pointers of all concealable claims.
func (s *SDJWT) Paths() []string {
	paths := lo.Map(s.Disclosures, func(c *Claim, _ int) string { return c.Path })

	sort.Strings(paths)

	return paths
}

func (s *SDJWT) byPath(path string) (*Claim, bool) {
	return lo.Find(s.Disclosures, func(c *Claim) bool { return c.Path == path })
}

// exists reports whether path resolves in the fully disclosed claims.
func (s *SDJWT) exists(path string) bool {
	ptr, err := jsonpointer.New(path)
	if err != nil {
		return false
	}

	_, _, err = ptr.Get(s.disclosed)

	return err == nil
}
