/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwt

import (
	"context"

	"github.com/trustbloc/kms-go/doc/jose"

	"github.com/trustbloc/sdjwt-vc-go/vcerr"
	"github.com/trustbloc/sdjwt-vc-go/vermethod"
)

func newJOSESigner(params SignParameters, signer ProofCreator) (*joseSigner, error) {
	if signer == nil {
		return nil, vcerr.New(vcerr.KindUnsupportedAlgorithm, "proof creator is not defined")
	}

	headers, err := signer.CreateJWTHeaders(params)
	if err != nil {
		return nil, err
	}

	if alg, ok := headers.Algorithm(); !ok || alg == "" || (alg == AlgorithmNone && !isUnsecuredSigner(signer)) {
		return nil, vcerr.New(vcerr.KindUnsupportedAlgorithm, "alg header %q can't be used for signing", alg)
	}

	return &joseSigner{
		signer:     signer,
		signParams: params,
		headers:    headers,
	}, nil
}

// joseSigner binds a ProofCreator to the sign parameters of one token.
type joseSigner struct {
	signer     ProofCreator
	signParams SignParameters
	headers    jose.Headers
}

// Sign returns signature.
func (s *joseSigner) Sign(ctx context.Context, data []byte) ([]byte, error) {
	return s.signer.SignJWT(ctx, s.signParams, data)
}

// Headers returns headers.
func (s *joseSigner) Headers() jose.Headers {
	return s.headers
}

type joseVerifier struct {
	proofChecker        ProofChecker
	expectedProofIssuer string
}

// Verify calls proof checker with the issuer the key must belong to. When the issuer is not known
// up front it is taken from the DID part of kid.
func (v *joseVerifier) Verify(ctx context.Context, joseHeaders jose.Headers, signingInput, signature []byte) error {
	expectedProofIssuer := v.expectedProofIssuer

	if expectedProofIssuer == "" {
		kid, _ := joseHeaders.KeyID()

		if did, _, ok := vermethod.SplitDIDURL(kid); ok {
			expectedProofIssuer = did
		}
	}

	return v.proofChecker.CheckJWTProof(ctx, joseHeaders, expectedProofIssuer, signingInput, signature)
}
