/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwt

import (
	"context"

	"github.com/trustbloc/kms-go/doc/jose"
)

// SignParameters selects the key and alg of a signed token. AdditionalHeaders go to the protected header,
// alg and kid always come from the parameters.
type SignParameters struct {
	KeyID             string
	JWTAlg            string
	AdditionalHeaders jose.Headers
}

// ProofCreator signs issuer tokens and key binding tokens.
type ProofCreator interface {
	SignJWT(ctx context.Context, params SignParameters, data []byte) ([]byte, error)
	CreateJWTHeaders(params SignParameters) (jose.Headers, error)
}

// ProofChecker checks the signature of a JWS. msg is the exact signing input.
type ProofChecker interface {
	CheckJWTProof(ctx context.Context, headers jose.Headers, expectedProofIssuer string, msg, signature []byte) error
}
