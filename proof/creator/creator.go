/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package creator

import (
	"context"
	"fmt"

	"github.com/trustbloc/kms-go/doc/jose"
	"github.com/trustbloc/kms-go/spi/kms"

	"github.com/trustbloc/sdjwt-vc-go/jwt"
	proofdesc "github.com/trustbloc/sdjwt-vc-go/proof"
	"github.com/trustbloc/sdjwt-vc-go/vcerr"
)

// ProofCreator incapsulate logic of proof creation.
type ProofCreator struct {
	supportedJWTAlgs []jwtProofCreateDescriptor
}

type jwtProofCreateDescriptor struct {
	proofDescriptor     proofdesc.JWTProofDescriptor
	cryptographicSigner cryptographicSigner
}

type cryptographicSigner interface {
	// Sign will sign document and return signature.
	Sign(data []byte) ([]byte, error)
}

// contextSigner is implemented by signers backed by remote key stores.
type contextSigner interface {
	SignContext(ctx context.Context, data []byte) ([]byte, error)
}

// Opt represent ProofCreator creation options.
type Opt func(c *ProofCreator)

// WithJWTAlg option to set supported jwt alg.
func WithJWTAlg(proofDesc proofdesc.JWTProofDescriptor, cryptographicSigner cryptographicSigner) Opt {
	return func(c *ProofCreator) {
		c.supportedJWTAlgs = append(c.supportedJWTAlgs, jwtProofCreateDescriptor{
			proofDescriptor:     proofDesc,
			cryptographicSigner: cryptographicSigner,
		})
	}
}

// New creates ProofCreator.
func New(opts ...Opt) *ProofCreator {
	c := &ProofCreator{}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SignJWT will sign document and return signature.
func (c *ProofCreator) SignJWT(ctx context.Context, params jwt.SignParameters, data []byte) ([]byte, error) {
	supportedProof, err := c.getSupportedProofByAlg(params.JWTAlg)
	if err != nil {
		return nil, err
	}

	if err = ctx.Err(); err != nil {
		return nil, vcerr.Wrap(vcerr.KindSignatureVerificationFailed, fmt.Errorf("sign jwt: %w", err))
	}

	if cs, ok := supportedProof.cryptographicSigner.(contextSigner); ok {
		return cs.SignContext(ctx, data)
	}

	return supportedProof.cryptographicSigner.Sign(data)
}

// CreateJWTHeaders creates correct jwt headers.
func (c *ProofCreator) CreateJWTHeaders(params jwt.SignParameters) (jose.Headers, error) {
	if _, err := c.getSupportedProofByAlg(params.JWTAlg); err != nil {
		return nil, err
	}

	headers := map[string]interface{}{}

	for k, v := range params.AdditionalHeaders {
		headers[k] = v
	}

	headers[jose.HeaderAlgorithm] = params.JWTAlg

	if params.KeyID != "" {
		headers[jose.HeaderKeyID] = params.KeyID
	}

	return headers, nil
}

// JWTAlgForKeyType returns the first configured jwt alg that signs with keys of the given type.
func (c *ProofCreator) JWTAlgForKeyType(keyType kms.KeyType) (string, error) {
	for _, supported := range c.supportedJWTAlgs {
		for _, vm := range supported.proofDescriptor.SupportedVerificationMethods() {
			if vm.KMSKeyType == keyType {
				return supported.proofDescriptor.JWTAlgorithm(), nil
			}
		}
	}

	return "", vcerr.New(vcerr.KindUnsupportedAlgorithm, "no jwt algs that support %q key", keyType)
}

func (c *ProofCreator) getSupportedProofByAlg(jwtAlg string) (jwtProofCreateDescriptor, error) {
	for _, supported := range c.supportedJWTAlgs {
		if supported.proofDescriptor.JWTAlgorithm() == jwtAlg {
			return supported, nil
		}
	}

	return jwtProofCreateDescriptor{}, vcerr.New(vcerr.KindUnsupportedAlgorithm, "unsupported jwt alg: %s", jwtAlg)
}
