/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package proof

import (
	"github.com/trustbloc/kms-go/spi/kms"
)

// SupportedVerificationMethod describes a key shape accepted by a signature algorithm.
type SupportedVerificationMethod struct {
	VerificationMethodType string // verification method type from did. E.g. Ed25519VerificationKey2020, JsonWebKey2020.
	KMSKeyType             kms.KeyType
	JWKKeyType             string
	JWKCurve               string
	RequireJWK             bool
}

// JWTProofDescriptor describes jwt proof.
type JWTProofDescriptor interface {
	JWTAlgorithm() string

	SupportedVerificationMethods() []SupportedVerificationMethod
}
