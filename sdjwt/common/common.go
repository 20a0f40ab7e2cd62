/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package common holds the SD-JWT pieces shared by the issuer, holder and verifier:
// disclosures, digests, the combined serialization and claims reconstruction.
package common

import (
	"crypto"
	"encoding/base64"
	"fmt"
	"strings"

	// register hash implementations.
	_ "crypto/sha256"
	_ "crypto/sha512"

	"github.com/trustbloc/sdjwt-vc-go/vcerr"
)

// SD-JWT wire and claim names.
const (
	CombinedFormatSeparator = "~"

	SDAlgorithmKey        = "_sd_alg"
	SDKey                 = "_sd"
	ArrayElementDigestKey = "..."
	CNFKey                = "cnf"
	SDHashKey             = "sd_hash"

	// KeyBindingJWTType is the typ header of a Key Binding JWT.
	KeyBindingJWTType = "kb+jwt"
)

var b64 = base64.RawURLEncoding.Strict()

// GetCryptoHash returns crypto hash for the _sd_alg name. Only SHA-2 family is accepted.
func GetCryptoHash(sdAlg string) (crypto.Hash, error) {
	switch strings.ToUpper(sdAlg) {
	case crypto.SHA256.String():
		return crypto.SHA256, nil
	case crypto.SHA384.String():
		return crypto.SHA384, nil
	case crypto.SHA512.String():
		return crypto.SHA512, nil
	default:
		return 0, vcerr.New(vcerr.KindUnsupportedAlgorithm, "%s '%s' not supported", SDAlgorithmKey, sdAlg)
	}
}

// HashName returns _sd_alg name of the hash, e.g. "sha-256".
func HashName(hash crypto.Hash) string {
	return strings.ToLower(hash.String())
}

// GetHash calculates hash of data using hash function identified by hash.
// The result is base64url encoded without padding.
func GetHash(hash crypto.Hash, value string) (string, error) {
	if !hash.Available() {
		return "", vcerr.New(vcerr.KindUnsupportedAlgorithm, "hash function not available for: %d", hash)
	}

	h := hash.New()

	if _, hashErr := h.Write([]byte(value)); hashErr != nil {
		return "", hashErr
	}

	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

// GetSDAlg returns _sd_alg from claims. The claim is looked up at top level and under "vc".
// Absent claim means sha-256.
func GetSDAlg(claims map[string]interface{}) (string, error) {
	obj, ok := GetKeyFromVC(SDAlgorithmKey, claims)
	if !ok {
		return HashName(crypto.SHA256), nil
	}

	alg, ok := obj.(string)
	if !ok {
		return "", vcerr.New(vcerr.KindMalformedEncoding, "%s must be a string", SDAlgorithmKey)
	}

	return alg, nil
}

// GetCryptoHashFromClaims returns crypto hash declared by the _sd_alg claim.
func GetCryptoHashFromClaims(claims map[string]interface{}) (crypto.Hash, error) {
	sdAlg, err := GetSDAlg(claims)
	if err != nil {
		return 0, err
	}

	return GetCryptoHash(sdAlg)
}

// GetKeyFromVC returns key value from claims top level or from the "vc" claim.
func GetKeyFromVC(key string, claims map[string]interface{}) (interface{}, bool) {
	if obj, ok := claims[key]; ok {
		return obj, true
	}

	vc, ok := claims["vc"].(map[string]interface{})
	if !ok {
		return nil, false
	}

	obj, ok := vc[key]

	return obj, ok
}

// GetCNF returns confirmation claim 'cnf'.
func GetCNF(claims map[string]interface{}) (map[string]interface{}, error) {
	obj, ok := GetKeyFromVC(CNFKey, claims)
	if !ok {
		return nil, fmt.Errorf("%s must be present in SD-JWT", CNFKey)
	}

	cnf, ok := obj.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%s must be an object", CNFKey)
	}

	return cnf, nil
}

// KeyExistsInMap checks if key exists in map or in any nested object or array.
func KeyExistsInMap(key string, m map[string]interface{}) bool {
	for k, v := range m {
		if k == key {
			return true
		}

		if keyExistsInValue(key, v) {
			return true
		}
	}

	return false
}

func keyExistsInValue(key string, v interface{}) bool {
	switch tv := v.(type) {
	case map[string]interface{}:
		return KeyExistsInMap(key, tv)
	case []interface{}:
		for _, e := range tv {
			if keyExistsInValue(key, e) {
				return true
			}
		}
	}

	return false
}
