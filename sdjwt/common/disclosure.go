/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"bytes"
	"crypto"
	"errors"
	"fmt"
	"io"

	"github.com/go-jose/go-jose/v3/json"

	"github.com/trustbloc/sdjwt-vc-go/vcerr"
)

// DisclosureClaimType disclosure claim type.
type DisclosureClaimType int

const (
	// DisclosureClaimTypeUnknown default type for disclosure claim.
	DisclosureClaimTypeUnknown DisclosureClaimType = iota
	// DisclosureClaimTypeArrayElement is [salt, value] disclosure of an array element.
	DisclosureClaimTypeArrayElement
	// DisclosureClaimTypeObject is [salt, name, value] disclosure with object value.
	DisclosureClaimTypeObject
	// DisclosureClaimTypePlainText is [salt, name, value] disclosure with non-object value.
	DisclosureClaimTypePlainText
)

const (
	objectDisclosureLen       = 3
	arrayElementDisclosureLen = 2
)

// DisclosureClaim is a decoded disclosure.
type DisclosureClaim struct {
	// Digest is computed over Disclosure exactly as received.
	Digest     string
	Disclosure string
	Salt       string
	Name       string
	Value      interface{}
	Type       DisclosureClaimType
}

// IsArrayElement reports whether disclosure reveals an array element.
func (dc *DisclosureClaim) IsArrayElement() bool {
	return dc.Type == DisclosureClaimTypeArrayElement
}

// NewDisclosure creates [salt, name, value] disclosure of an object member.
func NewDisclosure(hash crypto.Hash, salt, name string, value interface{}) (*DisclosureClaim, error) {
	if err := checkClaimName(name); err != nil {
		return nil, err
	}

	return newDisclosure(hash, []interface{}{salt, name, value})
}

// NewArrayElementDisclosure creates [salt, value] disclosure of an array element.
func NewArrayElementDisclosure(hash crypto.Hash, salt string, value interface{}) (*DisclosureClaim, error) {
	return newDisclosure(hash, []interface{}{salt, value})
}

func newDisclosure(hash crypto.Hash, arr []interface{}) (*DisclosureClaim, error) {
	disclosureBytes, err := json.Marshal(arr)
	if err != nil {
		return nil, fmt.Errorf("marshal disclosure: %w", err)
	}

	return ParseDisclosure(b64.EncodeToString(disclosureBytes), hash)
}

// ParseDisclosure decodes disclosure and computes its digest.
func ParseDisclosure(disclosure string, hash crypto.Hash) (*DisclosureClaim, error) {
	decoded, err := b64.DecodeString(disclosure)
	if err != nil {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "failed to decode disclosure: %w", err)
	}

	var disclosureArr []interface{}

	d := json.NewDecoder(bytes.NewReader(decoded))
	d.UseNumber()

	if err = d.Decode(&disclosureArr); err != nil {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "failed to unmarshal disclosure array: %w", err)
	}

	var trailing interface{}
	if err = d.Decode(&trailing); !errors.Is(err, io.EOF) {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "unexpected data after disclosure array")
	}

	claim := &DisclosureClaim{Disclosure: disclosure}

	if len(disclosureArr) == 0 {
		return nil, vcerr.New(vcerr.KindDisclosureIntegrityViolation, "disclosure array is empty")
	}

	salt, ok := disclosureArr[0].(string)
	if !ok {
		return nil, vcerr.New(vcerr.KindDisclosureIntegrityViolation,
			"disclosure salt type[%T] must be string", disclosureArr[0])
	}

	claim.Salt = salt

	switch len(disclosureArr) {
	case arrayElementDisclosureLen:
		claim.Value = disclosureArr[1]
		claim.Type = DisclosureClaimTypeArrayElement
	case objectDisclosureLen:
		name, ok := disclosureArr[1].(string)
		if !ok {
			return nil, vcerr.New(vcerr.KindDisclosureIntegrityViolation,
				"disclosure name type[%T] must be string", disclosureArr[1])
		}

		if err = checkClaimName(name); err != nil {
			return nil, err
		}

		claim.Name = name
		claim.Value = disclosureArr[2]

		if _, isObj := claim.Value.(map[string]interface{}); isObj {
			claim.Type = DisclosureClaimTypeObject
		} else {
			claim.Type = DisclosureClaimTypePlainText
		}
	default:
		return nil, vcerr.New(vcerr.KindDisclosureIntegrityViolation,
			"disclosure array size[%d] must be %d or %d", len(disclosureArr),
			arrayElementDisclosureLen, objectDisclosureLen)
	}

	claim.Digest, err = GetHash(hash, disclosure)
	if err != nil {
		return nil, fmt.Errorf("get disclosure hash: %w", err)
	}

	return claim, nil
}

// ParseDisclosures decodes all disclosures.
func ParseDisclosures(disclosures []string, hash crypto.Hash) ([]*DisclosureClaim, error) {
	claims := make([]*DisclosureClaim, 0, len(disclosures))

	for _, disclosure := range disclosures {
		dc, err := ParseDisclosure(disclosure, hash)
		if err != nil {
			return nil, err
		}

		claims = append(claims, dc)
	}

	return claims, nil
}

func checkClaimName(name string) error {
	if name == SDKey || name == ArrayElementDigestKey {
		return vcerr.New(vcerr.KindDisclosureIntegrityViolation, "disclosure claim name '%s' is reserved", name)
	}

	return nil
}
