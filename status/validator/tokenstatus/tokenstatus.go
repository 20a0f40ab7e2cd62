/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package tokenstatus handles the "status" claim of SD-JWT VCs referencing a Token Status List,
// as per https://datatracker.ietf.org/doc/draft-ietf-oauth-status-list/
package tokenstatus

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/trustbloc/sdjwt-vc-go/jwt"
	"github.com/trustbloc/sdjwt-vc-go/status/api"
	"github.com/trustbloc/sdjwt-vc-go/status/internal/bitstring"
	"github.com/trustbloc/sdjwt-vc-go/status/internal/entry"
	"github.com/trustbloc/sdjwt-vc-go/vcerr"
	"github.com/trustbloc/sdjwt-vc-go/verifiable"
)

const (
	// TokenStatusListType is the type assigned to status entries holding a "status_list" member.
	TokenStatusListType = "TokenStatusList"

	// StatusListField is the status claim member referencing the status list.
	StatusListField = "status_list"

	// StatusListJWTType is the typ header of status list tokens.
	StatusListJWTType = "statuslist+jwt"
)

// Token status values.
const (
	StatusValid     = 0x00
	StatusInvalid   = 0x01
	StatusSuspended = 0x02
)

type reference struct {
	StatusList struct {
		Idx int    `json:"idx"`
		URI string `json:"uri"`
	} `json:"status_list"`
}

type statusListToken struct {
	Issuer     string `json:"iss,omitempty"`
	Subject    string `json:"sub"`
	StatusList struct {
		Bits int    `json:"bits"`
		Lst  string `json:"lst"`
	} `json:"status_list"`
}

// IsTokenStatus reports whether the status entry references a Token Status List.
func IsTokenStatus(vcStatus *verifiable.TypedID) bool {
	_, ok := vcStatus.CustomFields[StatusListField].(map[string]interface{})

	return ok && vcStatus.Type == ""
}

// Validator validates Token Status List references.
type Validator struct{}

// ValidateStatus checks that the entry has status_list with idx and uri.
func (v *Validator) ValidateStatus(vcStatus *verifiable.TypedID) error {
	if vcStatus == nil {
		return vcerr.New(vcerr.KindClaimsConstraintViolation, "vc status does not exist")
	}

	if !IsTokenStatus(vcStatus) {
		return vcerr.New(vcerr.KindClaimsConstraintViolation, "status_list object is missing in status claim")
	}

	statusList, _ := vcStatus.CustomFields[StatusListField].(map[string]interface{}) //nolint:errcheck

	if err := entry.RequireFields(statusList, "idx", "uri"); err != nil {
		return err
	}

	_, err := decode(vcStatus)

	return err
}

func decode(vcStatus *verifiable.TypedID) (*reference, error) {
	ref := &reference{}

	if err := entry.Decode(vcStatus.CustomFields, ref); err != nil {
		return nil, err
	}

	return ref, nil
}

// GetStatusVCURI returns uri of the status list token.
func (v *Validator) GetStatusVCURI(vcStatus *verifiable.TypedID) (string, error) {
	ref, err := decode(vcStatus)
	if err != nil {
		return "", err
	}

	return ref.StatusList.URI, nil
}

// GetStatusListIndex returns idx of the referenced status.
func (v *Validator) GetStatusListIndex(vcStatus *verifiable.TypedID) (int, error) {
	ref, err := decode(vcStatus)
	if err != nil {
		return -1, err
	}

	return ref.StatusList.Idx, nil
}

// GetStatusPurpose returns empty purpose: status values of a token status list carry their meaning.
func (v *Validator) GetStatusPurpose(*verifiable.TypedID) (string, error) {
	return "", nil
}

// GetStatus parses the status list token and reads the referenced status.
func (v *Validator) GetStatus(ctx context.Context, vcStatus *verifiable.TypedID, statusList []byte,
	req *api.StatusRequest) (api.Status, error) {
	ref, err := decode(vcStatus)
	if err != nil {
		return api.StatusValid, err
	}

	token, err := parseToken(ctx, strings.TrimSpace(string(statusList)), req)
	if err != nil {
		return api.StatusValid, err
	}

	if token.Subject != ref.StatusList.URI {
		return api.StatusValid, vcerr.New(vcerr.KindClaimsConstraintViolation,
			"status list token subject %q does not match uri %q", token.Subject, ref.StatusList.URI)
	}

	if token.Issuer != "" && token.Issuer != req.Issuer {
		return api.StatusValid, vcerr.New(vcerr.KindClaimsConstraintViolation,
			"issuer of the credential does not match status list issuer")
	}

	compressed, err := base64.RawURLEncoding.DecodeString(token.StatusList.Lst)
	if err != nil {
		return api.StatusValid, vcerr.New(vcerr.KindMalformedEncoding, "decode status list: %w", err)
	}

	bits, err := bitstring.Decompress(compressed, bitstring.WithZlib())
	if err != nil {
		return api.StatusValid, err
	}

	value, err := bitstring.ValueAt(bits, ref.StatusList.Idx, token.StatusList.Bits)
	if err != nil {
		return api.StatusValid, err
	}

	switch value {
	case StatusValid:
		return api.StatusValid, nil
	case StatusInvalid:
		return api.StatusRevoked, nil
	case StatusSuspended:
		return api.StatusSuspended, nil
	default:
		return api.StatusValid, vcerr.New(vcerr.KindClaimsConstraintViolation, "unsupported status value 0x%02x", value)
	}
}

func parseToken(ctx context.Context, s string, req *api.StatusRequest) (*statusListToken, error) {
	opts := []jwt.ParseOpt{jwt.WithContext(ctx), jwt.WithExpectedIssuer(req.Issuer)}
	if req.ProofChecker != nil {
		opts = append(opts, jwt.WithProofChecker(req.ProofChecker))
	}

	parsed, _, err := jwt.Parse(s, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse status list token: %w", err)
	}

	if typ := parsed.LookupStringHeader("typ"); typ != StatusListJWTType {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "unexpected status list token typ %q", typ)
	}

	token := &statusListToken{}

	if err = parsed.DecodeClaims(token); err != nil {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "decode status list token: %w", err)
	}

	return token, nil
}
