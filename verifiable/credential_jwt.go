/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v3/json"
	josejwt "github.com/go-jose/go-jose/v3/jwt"
	util "github.com/trustbloc/did-go/doc/util/time"

	jsonutil "github.com/trustbloc/sdjwt-vc-go/util/json"
)

var registeredClaimNames = []string{
	ClaimIssuer, ClaimSubject, ClaimJWTID, ClaimNotBefore, ClaimIssuedAt, ClaimExpiry, ClaimAudience,
}

// JWTClaims converts Verifiable Credential into JWT claims.
//
// For v1.1 the credential goes under the "vc" claim. For v2.0 it is flattened into the claim set.
// For SD-JWT VC the claims are the credential itself.
// When minimizeVC is set, values duplicated by registered claims are removed from the credential part.
func (vc *Credential) JWTClaims(minimizeVC bool) (JSONObject, error) {
	if vc.version == SDJWTVC {
		return vc.ToRawJSON(), nil
	}

	vcc := &vc.credentialContents

	registered := &josejwt.Claims{
		ID: vcc.ID,
	}

	if vcc.Issuer != nil {
		registered.Issuer = vcc.Issuer.ID
	}

	if subjectID, err := SubjectID(vcc.Subject); err == nil {
		registered.Subject = subjectID
	}

	if vcc.Issued != nil {
		registered.NotBefore = josejwt.NewNumericDate(vcc.Issued.Time)
		registered.IssuedAt = josejwt.NewNumericDate(vcc.Issued.Time)
	}

	if vcc.Expired != nil {
		registered.Expiry = josejwt.NewNumericDate(vcc.Expired.Time)
	}

	claims, err := jsonutil.ToMap(registered)
	if err != nil {
		return nil, fmt.Errorf("convert registered claims: %w", err)
	}

	vcJSON := vc.ToRawJSON()

	if minimizeVC {
		issuedFld, expiredFld := dateFields(vc.version)

		delete(vcJSON, issuedFld)
		delete(vcJSON, expiredFld)
		delete(vcJSON, jsonFldID)
		minimizeIssuer(vcJSON)
	}

	if vc.version == V11 {
		claims[ClaimVC] = vcJSON

		return claims, nil
	}

	for k, v := range vcJSON {
		if _, exists := claims[k]; !exists {
			claims[k] = v
		}
	}

	return claims, nil
}

func minimizeIssuer(vcJSON JSONObject) {
	switch issuer := vcJSON[jsonFldIssuer].(type) {
	case string:
		delete(vcJSON, jsonFldIssuer)
	case map[string]interface{}:
		delete(issuer, jsonFldIssuerID)
	}
}

// CredentialFromJWTClaims restores credential of the given version from JWT claims.
// Registered claims take precedence over values duplicated in the credential part.
func CredentialFromJWTClaims(claims JSONObject, version Version) (*Credential, error) {
	if claims == nil {
		return nil, constraintErr("jwt claims are empty")
	}

	switch version {
	case SDJWTVC:
		return NewCredential(claims, SDJWTVC)
	case V11:
		vcRaw, ok := claims[ClaimVC].(map[string]interface{})
		if !ok {
			return nil, constraintErr("vc claim is missing or is not an object")
		}

		vcJSON := jsonutil.DeepCopyObj(vcRaw)

		if err := refineCredentialFromJWTClaims(claims, vcJSON, version); err != nil {
			return nil, err
		}

		return NewCredential(vcJSON, V11)
	case V20:
		vcJSON := jsonutil.DeepCopyObj(jsonutil.CopyExcept(claims, registeredClaimNames...))

		if err := refineCredentialFromJWTClaims(claims, vcJSON, version); err != nil {
			return nil, err
		}

		return NewCredential(vcJSON, V20)
	default:
		return nil, constraintErr("unsupported data model %s", version)
	}
}

func decodeRegisteredClaims(claims JSONObject) (*josejwt.Claims, error) {
	raw, err := json.Marshal(jsonutil.Select(claims, registeredClaimNames...))
	if err != nil {
		return nil, err
	}

	registered := &josejwt.Claims{}

	if err = json.Unmarshal(raw, registered); err != nil {
		return nil, err
	}

	return registered, nil
}

func refineCredentialFromJWTClaims(claims, vcJSON JSONObject, version Version) error { //nolint:gocyclo
	registered, err := decodeRegisteredClaims(claims)
	if err != nil {
		return constraintErr("decode registered jwt claims: %w", err)
	}

	if registered.Issuer != "" {
		if err = refineIssuer(vcJSON, registered.Issuer); err != nil {
			return err
		}
	}

	issuedFld, expiredFld := dateFields(version)

	switch {
	case registered.NotBefore != nil:
		vcJSON[issuedFld] = numericDateToRaw(registered.NotBefore)
	case registered.IssuedAt != nil && version == V11:
		vcJSON[issuedFld] = numericDateToRaw(registered.IssuedAt)
	}

	if registered.Expiry != nil {
		vcJSON[expiredFld] = numericDateToRaw(registered.Expiry)
	}

	if registered.ID != "" {
		vcJSON[jsonFldID] = registered.ID
	}

	if registered.Subject != "" {
		refineSubject(vcJSON, registered.Subject)
	}

	return nil
}

func refineIssuer(vcJSON JSONObject, iss string) error {
	switch issuer := vcJSON[jsonFldIssuer].(type) {
	case map[string]interface{}:
		if id, ok := issuer[jsonFldIssuerID].(string); ok && didMismatch(id, iss) {
			return constraintErr("iss claim %q does not match credential issuer %q", iss, id)
		}

		issuer[jsonFldIssuerID] = iss
	case string:
		if didMismatch(issuer, iss) {
			return constraintErr("iss claim %q does not match credential issuer %q", iss, issuer)
		}

		vcJSON[jsonFldIssuer] = iss
	default:
		vcJSON[jsonFldIssuer] = iss
	}

	return nil
}

func refineSubject(vcJSON JSONObject, sub string) {
	switch subject := vcJSON[jsonFldSubject].(type) {
	case map[string]interface{}:
		subject[jsonFldSubjectID] = sub
	case nil:
		vcJSON[jsonFldSubject] = JSONObject{jsonFldSubjectID: sub}
	}
}

func numericDateToRaw(nd *josejwt.NumericDate) string {
	return util.NewTime(time.Unix(int64(*nd), 0).UTC()).FormatToString()
}
