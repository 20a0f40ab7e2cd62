/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"fmt"
	"time"

	josejwt "github.com/go-jose/go-jose/v3/jwt"

	jsonutil "github.com/trustbloc/sdjwt-vc-go/util/json"
)

// JWTClaims converts Verifiable Presentation into JWT claims.
// The holder becomes "iss", the presentation id becomes "jti".
func (vp *Presentation) JWTClaims(audience []string, minimizeVP bool) (JSONObject, error) {
	now := time.Now()

	registered := &josejwt.Claims{
		Issuer:    vp.Holder,
		ID:        vp.ID,
		NotBefore: josejwt.NewNumericDate(now),
		IssuedAt:  josejwt.NewNumericDate(now),
	}

	if len(audience) > 0 {
		registered.Audience = audience
	}

	claims, err := jsonutil.ToMap(registered)
	if err != nil {
		return nil, fmt.Errorf("convert registered claims: %w", err)
	}

	vpJSON := vp.ToRawJSON()

	if minimizeVP {
		delete(vpJSON, vpFldID)
		delete(vpJSON, vpFldHolder)
	}

	if vp.version == V11 {
		claims[ClaimVP] = vpJSON

		return claims, nil
	}

	for k, v := range vpJSON {
		if _, exists := claims[k]; !exists {
			claims[k] = v
		}
	}

	return claims, nil
}

// PresentationFromJWTClaims restores presentation of the given version from JWT claims.
func PresentationFromJWTClaims(claims JSONObject, version Version) (*Presentation, error) {
	var vpJSON JSONObject

	switch version {
	case V11:
		vpRaw, ok := claims[ClaimVP].(map[string]interface{})
		if !ok {
			return nil, constraintErr("vp claim is missing or is not an object")
		}

		vpJSON = jsonutil.DeepCopyObj(vpRaw)
	case V20:
		vpJSON = jsonutil.DeepCopyObj(jsonutil.CopyExcept(claims, registeredClaimNames...))
	default:
		return nil, constraintErr("unsupported presentation data model %s", version)
	}

	registered, err := decodeRegisteredClaims(claims)
	if err != nil {
		return nil, constraintErr("decode registered jwt claims: %w", err)
	}

	if registered.Issuer != "" {
		vpJSON[vpFldHolder] = registered.Issuer
	}

	if registered.ID != "" {
		vpJSON[vpFldID] = registered.ID
	}

	return NewPresentationFromJSON(vpJSON, version)
}
