/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package statuslistvc reads status list credentials published as JSON or as JWT.
package statuslistvc

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/trustbloc/sdjwt-vc-go/jwt"
	"github.com/trustbloc/sdjwt-vc-go/vcerr"
	"github.com/trustbloc/sdjwt-vc-go/verifiable"
)

const encodedListField = "encodedList"

// Parse parses status list credential and checks that it is issued by issuer.
// JWT signature is checked only when checker is set.
func Parse(ctx context.Context, raw []byte, issuer string, checker jwt.ProofChecker) (*verifiable.Credential, error) {
	var (
		vc  *verifiable.Credential
		err error
	)

	if s := strings.TrimSpace(string(raw)); jwt.IsJWS(s) {
		vc, err = parseJWT(ctx, s, checker)
	} else {
		vc, err = verifiable.ParseCredential(raw, detectVersion(raw))
	}

	if err != nil {
		return nil, fmt.Errorf("parse status list credential: %w", err)
	}

	if vc.Issuer() == "" || vc.Issuer() != issuer {
		return nil, vcerr.New(vcerr.KindClaimsConstraintViolation,
			"issuer of the credential does not match status list vc issuer")
	}

	return vc, nil
}

// EncodedList returns the encodedList of the status list credential subject.
func EncodedList(vc *verifiable.Credential) (string, error) {
	subjects := vc.Contents().Subject
	if len(subjects) == 0 {
		return "", vcerr.New(vcerr.KindMalformedEncoding, "status list credential has no subject")
	}

	encodedList, ok := subjects[0].CustomFields[encodedListField].(string)
	if !ok {
		return "", vcerr.New(vcerr.KindMalformedEncoding, "encodedList must be a string")
	}

	return encodedList, nil
}

func parseJWT(ctx context.Context, s string, checker jwt.ProofChecker) (*verifiable.Credential, error) {
	opts := []jwt.ParseOpt{jwt.WithContext(ctx)}
	if checker != nil {
		opts = append(opts, jwt.WithProofChecker(checker))
	}

	token, _, err := jwt.Parse(s, opts...)
	if err != nil {
		return nil, err
	}

	version := verifiable.V20
	if _, ok := token.Payload[verifiable.ClaimVC]; ok {
		version = verifiable.V11
	}

	return verifiable.CredentialFromJWTClaims(token.Payload, version)
}

func detectVersion(raw []byte) verifiable.Version {
	if gjson.GetBytes(raw, `@context.0`).String() == verifiable.V2ContextURI {
		return verifiable.V20
	}

	return verifiable.V11
}
