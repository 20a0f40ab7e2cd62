/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package validator_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trustbloc/kms-go/spi/kms"

	"github.com/trustbloc/sdjwt-vc-go/jwt"
	"github.com/trustbloc/sdjwt-vc-go/proof/creator"
	"github.com/trustbloc/sdjwt-vc-go/proof/jwtproofs"
	"github.com/trustbloc/sdjwt-vc-go/proof/testsupport"
	"github.com/trustbloc/sdjwt-vc-go/sdjwt/holder"
	"github.com/trustbloc/sdjwt-vc-go/sdjwt/issuer"
	"github.com/trustbloc/sdjwt-vc-go/sdjwt/keybinding"
	"github.com/trustbloc/sdjwt-vc-go/validator"
	"github.com/trustbloc/sdjwt-vc-go/vcerr"
	"github.com/trustbloc/sdjwt-vc-go/verifiable"
)

const (
	holderDID   = "did:example:holder"
	holderKeyID = holderDID + "#key-1"
)

type vpEnv struct {
	now           time.Time
	issuerCreator *creator.ProofCreator
	holderCreator *creator.ProofCreator
	validator     *validator.Validator
}

func newVPEnv(t *testing.T) *vpEnv {
	t.Helper()

	creators, proofChecker := testsupport.NewSigVerPairs(t, []testsupport.SigningKey{
		{Type: kms.ED25519Type, PublicKeyID: issuerKeyID},
		{Type: kms.ED25519Type, PublicKeyID: holderKeyID},
	})

	now := time.Now()

	return &vpEnv{
		now:           now,
		issuerCreator: creators[0],
		holderCreator: creators[1],
		validator: validator.New(
			validator.WithCredentialVersion(verifiable.SDJWTVC),
			validator.WithProofChecker(proofChecker),
			validator.WithClock(func() time.Time { return now }),
		),
	}
}

func (e *vpEnv) credential(t *testing.T, subject string, concealable ...string) string {
	t.Helper()

	b, err := issuer.NewBuilder(map[string]interface{}{
		"iss":  issuerID,
		"vct":  vct,
		"sub":  subject,
		"nbf":  e.now.Add(-time.Hour).Unix(),
		"exp":  e.now.Add(time.Hour).Unix(),
		"name": "Alice",
	}, issuer.WithTyp("dc+sd-jwt"))
	require.NoError(t, err)

	for _, path := range concealable {
		require.NoError(t, b.MakeConcealable(path))
	}

	sdJWT, err := b.Finish(context.Background(), e.issuerCreator,
		jwt.SignParameters{KeyID: issuerKeyID, JWTAlg: string(jwtproofs.EdDSA)})
	require.NoError(t, err)

	combined, err := sdJWT.Serialize()
	require.NoError(t, err)

	if len(concealable) == 0 {
		return strings.TrimSuffix(combined, "~")
	}

	parsed, err := holder.Parse(combined)
	require.NoError(t, err)

	pb := holder.NewPresentationBuilder(parsed)
	require.NoError(t, pb.Disclose(concealable[0]))

	token, _ := pb.Finish()

	return token.Serialize()
}

func (e *vpEnv) presentation(t *testing.T, keyID string, extra map[string]interface{}, credentials ...string) string {
	t.Helper()

	vp, err := verifiable.NewPresentation(verifiable.WithVersion(verifiable.V20),
		verifiable.WithSerializedCredentials(credentials...))
	require.NoError(t, err)

	vp.Holder = holderDID

	claims, err := vp.JWTClaims([]string{aud}, false)
	require.NoError(t, err)

	claims["nonce"] = nonce
	claims["iat"] = e.now.Add(-time.Minute).Unix()
	claims["nbf"] = e.now.Add(-time.Minute).Unix()
	claims["exp"] = e.now.Add(5 * time.Minute).Unix()

	for k, v := range extra {
		claims[k] = v
	}

	token, err := jwt.NewSigned(context.Background(), claims,
		jwt.SignParameters{KeyID: keyID, JWTAlg: string(jwtproofs.EdDSA)}, e.holderCreator)
	require.NoError(t, err)

	serialized, err := token.Serialize(false)
	require.NoError(t, err)

	return serialized
}

func TestValidatePresentation(t *testing.T) {
	e := newVPEnv(t)

	sdJWT := e.credential(t, holderDID, "/name")
	plainJWT := e.credential(t, holderDID)

	t.Run("accepted", func(t *testing.T) {
		result, err := e.validator.ValidatePresentation(context.Background(),
			e.presentation(t, holderKeyID, nil, sdJWT, plainJWT), verifiable.V20,
			validator.WithKeyBinding(keybinding.KeyBindingOptional, aud, nonce),
			validator.WithSubjectHolderRelationship(validator.RelationshipMustMatch))
		require.NoError(t, err)

		require.Equal(t, validator.Accepted, result.State)
		require.Equal(t, []validator.State{
			validator.Decoding, validator.StructurallyValid, validator.SignatureVerified,
			validator.ClaimsChecked, validator.Accepted,
		}, result.Transitions)
		require.Equal(t, holderDID, result.Holder)
		require.Equal(t, holderDID, result.Presentation.Holder)
		require.Len(t, result.Credentials, 2)
		require.Equal(t, "Alice", result.Credentials[0].Claims["name"])
		require.Equal(t, "Alice", result.Credentials[1].Claims["name"])
	})

	t.Run("holder signs with key of other DID", func(t *testing.T) {
		_, err := e.validator.ValidatePresentation(context.Background(),
			e.presentation(t, issuerKeyID, nil, sdJWT), verifiable.V20)
		requireRejected(t, err, validator.StructurallyValid, vcerr.ErrClaimsConstraintViolation)
		require.ErrorContains(t, err, "holder signature")
	})

	t.Run("tampered presentation", func(t *testing.T) {
		vp := e.presentation(t, holderKeyID, nil, sdJWT)
		parts := strings.Split(vp, ".")

		other := strings.Split(e.presentation(t, holderKeyID, map[string]interface{}{"nonce": "other"}, sdJWT), ".")

		_, err := e.validator.ValidatePresentation(context.Background(),
			parts[0]+"."+other[1]+"."+parts[2], verifiable.V20)
		requireRejected(t, err, validator.StructurallyValid, vcerr.ErrSignatureVerificationFailed)
	})

	t.Run("subject is not the holder", func(t *testing.T) {
		_, err := e.validator.ValidatePresentation(context.Background(),
			e.presentation(t, holderKeyID, nil, sdJWT, e.credential(t, "did:example:someone")), verifiable.V20,
			validator.WithSubjectHolderRelationship(validator.RelationshipMustMatch))
		requireRejected(t, err, validator.SignatureVerified, vcerr.ErrClaimsConstraintViolation)
		require.ErrorContains(t, err, "credential 1")
	})

	t.Run("enclosed credential rejected", func(t *testing.T) {
		_, err := e.validator.ValidatePresentation(context.Background(),
			e.presentation(t, holderKeyID, nil, sdJWT+"bm90LWEtZGlzY2xvc3VyZQ~"), verifiable.V20)
		requireRejected(t, err, validator.SignatureVerified, vcerr.ErrMalformedEncoding)

		var nested *validator.RejectionError

		require.True(t, errors.As(errors.Unwrap(errors.Unwrap(err)), &nested))
		require.Equal(t, validator.Decoding, nested.State)
	})

	t.Run("embedded credential without proof", func(t *testing.T) {
		claims := map[string]interface{}{
			"iss":      holderDID,
			"@context": []interface{}{verifiable.V2ContextURI},
			"type":     verifiable.VPType,
			"verifiableCredential": []interface{}{
				map[string]interface{}{"issuer": issuerID, "credentialSubject": map[string]interface{}{"id": holderDID}},
			},
		}

		token, err := jwt.NewSigned(context.Background(), claims,
			jwt.SignParameters{KeyID: holderKeyID, JWTAlg: string(jwtproofs.EdDSA)}, e.holderCreator)
		require.NoError(t, err)

		serialized, err := token.Serialize(false)
		require.NoError(t, err)

		_, err = e.validator.ValidatePresentation(context.Background(), serialized, verifiable.V20)
		requireRejected(t, err, validator.SignatureVerified, vcerr.ErrClaimsConstraintViolation)
	})

	t.Run("audience and nonce", func(t *testing.T) {
		vp := e.presentation(t, holderKeyID, nil, sdJWT)

		_, err := e.validator.ValidatePresentation(context.Background(), vp, verifiable.V20,
			validator.WithKeyBinding(keybinding.KeyBindingOptional, "https://other.example", nonce))
		requireRejected(t, err, validator.SignatureVerified, vcerr.ErrKeyBindingViolation)

		_, err = e.validator.ValidatePresentation(context.Background(), vp, verifiable.V20,
			validator.WithKeyBinding(keybinding.KeyBindingOptional, aud, "other-nonce"))
		requireRejected(t, err, validator.SignatureVerified, vcerr.ErrKeyBindingViolation)
	})

	t.Run("expired presentation", func(t *testing.T) {
		vp := e.presentation(t, holderKeyID, map[string]interface{}{"exp": e.now.Add(-time.Minute).Unix()}, sdJWT)

		_, err := e.validator.ValidatePresentation(context.Background(), vp, verifiable.V20)
		requireRejected(t, err, validator.SignatureVerified, vcerr.ErrClaimsConstraintViolation)
	})

	t.Run("no holder", func(t *testing.T) {
		vp := e.presentation(t, holderKeyID, map[string]interface{}{"iss": ""}, sdJWT)

		_, err := e.validator.ValidatePresentation(context.Background(), vp, verifiable.V20)
		requireRejected(t, err, validator.Decoding, vcerr.ErrClaimsConstraintViolation)
	})

	t.Run("version not set", func(t *testing.T) {
		_, err := validator.New().ValidatePresentation(context.Background(),
			e.presentation(t, holderKeyID, nil, sdJWT), verifiable.V20)
		require.ErrorIs(t, err, validator.ErrVersionNotSet)
	})
}
