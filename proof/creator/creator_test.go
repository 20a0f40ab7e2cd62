/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package creator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/trustbloc/kms-go/doc/jose"
	"github.com/trustbloc/kms-go/spi/kms"

	"github.com/trustbloc/sdjwt-vc-go/jwt"
	"github.com/trustbloc/sdjwt-vc-go/proof/creator"
	"github.com/trustbloc/sdjwt-vc-go/proof/jwtproofs"
	"github.com/trustbloc/sdjwt-vc-go/vcerr"
)

func TestProofCreator_SignJWT(t *testing.T) {
	edDSA, err := jwtproofs.Lookup("EdDSA")
	require.NoError(t, err)

	t.Run("success - plain signer", func(t *testing.T) {
		c := creator.New(creator.WithJWTAlg(edDSA, &mockSigner{}))

		sig, err := c.SignJWT(context.Background(), jwt.SignParameters{JWTAlg: "EdDSA"}, []byte("data"))
		require.NoError(t, err)
		require.Equal(t, []byte("plain:data"), sig)
	})

	t.Run("success - context signer", func(t *testing.T) {
		c := creator.New(creator.WithJWTAlg(edDSA, &mockContextSigner{}))

		sig, err := c.SignJWT(context.Background(), jwt.SignParameters{JWTAlg: "EdDSA"}, []byte("data"))
		require.NoError(t, err)
		require.Equal(t, []byte("ctx:data"), sig)
	})

	t.Run("error - unsupported alg", func(t *testing.T) {
		c := creator.New(creator.WithJWTAlg(edDSA, &mockSigner{}))

		_, err := c.SignJWT(context.Background(), jwt.SignParameters{JWTAlg: "ES256"}, []byte("data"))
		require.ErrorIs(t, err, vcerr.ErrUnsupportedAlgorithm)
	})

	t.Run("error - canceled context", func(t *testing.T) {
		c := creator.New(creator.WithJWTAlg(edDSA, &mockSigner{}))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.SignJWT(ctx, jwt.SignParameters{JWTAlg: "EdDSA"}, []byte("data"))
		require.True(t, errors.Is(err, context.Canceled))
	})

	t.Run("error - signer failure", func(t *testing.T) {
		c := creator.New(creator.WithJWTAlg(edDSA, &mockSigner{err: errors.New("hsm offline")}))

		_, err := c.SignJWT(context.Background(), jwt.SignParameters{JWTAlg: "EdDSA"}, []byte("data"))
		require.ErrorContains(t, err, "hsm offline")
	})
}

func TestProofCreator_CreateJWTHeaders(t *testing.T) {
	edDSA, err := jwtproofs.Lookup("EdDSA")
	require.NoError(t, err)

	c := creator.New(creator.WithJWTAlg(edDSA, &mockSigner{}))

	headers, err := c.CreateJWTHeaders(jwt.SignParameters{
		JWTAlg:            "EdDSA",
		KeyID:             "did:example:1#key-1",
		AdditionalHeaders: jose.Headers{jose.HeaderType: "vc+sd-jwt", jose.HeaderAlgorithm: "none"},
	})
	require.NoError(t, err)

	alg, _ := headers.Algorithm()
	require.Equal(t, "EdDSA", alg)

	kid, _ := headers.KeyID()
	require.Equal(t, "did:example:1#key-1", kid)

	typ, _ := headers.Type()
	require.Equal(t, "vc+sd-jwt", typ)

	_, err = c.CreateJWTHeaders(jwt.SignParameters{JWTAlg: "RS256"})
	require.ErrorIs(t, err, vcerr.ErrUnsupportedAlgorithm)
}

func TestProofCreator_JWTAlgForKeyType(t *testing.T) {
	edDSA, err := jwtproofs.Lookup("EdDSA")
	require.NoError(t, err)

	es256, err := jwtproofs.Lookup("ES256")
	require.NoError(t, err)

	c := creator.New(creator.WithJWTAlg(edDSA, &mockSigner{}), creator.WithJWTAlg(es256, &mockSigner{}))

	alg, err := c.JWTAlgForKeyType(kms.ECDSAP256TypeIEEEP1363)
	require.NoError(t, err)
	require.Equal(t, "ES256", alg)

	_, err = c.JWTAlgForKeyType(kms.RSARS256Type)
	require.ErrorIs(t, err, vcerr.ErrUnsupportedAlgorithm)
}

type mockSigner struct {
	err error
}

func (s *mockSigner) Sign(data []byte) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}

	return append([]byte("plain:"), data...), nil
}

type mockContextSigner struct {
	mockSigner
}

func (s *mockContextSigner) SignContext(_ context.Context, data []byte) ([]byte, error) {
	return append([]byte("ctx:"), data...), nil
}
