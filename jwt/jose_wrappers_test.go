/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/trustbloc/kms-go/doc/jose"

	"github.com/trustbloc/sdjwt-vc-go/vcerr"
)

func TestJoseVerifier(t *testing.T) {
	testIssuer := "did:test:testIssuer"

	t.Run("expectedProofIssuer is defined", func(t *testing.T) {
		mock := &mockProofChecker{}
		verifier := &joseVerifier{proofChecker: mock, expectedProofIssuer: testIssuer}

		err := verifier.Verify(context.Background(), jose.Headers{"kid": "did:test:keyIssuer#key-1"}, nil, nil)
		require.NoError(t, err)
		require.Equal(t, testIssuer, mock.resultedExpectedProofIssuer)
	})

	t.Run("expectedProofIssuer should be derived from key id", func(t *testing.T) {
		mock := &mockProofChecker{}
		verifier := &joseVerifier{proofChecker: mock}

		err := verifier.Verify(context.Background(), jose.Headers{"kid": "did:test:keyIssuer#key-1"}, nil, nil)
		require.NoError(t, err)
		require.Equal(t, "did:test:keyIssuer", mock.resultedExpectedProofIssuer)
	})

	t.Run("test missed key id", func(t *testing.T) {
		mock := &mockProofChecker{resultedExpectedProofIssuer: "unset"}
		verifier := &joseVerifier{proofChecker: mock}

		err := verifier.Verify(context.Background(), jose.Headers{}, nil, nil)
		require.NoError(t, err)
		require.Empty(t, mock.resultedExpectedProofIssuer)
	})

	t.Run("checker error is returned as is", func(t *testing.T) {
		mock := &mockProofChecker{err: vcerr.New(vcerr.KindSignatureVerificationFailed, "bad")}
		verifier := &joseVerifier{proofChecker: mock, expectedProofIssuer: testIssuer}

		err := verifier.Verify(context.Background(), jose.Headers{}, nil, nil)
		require.ErrorIs(t, err, vcerr.ErrSignatureVerificationFailed)
	})
}

func TestJoseSigner(t *testing.T) {
	t.Run("none alg is rejected for regular creators", func(t *testing.T) {
		_, err := newJOSESigner(SignParameters{JWTAlg: AlgorithmNone}, &mockProofCreator{})
		require.ErrorIs(t, err, vcerr.ErrUnsupportedAlgorithm)
	})

	t.Run("headers error", func(t *testing.T) {
		_, err := newJOSESigner(SignParameters{JWTAlg: "EdDSA"},
			&mockProofCreator{headersErr: errors.New("headers failed")})
		require.ErrorContains(t, err, "headers failed")
	})

	t.Run("nil creator", func(t *testing.T) {
		_, err := newJOSESigner(SignParameters{JWTAlg: "EdDSA"}, nil)
		require.ErrorIs(t, err, vcerr.ErrUnsupportedAlgorithm)
	})
}

type mockProofChecker struct {
	resultedExpectedProofIssuer string
	err                         error
}

func (m *mockProofChecker) CheckJWTProof(_ context.Context, _ jose.Headers,
	expectedProofIssuer string, _, _ []byte) error {
	m.resultedExpectedProofIssuer = expectedProofIssuer

	return m.err
}

type mockProofCreator struct {
	headersErr error
	signErr    error
}

func (m *mockProofCreator) SignJWT(_ context.Context, _ SignParameters, data []byte) ([]byte, error) {
	if m.signErr != nil {
		return nil, m.signErr
	}

	return append([]byte("sig:"), data...), nil
}

func (m *mockProofCreator) CreateJWTHeaders(params SignParameters) (jose.Headers, error) {
	if m.headersErr != nil {
		return nil, m.headersErr
	}

	return jose.Headers{jose.HeaderAlgorithm: params.JWTAlg, jose.HeaderKeyID: params.KeyID}, nil
}
