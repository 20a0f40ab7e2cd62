/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwt

import (
	"context"
	"fmt"

	"github.com/go-jose/go-jose/v3/json"
	"github.com/trustbloc/kms-go/doc/jose"

	"github.com/trustbloc/sdjwt-vc-go/vcerr"
)

// GeneralJWS is a JWS in JSON serialization (https://www.rfc-editor.org/rfc/rfc7515#section-7.2).
type GeneralJWS struct {
	Payload    []byte
	Signatures []*GeneralSignature

	rawPayload string
}

// GeneralSignature is one signature of a GeneralJWS. Only Protected headers are integrity protected.
type GeneralSignature struct {
	Protected   jose.Headers
	Unprotected jose.Headers
	Signature   []byte

	rawProtected string
}

// GeneralSigner signs one signature of a GeneralJWS.
type GeneralSigner struct {
	Params      SignParameters
	Creator     ProofCreator
	Unprotected jose.Headers
}

type jsonSignature struct {
	Protected string                 `json:"protected,omitempty"`
	Header    map[string]interface{} `json:"header,omitempty"`
	Signature string                 `json:"signature"`
}

type jsonJWS struct {
	Payload    string                 `json:"payload"`
	Signatures []jsonSignature        `json:"signatures,omitempty"`
	Protected  string                 `json:"protected,omitempty"`
	Header     map[string]interface{} `json:"header,omitempty"`
	Signature  *string                `json:"signature,omitempty"`
}

// DecodeGeneral parses general or flattened JSON serialization.
func DecodeGeneral(data []byte) (*GeneralJWS, error) {
	var raw jsonJWS

	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "unmarshal json jws: %w", err)
	}

	signatures := raw.Signatures

	switch {
	case raw.Signature != nil && len(signatures) > 0:
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "json jws mixes general and flattened syntax")
	case raw.Signature != nil:
		signatures = []jsonSignature{{Protected: raw.Protected, Header: raw.Header, Signature: *raw.Signature}}
	case len(signatures) == 0:
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "json jws has no signatures")
	}

	payload, err := b64.DecodeString(raw.Payload)
	if err != nil {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "decode json jws payload: %w", err)
	}

	jws := &GeneralJWS{Payload: payload, rawPayload: raw.Payload}

	for i, s := range signatures {
		sig, err := decodeJSONSignature(s)
		if err != nil {
			return nil, fmt.Errorf("signature %d: %w", i, err)
		}

		jws.Signatures = append(jws.Signatures, sig)
	}

	return jws, nil
}

func decodeJSONSignature(s jsonSignature) (*GeneralSignature, error) {
	sig := &GeneralSignature{Unprotected: s.Header, rawProtected: s.Protected}

	if s.Protected != "" {
		protected, err := decodeHeaders(s.Protected)
		if err != nil {
			return nil, err
		}

		sig.Protected = protected
	}

	for name := range sig.Unprotected {
		if _, ok := sig.Protected[name]; ok {
			return nil, vcerr.New(vcerr.KindMalformedEncoding, "header %q is both protected and unprotected", name)
		}
	}

	signature, err := b64.DecodeString(s.Signature)
	if err != nil {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "decode signature: %w", err)
	}

	sig.Signature = signature

	return sig, nil
}

// SignGeneral creates general JSON JWS with one signature per signer.
func SignGeneral(ctx context.Context, payload []byte, signers []GeneralSigner) (*GeneralJWS, error) {
	if len(signers) == 0 {
		return nil, vcerr.New(vcerr.KindUnsupportedAlgorithm, "no signers")
	}

	jws := &GeneralJWS{Payload: payload, rawPayload: b64.EncodeToString(payload)}

	for _, s := range signers {
		token, err := Sign(ctx, payload, s.Params, s.Creator)
		if err != nil {
			return nil, err
		}

		jws.Signatures = append(jws.Signatures, &GeneralSignature{
			Protected:    token.Headers,
			Unprotected:  s.Unprotected,
			Signature:    token.Signature,
			rawProtected: token.rawHeader,
		})
	}

	return jws, nil
}

// Serialize returns general JSON serialization.
func (j *GeneralJWS) Serialize() ([]byte, error) {
	raw := jsonJWS{Payload: j.rawPayload}

	for _, s := range j.Signatures {
		raw.Signatures = append(raw.Signatures, jsonSignature{
			Protected: s.rawProtected,
			Header:    s.Unprotected,
			Signature: b64.EncodeToString(s.Signature),
		})
	}

	return json.Marshal(raw)
}

// Verify checks every signature. alg must be a protected header.
func (j *GeneralJWS) Verify(ctx context.Context, checker ProofChecker, expectedIssuer string) error {
	for i := range j.Signatures {
		token, err := j.Compact(i)
		if err != nil {
			return err
		}

		if err = token.Verify(ctx, checker, expectedIssuer); err != nil {
			return fmt.Errorf("signature %d: %w", i, err)
		}
	}

	return nil
}

// Compact converts signature i into compact JWS. Unprotected headers are dropped.
func (j *GeneralJWS) Compact(i int) (*CompactToken, error) {
	if i < 0 || i >= len(j.Signatures) {
		return nil, fmt.Errorf("signature index %d out of range", i)
	}

	s := j.Signatures[i]

	if _, ok := s.Protected.Algorithm(); !ok {
		if _, unprotected := s.Unprotected[jose.HeaderAlgorithm]; unprotected {
			return nil, vcerr.New(vcerr.KindUnsupportedAlgorithm, "signature %d: alg header is not protected", i)
		}

		return nil, vcerr.New(vcerr.KindUnsupportedAlgorithm, "signature %d: alg header is not defined", i)
	}

	return &CompactToken{
		Headers:      s.Protected,
		Payload:      j.Payload,
		Signature:    s.Signature,
		rawHeader:    s.rawProtected,
		rawPayload:   j.rawPayload,
		rawSignature: b64.EncodeToString(s.Signature),
	}, nil
}
