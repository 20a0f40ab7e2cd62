/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwt

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v3/json"
	"github.com/trustbloc/kms-go/doc/jose"

	"github.com/trustbloc/sdjwt-vc-go/vcerr"
)

const compactSegments = 3

// nolint: gochecknoglobals
var b64 = base64.RawURLEncoding.Strict()

// CompactToken is a decoded compact JWS. The raw segments are kept so the signing input
// is always the one that was received.
type CompactToken struct {
	Headers   jose.Headers
	Payload   []byte
	Signature []byte

	rawHeader    string
	rawPayload   string
	rawSignature string
	detached     bool
}

// Encode builds compact serialization from header, payload and signature.
func Encode(headers jose.Headers, payload, signature []byte) (string, error) {
	rawHeader, err := encodeHeaders(headers)
	if err != nil {
		return "", err
	}

	return rawHeader + "." + b64.EncodeToString(payload) + "." + b64.EncodeToString(signature), nil
}

// Decode parses compact JWS. Only WithJWTDetachedPayload is taken into account from opts.
func Decode(serialized string, opts ...ParseOpt) (*CompactToken, error) {
	pOpts := &parseOpts{}

	for _, opt := range opts {
		opt(pOpts)
	}

	return decodeCompact(serialized, pOpts.detachedPayload)
}

func decodeCompact(serialized string, detachedPayload []byte) (*CompactToken, error) {
	parts := strings.Split(serialized, ".")
	if len(parts) != compactSegments {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "compact jws must have %d segments, got %d",
			compactSegments, len(parts))
	}

	headers, err := decodeHeaders(parts[0])
	if err != nil {
		return nil, err
	}

	token := &CompactToken{
		Headers:      headers,
		rawHeader:    parts[0],
		rawPayload:   parts[1],
		rawSignature: parts[2],
	}

	switch {
	case parts[1] == "" && detachedPayload != nil:
		token.Payload = detachedPayload
		token.rawPayload = b64.EncodeToString(detachedPayload)
		token.detached = true
	case parts[1] == "":
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "jws payload is empty")
	default:
		token.Payload, err = b64.DecodeString(parts[1])
		if err != nil {
			return nil, vcerr.New(vcerr.KindMalformedEncoding, "decode jws payload: %w", err)
		}
	}

	token.Signature, err = b64.DecodeString(parts[2])
	if err != nil {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "decode jws signature: %w", err)
	}

	return token, nil
}

// SigningInput returns the JWS signing input built from the original segments.
func (t *CompactToken) SigningInput() []byte {
	return []byte(t.rawHeader + "." + t.rawPayload)
}

// Serialize returns compact serialization, with empty payload segment when detached.
func (t *CompactToken) Serialize(detached bool) string {
	if detached {
		return t.rawHeader + ".." + t.rawSignature
	}

	return t.rawHeader + "." + t.rawPayload + "." + t.rawSignature
}

// Algorithm returns value of alg header.
func (t *CompactToken) Algorithm() string {
	alg, _ := t.Headers.Algorithm()

	return alg
}

// Verify checks token signature with the given checker.
func (t *CompactToken) Verify(ctx context.Context, checker ProofChecker, expectedIssuer string) error {
	if alg, ok := t.Headers.Algorithm(); !ok || alg == "" {
		return vcerr.New(vcerr.KindUnsupportedAlgorithm, "alg header is not defined")
	}

	if checker == nil {
		return vcerr.New(vcerr.KindSignatureVerificationFailed, "proof checker is not defined")
	}

	v := &joseVerifier{proofChecker: checker, expectedProofIssuer: expectedIssuer}

	return v.Verify(ctx, t.Headers, t.SigningInput(), t.Signature)
}

// Sign creates a compact JWS over payload. Headers come from the creator.
func Sign(ctx context.Context, payload []byte, params SignParameters, creator ProofCreator) (*CompactToken, error) {
	signer, err := newJOSESigner(params, creator)
	if err != nil {
		return nil, err
	}

	rawHeader, err := encodeHeaders(signer.Headers())
	if err != nil {
		return nil, err
	}

	rawPayload := b64.EncodeToString(payload)

	signature, err := signer.Sign(ctx, []byte(rawHeader+"."+rawPayload))
	if err != nil {
		return nil, fmt.Errorf("sign jws: %w", err)
	}

	return &CompactToken{
		Headers:      signer.Headers(),
		Payload:      payload,
		Signature:    signature,
		rawHeader:    rawHeader,
		rawPayload:   rawPayload,
		rawSignature: b64.EncodeToString(signature),
	}, nil
}

func encodeHeaders(headers jose.Headers) (string, error) {
	if headers == nil {
		headers = jose.Headers{}
	}

	// map keys are marshalled sorted
	headerBytes, err := json.Marshal(headers)
	if err != nil {
		return "", fmt.Errorf("marshal jws headers: %w", err)
	}

	return b64.EncodeToString(headerBytes), nil
}

func decodeHeaders(raw string) (jose.Headers, error) {
	headerBytes, err := b64.DecodeString(raw)
	if err != nil {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "decode jws header: %w", err)
	}

	headers, err := PayloadToMap(headerBytes)
	if err != nil {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "unmarshal jws header: %w", err)
	}

	if headers == nil {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "jws header is not a json object")
	}

	return headers, nil
}
