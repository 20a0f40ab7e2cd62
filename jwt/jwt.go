/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v3/json"
	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/trustbloc/kms-go/doc/jose"

	"github.com/trustbloc/sdjwt-vc-go/vcerr"
)

const (
	// TypeJWT defines JWT type.
	TypeJWT = "JWT"
	// TypeSDJWT defines SD-JWT type v5+.
	TypeSDJWT = "SD-JWT"

	// AlgorithmNone used to indicate unsecured JWT.
	AlgorithmNone = "none"
)

// Claims defines JSON Web Token Claims (https://tools.ietf.org/html/rfc7519#section-4)
type Claims jwt.Claims

// jwtParseOpts holds options for the JWT parsing.
type parseOpts struct {
	ctx                     context.Context
	detachedPayload         []byte
	proofChecker            ProofChecker
	expectedIssuer          string
	ignoreClaimsMapDecoding bool
}

// ParseOpt is the JWT Parser option.
type ParseOpt func(opts *parseOpts)

// WithJWTDetachedPayload option is for definition of JWT detached payload.
func WithJWTDetachedPayload(payload []byte) ParseOpt {
	return func(opts *parseOpts) {
		opts.detachedPayload = payload
	}
}

// WithIgnoreClaimsMapDecoding option is for ignore decoding claims into .Payload map[string]interface.
// Decoding to map[string]interface is pretty expensive, so this option can be used for performance critical operations.
func WithIgnoreClaimsMapDecoding(ignoreClaimsMapDecoding bool) ParseOpt {
	return func(opts *parseOpts) {
		opts.ignoreClaimsMapDecoding = ignoreClaimsMapDecoding
	}
}

// WithProofChecker option sets checker of the JWS signature. Without it the token is only decoded.
func WithProofChecker(proofChecker ProofChecker) ParseOpt {
	return func(opts *parseOpts) {
		opts.proofChecker = proofChecker
	}
}

// WithExpectedIssuer sets the issuer the signing key must belong to.
func WithExpectedIssuer(issuer string) ParseOpt {
	return func(opts *parseOpts) {
		opts.expectedIssuer = issuer
	}
}

// WithContext sets context passed to the proof checker.
func WithContext(ctx context.Context) ParseOpt {
	return func(opts *parseOpts) {
		opts.ctx = ctx
	}
}

type unsecuredJWTVerifier struct {
}

func (*unsecuredJWTVerifier) CheckJWTProof(_ context.Context, joseHeaders jose.Headers, _ string, _, signature []byte) error {
	alg, ok := joseHeaders.Algorithm()
	if !ok {
		return vcerr.New(vcerr.KindUnsupportedAlgorithm, "alg is not defined")
	}

	if alg != AlgorithmNone {
		return vcerr.New(vcerr.KindUnsupportedAlgorithm, "alg value is not 'none'")
	}

	if len(signature) > 0 {
		return vcerr.New(vcerr.KindSignatureVerificationFailed, "not empty signature")
	}

	return nil
}

// UnsecuredJWTVerifier provides verifier for unsecured JWT.
func UnsecuredJWTVerifier() ProofChecker {
	return &unsecuredJWTVerifier{}
}

type unsecuredJWTSigner struct{}

func (s unsecuredJWTSigner) SignJWT(_ context.Context, _ SignParameters, _ []byte) ([]byte, error) {
	return []byte(""), nil
}

func (s unsecuredJWTSigner) CreateJWTHeaders(_ SignParameters) (jose.Headers, error) {
	return map[string]interface{}{
		jose.HeaderAlgorithm: AlgorithmNone,
	}, nil
}

func isUnsecuredSigner(signer ProofCreator) bool {
	_, ok := signer.(unsecuredJWTSigner)

	return ok
}

// JSONWebToken defines JSON Web Token (https://tools.ietf.org/html/rfc7519)
type JSONWebToken struct {
	Headers jose.Headers

	Payload map[string]interface{}

	jws *CompactToken
}

// Parse parses input JWT in serialized form into JSON Web Token. The signature is checked
// when a proof checker is set. Unsecured tokens are accepted only with UnsecuredJWTVerifier.
func Parse(jwtSerialized string, opts ...ParseOpt) (*JSONWebToken, []byte, error) {
	pOpts := &parseOpts{ctx: context.Background()}

	for _, opt := range opts {
		opt(pOpts)
	}

	jws, err := decodeCompact(jwtSerialized, pOpts.detachedPayload)
	if err != nil {
		return nil, nil, fmt.Errorf("parse JWT from compact JWS: %w", err)
	}

	if err = CheckHeaders(jws.Headers); err != nil {
		return nil, nil, fmt.Errorf("check JWT headers: %w", err)
	}

	if _, unsecuredChecker := pOpts.proofChecker.(*unsecuredJWTVerifier); jws.Algorithm() == AlgorithmNone &&
		!unsecuredChecker {
		return nil, nil, vcerr.New(vcerr.KindUnsupportedAlgorithm, "unsecured JWT is not accepted")
	}

	if pOpts.proofChecker != nil {
		if err = jws.Verify(pOpts.ctx, pOpts.proofChecker, pOpts.expectedIssuer); err != nil {
			return nil, nil, fmt.Errorf("parse JWT from compact JWS: %w", err)
		}
	}

	return mapJWSToJWT(jws, pOpts)
}

// DecodeClaims fills input c with claims of a token.
func (j *JSONWebToken) DecodeClaims(c interface{}) error {
	pBytes, err := json.Marshal(j.Payload)
	if err != nil {
		return err
	}

	return json.Unmarshal(pBytes, c)
}

// LookupStringHeader makes look up of particular header with string value.
func (j *JSONWebToken) LookupStringHeader(name string) string {
	if headerValue, ok := j.Headers[name]; ok {
		if headerStrValue, ok := headerValue.(string); ok {
			return headerStrValue
		}
	}

	return ""
}

// Serialize makes (compact) serialization of token.
func (j *JSONWebToken) Serialize(detached bool) (string, error) {
	if j.jws == nil {
		return "", errors.New("JWS serialization is supported only")
	}

	return j.jws.Serialize(detached), nil
}

// Compact returns underlying compact JWS.
func (j *JSONWebToken) Compact() *CompactToken {
	return j.jws
}

func mapJWSToJWT(jws *CompactToken, opts *parseOpts) (*JSONWebToken, []byte, error) {
	token := &JSONWebToken{
		Headers: jws.Headers,
		jws:     jws,
	}

	if !opts.ignoreClaimsMapDecoding {
		claims, err := PayloadToMap(jws.Payload)
		if err != nil {
			return nil, nil, vcerr.New(vcerr.KindMalformedEncoding, "read JWT claims from JWS payload: %w", err)
		}

		token.Payload = claims
	}

	return token, jws.Payload, nil
}

// NewSigned creates new signed JSON Web Token based on input claims.
func NewSigned(ctx context.Context, claims interface{}, signParams SignParameters,
	signer ProofCreator) (*JSONWebToken, error) {
	payloadMap, err := PayloadToMap(claims)
	if err != nil {
		return nil, fmt.Errorf("unmarshallable claims: %w", err)
	}

	payloadBytes, err := json.Marshal(payloadMap)
	if err != nil {
		return nil, fmt.Errorf("marshal JWT claims: %w", err)
	}

	// JWS compact serialization uses only protected headers (https://tools.ietf.org/html/rfc7515#section-3.1).
	jws, err := Sign(ctx, payloadBytes, signParams, signer)
	if err != nil {
		return nil, fmt.Errorf("create JWS: %w", err)
	}

	return &JSONWebToken{
		Headers: jws.Headers,
		Payload: payloadMap,
		jws:     jws,
	}, nil
}

// NewUnsecured creates new unsecured JSON Web Token based on input claims.
func NewUnsecured(claims interface{}) (*JSONWebToken, error) {
	return NewSigned(context.Background(), claims, SignParameters{JWTAlg: AlgorithmNone}, unsecuredJWTSigner{})
}

// IsJWS checks if JWT is a JWS of valid structure.
func IsJWS(s string) bool {
	parts := strings.Split(s, ".")

	return len(parts) == compactSegments &&
		isValidJSON(parts[0]) &&
		isValidJSON(parts[1]) &&
		parts[2] != ""
}

// IsJWTUnsecured checks if JWT is an unsecured JWT of valid structure.
func IsJWTUnsecured(s string) bool {
	parts := strings.Split(s, ".")

	return len(parts) == compactSegments &&
		isValidJSON(parts[0]) &&
		isValidJSON(parts[1]) &&
		parts[2] == ""
}

func isValidJSON(s string) bool {
	b, err := b64.DecodeString(s)
	if err != nil {
		return false
	}

	var j map[string]interface{}
	err = json.Unmarshal(b, &j)

	return err == nil
}

// CheckHeaders checks jwt headers.
func CheckHeaders(headers map[string]interface{}) error {
	if _, ok := headers[jose.HeaderAlgorithm]; !ok {
		return vcerr.New(vcerr.KindUnsupportedAlgorithm, "alg header is not defined")
	}

	typ, ok := headers[jose.HeaderType]
	if ok {
		if err := checkTypHeader(typ); err != nil {
			return err
		}
	}

	cty, ok := headers[jose.HeaderContentType]
	if ok && cty == TypeJWT { // https://tools.ietf.org/html/rfc7519#section-5.2
		return vcerr.New(vcerr.KindMalformedEncoding, "nested JWT is not supported")
	}

	return nil
}

func checkTypHeader(typ interface{}) error {
	typStr, ok := typ.(string)
	if !ok {
		return vcerr.New(vcerr.KindMalformedEncoding, "invalid typ header format")
	}

	chunks := strings.Split(typStr, "+")
	if len(chunks) > 1 {
		ending := strings.ToUpper(chunks[len(chunks)-1])
		// Explicit typing.
		// https://www.rfc-editor.org/rfc/rfc8725.html#name-use-explicit-typing
		if ending != TypeJWT && ending != TypeSDJWT {
			return vcerr.New(vcerr.KindMalformedEncoding, "invalid typ header")
		}

		return nil
	}

	if typStr != TypeJWT {
		// https://www.rfc-editor.org/rfc/rfc7519#section-5.1
		return vcerr.New(vcerr.KindMalformedEncoding, "typ is not JWT")
	}

	return nil
}

// PayloadToMap transforms interface to map.
func PayloadToMap(i interface{}) (map[string]interface{}, error) {
	if m, ok := i.(map[string]interface{}); ok {
		return m, nil
	}

	var (
		b   []byte
		err error
	)

	switch cv := i.(type) {
	case []byte:
		b = cv
	case string:
		b = []byte(cv)
	default:
		b, err = json.Marshal(i)
		if err != nil {
			return nil, fmt.Errorf("marshal interface[%T]: %w", i, err)
		}
	}

	var m map[string]interface{}

	d := json.NewDecoder(bytes.NewReader(b))
	d.UseNumber()

	if err := d.Decode(&m); err != nil {
		return nil, fmt.Errorf("convert to map: %w", err)
	}

	return m, nil
}
