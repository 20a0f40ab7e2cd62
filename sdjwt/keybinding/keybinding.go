/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package keybinding creates and validates Key Binding JWTs: holder-signed proofs of possession
// of the key confirmed by the issuer in "cnf", bound to a presentation through "sd_hash".
package keybinding

import (
	"context"
	"crypto"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v3/json"
	josejwt "github.com/go-jose/go-jose/v3/jwt"
	"github.com/mitchellh/mapstructure"
	"github.com/trustbloc/kms-go/doc/jose"
	"github.com/trustbloc/kms-go/doc/jose/jwk"

	"github.com/trustbloc/sdjwt-vc-go/crypto-ext/pubkey"
	"github.com/trustbloc/sdjwt-vc-go/jwt"
	"github.com/trustbloc/sdjwt-vc-go/proof/jwtproofs"
	"github.com/trustbloc/sdjwt-vc-go/sdjwt/common"
	"github.com/trustbloc/sdjwt-vc-go/vcerr"
	"github.com/trustbloc/sdjwt-vc-go/vermethod"
)

// Policy defines whether a Key Binding JWT must, may or must not be present.
type Policy int

const (
	// KeyBindingOptional validates Key Binding JWT if present.
	KeyBindingOptional Policy = iota
	// KeyBindingRequired rejects presentations without Key Binding JWT.
	KeyBindingRequired
	// KeyBindingForbidden rejects presentations with Key Binding JWT.
	KeyBindingForbidden
)

func (p Policy) String() string {
	switch p {
	case KeyBindingRequired:
		return "required"
	case KeyBindingForbidden:
		return "forbidden"
	default:
		return "optional"
	}
}

// Claims of the Key Binding JWT set by the holder.
type Claims struct {
	Audience string
	Nonce    string
	// IssuedAt defaults to current time.
	IssuedAt time.Time
}

type payload struct {
	Nonce    string               `json:"nonce,omitempty"`
	Audience string               `json:"aud,omitempty"`
	IssuedAt *josejwt.NumericDate `json:"iat,omitempty"`
	SDHash   string               `json:"sd_hash,omitempty"`
}

// ProofChecker verifies holder signatures.
type ProofChecker interface {
	CheckJWTProof(ctx context.Context, headers jose.Headers, expectedProofIssuer string, msg, signature []byte) error
	CheckJWTProofWithKey(headers jose.Headers, vm *vermethod.VerificationMethod, msg, signature []byte) error
}

// Build signs Key Binding JWT over token and returns a copy of token with it attached.
// sd_hash uses the _sd_alg of the issuer-signed JWT.
func Build(ctx context.Context, token *common.SDToken, creator jwt.ProofCreator,
	params jwt.SignParameters, claims Claims, extraHeaders jose.Headers) (*common.SDToken, error) {
	if token.KeyBindingJWT != "" {
		return nil, vcerr.New(vcerr.KindKeyBindingViolation, "token already has key binding JWT")
	}

	hash, err := issuerHash(token)
	if err != nil {
		return nil, err
	}

	sdHash, err := token.SDHash(hash)
	if err != nil {
		return nil, err
	}

	iat := claims.IssuedAt
	if iat.IsZero() {
		iat = time.Now()
	}

	headers := jose.Headers{}

	for _, h := range []jose.Headers{params.AdditionalHeaders, extraHeaders} {
		for k, v := range h {
			headers[k] = v
		}
	}

	headers[jose.HeaderType] = common.KeyBindingJWTType
	params.AdditionalHeaders = headers

	kbJWT, err := jwt.NewSigned(ctx, &payload{
		Nonce:    claims.Nonce,
		Audience: claims.Audience,
		IssuedAt: josejwt.NewNumericDate(iat),
		SDHash:   sdHash,
	}, params, creator)
	if err != nil {
		return nil, fmt.Errorf("create key binding JWT: %w", err)
	}

	serialized, err := kbJWT.Serialize(false)
	if err != nil {
		return nil, err
	}

	result := token.Copy()
	result.KeyBindingJWT = serialized

	return result, nil
}

func issuerHash(token *common.SDToken) (crypto.Hash, error) {
	issuerJWT, err := jwt.Decode(token.IssuerJWT)
	if err != nil {
		return 0, err
	}

	issuerPayload, err := jwt.PayloadToMap(issuerJWT.Payload)
	if err != nil {
		return 0, vcerr.New(vcerr.KindMalformedEncoding, "decode issuer-signed JWT payload: %w", err)
	}

	return common.GetCryptoHashFromClaims(issuerPayload)
}

// Options of Key Binding JWT validation.
type Options struct {
	Policy Policy

	// Audience and Nonce are compared when set.
	Audience string
	Nonce    string

	// EarliestIssuance is ignored when zero. LatestIssuance defaults to Now.
	EarliestIssuance time.Time
	LatestIssuance   time.Time

	// Now defaults to current time.
	Now    time.Time
	Leeway time.Duration
}

// Validate checks Key Binding JWT of token against holder key confirmed in issuerPayload.
// It returns holder identifier: DID of cnf kid, or JWK thumbprint URN. Empty result with nil
// error means key binding is absent and allowed.
func Validate(ctx context.Context, token *common.SDToken, issuerPayload map[string]interface{},
	opts Options, checker ProofChecker) (string, error) {
	if token.KeyBindingJWT == "" {
		if opts.Policy == KeyBindingRequired {
			return "", violation("key binding is required")
		}

		return "", nil
	}

	if opts.Policy == KeyBindingForbidden {
		return "", violation("key binding JWT is not allowed")
	}

	hash, err := common.GetCryptoHashFromClaims(issuerPayload)
	if err != nil {
		return "", err
	}

	kb, err := jwt.Decode(token.KeyBindingJWT)
	if err != nil {
		return "", violation("parse key binding JWT: %w", err)
	}

	if err = checkHeaders(kb.Headers); err != nil {
		return "", err
	}

	holderID, err := verifySignature(ctx, kb, issuerPayload, checker)
	if err != nil {
		return "", err
	}

	kbPayload, err := decodePayload(kb.Payload)
	if err != nil {
		return "", err
	}

	if err = checkClaims(kbPayload, token, hash, &opts); err != nil {
		return "", err
	}

	return holderID, nil
}

func checkHeaders(headers jose.Headers) error {
	if typ, _ := headers.Type(); typ != common.KeyBindingJWTType {
		return violation("unexpected typ \"%s\"", typ)
	}

	if alg, _ := headers.Algorithm(); alg == "" || alg == jwt.AlgorithmNone {
		return violation("key binding JWT must be signed")
	}

	return nil
}

func verifySignature(ctx context.Context, kb *jwt.CompactToken, issuerPayload map[string]interface{},
	checker ProofChecker) (string, error) {
	cnf, err := common.GetCNF(issuerPayload)
	if err != nil {
		return "", violation("holder key: %w", err)
	}

	var holderID string

	switch {
	case cnf["jwk"] != nil:
		holderKey, e := parseJWK(cnf["jwk"])
		if e != nil {
			return "", violation("holder key: %w", e)
		}

		holderID, err = pubkey.ThumbprintURN(holderKey)
		if err != nil {
			return "", violation("holder key thumbprint: %w", err)
		}

		err = checker.CheckJWTProofWithKey(kb.Headers,
			&vermethod.VerificationMethod{Type: jwtproofs.JSONWebKey2020Type, JWK: holderKey},
			kb.SigningInput(), kb.Signature)
	case cnf["kid"] != nil:
		kid, ok := cnf["kid"].(string)
		if !ok || kid == "" {
			return "", violation("cnf kid must be a non-empty string")
		}

		holderID = kid
		if did, _, isDID := vermethod.SplitDIDURL(kid); isDID {
			holderID = did
		}

		headers := jose.Headers{}
		for k, v := range kb.Headers {
			headers[k] = v
		}

		headers[jose.HeaderKeyID] = kid

		err = checker.CheckJWTProof(ctx, headers, "", kb.SigningInput(), kb.Signature)
	default:
		return "", violation("unsupported cnf: jwk or kid expected")
	}

	if err != nil {
		if vcerr.KindOf(err) == vcerr.KindResolutionFailed {
			return "", err
		}

		return "", violation("key binding JWT signature: %w", err)
	}

	return holderID, nil
}

func parseJWK(raw interface{}) (*jwk.JWK, error) {
	jwkBytes, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}

	holderKey := &jwk.JWK{}

	if err = holderKey.UnmarshalJSON(jwkBytes); err != nil {
		return nil, err
	}

	return holderKey, nil
}

type kbClaims struct {
	Nonce    string `json:"nonce"`
	Audience string `json:"aud"`
	IssuedAt int64  `json:"iat"`
	SDHash   string `json:"sd_hash"`
}

func decodePayload(raw []byte) (*kbClaims, error) {
	claimsMap, err := jwt.PayloadToMap(raw)
	if err != nil {
		return nil, violation("key binding JWT payload: %w", err)
	}

	claims := &kbClaims{}

	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           claims,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("mapstruct key binding claims: %w", err)
	}

	if err = d.Decode(claimsMap); err != nil {
		return nil, violation("decode key binding claims: %w", err)
	}

	return claims, nil
}

func checkClaims(claims *kbClaims, token *common.SDToken, hash crypto.Hash, opts *Options) error {
	expectedSDHash, err := token.SDHash(hash)
	if err != nil {
		return err
	}

	if claims.SDHash != expectedSDHash {
		return violation("sd_hash '%s' does not match presentation", claims.SDHash)
	}

	if opts.Audience != "" && opts.Audience != claims.Audience {
		return violation("audience value '%s' does not match expected audience value '%s'",
			claims.Audience, opts.Audience)
	}

	if opts.Nonce != "" && opts.Nonce != claims.Nonce {
		return violation("nonce value '%s' does not match expected nonce value '%s'",
			claims.Nonce, opts.Nonce)
	}

	if claims.IssuedAt == 0 {
		return violation("iat is missing")
	}

	iat := time.Unix(claims.IssuedAt, 0)

	latest := opts.LatestIssuance
	if latest.IsZero() {
		latest = opts.Now
	}

	if latest.IsZero() {
		latest = time.Now()
	}

	if iat.After(latest.Add(opts.Leeway)) {
		return violation("key binding JWT issued at %s is after %s", iat.UTC(), latest.UTC())
	}

	if !opts.EarliestIssuance.IsZero() && iat.Before(opts.EarliestIssuance.Add(-opts.Leeway)) {
		return violation("key binding JWT issued at %s is before %s", iat.UTC(), opts.EarliestIssuance.UTC())
	}

	return nil
}

func violation(format string, args ...interface{}) error {
	return vcerr.New(vcerr.KindKeyBindingViolation, format, args...)
}
