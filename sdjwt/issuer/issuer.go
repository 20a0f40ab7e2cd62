/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

/*
Package issuer enables the Issuer: An entity that creates SD-JWTs.

An SD-JWT is a digitally signed document containing digests over the claims
(per claim: a random salt, the claim name and the claim value).
It MAY further contain clear-text claims that are always disclosed to the Verifier.

The Builder starts from clear-text claims. Every claim marked concealable with an RFC 6901
JSON pointer is replaced by a digest: object members move into the "_sd" array of the
enclosing object, array elements are replaced in place by {"...": digest}.
Nested claims may be concealed together with their parents, the parent disclosure then
carries the digests of its children.
*/
package issuer

import (
	"context"
	"crypto"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/go-openapi/jsonpointer"
	"github.com/samber/lo"
	"github.com/trustbloc/kms-go/doc/jose"
	"github.com/trustbloc/kms-go/doc/jose/jwk"

	"github.com/trustbloc/sdjwt-vc-go/crypto-ext/pubkey"
	"github.com/trustbloc/sdjwt-vc-go/jwt"
	"github.com/trustbloc/sdjwt-vc-go/sdjwt/common"
	jsonutil "github.com/trustbloc/sdjwt-vc-go/util/json"
)

const (
	defaultHash     = crypto.SHA256
	defaultSaltSize = 16
)

// ErrBuilderFinished is returned by a builder that was already used to produce an SD-JWT.
var ErrBuilderFinished = errors.New("sd-jwt builder is already finished")

// newOpts holds options for creating new SD-JWT.
type newOpts struct {
	HashAlg crypto.Hash

	getSalt func() (string, error)

	HolderPublicKey *jwk.JWK
	HolderKeyID     string

	typ string
}

// NewOpt is the SD-JWT New option.
type NewOpt func(opts *newOpts)

// WithHashAlgorithm is an option for hashing disclosures.
func WithHashAlgorithm(alg crypto.Hash) NewOpt {
	return func(opts *newOpts) {
		opts.HashAlg = alg
	}
}

// WithSaltFnc is an option for generating salt. Mostly used for testing.
// A new salt MUST be chosen for each claim independently of other salts.
func WithSaltFnc(fnc func() (string, error)) NewOpt {
	return func(opts *newOpts) {
		opts.getSalt = fnc
	}
}

// WithHolderPublicKey binds SD-JWT to holder key with "cnf": {"jwk": ...}.
// Only the public members of the key are embedded.
func WithHolderPublicKey(jwk *jwk.JWK) NewOpt {
	return func(opts *newOpts) {
		opts.HolderPublicKey = jwk
	}
}

// WithHolderKeyID binds SD-JWT to holder key with "cnf": {"kid": ...}.
func WithHolderKeyID(kid string) NewOpt {
	return func(opts *newOpts) {
		opts.HolderKeyID = kid
	}
}

// WithTyp sets typ header of the issuer-signed JWT, e.g. "vc+sd-jwt".
func WithTyp(typ string) NewOpt {
	return func(opts *newOpts) {
		opts.typ = typ
	}
}

type operation struct {
	tokens []string
	decoy  bool
	count  int
}

// Builder collects concealment instructions and produces a signed SD-JWT.
// A Builder can be finished once.
type Builder struct {
	opts   *newOpts
	claims map[string]interface{}

	concealed map[string]struct{}
	ops       []operation

	finished bool
}

// NewBuilder creates builder for the claims. Claims are copied.
func NewBuilder(claims interface{}, opts ...NewOpt) (*Builder, error) {
	nOpts := &newOpts{
		HashAlg: defaultHash,
		getSalt: generateSalt,
	}

	for _, opt := range opts {
		opt(nOpts)
	}

	if _, err := common.GetCryptoHash(common.HashName(nOpts.HashAlg)); err != nil {
		return nil, err
	}

	if nOpts.HolderPublicKey != nil && nOpts.HolderKeyID != "" {
		return nil, errors.New("holder public key and holder key id are mutually exclusive")
	}

	if nOpts.HolderPublicKey != nil {
		// cnf carries the public projection only, private members never reach the signed payload.
		pub, err := pubkey.FromJWK(nOpts.HolderPublicKey, "")
		if err != nil {
			return nil, fmt.Errorf("holder public key: %w", err)
		}

		nOpts.HolderPublicKey = pub.JWK
	}

	claimsMap, err := jwt.PayloadToMap(claims)
	if err != nil {
		return nil, fmt.Errorf("convert payload to map: %w", err)
	}

	for _, key := range []string{common.SDKey, common.ArrayElementDigestKey} {
		if common.KeyExistsInMap(key, claimsMap) {
			return nil, fmt.Errorf("key '%s' cannot be present in the claims", key)
		}
	}

	return &Builder{
		opts:      nOpts,
		claims:    jsonutil.DeepCopyObj(claimsMap),
		concealed: map[string]struct{}{},
	}, nil
}

// MakeConcealable marks claim at JSON pointer path as selectively disclosable.
func (b *Builder) MakeConcealable(path string) error {
	if b.finished {
		return ErrBuilderFinished
	}

	tokens, err := parsePath(path)
	if err != nil {
		return err
	}

	if len(tokens) == 0 {
		return errors.New("the root object cannot be concealed")
	}

	if _, err = lookup(b.claims, tokens); err != nil {
		return err
	}

	if _, ok := b.concealed[path]; ok {
		return fmt.Errorf("path '%s' is already concealable", path)
	}

	b.concealed[path] = struct{}{}
	b.ops = append(b.ops, operation{tokens: tokens})

	return nil
}

// AddDecoys adds n decoy digests to the container at containerPath. Root is "".
// Object decoys go to "_sd", array decoys are appended as {"...": digest} elements.
func (b *Builder) AddDecoys(containerPath string, n int) error {
	if b.finished {
		return ErrBuilderFinished
	}

	if n < 0 {
		return fmt.Errorf("invalid decoy count %d", n)
	}

	tokens, err := parsePath(containerPath)
	if err != nil {
		return err
	}

	container, err := lookup(b.claims, tokens)
	if err != nil {
		return err
	}

	switch container.(type) {
	case map[string]interface{}, []interface{}:
	default:
		return fmt.Errorf("decoys can be added to objects and arrays only, '%s' is %T", containerPath, container)
	}

	b.ops = append(b.ops, operation{tokens: tokens, decoy: true, count: n})

	return nil
}

// Finish conceals marked claims, signs the payload and returns SD-JWT with disclosures.
// The builder cannot be used afterwards.
func (b *Builder) Finish(ctx context.Context, creator jwt.ProofCreator,
	params jwt.SignParameters) (*SelectiveDisclosureJWT, error) {
	if b.finished {
		return nil, ErrBuilderFinished
	}

	b.finished = true

	payload := b.claims

	disclosures, err := b.apply(payload)
	if err != nil {
		return nil, err
	}

	payload[common.SDAlgorithmKey] = common.HashName(b.opts.HashAlg)

	if cnf := b.cnf(); cnf != nil {
		payload[common.CNFKey] = cnf
	}

	if b.opts.typ != "" {
		headers := jose.Headers{}

		for k, v := range params.AdditionalHeaders {
			headers[k] = v
		}

		headers[jose.HeaderType] = b.opts.typ
		params.AdditionalHeaders = headers
	}

	signedJWT, err := jwt.NewSigned(ctx, payload, params, creator)
	if err != nil {
		return nil, fmt.Errorf("failed to create SD-JWT: %w", err)
	}

	return &SelectiveDisclosureJWT{SignedJWT: signedJWT, Disclosures: disclosures}, nil
}

func (b *Builder) cnf() map[string]interface{} {
	switch {
	case b.opts.HolderPublicKey != nil:
		return map[string]interface{}{"jwk": b.opts.HolderPublicKey}
	case b.opts.HolderKeyID != "":
		return map[string]interface{}{"kid": b.opts.HolderKeyID}
	default:
		return nil
	}
}

// apply runs operations deepest first, so parent disclosures carry digests of their children.
// Decoys of a container run together with concealment of its children.
func (b *Builder) apply(payload map[string]interface{}) ([]*common.DisclosureClaim, error) {
	ops := append([]operation(nil), b.ops...)

	sort.SliceStable(ops, func(i, j int) bool {
		return depth(ops[i]) > depth(ops[j])
	})

	var disclosures []*common.DisclosureClaim

	for _, op := range ops {
		if op.decoy {
			if err := b.addDecoys(payload, op); err != nil {
				return nil, err
			}

			continue
		}

		dc, err := b.conceal(payload, op.tokens)
		if err != nil {
			return nil, fmt.Errorf("conceal '%s': %w", pointer(op.tokens), err)
		}

		disclosures = append(disclosures, dc)
	}

	return disclosures, nil
}

func depth(op operation) int {
	if op.decoy {
		return len(op.tokens) + 1
	}

	return len(op.tokens)
}

func (b *Builder) conceal(payload map[string]interface{}, tokens []string) (*common.DisclosureClaim, error) {
	parent, err := lookup(payload, tokens[:len(tokens)-1])
	if err != nil {
		return nil, err
	}

	salt, err := b.opts.getSalt()
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	name := tokens[len(tokens)-1]

	switch container := parent.(type) {
	case map[string]interface{}:
		dc, err := common.NewDisclosure(b.opts.HashAlg, salt, name, container[name])
		if err != nil {
			return nil, err
		}

		delete(container, name)
		appendDigests(container, dc.Digest)

		return dc, nil
	case []interface{}:
		idx, _ := strconv.Atoi(name) //nolint:errcheck // checked by lookup

		dc, err := common.NewArrayElementDisclosure(b.opts.HashAlg, salt, container[idx])
		if err != nil {
			return nil, err
		}

		container[idx] = map[string]interface{}{common.ArrayElementDigestKey: dc.Digest}

		return dc, nil
	default:
		return nil, fmt.Errorf("unexpected container type %T", parent)
	}
}

func (b *Builder) addDecoys(payload map[string]interface{}, op operation) error {
	parentTokens := op.tokens

	container, err := lookup(payload, parentTokens)
	if err != nil {
		return err
	}

	digests := make([]string, 0, op.count)

	for i := 0; i < op.count; i++ {
		salt, err := b.opts.getSalt()
		if err != nil {
			return fmt.Errorf("generate salt: %w", err)
		}

		digest, err := common.GetHash(b.opts.HashAlg, salt)
		if err != nil {
			return err
		}

		digests = append(digests, digest)
	}

	switch c := container.(type) {
	case map[string]interface{}:
		appendDigests(c, digests...)

		return nil
	case []interface{}:
		elems := append(c, lo.Map(digests, func(d string, _ int) interface{} {
			return map[string]interface{}{common.ArrayElementDigestKey: d}
		})...)

		return replace(payload, parentTokens, elems)
	default:
		return fmt.Errorf("decoy container '%s' is not an object or array", pointer(op.tokens))
	}
}

// replace sets value at tokens, used where a container slice grows.
func replace(payload map[string]interface{}, tokens []string, value interface{}) error {
	if len(tokens) == 0 {
		return errors.New("the root object cannot be replaced")
	}

	parent, err := lookup(payload, tokens[:len(tokens)-1])
	if err != nil {
		return err
	}

	name := tokens[len(tokens)-1]

	switch c := parent.(type) {
	case map[string]interface{}:
		c[name] = value
	case []interface{}:
		idx, _ := strconv.Atoi(name) //nolint:errcheck // checked by lookup
		c[idx] = value
	default:
		return fmt.Errorf("unexpected container type %T", parent)
	}

	return nil
}

func appendDigests(obj map[string]interface{}, digests ...string) {
	existing, _ := obj[common.SDKey].([]interface{}) //nolint:errcheck

	all := append(lo.Map(existing, func(d interface{}, _ int) string { return d.(string) }), digests...) //nolint:forcetypeassert

	sort.Strings(all)

	obj[common.SDKey] = lo.Map(all, func(d string, _ int) interface{} { return d })
}

func parsePath(path string) ([]string, error) {
	ptr, err := jsonpointer.New(path)
	if err != nil {
		return nil, fmt.Errorf("invalid claim path '%s': %w", path, err)
	}

	return ptr.DecodedTokens(), nil
}

func pointer(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}

	return "/" + lo.Reduce(tokens[1:], func(acc string, t string, _ int) string {
		return acc + "/" + jsonpointer.Escape(t)
	}, jsonpointer.Escape(tokens[0]))
}

func lookup(obj map[string]interface{}, tokens []string) (interface{}, error) {
	var current interface{} = obj

	for i, token := range tokens {
		switch c := current.(type) {
		case map[string]interface{}:
			v, ok := c[token]
			if !ok {
				return nil, fmt.Errorf("claim '%s' not found", pointer(tokens[:i+1]))
			}

			current = v
		case []interface{}:
			idx, err := strconv.Atoi(token)
			if err != nil || idx < 0 || idx >= len(c) {
				return nil, fmt.Errorf("array index '%s' is out of range", pointer(tokens[:i+1]))
			}

			current = c[idx]
		default:
			return nil, fmt.Errorf("claim '%s' is not a container", pointer(tokens[:i]))
		}
	}

	return current, nil
}

// SelectiveDisclosureJWT is issuer-signed JWT with the disclosures of its concealed claims.
type SelectiveDisclosureJWT struct {
	SignedJWT   *jwt.JSONWebToken
	Disclosures []*common.DisclosureClaim
}

// Token returns combined format parts.
func (j *SelectiveDisclosureJWT) Token() (*common.SDToken, error) {
	signedJWT, err := j.SignedJWT.Serialize(false)
	if err != nil {
		return nil, err
	}

	return &common.SDToken{
		IssuerJWT:   signedJWT,
		Disclosures: lo.Map(j.Disclosures, func(d *common.DisclosureClaim, _ int) string { return d.Disclosure }),
	}, nil
}

// Serialize makes combined serialization: jwt~d1~...~dn~.
func (j *SelectiveDisclosureJWT) Serialize() (string, error) {
	token, err := j.Token()
	if err != nil {
		return "", err
	}

	return token.Serialize(), nil
}

func generateSalt() (string, error) {
	salt := make([]byte, defaultSaltSize)

	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	// it is RECOMMENDED to base64url-encode the salt value, producing a string.
	return base64.RawURLEncoding.EncodeToString(salt), nil
}
