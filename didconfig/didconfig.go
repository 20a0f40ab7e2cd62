/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

/*
Package didconfig validates DID Configuration resources with JWT domain linkage credentials.

A DID Configuration resource is served by a domain at /.well-known/did-configuration.json and links the
domain to DIDs. The resource bytes are supplied by the caller, the package does no network I/O.
See https://identity.foundation/.well-known/resources/did-configuration/.
*/
package didconfig

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-jose/go-jose/v3/json"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	diddoc "github.com/trustbloc/did-go/doc/did"
	"github.com/trustbloc/kms-go/doc/jose"

	"github.com/trustbloc/sdjwt-vc-go/internal/logging"
	"github.com/trustbloc/sdjwt-vc-go/jwt"
	"github.com/trustbloc/sdjwt-vc-go/sdjwt/common"
	"github.com/trustbloc/sdjwt-vc-go/validator"
	"github.com/trustbloc/sdjwt-vc-go/vcerr"
	"github.com/trustbloc/sdjwt-vc-go/verifiable"
)

const (
	// ContextV0 is did configuration context version 0.
	ContextV0 = "https://identity.foundation/.well-known/contexts/did-configuration-v0.0.jsonld"

	// ContextV1 is did configuration context version 1.
	ContextV1 = "https://identity.foundation/.well-known/did-configuration/v1"

	// DomainLinkageCredentialType is the type every domain linkage credential carries.
	DomainLinkageCredentialType = "DomainLinkageCredential"

	contextProperty    = "@context"
	linkedDIDsProperty = "linked_dids"
	originProperty     = "origin"
)

// ErrLinkageNotFound is returned when no linked credential proves the DID and origin linkage.
var ErrLinkageNotFound = errors.New("domain linkage credential with valid proof not found")

// Configuration is a DID Configuration resource.
type Configuration struct {
	Context string
	// LinkedDIDs holds domain linkage credentials: compact JWT strings or JSON-LD objects.
	LinkedDIDs []interface{}
}

type rawConfiguration struct {
	Context    string        `json:"@context"`
	LinkedDIDs []interface{} `json:"linked_dids"`
}

// Parse parses DID Configuration resource. Only @context and linked_dids properties are allowed.
func Parse(data []byte) (*Configuration, error) {
	var props map[string]interface{}

	if err := json.Unmarshal(data, &props); err != nil {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "unmarshal DID configuration: %w", err)
	}

	if props == nil {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "DID configuration payload is not provided")
	}

	if err := checkProperties(props, []string{contextProperty, linkedDIDsProperty}, true); err != nil {
		return nil, fmt.Errorf("did configuration: %w", err)
	}

	var raw rawConfiguration

	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "unmarshal DID configuration: %w", err)
	}

	if raw.Context != ContextV0 && raw.Context != ContextV1 {
		return nil, vcerr.New(vcerr.KindClaimsConstraintViolation, "unsupported DID configuration context %q",
			raw.Context)
	}

	return &Configuration{Context: raw.Context, LinkedDIDs: raw.LinkedDIDs}, nil
}

// Issuers returns the distinct "iss" of the JWT linked credentials. Signatures are not checked.
func (c *Configuration) Issuers() []string {
	var issuers []string

	for _, linked := range c.LinkedDIDs {
		s, ok := linked.(string)
		if !ok {
			continue
		}

		token, err := jwt.Decode(s)
		if err != nil {
			continue
		}

		claims, err := jwt.PayloadToMap(token.Payload)
		if err != nil {
			continue
		}

		if iss, _ := claims[verifiable.ClaimIssuer].(string); iss != "" {
			issuers = append(issuers, iss)
		}
	}

	return lo.Uniq(issuers)
}

// Verifier validates domain linkage.
type Verifier struct {
	validator *validator.Validator
	logger    *logrus.Entry
}

// Opt configures Verifier.
type Opt func(opts *verifierOpts)

type verifierOpts struct {
	now    func() time.Time
	logger *logrus.Entry
}

// WithClock sets the source of current time.
func WithClock(now func() time.Time) Opt {
	return func(opts *verifierOpts) {
		opts.now = now
	}
}

// WithLogger sets the logger of skipped credentials.
func WithLogger(logger *logrus.Entry) Opt {
	return func(opts *verifierOpts) {
		opts.logger = logger
	}
}

// New creates Verifier. The proof checker resolves kid of the linked credentials to DID keys.
func New(proofChecker validator.ProofChecker, opts ...Opt) *Verifier {
	vOpts := &verifierOpts{
		now:    time.Now,
		logger: logging.Module("didconfig"),
	}

	for _, opt := range opts {
		opt(vOpts)
	}

	return &Verifier{
		validator: validator.New(
			validator.WithCredentialVersion(verifiable.V11),
			validator.WithProofChecker(proofChecker),
			validator.WithClock(vOpts.now),
			validator.WithLogger(vOpts.logger),
		),
		logger: vOpts.logger,
	}
}

// VerifyDIDAndDomain parses DID Configuration resource and validates the linkage of did and origin.
func (v *Verifier) VerifyDIDAndDomain(ctx context.Context, didConfig []byte, did, origin string) error {
	cfg, err := Parse(didConfig)
	if err != nil {
		return err
	}

	return v.ValidateLinkage(ctx, cfg, did, origin)
}

// ValidateLinkage succeeds when at least one linked credential of cfg is a valid domain linkage
// credential for did and origin. Invalid credentials are skipped.
func (v *Verifier) ValidateLinkage(ctx context.Context, cfg *Configuration, did, origin string) error {
	for i, linked := range cfg.LinkedDIDs {
		s, ok := linked.(string)
		if !ok {
			v.logger.WithField("index", i).Info("skipping linked credential in JSON-LD format")

			continue
		}

		if _, err := v.ValidateCredential(ctx, s, did, origin); err != nil {
			v.logger.WithError(err).WithFields(logging.Fields{
				"index":  i,
				"did":    did,
				"origin": origin,
			}).Warn("skipping domain linkage credential")

			continue
		}

		return nil
	}

	return fmt.Errorf("%w for DID %s and origin %s", ErrLinkageNotFound, did, origin)
}

// ValidateCredential validates JWT domain linkage credential of did and origin.
// The signature, expiration and issuer are checked by the credential validator.
func (v *Verifier) ValidateCredential(ctx context.Context, credentialJWT, did, origin string) (
	*verifiable.Credential, error) {
	token, err := jwt.Decode(credentialJWT)
	if err != nil {
		return nil, err
	}

	if err = checkHeaders(token.Headers); err != nil {
		return nil, err
	}

	result, err := v.validator.Validate(ctx, credentialJWT+common.CombinedFormatSeparator,
		validator.WithAllowedIssuers(did))
	if err != nil {
		return nil, err
	}

	if err = checkProperties(result.Claims, []string{"exp", "iss", "nbf", "sub", "vc", "iat"}, false); err != nil {
		return nil, fmt.Errorf("JWT payload: %w", err)
	}

	if err = checkDomainLinkageCredential(result.Credential, did, origin); err != nil {
		return nil, err
	}

	if sub, _ := result.Claims["sub"].(string); sub != did {
		return nil, constraintErr("sub MUST be equal to credentialSubject.id")
	}

	return result.Credential, nil
}

func checkHeaders(headers jose.Headers) error {
	if _, ok := headers.KeyID(); !ok {
		return constraintErr("kid MUST be present in the JWT header")
	}

	if typ, ok := headers.Type(); ok && typ != jwt.TypeJWT {
		return vcerr.New(vcerr.KindMalformedEncoding, "typ is not JWT")
	}

	if err := checkProperties(headers, []string{jose.HeaderAlgorithm, jose.HeaderKeyID, jose.HeaderType},
		false); err != nil {
		return fmt.Errorf("JWT header: %w", err)
	}

	return nil
}

func checkDomainLinkageCredential(vc *verifiable.Credential, did, origin string) error {
	contents := vc.Contents()

	if !lo.Contains(contents.Types, DomainLinkageCredentialType) {
		return constraintErr("credential is not of %s type", DomainLinkageCredentialType)
	}

	if contents.ID != "" {
		return constraintErr("id MUST NOT be present")
	}

	if contents.Issued == nil {
		return constraintErr("issuance date MUST be present")
	}

	if contents.Expired == nil {
		return constraintErr("expiration date MUST be present")
	}

	if len(contents.Subject) != 1 {
		return constraintErr("exactly one credentialSubject MUST be present, got %d", len(contents.Subject))
	}

	subject := contents.Subject[0]

	if _, err := diddoc.Parse(subject.ID); err != nil {
		return constraintErr("credentialSubject.id MUST be a DID: %w", err)
	}

	if subject.ID != did {
		return constraintErr("credential subject ID %q is different from requested DID %q", subject.ID, did)
	}

	subjectOrigin, ok := subject.CustomFields[originProperty].(string)
	if !ok {
		return constraintErr("credentialSubject.origin MUST be present and be a string")
	}

	return checkOrigin(subjectOrigin, origin)
}

// checkOrigin compares scheme, host and port.
func checkOrigin(origin1, origin2 string) error {
	url1, err := url.Parse(origin1)
	if err != nil {
		return constraintErr("parse origin: %w", err)
	}

	url2, err := url.Parse(origin2)
	if err != nil {
		return constraintErr("parse domain origin: %w", err)
	}

	if url1.Scheme != url2.Scheme || url1.Hostname() != url2.Hostname() || url1.Port() != url2.Port() {
		return constraintErr("origin %s and domain origin %s are different", origin1, origin2)
	}

	return nil
}

func checkProperties(values map[string]interface{}, allowed []string, required bool) error {
	if required {
		for _, key := range allowed {
			if _, ok := values[key]; !ok {
				return vcerr.New(vcerr.KindMalformedEncoding, "property '%s' is required", key)
			}
		}
	}

	for key := range values {
		if !lo.Contains(allowed, key) {
			return vcerr.New(vcerr.KindMalformedEncoding, "property '%s' is not allowed", key)
		}
	}

	return nil
}

func constraintErr(format string, args ...interface{}) error {
	return vcerr.New(vcerr.KindClaimsConstraintViolation, format, args...)
}
