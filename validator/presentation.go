/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package validator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v3/json"
	josejwt "github.com/go-jose/go-jose/v3/jwt"

	"github.com/trustbloc/sdjwt-vc-go/jwt"
	"github.com/trustbloc/sdjwt-vc-go/sdjwt/common"
	"github.com/trustbloc/sdjwt-vc-go/sdjwt/keybinding"
	"github.com/trustbloc/sdjwt-vc-go/vcerr"
	"github.com/trustbloc/sdjwt-vc-go/verifiable"
	"github.com/trustbloc/sdjwt-vc-go/vermethod"
)

const claimNonce = "nonce"

// PresentationResult of accepted verifiable presentation.
type PresentationResult struct {
	State       State
	Transitions []State
	// Holder is the "iss" of the presentation JWT, the signer of the presentation.
	Holder       string
	Presentation *verifiable.Presentation
	// Credentials holds the results of the enclosed credentials in presentation order.
	Credentials []*Result
}

type presentationRun struct {
	*Validator
	ctx       context.Context
	rawToken  string
	vpVersion verifiable.Version
	opts      []ValidateOpt
	vOpts     *Options
	token     *jwt.CompactToken
	payload   map[string]interface{}
	result    *PresentationResult
}

// ValidatePresentation validates a JWT secured verifiable presentation of the given data model.
// The holder signature is checked with the key referenced by kid, which must belong to the "iss" DID.
// Every enclosed credential must be a compact JWT or SD-JWT string and passes Validate with opts.
// With RelationshipMustMatch every credential subject must be the holder.
// Audience and nonce of WithKeyBinding are compared with "aud" and "nonce" of the presentation JWT.
// Key binding of enclosed SD-JWTs is optional, a present one must carry the same audience and nonce.
func (v *Validator) ValidatePresentation(ctx context.Context, vpJWT string, vpVersion verifiable.Version,
	opts ...ValidateOpt) (*PresentationResult, error) {
	vOpts := v.options(opts)

	if _, err := v.credentialVersion(vOpts); err != nil {
		return nil, err
	}

	r := &presentationRun{
		Validator: v,
		ctx:       ctx,
		rawToken:  vpJWT,
		vpVersion: vpVersion,
		opts:      opts,
		vOpts:     vOpts,
		result:    &PresentationResult{},
	}

	m := newMachine(v.logger.WithField("token", "presentation"))

	err := m.drive([]step{
		{StructurallyValid, r.decode},
		{SignatureVerified, r.verifySignature},
		{ClaimsChecked, r.checkClaims},
	})
	if err != nil {
		return nil, err
	}

	r.result.State = m.state
	r.result.Transitions = m.transitions

	return r.result, nil
}

func (r *presentationRun) decode() (bool, error) {
	token, err := jwt.Decode(r.rawToken)
	if err != nil {
		return false, fmt.Errorf("decode presentation JWT: %w", err)
	}

	if err = jwt.CheckHeaders(token.Headers); err != nil {
		return false, fmt.Errorf("presentation JWT headers: %w", err)
	}

	payload, err := jwt.PayloadToMap(token.Payload)
	if err != nil {
		return false, vcerr.New(vcerr.KindMalformedEncoding, "presentation JWT payload: %w", err)
	}

	holder, _ := payload[verifiable.ClaimIssuer].(string)
	if holder == "" {
		return false, vcerr.New(vcerr.KindClaimsConstraintViolation, "presentation JWT has no holder (iss)")
	}

	r.token = token
	r.payload = payload
	r.result.Holder = holder

	return true, nil
}

func (r *presentationRun) verifySignature() (bool, error) {
	if r.proofChecker == nil {
		return false, vcerr.New(vcerr.KindSignatureVerificationFailed, "proof checker is not defined")
	}

	if err := r.token.Verify(r.ctx, r.proofChecker, r.result.Holder); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false, vcerr.New(vcerr.KindResolutionFailed, "resolve holder key: %w", err)
		}

		return false, fmt.Errorf("holder signature: %w", err)
	}

	return true, nil
}

func (r *presentationRun) checkClaims() (bool, error) {
	if err := r.checkRegisteredClaims(); err != nil {
		return false, err
	}

	vp, err := verifiable.PresentationFromJWTClaims(r.payload, r.vpVersion)
	if err != nil {
		return false, err
	}

	r.result.Presentation = vp

	// Subject and holder are compared once per presentation below.
	nestedOpts := append(append([]ValidateOpt{}, r.opts...),
		WithSubjectHolderRelationship(RelationshipNone),
		WithKeyBinding(keybinding.KeyBindingOptional, r.vOpts.Audience, r.vOpts.Nonce))

	for i, raw := range vp.Credentials() {
		serialized, ok := raw.(string)
		if !ok {
			return false, vcerr.New(vcerr.KindClaimsConstraintViolation,
				"credential %d is embedded without proof", i)
		}

		// A JWT credential is an SD-JWT without disclosures.
		if !strings.Contains(serialized, common.CombinedFormatSeparator) {
			serialized += common.CombinedFormatSeparator
		}

		res, err := r.Validate(r.ctx, serialized, nestedOpts...)
		if err != nil {
			return false, fmt.Errorf("credential %d: %w", i, err)
		}

		if r.vOpts.SubjectHolderRelationship == RelationshipMustMatch {
			if err = checkSubjectHolder(res.Credential, holderDID(r.result.Holder)); err != nil {
				return false, fmt.Errorf("credential %d: %w", i, err)
			}
		}

		r.result.Credentials = append(r.result.Credentials, res)
	}

	return true, nil
}

func (r *presentationRun) checkRegisteredClaims() error {
	var registered josejwt.Claims

	if err := json.Unmarshal(r.token.Payload, &registered); err != nil {
		return vcerr.New(vcerr.KindMalformedEncoding, "decode presentation registered claims: %w", err)
	}

	err := registered.ValidateWithLeeway(josejwt.Expected{Time: r.now()}, r.vOpts.Leeway)
	if err != nil {
		return vcerr.New(vcerr.KindClaimsConstraintViolation, "presentation JWT: %w", err)
	}

	if r.vOpts.Audience != "" && !registered.Audience.Contains(r.vOpts.Audience) {
		return vcerr.New(vcerr.KindKeyBindingViolation, "presentation audience %v does not contain %q",
			[]string(registered.Audience), r.vOpts.Audience)
	}

	if r.vOpts.Nonce != "" {
		if nonce, _ := r.payload[claimNonce].(string); nonce != r.vOpts.Nonce {
			return vcerr.New(vcerr.KindKeyBindingViolation, "presentation nonce %q does not match", nonce)
		}
	}

	return nil
}

func holderDID(holder string) string {
	if did, _, ok := vermethod.SplitDIDURL(holder); ok {
		return did
	}

	return holder
}
