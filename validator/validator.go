/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

/*
Package validator validates presented SD-JWT credentials.

Validation is a fail-fast state machine:

	Decoding -> StructurallyValid -> SignatureVerified -> ClaimsChecked
	  -> KeyBindingChecked -> StatusChecked -> Accepted

Any failed transition rejects the token with *RejectionError holding the last reached state.
The validator does no I/O itself: keys are resolved by the proof checker and status lists are
fetched by the status client.
*/
package validator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/trustbloc/kms-go/doc/jose"

	"github.com/trustbloc/sdjwt-vc-go/internal/logging"
	"github.com/trustbloc/sdjwt-vc-go/sdjwt/keybinding"
	"github.com/trustbloc/sdjwt-vc-go/sdjwt/verifier"
	"github.com/trustbloc/sdjwt-vc-go/status"
	"github.com/trustbloc/sdjwt-vc-go/vcerr"
	"github.com/trustbloc/sdjwt-vc-go/verifiable"
	"github.com/trustbloc/sdjwt-vc-go/vermethod"
)

// State of the validation.
type State int

// Validation states.
const (
	Decoding State = iota
	StructurallyValid
	SignatureVerified
	ClaimsChecked
	KeyBindingChecked
	StatusChecked
	Accepted
	Rejected
)

// nolint: gochecknoglobals
var stateNames = map[State]string{
	Decoding:          "Decoding",
	StructurallyValid: "StructurallyValid",
	SignatureVerified: "SignatureVerified",
	ClaimsChecked:     "ClaimsChecked",
	KeyBindingChecked: "KeyBindingChecked",
	StatusChecked:     "StatusChecked",
	Accepted:          "Accepted",
	Rejected:          "Rejected",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return fmt.Sprintf("State(%d)", int(s))
}

// RejectionError is returned for rejected tokens. State is the last state reached before rejection.
type RejectionError struct {
	State State
	Err   error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("rejected in state %s: %v", e.State, e.Err)
}

// Unwrap returns the rejection reason.
func (e *RejectionError) Unwrap() error {
	return e.Err
}

// ProofChecker verifies issuer signatures and holder key binding signatures.
type ProofChecker interface {
	CheckJWTProof(ctx context.Context, headers jose.Headers, expectedProofIssuer string, msg, signature []byte) error
	CheckJWTProofWithKey(headers jose.Headers, vm *vermethod.VerificationMethod, msg, signature []byte) error
}

// Result of accepted validation.
type Result struct {
	State State
	// Transitions lists every state the validation went through.
	Transitions  []State
	Presentation *verifier.Presentation
	Claims       map[string]interface{}
	Credential   *verifiable.Credential
	// HolderID identifies the key binding signer, empty without key binding.
	HolderID string
}

// ErrVersionNotSet is returned when neither WithCredentialVersion nor WithVersion selects the data model.
var ErrVersionNotSet = errors.New("credential data model version is not set")

// Validator validates presented SD-JWT credentials. It is stateless and safe for concurrent use.
type Validator struct {
	version      *verifiable.Version
	proofChecker ProofChecker
	statusClient *status.Client
	now          func() time.Time
	logger       *logrus.Entry
}

// New creates Validator.
func New(opts ...Opt) *Validator {
	v := &Validator{
		now:    time.Now,
		logger: logging.Module("validator"),
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// machine tracks the states a validation went through.
type machine struct {
	state       State
	transitions []State
	log         *logrus.Entry
}

func newMachine(log *logrus.Entry) *machine {
	return &machine{state: Decoding, transitions: []State{Decoding}, log: log}
}

type step struct {
	to  State
	run func() (bool, error)
}

// drive runs steps in order. A step reporting false leaves the machine in its current state.
func (m *machine) drive(steps []step) error {
	for _, s := range steps {
		entered, err := s.run()
		if err != nil {
			return m.reject(err)
		}

		if entered {
			m.enter(s.to)
		}
	}

	m.enter(Accepted)

	return nil
}

func (m *machine) enter(state State) {
	m.log.WithField("from", m.state).WithField("to", state).Debug("validation state transition")

	m.state = state
	m.transitions = append(m.transitions, state)
}

func (m *machine) reject(err error) error {
	m.log.WithError(err).WithFields(logging.Fields{
		"state": m.state,
		"kind":  vcerr.KindOf(err),
	}).Info("token rejected")

	from := m.state
	m.state = Rejected
	m.transitions = append(m.transitions, Rejected)

	return &RejectionError{State: from, Err: err}
}

type run struct {
	*Validator
	ctx      context.Context
	rawToken string
	opts     *Options
	version  verifiable.Version
	result   *Result
}

// Validate runs all checks on token and returns the disclosed claims of accepted token.
// It fails with ErrVersionNotSet before any check when the credential data model is not selected.
func (v *Validator) Validate(ctx context.Context, token string, opts ...ValidateOpt) (*Result, error) {
	vOpts := v.options(opts)

	version, err := v.credentialVersion(vOpts)
	if err != nil {
		return nil, err
	}

	r := &run{
		Validator: v,
		ctx:       ctx,
		rawToken:  token,
		opts:      vOpts,
		version:   version,
		result:    &Result{},
	}

	m := newMachine(v.logger)

	err = m.drive([]step{
		{StructurallyValid, r.decode},
		{SignatureVerified, r.verifySignature},
		{ClaimsChecked, r.checkClaims},
		{KeyBindingChecked, r.checkKeyBinding},
		{StatusChecked, r.checkStatus},
	})
	if err != nil {
		return nil, err
	}

	r.result.State = m.state
	r.result.Transitions = m.transitions

	return r.result, nil
}

func (v *Validator) options(opts []ValidateOpt) *Options {
	vOpts := &Options{}

	for _, opt := range opts {
		opt(vOpts)
	}

	now := v.now()

	if vOpts.EarliestExpiry.IsZero() {
		vOpts.EarliestExpiry = now
	}

	if vOpts.LatestIssuance.IsZero() {
		vOpts.LatestIssuance = now
	}

	if vOpts.KeyBindingLatestIssuance.IsZero() {
		vOpts.KeyBindingLatestIssuance = now
	}

	if vOpts.KeyBindingEarliestIssuance.IsZero() && vOpts.KeyBindingMaxAge > 0 {
		vOpts.KeyBindingEarliestIssuance = now.Add(-vOpts.KeyBindingMaxAge)
	}

	return vOpts
}

func (v *Validator) credentialVersion(opts *Options) (verifiable.Version, error) {
	version := v.version
	if opts.Version != nil {
		version = opts.Version
	}

	if version == nil {
		return 0, ErrVersionNotSet
	}

	switch *version {
	case verifiable.V11, verifiable.V20, verifiable.SDJWTVC:
		return *version, nil
	default:
		return 0, fmt.Errorf("unsupported credential data model %s", *version)
	}
}

func (r *run) decode() (bool, error) {
	p, err := verifier.Decode(r.rawToken)
	if err != nil {
		return false, err
	}

	r.result.Presentation = p

	if err = p.CheckType(r.opts.ExpectedTyp...); err != nil {
		return false, err
	}

	if err = p.CheckIntegrity(); err != nil {
		return false, err
	}

	if err = p.CheckNonSelectivelyDisclosable(r.opts.NonSelectivelyDisclosable...); err != nil {
		return false, err
	}

	return true, nil
}

func (r *run) verifySignature() (bool, error) {
	if r.proofChecker == nil {
		return false, vcerr.New(vcerr.KindSignatureVerificationFailed, "proof checker is not defined")
	}

	if alg := r.result.Presentation.IssuerJWT.Algorithm(); len(r.opts.AllowedAlgorithms) > 0 &&
		!lo.Contains(r.opts.AllowedAlgorithms, alg) {
		return false, vcerr.New(vcerr.KindUnsupportedAlgorithm, "issuer signing algorithm %q is not allowed", alg)
	}

	if err := r.ctx.Err(); err != nil {
		return false, vcerr.New(vcerr.KindResolutionFailed, "validation canceled: %w", err)
	}

	if err := r.result.Presentation.VerifySignature(r.ctx, r.proofChecker); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false, vcerr.New(vcerr.KindResolutionFailed, "resolve issuer key: %w", err)
		}

		return false, err
	}

	return true, nil
}

func (r *run) checkClaims() (bool, error) {
	p := r.result.Presentation

	claims, err := p.DisclosedClaims()
	if err != nil {
		return false, err
	}

	r.result.Claims = claims

	vc, err := credentialFromClaims(claims, r.version)
	if err != nil {
		return false, err
	}

	r.result.Credential = vc

	contents := vc.Contents()
	leeway := r.opts.Leeway

	if contents.Expired != nil && contents.Expired.Time.Before(r.opts.EarliestExpiry.Add(-leeway)) {
		return false, vcerr.New(vcerr.KindClaimsConstraintViolation, "credential expired at %s",
			contents.Expired.FormatToString())
	}

	if contents.Issued != nil && contents.Issued.Time.After(r.opts.LatestIssuance.Add(leeway)) {
		return false, vcerr.New(vcerr.KindClaimsConstraintViolation, "credential is not valid before %s",
			contents.Issued.FormatToString())
	}

	issuer := vc.Issuer()

	if len(r.opts.AllowedIssuers) > 0 && !lo.Contains(r.opts.AllowedIssuers, issuer) {
		return false, vcerr.New(vcerr.KindClaimsConstraintViolation, "issuer %q is not allowed", issuer)
	}

	if kid, ok := p.IssuerJWT.Headers.KeyID(); ok {
		keyDID, _, isDID := vermethod.SplitDIDURL(kid)
		issuerDID, _, issuerIsDID := vermethod.SplitDIDURL(issuer)

		if isDID && issuerIsDID && keyDID != issuerDID {
			return false, vcerr.New(vcerr.KindClaimsConstraintViolation,
				"signing key %q does not belong to issuer %q", kid, issuer)
		}
	}

	return true, nil
}

func (r *run) checkKeyBinding() (bool, error) {
	p := r.result.Presentation

	holderID, err := keybinding.Validate(r.ctx, p.Token, p.Payload, keybinding.Options{
		Policy:           r.opts.KeyBinding,
		Audience:         r.opts.Audience,
		Nonce:            r.opts.Nonce,
		EarliestIssuance: r.opts.KeyBindingEarliestIssuance,
		LatestIssuance:   r.opts.KeyBindingLatestIssuance,
		Now:              r.now(),
		Leeway:           r.opts.Leeway,
	}, r.proofChecker)
	if err != nil {
		return false, err
	}

	r.result.HolderID = holderID

	if r.opts.SubjectHolderRelationship == RelationshipMustMatch {
		if err = checkSubjectHolder(r.result.Credential, holderID); err != nil {
			return false, err
		}
	}

	return holderID != "", nil
}

func checkSubjectHolder(vc *verifiable.Credential, holderID string) error {
	if holderID == "" {
		return vcerr.New(vcerr.KindClaimsConstraintViolation, "subject must match holder, but key binding is missing")
	}

	subjectID, err := verifiable.SubjectID(vc.Contents().Subject)
	if err != nil {
		return vcerr.Wrap(vcerr.KindClaimsConstraintViolation, err)
	}

	if did, _, ok := vermethod.SplitDIDURL(subjectID); ok {
		subjectID = did
	}

	if subjectID != holderID {
		return vcerr.New(vcerr.KindClaimsConstraintViolation,
			"subject %q does not match holder %q", subjectID, holderID)
	}

	return nil
}

func (r *run) checkStatus() (bool, error) {
	if !r.opts.CheckRevocation {
		return false, nil
	}

	vc := r.result.Credential
	if len(vc.Contents().Status) == 0 {
		return false, nil
	}

	if r.statusClient == nil {
		return false, vcerr.New(vcerr.KindResolutionFailed, "status client is not defined")
	}

	if err := r.statusClient.VerifyStatus(r.ctx, vc); err != nil {
		return false, err
	}

	return true, nil
}

func credentialFromClaims(claims map[string]interface{}, version verifiable.Version) (*verifiable.Credential, error) {
	if version == verifiable.SDJWTVC {
		return verifiable.NewCredential(claims, version)
	}

	return verifiable.CredentialFromJWTClaims(claims, version)
}
