/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package validator

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trustbloc/sdjwt-vc-go/sdjwt/keybinding"
	"github.com/trustbloc/sdjwt-vc-go/status"
	"github.com/trustbloc/sdjwt-vc-go/verifiable"
)

// SubjectHolderRelationship declares how the credential subject relates to the presenting holder.
type SubjectHolderRelationship int

const (
	// RelationshipNone does not check the holder.
	RelationshipNone SubjectHolderRelationship = iota
	// RelationshipMustMatch requires the subject id to identify the key binding signer.
	RelationshipMustMatch
)

// Opt configures Validator.
type Opt func(v *Validator)

// WithProofChecker sets the checker of issuer and holder signatures.
func WithProofChecker(checker ProofChecker) Opt {
	return func(v *Validator) {
		v.proofChecker = checker
	}
}

// WithStatusClient sets the client used for revocation checks.
func WithStatusClient(client *status.Client) Opt {
	return func(v *Validator) {
		v.statusClient = client
	}
}

// WithClock sets the source of current time.
func WithClock(now func() time.Time) Opt {
	return func(v *Validator) {
		v.now = now
	}
}

// WithCredentialVersion sets the credential data model expected by default. WithVersion overrides it per validation.
func WithCredentialVersion(version verifiable.Version) Opt {
	return func(v *Validator) {
		v.version = &version
	}
}

// WithLogger sets the logger of state transitions.
func WithLogger(logger *logrus.Entry) Opt {
	return func(v *Validator) {
		v.logger = logger
	}
}

// Options of a single validation.
type Options struct {
	// EarliestExpiry is the earliest accepted expiration time. Defaults to now.
	EarliestExpiry time.Time
	// LatestIssuance is the latest accepted issuance time. Defaults to now.
	LatestIssuance time.Time
	Leeway         time.Duration

	// AllowedIssuers restricts issuers when not empty.
	AllowedIssuers []string

	SubjectHolderRelationship SubjectHolderRelationship

	CheckRevocation bool

	KeyBinding keybinding.Policy
	Audience   string
	Nonce      string
	// KeyBindingEarliestIssuance and KeyBindingLatestIssuance bound the key binding iat.
	// Latest defaults to now, earliest is unbounded when zero.
	KeyBindingEarliestIssuance time.Time
	KeyBindingLatestIssuance   time.Time
	// KeyBindingMaxAge sets the earliest issuance relative to now when KeyBindingEarliestIssuance is zero.
	KeyBindingMaxAge time.Duration

	// Version of the credential data model. Required, either here or by WithCredentialVersion.
	Version *verifiable.Version

	// ExpectedTyp restricts the issuer JWT typ header when not empty.
	ExpectedTyp []string
	// AllowedAlgorithms restricts the issuer JWT alg header when not empty.
	AllowedAlgorithms []string

	// NonSelectivelyDisclosable lists top-level claims that must not be disclosed selectively.
	NonSelectivelyDisclosable []string
}

// ValidateOpt configures a single validation.
type ValidateOpt func(opts *Options)

// WithEarliestExpiry rejects credentials expiring before t.
func WithEarliestExpiry(t time.Time) ValidateOpt {
	return func(opts *Options) {
		opts.EarliestExpiry = t
	}
}

// WithLatestIssuance rejects credentials issued after t.
func WithLatestIssuance(t time.Time) ValidateOpt {
	return func(opts *Options) {
		opts.LatestIssuance = t
	}
}

// WithLeeway tolerates clock skew in temporal checks.
func WithLeeway(d time.Duration) ValidateOpt {
	return func(opts *Options) {
		opts.Leeway = d
	}
}

// WithAllowedIssuers accepts credentials of the given issuers only.
func WithAllowedIssuers(issuers ...string) ValidateOpt {
	return func(opts *Options) {
		opts.AllowedIssuers = issuers
	}
}

// WithSubjectHolderRelationship sets subject-holder relationship check.
func WithSubjectHolderRelationship(r SubjectHolderRelationship) ValidateOpt {
	return func(opts *Options) {
		opts.SubjectHolderRelationship = r
	}
}

// WithRevocationCheck enables status check.
func WithRevocationCheck() ValidateOpt {
	return func(opts *Options) {
		opts.CheckRevocation = true
	}
}

// WithKeyBinding sets key binding policy and expected audience and nonce.
func WithKeyBinding(policy keybinding.Policy, audience, nonce string) ValidateOpt {
	return func(opts *Options) {
		opts.KeyBinding = policy
		opts.Audience = audience
		opts.Nonce = nonce
	}
}

// WithKeyBindingIssuanceWindow accepts key binding JWTs issued within [earliest, latest] only.
func WithKeyBindingIssuanceWindow(earliest, latest time.Time) ValidateOpt {
	return func(opts *Options) {
		opts.KeyBindingEarliestIssuance = earliest
		opts.KeyBindingLatestIssuance = latest
	}
}

// WithKeyBindingMaxAge rejects key binding JWTs issued more than maxAge ago.
func WithKeyBindingMaxAge(maxAge time.Duration) ValidateOpt {
	return func(opts *Options) {
		opts.KeyBindingMaxAge = maxAge
	}
}

// WithExpectedTyp accepts issuer JWTs with one of the given typ headers only, e.g. "dc+sd-jwt".
func WithExpectedTyp(typ ...string) ValidateOpt {
	return func(opts *Options) {
		opts.ExpectedTyp = typ
	}
}

// WithAllowedAlgorithms accepts issuer JWTs signed with one of the given algorithms only.
func WithAllowedAlgorithms(algs ...string) ValidateOpt {
	return func(opts *Options) {
		opts.AllowedAlgorithms = algs
	}
}

// WithVersion sets credential data model of this validation.
func WithVersion(version verifiable.Version) ValidateOpt {
	return func(opts *Options) {
		opts.Version = &version
	}
}

// WithSDJWTVCRules rejects selective disclosure of iss, nbf, exp, cnf, vct and status.
func WithSDJWTVCRules() ValidateOpt {
	return func(opts *Options) {
		opts.NonSelectivelyDisclosable = []string{
			verifiable.ClaimIssuer, verifiable.ClaimNotBefore, verifiable.ClaimExpiry,
			verifiable.ClaimCnf, verifiable.ClaimVCT, verifiable.ClaimStatus,
		}
	}
}
