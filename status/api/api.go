/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

//go:generate mockgen -destination ../../internal/mock/statusapi/statusapi.go -package statusapi . Fetcher

// Package api defines the contracts between the status Client, status type validators and status list fetchers.
package api

import (
	"context"

	"github.com/trustbloc/sdjwt-vc-go/jwt"
	"github.com/trustbloc/sdjwt-vc-go/verifiable"
)

// Status is the state of a credential read from a status list.
type Status int

const (
	// StatusValid means the credential is neither revoked nor suspended.
	StatusValid Status = iota
	// StatusRevoked means the credential is revoked.
	StatusRevoked
	// StatusSuspended means the credential is suspended.
	StatusSuspended
)

// StatusRequest carries what a validator needs besides the entry to read a fetched status list.
type StatusRequest struct {
	// Issuer is the issuer of the credential. The status list must be published by the same issuer.
	Issuer string
	// ProofChecker verifies status lists published as JWT. Nil skips the check.
	ProofChecker jwt.ProofChecker
}

// Validator validates a Verifiable Credential's status entry and reads the status it points to.
type Validator interface {
	ValidateStatus(vcStatus *verifiable.TypedID) error
	GetStatusVCURI(vcStatus *verifiable.TypedID) (string, error)
	GetStatusListIndex(vcStatus *verifiable.TypedID) (int, error)
	GetStatusPurpose(vcStatus *verifiable.TypedID) (string, error)
	GetStatus(ctx context.Context, vcStatus *verifiable.TypedID, statusList []byte, req *StatusRequest) (Status, error)
}

// ValidatorGetter provides the matching Validator for a given status entry type.
type ValidatorGetter func(statusType string) (Validator, error)

// Fetcher fetches the published status list the entry refers to.
type Fetcher interface {
	FetchStatus(ctx context.Context, reference string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, reference string) ([]byte, error)

// FetchStatus calls f.
func (f FetcherFunc) FetchStatus(ctx context.Context, reference string) ([]byte, error) {
	return f(ctx, reference)
}
