/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package bitstringstatus handles client-side validation and parsing for
// Credential Status fields of type BitstringStatusList, as per spec: https://www.w3.org/TR/vc-bitstring-status-list/
package bitstringstatus

import (
	"context"

	"github.com/trustbloc/sdjwt-vc-go/status/api"
	"github.com/trustbloc/sdjwt-vc-go/status/internal/bitstring"
	"github.com/trustbloc/sdjwt-vc-go/status/internal/entry"
	"github.com/trustbloc/sdjwt-vc-go/status/internal/statuslistvc"
	"github.com/trustbloc/sdjwt-vc-go/vcerr"
	"github.com/trustbloc/sdjwt-vc-go/verifiable"
)

const (
	// BitstringStatusListType represents the implementation of Bitstring Status List.
	//  VC.Status.Type
	// 	Doc: https://www.w3.org/TR/vc-bitstring-status-list/#bitstringstatuslistentry
	BitstringStatusListType = "BitstringStatusListEntry"

	// StatusListCredential stores the link to the status list VC.
	//  VC.Status.CustomFields key.
	StatusListCredential = "statusListCredential"

	// StatusListIndex identifies the bit position of the status value of the VC.
	//  VC.Status.CustomFields key.
	StatusListIndex = "statusListIndex"

	// StatusPurpose for BitstringStatusList.
	//  VC.Status.CustomFields key.
	StatusPurpose = "statusPurpose"
	// StatusSize indicates the size of the status entry in bits.
	StatusSize = "statusSize"
	// StatusMessage represents custom descriptive messages about the status of the verifiable credential.
	StatusMessage = "statusMessage"

	// PurposeRevocation is the purpose of the status list entry for revocation.
	PurposeRevocation = "revocation"
	// PurposeSuspension is the purpose of the status list entry for suspension.
	PurposeSuspension = "suspension"
	// PurposeMessage is the purpose of the status list entry carrying status messages.
	PurposeMessage = "message"
)

type statusEntry struct {
	StatusListCredential string        `json:"statusListCredential"`
	StatusListIndex      int           `json:"statusListIndex"`
	StatusPurpose        string        `json:"statusPurpose"`
	StatusSize           int           `json:"statusSize"`
	StatusMessage        []interface{} `json:"statusMessage"`
}

// Validator validates a Verifiable Credential's Status field against the BitstringStatusList specification, and
// returns fields for status verification.
//
// Implements spec: https://www.w3.org/TR/vc-bitstring-status-list/#bitstringstatuslistentry
type Validator struct{}

// ValidateStatus validates that a Verifiable Credential's Status field matches the BitstringStatusList specification.
func (v *Validator) ValidateStatus(vcStatus *verifiable.TypedID) error {
	if vcStatus == nil {
		return vcerr.New(vcerr.KindClaimsConstraintViolation, "vc status does not exist")
	}

	if vcStatus.Type != BitstringStatusListType {
		return vcerr.New(vcerr.KindClaimsConstraintViolation, "vc status %s not supported", vcStatus.Type)
	}

	if err := entry.RequireFields(vcStatus.CustomFields, StatusListCredential, StatusListIndex,
		StatusPurpose); err != nil {
		return err
	}

	e, err := decode(vcStatus)
	if err != nil {
		return err
	}

	return checkStatusSize(e)
}

func decode(vcStatus *verifiable.TypedID) (*statusEntry, error) {
	e := &statusEntry{StatusSize: 1}

	if err := entry.Decode(vcStatus.CustomFields, e); err != nil {
		return nil, err
	}

	return e, nil
}

func checkStatusSize(e *statusEntry) error {
	if e.StatusSize <= 0 {
		return vcerr.New(vcerr.KindClaimsConstraintViolation,
			"statusSize must be greater than 0, but got %d", e.StatusSize)
	}

	if e.StatusSize == 1 {
		return nil
	}

	possibleStatusSizes := 1 << e.StatusSize

	if len(e.StatusMessage) != possibleStatusSizes {
		return vcerr.New(vcerr.KindClaimsConstraintViolation,
			"the length of %s must be equal to %d", StatusMessage, possibleStatusSizes)
	}

	return nil
}

// GetStatusVCURI returns the ID (URL) of status VC.
func (v *Validator) GetStatusVCURI(vcStatus *verifiable.TypedID) (string, error) {
	e, err := decode(vcStatus)
	if err != nil {
		return "", err
	}

	return e.StatusListCredential, nil
}

// GetStatusListIndex returns the bit position of the status value of the VC.
func (v *Validator) GetStatusListIndex(vcStatus *verifiable.TypedID) (int, error) {
	e, err := decode(vcStatus)
	if err != nil {
		return -1, err
	}

	return e.StatusListIndex, nil
}

// GetStatusPurpose returns the purpose of the status list. For example, "revocation", "suspension".
func (v *Validator) GetStatusPurpose(vcStatus *verifiable.TypedID) (string, error) {
	e, err := decode(vcStatus)
	if err != nil {
		return "", err
	}

	return e.StatusPurpose, nil
}

// GetStatus reads the entry from the fetched status list credential.
func (v *Validator) GetStatus(ctx context.Context, vcStatus *verifiable.TypedID, statusList []byte,
	req *api.StatusRequest) (api.Status, error) {
	e, err := decode(vcStatus)
	if err != nil {
		return api.StatusValid, err
	}

	vc, err := statuslistvc.Parse(ctx, statusList, req.Issuer, req.ProofChecker)
	if err != nil {
		return api.StatusValid, err
	}

	encodedList, err := statuslistvc.EncodedList(vc)
	if err != nil {
		return api.StatusValid, err
	}

	bits, err := bitstring.Decode(encodedList, bitstring.WithMultiBaseEncoding(v.MultiBaseEncoding()))
	if err != nil {
		return api.StatusValid, err
	}

	value, err := bitstring.ValueAt(bits, e.StatusListIndex, e.StatusSize)
	if err != nil {
		return api.StatusValid, err
	}

	return PurposeStatus(e.StatusPurpose, value != 0)
}

// MultiBaseEncoding indicates that status uses MultiBase encoding.
// See https://www.w3.org/TR/cid-1.0/#multibase-0 for more details.
func (v *Validator) MultiBaseEncoding() bool {
	return true
}

// PurposeStatus maps set status of the given purpose to a credential status.
func PurposeStatus(purpose string, set bool) (api.Status, error) {
	if !set {
		return api.StatusValid, nil
	}

	switch purpose {
	case PurposeRevocation:
		return api.StatusRevoked, nil
	case PurposeSuspension:
		return api.StatusSuspended, nil
	case PurposeMessage:
		return api.StatusValid, nil
	default:
		return api.StatusValid, vcerr.New(vcerr.KindClaimsConstraintViolation,
			"unsupported status purpose: %s", purpose)
	}
}
