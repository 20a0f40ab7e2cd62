/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package statuslist2021 handles client-side validation and parsing for
// Credential Status fields of type StatusList2021, as per spec: https://w3c.github.io/vc-status-list-2021/
package statuslist2021

import (
	"context"

	"github.com/trustbloc/sdjwt-vc-go/status/api"
	"github.com/trustbloc/sdjwt-vc-go/status/internal/bitstring"
	"github.com/trustbloc/sdjwt-vc-go/status/internal/entry"
	"github.com/trustbloc/sdjwt-vc-go/status/internal/statuslistvc"
	"github.com/trustbloc/sdjwt-vc-go/status/validator/bitstringstatus"
	"github.com/trustbloc/sdjwt-vc-go/vcerr"
	"github.com/trustbloc/sdjwt-vc-go/verifiable"
)

const (
	// StatusList2021Type represents the implementation of VC Status List 2021.
	//  VC.Status.Type
	// 	Doc: https://w3c.github.io/vc-status-list-2021/#statuslist2021entry
	StatusList2021Type = "StatusList2021Entry"

	// StatusListCredential stores the link to the status list VC.
	//  VC.Status.CustomFields key.
	StatusListCredential = "statusListCredential"

	// StatusListIndex identifies the bit position of the status value of the VC.
	//  VC.Status.CustomFields key.
	StatusListIndex = "statusListIndex"

	// StatusPurpose for StatusList2021.
	//  VC.Status.CustomFields key.
	StatusPurpose = "statusPurpose"
)

type statusEntry struct {
	StatusListCredential string `json:"statusListCredential"`
	StatusListIndex      int    `json:"statusListIndex"`
	StatusPurpose        string `json:"statusPurpose"`
}

// Validator validates a Verifiable Credential's Status field against the VC Status List 2021 specification, and
// returns fields for status verification.
//
// Implements spec: https://w3c.github.io/vc-status-list-2021/#statuslist2021entry
type Validator struct{}

// ValidateStatus validates that a Verifiable Credential's Status field matches the VC Status List 2021 specification.
func (v *Validator) ValidateStatus(vcStatus *verifiable.TypedID) error {
	if vcStatus == nil {
		return vcerr.New(vcerr.KindClaimsConstraintViolation, "vc status does not exist")
	}

	if vcStatus.Type != StatusList2021Type {
		return vcerr.New(vcerr.KindClaimsConstraintViolation, "vc status %s not supported", vcStatus.Type)
	}

	if err := entry.RequireFields(vcStatus.CustomFields, StatusListCredential, StatusListIndex,
		StatusPurpose); err != nil {
		return err
	}

	_, err := decode(vcStatus)

	return err
}

func decode(vcStatus *verifiable.TypedID) (*statusEntry, error) {
	e := &statusEntry{}

	if err := entry.Decode(vcStatus.CustomFields, e); err != nil {
		return nil, err
	}

	return e, nil
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

// GetStatus reads the entry bit from the fetched status list credential.
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

	set, err := bitstring.BitAt(bits, e.StatusListIndex)
	if err != nil {
		return api.StatusValid, err
	}

	return bitstringstatus.PurposeStatus(e.StatusPurpose, set)
}

// MultiBaseEncoding indicates that status uses MultiBase encoding.
func (v *Validator) MultiBaseEncoding() bool {
	return false
}
