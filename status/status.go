/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package status implements a Verifiable Credential Status API Client.
package status

import (
	"context"
	"errors"

	"github.com/VictoriaMetrics/fastcache"

	"github.com/trustbloc/sdjwt-vc-go/internal/logging"
	"github.com/trustbloc/sdjwt-vc-go/jwt"
	"github.com/trustbloc/sdjwt-vc-go/status/api"
	"github.com/trustbloc/sdjwt-vc-go/status/validator/tokenstatus"
	"github.com/trustbloc/sdjwt-vc-go/vcerr"
	"github.com/trustbloc/sdjwt-vc-go/verifiable"
)

var logger = logging.Module("status") //nolint:gochecknoglobals

var (
	// ErrRevoked is the Client.VerifyStatus error when the given verifiable.Credential is revoked.
	ErrRevoked = errors.New("revoked")
	// ErrSuspended is the Client.VerifyStatus error when the given verifiable.Credential is suspended.
	ErrSuspended = errors.New("suspended")
)

// Client verifies revocation status for Verifiable Credentials.
type Client struct {
	ValidatorGetter api.ValidatorGetter
	Fetcher         api.Fetcher
	// Cache keeps fetched status lists by reference. Optional.
	Cache *fastcache.Cache
	// ProofChecker verifies status lists published as JWT. Optional.
	ProofChecker jwt.ProofChecker
}

// VerifyStatus verifies the revocation status on the given Verifiable Credential, returning the error:
// - wrapping ErrRevoked if the given credential's status is revoked
// - wrapping ErrSuspended if the given credential's status is suspended
// - nil if the credential is not revoked or suspended, and a different error if verification fails.
func (c *Client) VerifyStatus(ctx context.Context, credential *verifiable.Credential) error {
	contents := credential.Contents()
	if len(contents.Status) == 0 {
		return vcerr.New(vcerr.KindClaimsConstraintViolation, "vc missing status list field")
	}

	for i := range contents.Status {
		if err := c.VerifyStatusEntry(ctx, credential.Issuer(), &contents.Status[i]); err != nil {
			return err
		}
	}

	return nil
}

// VerifyStatusEntry verifies one status entry of a credential issued by issuer.
func (c *Client) VerifyStatusEntry(ctx context.Context, issuer string, vcStatus *verifiable.TypedID) error {
	statusType := vcStatus.Type
	if tokenstatus.IsTokenStatus(vcStatus) {
		statusType = tokenstatus.TokenStatusListType
	}

	validator, err := c.ValidatorGetter(statusType)
	if err != nil {
		return err
	}

	if err = validator.ValidateStatus(vcStatus); err != nil {
		return err
	}

	reference, err := validator.GetStatusVCURI(vcStatus)
	if err != nil {
		return err
	}

	statusList, err := c.fetch(ctx, reference)
	if err != nil {
		return err
	}

	status, err := validator.GetStatus(ctx, vcStatus, statusList, &api.StatusRequest{
		Issuer:       issuer,
		ProofChecker: c.ProofChecker,
	})
	if err != nil {
		return err
	}

	switch status {
	case api.StatusRevoked:
		return vcerr.Wrap(vcerr.KindRevocationViolation, ErrRevoked)
	case api.StatusSuspended:
		return vcerr.Wrap(vcerr.KindRevocationViolation, ErrSuspended)
	default:
		return nil
	}
}

func (c *Client) fetch(ctx context.Context, reference string) ([]byte, error) {
	key := []byte(reference)

	if c.Cache != nil {
		if cached := c.Cache.GetBig(nil, key); len(cached) > 0 {
			return cached, nil
		}
	}

	if c.Fetcher == nil {
		return nil, vcerr.New(vcerr.KindResolutionFailed, "status list fetcher is not defined")
	}

	statusList, err := c.Fetcher.FetchStatus(ctx, reference)
	if err != nil {
		logger.WithError(err).WithField("reference", reference).Debug("status list fetch failed")

		return nil, vcerr.New(vcerr.KindResolutionFailed, "fetch status list %q: %w", reference, err)
	}

	if c.Cache != nil {
		c.Cache.SetBig(key, statusList)
	}

	return statusList, nil
}
