/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package revocationbitmap handles credential status entries of type RevocationBitmap2022: a compressed roaring
// bitmap of revoked indices published as a service endpoint of the issuer DID document.
package revocationbitmap

import (
	"context"
	"encoding/base64"
	"math"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring"

	"github.com/trustbloc/sdjwt-vc-go/status/api"
	"github.com/trustbloc/sdjwt-vc-go/status/internal/bitstring"
	"github.com/trustbloc/sdjwt-vc-go/status/internal/entry"
	"github.com/trustbloc/sdjwt-vc-go/vcerr"
	"github.com/trustbloc/sdjwt-vc-go/verifiable"
	"github.com/trustbloc/sdjwt-vc-go/vermethod"
)

const (
	// RevocationBitmap2022Type is the VC.Status.Type of revocation bitmap entries.
	RevocationBitmap2022Type = "RevocationBitmap2022"

	// RevocationBitmapIndex is the index of the credential in the bitmap.
	//  VC.Status.CustomFields key.
	RevocationBitmapIndex = "revocationBitmapIndex"

	dataURLPrefix = "data:"
	indexQuery    = "index="
)

type statusEntry struct {
	RevocationBitmapIndex int `json:"revocationBitmapIndex"`
}

// Validator validates RevocationBitmap2022 status entries.
type Validator struct{}

// ValidateStatus checks that the entry points to a DID service and has a valid index.
func (v *Validator) ValidateStatus(vcStatus *verifiable.TypedID) error {
	if vcStatus == nil {
		return vcerr.New(vcerr.KindClaimsConstraintViolation, "vc status does not exist")
	}

	if vcStatus.Type != RevocationBitmap2022Type {
		return vcerr.New(vcerr.KindClaimsConstraintViolation, "vc status %s not supported", vcStatus.Type)
	}

	serviceURL, _ := v.GetStatusVCURI(vcStatus) //nolint:errcheck

	if _, fragment, ok := vermethod.SplitDIDURL(serviceURL); !ok || fragment == "" {
		return vcerr.New(vcerr.KindClaimsConstraintViolation, "status id must be a DID URL with service fragment")
	}

	if err := entry.RequireFields(vcStatus.CustomFields, RevocationBitmapIndex); err != nil {
		return err
	}

	idx, err := v.GetStatusListIndex(vcStatus)
	if err != nil {
		return err
	}

	if idx < 0 || int64(idx) > math.MaxUint32 {
		return vcerr.New(vcerr.KindClaimsConstraintViolation, "revocation bitmap index %d is out of range", idx)
	}

	if queryIdx, ok := queryIndex(vcStatus.ID); ok && queryIdx != strconv.Itoa(idx) {
		return vcerr.New(vcerr.KindClaimsConstraintViolation,
			"index %s in status id does not match %s %d", queryIdx, RevocationBitmapIndex, idx)
	}

	return nil
}

// GetStatusVCURI returns the DID URL of the revocation service, without query.
func (v *Validator) GetStatusVCURI(vcStatus *verifiable.TypedID) (string, error) {
	id := vcStatus.ID

	query := strings.Index(id, "?")
	if query < 0 {
		return id, nil
	}

	rest := id[query:]
	if fragment := strings.Index(rest, "#"); fragment >= 0 {
		return id[:query] + rest[fragment:], nil
	}

	return id[:query], nil
}

// GetStatusListIndex returns the index of the credential in the bitmap.
func (v *Validator) GetStatusListIndex(vcStatus *verifiable.TypedID) (int, error) {
	e := &statusEntry{}

	if err := entry.Decode(vcStatus.CustomFields, e); err != nil {
		return -1, err
	}

	return e.RevocationBitmapIndex, nil
}

// GetStatusPurpose always returns revocation.
func (v *Validator) GetStatusPurpose(*verifiable.TypedID) (string, error) {
	return "revocation", nil
}

// GetStatus decodes the service endpoint and checks if the index is in the bitmap.
func (v *Validator) GetStatus(_ context.Context, vcStatus *verifiable.TypedID, statusList []byte,
	req *api.StatusRequest) (api.Status, error) {
	serviceURL, _ := v.GetStatusVCURI(vcStatus) //nolint:errcheck
	serviceDID, _, _ := vermethod.SplitDIDURL(serviceURL)
	issuerDID, _, isDID := vermethod.SplitDIDURL(req.Issuer)

	if !isDID {
		issuerDID = req.Issuer
	}

	if serviceDID != issuerDID {
		return api.StatusValid, vcerr.New(vcerr.KindClaimsConstraintViolation,
			"revocation service %q does not belong to issuer %q", vcStatus.ID, req.Issuer)
	}

	idx, err := v.GetStatusListIndex(vcStatus)
	if err != nil {
		return api.StatusValid, err
	}

	bitmap, err := DecodeEndpoint(string(statusList))
	if err != nil {
		return api.StatusValid, err
	}

	if idx >= 0 && bitmap.Contains(uint32(idx)) {
		return api.StatusRevoked, nil
	}

	return api.StatusValid, nil
}

// DecodeEndpoint decodes a zlib-compressed serialized roaring bitmap, optionally wrapped in a base64 data URL.
func DecodeEndpoint(endpoint string) (*roaring.Bitmap, error) {
	endpoint = strings.Trim(strings.TrimSpace(endpoint), `"`)

	if strings.HasPrefix(endpoint, dataURLPrefix) {
		comma := strings.Index(endpoint, ",")
		if comma < 0 || !strings.HasSuffix(endpoint[:comma], ";base64") {
			return nil, vcerr.New(vcerr.KindMalformedEncoding, "revocation bitmap data url must be base64 encoded")
		}

		endpoint = endpoint[comma+1:]
	}

	compressed, err := decodeBase64(endpoint)
	if err != nil {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "decode revocation bitmap: %w", err)
	}

	serialized, err := bitstring.Decompress(compressed, bitstring.WithZlib())
	if err != nil {
		return nil, err
	}

	bitmap := roaring.New()

	if err = bitmap.UnmarshalBinary(serialized); err != nil {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "deserialize revocation bitmap: %w", err)
	}

	return bitmap, nil
}

// EncodeEndpoint serializes bitmap as a base64 data URL service endpoint.
func EncodeEndpoint(bitmap *roaring.Bitmap) (string, error) {
	serialized, err := bitmap.ToBytes()
	if err != nil {
		return "", err
	}

	compressed, err := bitstring.Compress(serialized, bitstring.WithZlib())
	if err != nil {
		return "", err
	}

	return dataURLPrefix + "application/octet-stream;base64," + base64.StdEncoding.EncodeToString(compressed), nil
}

func decodeBase64(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}

	return base64.URLEncoding.DecodeString(s)
}

func queryIndex(id string) (string, bool) {
	query := strings.Index(id, "?")
	if query < 0 {
		return "", false
	}

	q := id[query+1:]
	if fragment := strings.Index(q, "#"); fragment >= 0 {
		q = q[:fragment]
	}

	for _, param := range strings.Split(q, "&") {
		if strings.HasPrefix(param, indexQuery) {
			return strings.TrimPrefix(param, indexQuery), true
		}
	}

	return "", false
}
