/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"strconv"

	"github.com/go-openapi/jsonpointer"

	"github.com/trustbloc/sdjwt-vc-go/vcerr"
)

// DisclosureLocation is the place of a disclosed claim in the reconstructed claims.
type DisclosureLocation struct {
	// Path is JSON pointer of the claim.
	Path string
	// Parent is digest of the disclosure holding this one, empty when the digest is in the signed payload.
	Parent string
}

// Reconstruction is the result of processing disclosures against the signed payload.
type Reconstruction struct {
	Claims    map[string]interface{}
	Locations map[string]DisclosureLocation
}

// DiscloseClaims returns payload with disclosed claims put in place of their digests.
// Undisclosed object members are dropped, undisclosed array elements stay as {"...": digest}.
// _sd and _sd_alg are removed.
func DiscloseClaims(payload map[string]interface{}, disclosures []*DisclosureClaim) (map[string]interface{}, error) {
	r, err := Reconstruct(payload, disclosures)
	if err != nil {
		return nil, err
	}

	return r.Claims, nil
}

// Reconstruct works as DiscloseClaims and also reports where every disclosure landed.
// Every disclosure must be referenced exactly once.
func Reconstruct(payload map[string]interface{}, disclosures []*DisclosureClaim) (*Reconstruction, error) {
	rc := &reconstructor{
		byDigest:  make(map[string]*DisclosureClaim, len(disclosures)),
		locations: make(map[string]DisclosureLocation, len(disclosures)),
	}

	for _, dc := range disclosures {
		if _, ok := rc.byDigest[dc.Digest]; ok {
			return nil, vcerr.New(vcerr.KindDisclosureIntegrityViolation, "duplicate disclosure '%s'", dc.Disclosure)
		}

		rc.byDigest[dc.Digest] = dc
	}

	claims, err := rc.processObj(payload, "", "")
	if err != nil {
		return nil, err
	}

	for _, dc := range disclosures {
		if _, ok := rc.locations[dc.Digest]; !ok {
			return nil, vcerr.New(vcerr.KindDisclosureIntegrityViolation,
				"disclosure digest '%s' not found in SD-JWT disclosure digests", dc.Digest)
		}
	}

	delete(claims, SDAlgorithmKey)

	if vc, ok := claims["vc"].(map[string]interface{}); ok {
		delete(vc, SDAlgorithmKey)
	}

	return &Reconstruction{Claims: claims, Locations: rc.locations}, nil
}

type reconstructor struct {
	byDigest  map[string]*DisclosureClaim
	locations map[string]DisclosureLocation
}

func (rc *reconstructor) processValue(v interface{}, path, parent string) (interface{}, error) {
	switch tv := v.(type) {
	case map[string]interface{}:
		return rc.processObj(tv, path, parent)
	case []interface{}:
		return rc.processArray(tv, path, parent)
	default:
		return v, nil
	}
}

func (rc *reconstructor) processObj(obj map[string]interface{}, path, parent string) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(obj))

	for k, v := range obj {
		if k == SDKey {
			continue
		}

		pv, err := rc.processValue(v, path+"/"+jsonpointer.Escape(k), parent)
		if err != nil {
			return nil, err
		}

		out[k] = pv
	}

	sd, ok := obj[SDKey]
	if !ok {
		return out, nil
	}

	digests, err := digestArray(sd)
	if err != nil {
		return nil, err
	}

	for _, digest := range digests {
		dc, ok := rc.byDigest[digest]
		if !ok {
			continue
		}

		if err = rc.checkNotIncluded(dc); err != nil {
			return nil, err
		}

		if dc.IsArrayElement() {
			return nil, vcerr.New(vcerr.KindDisclosureIntegrityViolation,
				"array element disclosure '%s' is referenced from '%s'", digest, SDKey)
		}

		if _, exists := out[dc.Name]; exists {
			return nil, vcerr.New(vcerr.KindDisclosureIntegrityViolation,
				"claim name '%s' already exists at the same level", dc.Name)
		}

		childPath := path + "/" + jsonpointer.Escape(dc.Name)
		rc.locations[digest] = DisclosureLocation{Path: childPath, Parent: parent}

		out[dc.Name], err = rc.processValue(dc.Value, childPath, digest)
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (rc *reconstructor) processArray(arr []interface{}, path, parent string) ([]interface{}, error) {
	out := make([]interface{}, len(arr))

	for i, elem := range arr {
		elemPath := path + "/" + strconv.Itoa(i)

		digest, isPlaceholder := ArrayElementDigest(elem)
		if !isPlaceholder {
			pv, err := rc.processValue(elem, elemPath, parent)
			if err != nil {
				return nil, err
			}

			out[i] = pv

			continue
		}

		dc, ok := rc.byDigest[digest]
		if !ok {
			out[i] = map[string]interface{}{ArrayElementDigestKey: digest}

			continue
		}

		if err := rc.checkNotIncluded(dc); err != nil {
			return nil, err
		}

		if !dc.IsArrayElement() {
			return nil, vcerr.New(vcerr.KindDisclosureIntegrityViolation,
				"object property disclosure '%s' is referenced from array element", digest)
		}

		rc.locations[digest] = DisclosureLocation{Path: elemPath, Parent: parent}

		pv, err := rc.processValue(dc.Value, elemPath, digest)
		if err != nil {
			return nil, err
		}

		out[i] = pv
	}

	return out, nil
}

func (rc *reconstructor) checkNotIncluded(dc *DisclosureClaim) error {
	if _, used := rc.locations[dc.Digest]; used {
		return vcerr.New(vcerr.KindDisclosureIntegrityViolation,
			"digest '%s' has been included in more than one place", dc.Digest)
	}

	return nil
}

// ArrayElementDigest returns digest of {"...": digest} array element placeholder.
func ArrayElementDigest(elem interface{}) (string, bool) {
	obj, ok := elem.(map[string]interface{})
	if !ok || len(obj) != 1 {
		return "", false
	}

	digest, ok := obj[ArrayElementDigestKey].(string)

	return digest, ok
}

// CheckForDuplicateDigests walks payload and disclosure values and fails if a digest appears twice.
func CheckForDuplicateDigests(payload map[string]interface{}, disclosures ...*DisclosureClaim) error {
	seen := make(map[string]struct{})

	if err := collectDigests(payload, seen); err != nil {
		return err
	}

	for _, dc := range disclosures {
		if err := collectDigests(dc.Value, seen); err != nil {
			return err
		}
	}

	return nil
}

func collectDigests(v interface{}, seen map[string]struct{}) error {
	add := func(digest string) error {
		if _, ok := seen[digest]; ok {
			return vcerr.New(vcerr.KindDisclosureIntegrityViolation, "duplicate digest '%s'", digest)
		}

		seen[digest] = struct{}{}

		return nil
	}

	switch tv := v.(type) {
	case map[string]interface{}:
		if sd, ok := tv[SDKey]; ok {
			digests, err := digestArray(sd)
			if err != nil {
				return err
			}

			for _, d := range digests {
				if err = add(d); err != nil {
					return err
				}
			}
		}

		for k, child := range tv {
			if k == SDKey {
				continue
			}

			if err := collectDigests(child, seen); err != nil {
				return err
			}
		}
	case []interface{}:
		for _, elem := range tv {
			if digest, ok := ArrayElementDigest(elem); ok {
				if err := add(digest); err != nil {
					return err
				}

				continue
			}

			if err := collectDigests(elem, seen); err != nil {
				return err
			}
		}
	}

	return nil
}

func digestArray(entry interface{}) ([]string, error) {
	arr, ok := entry.([]interface{})
	if !ok {
		return nil, vcerr.New(vcerr.KindDisclosureIntegrityViolation, "'%s' must be an array", SDKey)
	}

	digests := make([]string, len(arr))

	for i, e := range arr {
		s, ok := e.(string)
		if !ok {
			return nil, vcerr.New(vcerr.KindDisclosureIntegrityViolation,
				"'%s' entry type[%T] is not a string", SDKey, e)
		}

		digests[i] = s
	}

	return digests, nil
}
