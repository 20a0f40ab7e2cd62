/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package entry decodes status entry fields.
package entry

import (
	"github.com/mitchellh/mapstructure"

	"github.com/trustbloc/sdjwt-vc-go/vcerr"
)

// Decode decodes status entry custom fields into out. Numbers are accepted as JSON numbers or decimal strings.
func Decode(fields map[string]interface{}, out interface{}) error {
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}

	if err = d.Decode(fields); err != nil {
		return vcerr.New(vcerr.KindClaimsConstraintViolation, "decode status entry: %w", err)
	}

	return nil
}

// RequireFields returns an error naming the first field missing in fields.
func RequireFields(fields map[string]interface{}, names ...string) error {
	for _, name := range names {
		if fields[name] == nil {
			return vcerr.New(vcerr.KindClaimsConstraintViolation, "%s field does not exist in vc status", name)
		}
	}

	return nil
}
