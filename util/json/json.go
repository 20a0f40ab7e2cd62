/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package json

import (
	"bytes"
	"fmt"

	"github.com/go-jose/go-jose/v3/json"
	"golang.org/x/exp/slices"
)

// AddCustomFields add custom filed to json object.
func AddCustomFields(obj map[string]interface{}, cf map[string]interface{}) {
	// Supplement value map with custom fields.
	for k, v := range cf {
		if _, exists := obj[k]; !exists {
			obj[k] = v
		}
	}
}

// SplitJSONObj splits provides fields into separate object.
func SplitJSONObj(json map[string]interface{}, flds ...string) (map[string]interface{}, map[string]interface{}) {
	fldsMap := make(map[string]interface{})
	rest := make(map[string]interface{})

	for k, v := range json {
		if slices.Contains(flds, k) {
			fldsMap[k] = v
		} else {
			rest[k] = v
		}
	}

	return fldsMap, rest
}

// ShallowCopyObj creates new json object with copied fields form provided object.
func ShallowCopyObj(json map[string]interface{}) map[string]interface{} {
	flds := make(map[string]interface{}, len(json))

	for k, v := range json {
		flds[k] = v
	}

	return flds
}

// DeepCopy copies nested objects and arrays. Scalars are shared.
func DeepCopy(v interface{}) interface{} {
	switch tv := v.(type) {
	case map[string]interface{}:
		return DeepCopyObj(tv)
	case []interface{}:
		arr := make([]interface{}, len(tv))

		for i, e := range tv {
			arr[i] = DeepCopy(e)
		}

		return arr
	default:
		return v
	}
}

// DeepCopyObj copies json object together with all nested objects and arrays.
func DeepCopyObj(obj map[string]interface{}) map[string]interface{} {
	if obj == nil {
		return nil
	}

	cp := make(map[string]interface{}, len(obj))

	for k, v := range obj {
		cp[k] = DeepCopy(v)
	}

	return cp
}

// CopyExcept copies all fields except fields with given names.
func CopyExcept(json map[string]interface{}, flds ...string) map[string]interface{} {
	newJSON := ShallowCopyObj(json)

	for _, fld := range flds {
		delete(newJSON, fld)
	}

	return newJSON
}

// Select copies only fields with given names. Missing fields are skipped.
func Select(json map[string]interface{}, flds ...string) map[string]interface{} {
	newJSON := map[string]interface{}{}

	for _, fld := range flds {
		if v, ok := json[fld]; ok {
			newJSON[fld] = v
		}
	}

	return newJSON
}

// StringValue returns string field or empty string.
func StringValue(obj map[string]interface{}, fld string) string {
	s, _ := obj[fld].(string) //nolint:errcheck

	return s
}

// ObjectValue returns nested object field or nil.
func ObjectValue(obj map[string]interface{}, fld string) map[string]interface{} {
	m, _ := obj[fld].(map[string]interface{}) //nolint:errcheck

	return m
}

// ToMap convert object, string or bytes to json object represented by map. Numbers are kept as json.Number.
func ToMap(v interface{}) (map[string]interface{}, error) {
	var (
		b   []byte
		err error
	)

	switch cv := v.(type) {
	case map[string]interface{}:
		return cv, nil
	case []byte:
		b = cv
	case string:
		b = []byte(cv)
	default:
		b, err = json.Marshal(v)
		if err != nil {
			return nil, err
		}
	}

	var m map[string]interface{}

	d := json.NewDecoder(bytes.NewReader(b))
	d.UseNumber()

	if err = d.Decode(&m); err != nil {
		return nil, err
	}

	if m == nil {
		return nil, fmt.Errorf("json object expected")
	}

	return m, nil
}
