/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package verifiable implements Verifiable Credential and Presentation data model
// (https://www.w3.org/TR/vc-data-model) and its mapping to JWT claims.
// Both VC Data Model v1.1 (content nested under "vc"/"vp" claim) and v2.0 (flattened claims) are supported,
// as well as the flat SD-JWT VC profile. The version is always declared by the caller.
package verifiable

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v3/json"
	util "github.com/trustbloc/did-go/doc/util/time"

	jsonutil "github.com/trustbloc/sdjwt-vc-go/util/json"
	"github.com/trustbloc/sdjwt-vc-go/vcerr"
)

// Version is the data model a credential or presentation is mapped with.
type Version int

const (
	// V11 is VC Data Model v1.1.
	V11 Version = iota + 1
	// V20 is VC Data Model v2.0.
	V20
	// SDJWTVC is the IETF SD-JWT VC profile.
	SDJWTVC
)

func (v Version) String() string {
	switch v {
	case V11:
		return "v1.1"
	case V20:
		return "v2.0"
	case SDJWTVC:
		return "sd-jwt-vc"
	default:
		return fmt.Sprintf("version(%d)", int(v))
	}
}

const (
	// V1ContextURI is the base context of VC Data Model v1.1.
	V1ContextURI = "https://www.w3.org/2018/credentials/v1"
	// V2ContextURI is the base context of VC Data Model v2.0.
	V2ContextURI = "https://www.w3.org/ns/credentials/v2"

	// VCType is the base type of a credential.
	VCType = "VerifiableCredential"
	// VPType is the base type of a presentation.
	VPType = "VerifiablePresentation"
)

// JSONObject used to store json object.
type JSONObject = map[string]interface{}

// CustomFields is a map of extra fields of struct build when unmarshalling JSON which are not
// mapped to the struct fields.
type CustomFields map[string]interface{}

const (
	jsonFldTypedIDID   = "id"
	jsonFldTypedIDType = "type"
)

// TypedID defines a flexible structure with id and name fields and arbitrary extra fields
// kept in CustomFields.
type TypedID struct {
	ID   string
	Type string

	CustomFields
}

// ToJSON converts TypedID to json object.
func (tid TypedID) ToJSON() JSONObject {
	obj := jsonutil.ShallowCopyObj(tid.CustomFields)

	if tid.ID != "" {
		obj[jsonFldTypedIDID] = tid.ID
	}

	if tid.Type != "" {
		obj[jsonFldTypedIDType] = tid.Type
	}

	return obj
}

func parseTypedIDObj(typedIDObj JSONObject) (TypedID, error) {
	flds, rest := jsonutil.SplitJSONObj(typedIDObj, jsonFldTypedIDID, jsonFldTypedIDType)

	id, err := parseStringFld(flds, jsonFldTypedIDID)
	if err != nil {
		return TypedID{}, fmt.Errorf("parse TypedID: %w", err)
	}

	typeName, err := parseStringFld(flds, jsonFldTypedIDType)
	if err != nil {
		return TypedID{}, fmt.Errorf("parse TypedID: %w", err)
	}

	return TypedID{
		ID:           id,
		Type:         typeName,
		CustomFields: rest,
	}, nil
}

// parseTypedIDs accepts a single object or an array of objects.
func parseTypedIDs(v interface{}) ([]TypedID, error) {
	switch typed := v.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		tid, err := parseTypedIDObj(typed)
		if err != nil {
			return nil, err
		}

		return []TypedID{tid}, nil
	case []interface{}:
		return mapSlice2(typed, func(raw interface{}) (TypedID, error) {
			obj, ok := raw.(map[string]interface{})
			if !ok {
				return TypedID{}, fmt.Errorf("should be json object but got %v", raw)
			}

			return parseTypedIDObj(obj)
		})
	default:
		return nil, fmt.Errorf("should be json object or array but got %v", v)
	}
}

func typedIDsToRaw(typedIDs []TypedID) interface{} {
	switch len(typedIDs) {
	case 0:
		return nil
	case 1:
		return typedIDs[0].ToJSON()
	default:
		return mapSlice(typedIDs, func(tid TypedID) interface{} { return tid.ToJSON() })
	}
}

// decodeType decodes raw type(s).
//
// type could be defined as a single value or array.
func decodeType(t interface{}) ([]string, error) {
	switch rType := t.(type) {
	case string:
		return []string{rType}, nil
	case []interface{}:
		types, err := stringSlice(rType)
		if err != nil {
			return nil, fmt.Errorf("vc types: %w", err)
		}

		return types, nil
	case []string:
		return rType, nil
	default:
		return nil, errors.New("credential type of unknown structure")
	}
}

// decodeContext decodes raw context(s).
//
// context can be defined as a single string value or array;
// at the second case, the array can be a mix of string and object types
// (objects can express context information); object context are
// defined at the tail of the array.
func decodeContext(c interface{}) ([]string, []interface{}, error) {
	switch rContext := c.(type) {
	case string:
		return []string{rContext}, nil, nil
	case []interface{}:
		s := make([]string, 0)

		for i := range rContext {
			c, valid := rContext[i].(string)
			if !valid {
				// the remaining contexts are of custom type
				return s, rContext[i:], nil
			}

			s = append(s, c)
		}
		// no contexts of custom type, just string contexts found
		return s, nil, nil
	case []string:
		return rContext, nil, nil
	default:
		return nil, nil, errors.New("credential context of unknown type")
	}
}

func contextToRaw(context []string, cContext []interface{}) interface{} {
	if len(context) == 1 && len(cContext) == 0 {
		return context[0]
	}

	raw := make([]interface{}, 0, len(context)+len(cContext))

	for _, c := range context {
		raw = append(raw, c)
	}

	return append(raw, cContext...)
}

func typesToRaw(types []string) interface{} {
	if len(types) == 1 {
		return types[0]
	}

	return mapSlice(types, func(s string) interface{} { return s })
}

func stringSlice(values []interface{}) ([]string, error) {
	s := make([]string, len(values))

	for i := range values {
		t, valid := values[i].(string)
		if !valid {
			return nil, errors.New("array element is not a string")
		}

		s[i] = t
	}

	return s, nil
}

func parseStringFld(obj JSONObject, fldName string) (string, error) {
	jsonStr := obj[fldName]

	if jsonStr == nil {
		return "", nil
	}

	switch str := jsonStr.(type) {
	case string:
		return str, nil

	default:
		return "", fmt.Errorf("field %q should be string, instead got '%v'", fldName, jsonStr)
	}
}

func parseTimeFld(obj JSONObject, fldName string) (*util.TimeWrapper, error) {
	jsonTime := obj[fldName]

	if jsonTime == nil {
		return nil, nil
	}

	switch timeStr := jsonTime.(type) {
	case string:
		parsed, err := util.ParseTimeWrapper(timeStr)
		if err != nil {
			return nil, fmt.Errorf("field %q contains invalid time value '%v':%w", fldName, jsonTime, err)
		}

		return parsed, nil

	default:
		return nil, fmt.Errorf("time field %q should be json string, instead got '%v'", fldName, jsonTime)
	}
}

// parseNumericDateFld reads JWT NumericDate claim (seconds since epoch).
func parseNumericDateFld(obj JSONObject, fldName string) (*util.TimeWrapper, error) {
	var secs int64

	switch v := obj[fldName].(type) {
	case nil:
		return nil, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("field %q is not a number: %w", fldName, err)
		}

		secs = int64(f)
	case float64:
		secs = int64(v)
	case int64:
		secs = v
	case int:
		secs = int64(v)
	default:
		return nil, fmt.Errorf("field %q should be a number, instead got '%v'", fldName, v)
	}

	return util.NewTime(time.Unix(secs, 0).UTC()), nil
}

func serializeTime(t *util.TimeWrapper) interface{} {
	return t.FormatToString()
}

func constraintErr(format string, args ...interface{}) error {
	return vcerr.New(vcerr.KindClaimsConstraintViolation, format, args...)
}

func mapSlice[T any, U any](slice []T, mapFN func(T) U) []U {
	var result []U
	for _, v := range slice {
		result = append(result, mapFN(v))
	}

	return result
}

func mapSlice2[T any, U any](slice []T, mapFN func(T) (U, error)) ([]U, error) {
	var result []U

	for _, v := range slice {
		newVal, err := mapFN(v)
		if err != nil {
			return nil, err
		}

		result = append(result, newVal)
	}

	return result, nil
}
