/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"errors"
	"fmt"
	"strings"

	util "github.com/trustbloc/did-go/doc/util/time"
	"golang.org/x/exp/slices"

	jsonutil "github.com/trustbloc/sdjwt-vc-go/util/json"
	"github.com/trustbloc/sdjwt-vc-go/vcerr"
)

const (
	jsonFldContext      = "@context"
	jsonFldID           = "id"
	jsonFldType         = "type"
	jsonFldSubject      = "credentialSubject"
	jsonFldIssued       = "issuanceDate"
	jsonFldExpired      = "expirationDate"
	jsonFldValidFrom    = "validFrom"
	jsonFldValidUntil   = "validUntil"
	jsonFldStatus       = "credentialStatus"
	jsonFldIssuer       = "issuer"
	jsonFldSchema       = "credentialSchema"
	jsonFldIssuerID     = "id"
	jsonFldSubjectID    = "id"
	jsonFldSDJWTHashAlg = "_sd_alg"
)

// SD-JWT VC claim names.
const (
	ClaimIssuer    = "iss"
	ClaimSubject   = "sub"
	ClaimJWTID     = "jti"
	ClaimNotBefore = "nbf"
	ClaimIssuedAt  = "iat"
	ClaimExpiry    = "exp"
	ClaimAudience  = "aud"
	ClaimVCT       = "vct"
	ClaimStatus    = "status"
	ClaimCnf       = "cnf"
	ClaimVC        = "vc"
	ClaimVP        = "vp"
)

// Issuer of the Verifiable Credential.
type Issuer struct {
	ID string `json:"id,omitempty"`

	CustomFields CustomFields `json:"-"`
}

// IssuerToJSON converts issuer to raw json object.
func IssuerToJSON(issuer Issuer) JSONObject {
	jsonObj := jsonutil.ShallowCopyObj(issuer.CustomFields)

	if issuer.ID != "" {
		jsonObj[jsonFldIssuerID] = issuer.ID
	}

	return jsonObj
}

// IssuerFromJSON creates issuer from raw json object.
func IssuerFromJSON(issuerObj JSONObject) (*Issuer, error) {
	flds, rest := jsonutil.SplitJSONObj(issuerObj, jsonFldIssuerID)

	id, err := parseStringFld(flds, jsonFldIssuerID)
	if err != nil {
		return nil, fmt.Errorf("fill issuer id from raw: %w", err)
	}

	if id == "" {
		return nil, errors.New("issuer ID is not defined")
	}

	return &Issuer{
		ID:           id,
		CustomFields: rest,
	}, nil
}

// Subject of the Verifiable Credential.
type Subject struct {
	ID string `json:"id,omitempty"`

	CustomFields CustomFields `json:"-"`
}

// SubjectToJSON converts credential subject to json object.
func SubjectToJSON(subject Subject) JSONObject {
	jsonObj := jsonutil.ShallowCopyObj(subject.CustomFields)

	if subject.ID != "" {
		jsonObj[jsonFldSubjectID] = subject.ID
	}

	return jsonObj
}

// SubjectFromJSON creates credential subject form json object.
func SubjectFromJSON(subjectObj JSONObject) (Subject, error) {
	flds, rest := jsonutil.SplitJSONObj(subjectObj, jsonFldSubjectID)

	id, err := parseStringFld(flds, jsonFldSubjectID)
	if err != nil {
		return Subject{}, fmt.Errorf("fill subject id from raw: %w", err)
	}

	return Subject{
		ID:           id,
		CustomFields: rest,
	}, nil
}

// CredentialContents store credential contents as typed structure.
type CredentialContents struct {
	Context       []string
	CustomContext []interface{}
	ID            string
	Types         []string
	Subject       []Subject
	Issuer        *Issuer
	// Issued is issuanceDate for v1.1, validFrom for v2.0 and nbf (or iat) for SD-JWT VC.
	Issued *util.TimeWrapper
	// Expired is expirationDate for v1.1, validUntil for v2.0 and exp for SD-JWT VC.
	Expired      *util.TimeWrapper
	Status       []TypedID
	Schemas      []TypedID
	SDJWTHashAlg string
}

// Credential Verifiable Credential definition.
type Credential struct {
	version Version
	// credentialJSON is the credential as json object. For SD-JWT VC these are the flat claims.
	credentialJSON     JSONObject
	credentialContents CredentialContents
}

// Contents returns credential contents as typed structure.
func (vc *Credential) Contents() CredentialContents {
	return vc.credentialContents
}

// Version returns data model version the credential was created with.
func (vc *Credential) Version() Version {
	return vc.version
}

// ToRawJSON returns a copy of credential json object.
func (vc *Credential) ToRawJSON() JSONObject {
	return jsonutil.DeepCopyObj(vc.credentialJSON)
}

// CustomField returns value of a custom field.
func (vc *Credential) CustomField(name string) interface{} {
	return vc.credentialJSON[name]
}

// Issuer returns issuer id.
func (vc *Credential) Issuer() string {
	if vc.credentialContents.Issuer == nil {
		return ""
	}

	return vc.credentialContents.Issuer.ID
}

// NewCredential creates credential from json object. Required fields are checked for the version.
func NewCredential(vcJSON JSONObject, version Version) (*Credential, error) {
	if vcJSON == nil {
		return nil, constraintErr("credential is empty")
	}

	contents, err := parseCredentialContents(vcJSON, version)
	if err != nil {
		return nil, err
	}

	return &Credential{
		version:            version,
		credentialJSON:     jsonutil.DeepCopyObj(vcJSON),
		credentialContents: *contents,
	}, nil
}

// ParseCredential parses credential json.
func ParseCredential(vcData []byte, version Version) (*Credential, error) {
	vcJSON, err := jsonutil.ToMap(vcData)
	if err != nil {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "unmarshal credential: %w", err)
	}

	return NewCredential(vcJSON, version)
}

// CreateCredential creates credential from typed contents and custom fields.
func CreateCredential(vcc CredentialContents, customFields CustomFields, version Version) (*Credential, error) {
	vcJSON, err := serializeCredentialContents(&vcc, version)
	if err != nil {
		return nil, err
	}

	jsonutil.AddCustomFields(vcJSON, customFields)

	return NewCredential(vcJSON, version)
}

func parseCredentialContents(raw JSONObject, version Version) (*CredentialContents, error) {
	switch version {
	case V11, V20:
		return parseW3CCredentialContents(raw, version)
	case SDJWTVC:
		return parseSDJWTVCContents(raw)
	default:
		return nil, constraintErr("unsupported data model %s", version)
	}
}

func parseW3CCredentialContents(raw JSONObject, version Version) (*CredentialContents, error) { //nolint:funlen,gocyclo
	if err := checkRequiredFields(raw, version); err != nil {
		return nil, err
	}

	context, customContext, err := decodeContext(raw[jsonFldContext])
	if err != nil {
		return nil, constraintErr("fill credential context from raw: %w", err)
	}

	if baseContext := baseContextURI(version); len(context) == 0 || context[0] != baseContext {
		return nil, constraintErr("first @context must be %s for %s credential", baseContext, version)
	}

	types, err := decodeType(raw[jsonFldType])
	if err != nil {
		return nil, constraintErr("fill credential types from raw: %w", err)
	}

	if !slices.Contains(types, VCType) {
		return nil, constraintErr("credential type must include %s", VCType)
	}

	issuer, err := parseIssuer(raw[jsonFldIssuer])
	if err != nil {
		return nil, constraintErr("fill credential issuer from raw: %w", err)
	}

	subjects, err := parseSubject(raw[jsonFldSubject])
	if err != nil {
		return nil, constraintErr("fill credential subject from raw: %w", err)
	}

	id, err := parseStringFld(raw, jsonFldID)
	if err != nil {
		return nil, constraintErr("fill credential id from raw: %w", err)
	}

	issuedFld, expiredFld := dateFields(version)

	issued, err := parseTimeFld(raw, issuedFld)
	if err != nil {
		return nil, constraintErr("fill credential issued from raw: %w", err)
	}

	expired, err := parseTimeFld(raw, expiredFld)
	if err != nil {
		return nil, constraintErr("fill credential expired from raw: %w", err)
	}

	status, err := parseTypedIDs(raw[jsonFldStatus])
	if err != nil {
		return nil, constraintErr("fill credential status from raw: %w", err)
	}

	schemas, err := parseTypedIDs(raw[jsonFldSchema])
	if err != nil {
		return nil, constraintErr("fill credential schemas from raw: %w", err)
	}

	sdAlg, err := parseStringFld(raw, jsonFldSDJWTHashAlg)
	if err != nil {
		return nil, constraintErr("fill credential sd alg from raw: %w", err)
	}

	return &CredentialContents{
		Context:       context,
		CustomContext: customContext,
		ID:            id,
		Types:         types,
		Subject:       subjects,
		Issuer:        issuer,
		Issued:        issued,
		Expired:       expired,
		Status:        status,
		Schemas:       schemas,
		SDJWTHashAlg:  sdAlg,
	}, nil
}

func parseSDJWTVCContents(raw JSONObject) (*CredentialContents, error) {
	if err := checkRequiredFields(raw, SDJWTVC); err != nil {
		return nil, err
	}

	iss, err := parseStringFld(raw, ClaimIssuer)
	if err != nil {
		return nil, constraintErr("fill credential issuer from raw: %w", err)
	}

	vct, err := parseStringFld(raw, ClaimVCT)
	if err != nil {
		return nil, constraintErr("fill credential type from raw: %w", err)
	}

	id, err := parseStringFld(raw, ClaimJWTID)
	if err != nil {
		return nil, constraintErr("fill credential id from raw: %w", err)
	}

	sub, err := parseStringFld(raw, ClaimSubject)
	if err != nil {
		return nil, constraintErr("fill credential subject from raw: %w", err)
	}

	issued, err := parseNumericDateFld(raw, ClaimNotBefore)
	if err == nil && issued == nil {
		issued, err = parseNumericDateFld(raw, ClaimIssuedAt)
	}

	if err != nil {
		return nil, constraintErr("fill credential issued from raw: %w", err)
	}

	expired, err := parseNumericDateFld(raw, ClaimExpiry)
	if err != nil {
		return nil, constraintErr("fill credential expired from raw: %w", err)
	}

	status, err := parseTypedIDs(raw[ClaimStatus])
	if err != nil {
		return nil, constraintErr("fill credential status from raw: %w", err)
	}

	sdAlg, err := parseStringFld(raw, jsonFldSDJWTHashAlg)
	if err != nil {
		return nil, constraintErr("fill credential sd alg from raw: %w", err)
	}

	vcc := &CredentialContents{
		ID:           id,
		Types:        []string{vct},
		Issuer:       &Issuer{ID: iss},
		Issued:       issued,
		Expired:      expired,
		Status:       status,
		SDJWTHashAlg: sdAlg,
	}

	if sub != "" {
		vcc.Subject = []Subject{{ID: sub}}
	}

	return vcc, nil
}

func checkRequiredFields(raw JSONObject, version Version) error {
	var required []string

	switch version {
	case V11:
		required = []string{jsonFldContext, jsonFldType, jsonFldIssuer, jsonFldIssued, jsonFldSubject}
	case V20:
		required = []string{jsonFldContext, jsonFldType, jsonFldIssuer, jsonFldSubject}
	case SDJWTVC:
		required = []string{ClaimIssuer, ClaimVCT}
	}

	for _, fld := range required {
		if v, ok := raw[fld]; !ok || v == nil || v == "" {
			return constraintErr("required field %q is missing for %s credential", fld, version)
		}
	}

	return nil
}

func baseContextURI(version Version) string {
	if version == V20 {
		return V2ContextURI
	}

	return V1ContextURI
}

func dateFields(version Version) (string, string) {
	if version == V20 {
		return jsonFldValidFrom, jsonFldValidUntil
	}

	return jsonFldIssued, jsonFldExpired
}

// parseIssuer parses raw issuer.
//
// Issuer can be defined by:
//
// - a string which is ID of the issuer;
//
// - object with mandatory "id" field and optional "name" field.
func parseIssuer(issuerRaw interface{}) (*Issuer, error) {
	if issuerRaw == nil {
		return nil, nil
	}

	switch issuer := issuerRaw.(type) {
	case string:
		if issuer == "" {
			return nil, errors.New("issuer ID is not defined")
		}

		return &Issuer{ID: issuer}, nil
	case map[string]interface{}:
		return IssuerFromJSON(issuer)
	}

	return nil, fmt.Errorf("should be json object or string but got %v", issuerRaw)
}

func serializeIssuer(issuer Issuer) interface{} {
	if len(issuer.CustomFields) == 0 {
		return issuer.ID
	}

	return IssuerToJSON(issuer)
}

// parseSubject parses raw credential subject.
//
// Subject can be defined as a string (subject ID) or single object or array of objects.
func parseSubject(subjectRaw interface{}) ([]Subject, error) {
	if subjectRaw == nil {
		return nil, nil
	}

	switch subject := subjectRaw.(type) {
	case string:
		return []Subject{{ID: subject}}, nil
	case map[string]interface{}:
		parsed, err := SubjectFromJSON(subject)
		if err != nil {
			return nil, fmt.Errorf("parse subject: %w", err)
		}

		return []Subject{parsed}, nil
	case []interface{}:
		var subjects []Subject

		for _, raw := range subject {
			sub, ok := raw.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("verifiable credential subject of unsupported format")
			}

			parsed, err := SubjectFromJSON(sub)
			if err != nil {
				return nil, fmt.Errorf("parse subjects array: %w", err)
			}

			subjects = append(subjects, parsed)
		}

		return subjects, nil
	}

	return nil, fmt.Errorf("verifiable credential subject of unsupported format")
}

// SerializeSubject converts subjects to raw json.
func SerializeSubject(subject []Subject) interface{} {
	switch len(subject) {
	case 0:
		return nil
	case 1:
		return SubjectToJSON(subject[0])
	default:
		return mapSlice(subject, func(s Subject) interface{} { return SubjectToJSON(s) })
	}
}

// SubjectID gets ID of single subject if present or
// returns error if there are several subjects or one without ID defined.
func SubjectID(subject []Subject) (string, error) {
	if len(subject) == 0 {
		return "", errors.New("no subject is defined")
	}

	if len(subject) > 1 {
		return "", errors.New("more than one subject is defined")
	}

	if subject[0].ID == "" {
		return "", errors.New("subject id is not defined")
	}

	return subject[0].ID, nil
}

func serializeCredentialContents(vcc *CredentialContents, version Version) (JSONObject, error) {
	vcJSON := JSONObject{}

	if version == SDJWTVC {
		return serializeSDJWTVCContents(vcc, vcJSON)
	}

	if version != V11 && version != V20 {
		return nil, constraintErr("unsupported data model %s", version)
	}

	if len(vcc.Context) > 0 || len(vcc.CustomContext) > 0 {
		vcJSON[jsonFldContext] = contextToRaw(vcc.Context, vcc.CustomContext)
	}

	if vcc.ID != "" {
		vcJSON[jsonFldID] = vcc.ID
	}

	if len(vcc.Types) > 0 {
		vcJSON[jsonFldType] = typesToRaw(vcc.Types)
	}

	if len(vcc.Subject) > 0 {
		vcJSON[jsonFldSubject] = SerializeSubject(vcc.Subject)
	}

	if vcc.Issuer != nil {
		vcJSON[jsonFldIssuer] = serializeIssuer(*vcc.Issuer)
	}

	issuedFld, expiredFld := dateFields(version)

	if vcc.Issued != nil {
		vcJSON[issuedFld] = serializeTime(vcc.Issued)
	}

	if vcc.Expired != nil {
		vcJSON[expiredFld] = serializeTime(vcc.Expired)
	}

	if len(vcc.Status) > 0 {
		vcJSON[jsonFldStatus] = typedIDsToRaw(vcc.Status)
	}

	if len(vcc.Schemas) > 0 {
		vcJSON[jsonFldSchema] = typedIDsToRaw(vcc.Schemas)
	}

	if vcc.SDJWTHashAlg != "" {
		vcJSON[jsonFldSDJWTHashAlg] = vcc.SDJWTHashAlg
	}

	return vcJSON, nil
}

func serializeSDJWTVCContents(vcc *CredentialContents, vcJSON JSONObject) (JSONObject, error) {
	if vcc.Issuer != nil {
		vcJSON[ClaimIssuer] = vcc.Issuer.ID
	}

	if len(vcc.Types) > 0 {
		vcJSON[ClaimVCT] = vcc.Types[0]
	}

	if vcc.ID != "" {
		vcJSON[ClaimJWTID] = vcc.ID
	}

	if subjectID, err := SubjectID(vcc.Subject); err == nil {
		vcJSON[ClaimSubject] = subjectID
	}

	if vcc.Issued != nil {
		vcJSON[ClaimNotBefore] = vcc.Issued.Unix()
	}

	if vcc.Expired != nil {
		vcJSON[ClaimExpiry] = vcc.Expired.Unix()
	}

	if len(vcc.Status) > 0 {
		vcJSON[ClaimStatus] = typedIDsToRaw(vcc.Status)
	}

	if vcc.SDJWTHashAlg != "" {
		vcJSON[jsonFldSDJWTHashAlg] = vcc.SDJWTHashAlg
	}

	return vcJSON, nil
}

// didMismatch reports whether both values are DIDs that differ.
func didMismatch(a, b string) bool {
	return strings.HasPrefix(a, "did:") && strings.HasPrefix(b, "did:") && a != b
}
