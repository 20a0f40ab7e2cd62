/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"fmt"

	"golang.org/x/exp/slices"

	jsonutil "github.com/trustbloc/sdjwt-vc-go/util/json"
	"github.com/trustbloc/sdjwt-vc-go/vcerr"
)

const (
	vpFldContext    = "@context"
	vpFldID         = "id"
	vpFldType       = "type"
	vpFldHolder     = "holder"
	vpFldCredential = "verifiableCredential"
)

// Presentation Verifiable Presentation encoding.
// Credentials are kept as raw values: a serialized credential (JWT, SD-JWT) string or a json object.
type Presentation struct {
	Context       []string
	CustomContext []interface{}
	ID            string
	Type          []string
	Holder        string
	CustomFields  CustomFields

	version     Version
	credentials []interface{}
}

// CreatePresentationOpt is option to NewPresentation.
type CreatePresentationOpt func(p *Presentation)

// WithCredentials sets the credentials json objects of the presentation.
func WithCredentials(vcs ...*Credential) CreatePresentationOpt {
	return func(p *Presentation) {
		for _, vc := range vcs {
			p.credentials = append(p.credentials, vc.ToRawJSON())
		}
	}
}

// WithSerializedCredentials adds serialized credentials (compact JWT or SD-JWT) to the presentation.
func WithSerializedCredentials(vcs ...string) CreatePresentationOpt {
	return func(p *Presentation) {
		for _, vc := range vcs {
			p.credentials = append(p.credentials, vc)
		}
	}
}

// WithVersion sets data model version of the presentation. Default is v1.1.
func WithVersion(version Version) CreatePresentationOpt {
	return func(p *Presentation) {
		p.version = version
	}
}

// NewPresentation creates a new Presentation with default context and type with the provided credentials.
func NewPresentation(opts ...CreatePresentationOpt) (*Presentation, error) {
	p := &Presentation{
		Type:    []string{VPType},
		version: V11,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.version != V11 && p.version != V20 {
		return nil, constraintErr("unsupported presentation data model %s", p.version)
	}

	p.Context = []string{baseContextURI(p.version)}

	return p, nil
}

// Version returns data model version of the presentation.
func (vp *Presentation) Version() Version {
	return vp.version
}

// Credentials returns the raw credentials of the presentation.
func (vp *Presentation) Credentials() []interface{} {
	return vp.credentials
}

// AddCredentials adds credentials json objects to the presentation.
func (vp *Presentation) AddCredentials(credentials ...*Credential) {
	for _, vc := range credentials {
		vp.credentials = append(vp.credentials, vc.ToRawJSON())
	}
}

// ToRawJSON converts presentation to json object.
func (vp *Presentation) ToRawJSON() JSONObject {
	raw := JSONObject{}

	if len(vp.Context) > 0 || len(vp.CustomContext) > 0 {
		raw[vpFldContext] = contextToRaw(vp.Context, vp.CustomContext)
	}

	if vp.ID != "" {
		raw[vpFldID] = vp.ID
	}

	if len(vp.Type) > 0 {
		raw[vpFldType] = typesToRaw(vp.Type)
	}

	if vp.Holder != "" {
		raw[vpFldHolder] = vp.Holder
	}

	if len(vp.credentials) > 0 {
		raw[vpFldCredential] = jsonutil.DeepCopy(vp.credentials)
	}

	jsonutil.AddCustomFields(raw, vp.CustomFields)

	return raw
}

// ParsePresentation parses presentation json.
func ParsePresentation(vpData []byte, version Version) (*Presentation, error) {
	raw, err := jsonutil.ToMap(vpData)
	if err != nil {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "unmarshal presentation: %w", err)
	}

	return NewPresentationFromJSON(raw, version)
}

// NewPresentationFromJSON creates presentation from json object.
func NewPresentationFromJSON(raw JSONObject, version Version) (*Presentation, error) {
	if version != V11 && version != V20 {
		return nil, constraintErr("unsupported presentation data model %s", version)
	}

	for _, fld := range []string{vpFldContext, vpFldType} {
		if raw[fld] == nil {
			return nil, constraintErr("required field %q is missing for %s presentation", fld, version)
		}
	}

	flds, rest := jsonutil.SplitJSONObj(raw, vpFldContext, vpFldID, vpFldType, vpFldHolder, vpFldCredential)

	context, customContext, err := decodeContext(flds[vpFldContext])
	if err != nil {
		return nil, constraintErr("fill presentation context from raw: %w", err)
	}

	if baseContext := baseContextURI(version); len(context) == 0 || context[0] != baseContext {
		return nil, constraintErr("first @context must be %s for %s presentation", baseContext, version)
	}

	types, err := decodeType(flds[vpFldType])
	if err != nil {
		return nil, constraintErr("fill presentation types from raw: %w", err)
	}

	if !slices.Contains(types, VPType) {
		return nil, constraintErr("presentation type must include %s", VPType)
	}

	id, err := parseStringFld(flds, vpFldID)
	if err != nil {
		return nil, constraintErr("fill presentation id from raw: %w", err)
	}

	holder, err := parseStringFld(flds, vpFldHolder)
	if err != nil {
		return nil, constraintErr("fill presentation holder from raw: %w", err)
	}

	credentials, err := decodeCredentials(flds[vpFldCredential])
	if err != nil {
		return nil, constraintErr("fill presentation credentials from raw: %w", err)
	}

	return &Presentation{
		Context:       context,
		CustomContext: customContext,
		ID:            id,
		Type:          types,
		Holder:        holder,
		CustomFields:  jsonutil.DeepCopyObj(rest),
		version:       version,
		credentials:   credentials,
	}, nil
}

func decodeCredentials(raw interface{}) ([]interface{}, error) {
	switch creds := raw.(type) {
	case nil:
		return nil, nil
	case string, map[string]interface{}:
		return []interface{}{jsonutil.DeepCopy(creds)}, nil
	case []interface{}:
		for i, c := range creds {
			switch c.(type) {
			case string, map[string]interface{}:
			default:
				return nil, fmt.Errorf("credential %d is neither string nor object", i)
			}
		}

		return jsonutil.DeepCopy(creds).([]interface{}), nil
	default:
		return nil, fmt.Errorf("unsupported credentials format")
	}
}
