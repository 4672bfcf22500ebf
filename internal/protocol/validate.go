package protocol

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const requestSchemaURL = "https://petquest.ai/schemas/request.schema.json"

//go:embed schemas/request.schema.json
var requestSchema string

// Validator checks raw request envelopes against the embedded JSON schema.
type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(requestSchemaURL, strings.NewReader(requestSchema)); err != nil {
		return nil, fmt.Errorf("add request schema: %w", err)
	}
	s, err := c.Compile(requestSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile request schema: %w", err)
	}
	return &Validator{schema: s}, nil
}

// DecodeRequest validates b and decodes it into a Request.
func (v *Validator) DecodeRequest(b []byte) (Request, error) {
	var req Request

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return req, BadRequest("invalid json: %v", err)
	}
	if err := v.schema.Validate(raw); err != nil {
		return req, BadRequest("request does not match schema: %v", err)
	}
	if err := json.Unmarshal(b, &req); err != nil {
		return req, BadRequest("decode request: %v", err)
	}
	if req.ProtocolVersion != "" && req.ProtocolVersion != Version {
		return req, BadRequest("unsupported protocol_version %q", req.ProtocolVersion)
	}
	return req, nil
}
