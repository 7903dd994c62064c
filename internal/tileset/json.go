package tileset

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"tilecraft.ai/internal/wang"
)

//go:embed schema/tileset.schema.json
var schemaJSON string

const schemaURL = "https://tilecraft.ai/schemas/tileset.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString(schemaURL, schemaJSON)
	})
	return schema, schemaErr
}

// SchemaJSON returns the embedded JSON Schema for tileset descriptions.
func SchemaJSON() string { return schemaJSON }

// ParseJSON reads a Tiled JSON tileset. The document is validated against the
// embedded schema before it is decoded.
func ParseJSON(raw []byte) (*Description, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &wang.SchemaError{Reason: fmt.Sprintf("json: %v", err)}
	}
	if err := validateDoc(doc); err != nil {
		return nil, err
	}
	var d Description
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, &wang.SchemaError{Reason: fmt.Sprintf("json: %v", err)}
	}
	d.Digest = sha256Hex(raw)
	normalize(&d)
	return &d, nil
}

// ParseYAML reads the JSON shape written as YAML. It is validated against the
// same schema.
func ParseYAML(raw []byte) (*Description, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &wang.SchemaError{Reason: fmt.Sprintf("yaml: %v", err)}
	}
	// Round trip through JSON so the validator sees JSON types.
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, &wang.SchemaError{Reason: fmt.Sprintf("yaml: %v", err)}
	}
	d, err := ParseJSON(b)
	if err != nil {
		return nil, err
	}
	d.Digest = sha256Hex(raw)
	return d, nil
}

func validateDoc(doc any) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("tileset schema: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return &wang.SchemaError{Reason: fmt.Sprintf("tileset does not match schema: %v", err)}
	}
	return nil
}

// normalize maps Tiled's -1 "no tile" sentinel to nil.
func normalize(d *Description) {
	for i := range d.WangSets {
		ws := &d.WangSets[i]
		if ws.Tile != nil && *ws.Tile < 0 {
			ws.Tile = nil
		}
		for j := range ws.Colors {
			if c := &ws.Colors[j]; c.Tile != nil && *c.Tile < 0 {
				c.Tile = nil
			}
		}
	}
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
