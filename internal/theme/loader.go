package theme

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const tableSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["translations"],
  "additionalProperties": false,
  "properties": {
    "themes": {
      "type": "array",
      "items": {"type": "string", "minLength": 1, "pattern": "^[^,]+$"}
    },
    "translations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["from", "to", "type", "toType"],
        "additionalProperties": false,
        "properties": {
          "from":   {"type": "string", "minLength": 1, "pattern": "^[^,]+$"},
          "to":     {"type": "string", "minLength": 1, "pattern": "^[^,]+$"},
          "type":   {"type": "integer", "minimum": 0, "maximum": 255},
          "sub":    {"type": "integer", "minimum": 0, "maximum": 255},
          "toType": {"type": "integer", "minimum": 0, "maximum": 255},
          "toSub":  {"type": "integer", "minimum": 0, "maximum": 255}
        }
      }
    }
  }
}`

var tableSchema = jsonschema.MustCompileString("themes.schema.json", tableSchemaJSON)

type tableFile struct {
	Themes       []string    `json:"themes"`
	Translations []entryFile `json:"translations"`
}

type entryFile struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Type   byte   `json:"type"`
	Sub    byte   `json:"sub"`
	ToType byte   `json:"toType"`
	ToSub  byte   `json:"toSub"`
}

// Load reads a JSON theme table, validating it before use.
func Load(r io.Reader) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read theme table: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse theme table: %w", err)
	}
	if err := tableSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate theme table: %w", err)
	}

	var tf tableFile
	if err := json.Unmarshal(raw, &tf); err != nil {
		return nil, fmt.Errorf("decode theme table: %w", err)
	}

	t := NewTable()
	for _, name := range tf.Themes {
		t.Register(name)
	}
	for _, e := range tf.Translations {
		t.Add(e.From, e.To, Material{Type: e.Type, Sub: e.Sub}, Material{Type: e.ToType, Sub: e.ToSub})
	}
	return t, nil
}

// LoadFile reads a theme table from path.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open theme table %s: %w", path, err)
	}
	defer f.Close()

	t, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
