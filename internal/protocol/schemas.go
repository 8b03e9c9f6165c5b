package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var schemaFiles = map[string]string{
	TypeHello: "schemas/hello.schema.json",
	TypeCmd:   "schemas/cmd.schema.json",
}

var (
	schemaOnce sync.Once
	schemas    map[string]*jsonschema.Schema
	schemaErr  error
)

func compileSchemas() {
	schemas = map[string]*jsonschema.Schema{}
	for typ, path := range schemaFiles {
		b, err := schemaFS.ReadFile(path)
		if err != nil {
			schemaErr = err
			return
		}
		s, err := jsonschema.CompileString(path, string(b))
		if err != nil {
			schemaErr = fmt.Errorf("compile %s: %w", path, err)
			return
		}
		schemas[typ] = s
	}
}

// Validate checks an inbound frame of msgType against its embedded schema. Types without a
// schema are rejected.
func Validate(msgType string, raw []byte) error {
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return schemaErr
	}
	s, ok := schemas[msgType]
	if !ok {
		return fmt.Errorf("no schema for message type %q", msgType)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return s.Validate(v)
}
