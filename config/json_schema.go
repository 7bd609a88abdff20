package config

import (
	"errors"

	"github.com/invopop/jsonschema"
)

var ErrNilConfigSchema = errors.New("reflected config schema is nil")

// JSONSchema generates a JSON Schema document for the service's
// config.yaml, suitable for editor validation and completion.
func JSONSchema() ([]byte, error) {
	schema := jsonschema.Reflect(&Config{})

	if schema == nil {
		return nil, ErrNilConfigSchema
	}

	return schema.MarshalJSON()
}
