// Package schemas embeds the JSON Schemas for model responses and persona exports.
package schemas

import (
	"embed"
	"fmt"
)

//go:embed *.schema.json
var files embed.FS

// Schema file names
const (
	Refinement     = "refinement.schema.json"
	PersonaDetails = "persona_details.schema.json"
	Personas       = "personas.schema.json"
)

// Read returns the content of an embedded schema file.
func Read(name string) (string, error) {
	data, err := files.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("schema %s not embedded: %w", name, err)
	}
	return string(data), nil
}
