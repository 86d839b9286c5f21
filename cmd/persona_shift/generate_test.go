package main

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/persona-shift/internal/types"
)

const pngBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func pngBytes(t *testing.T) []byte {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(pngBase64)
	require.NoError(t, err)
	return data
}

func testPersona(field string) types.Persona {
	return types.Persona{
		ID:          "id-" + field,
		JobField:    field,
		Title:       field + " Lead",
		Bio:         "bio",
		Skills:      []string{"a", "b", "c"},
		Personality: "calm",
		ImageURL:    "data:image/png;base64," + pngBase64,
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Deep Sea Explorer":     "deep-sea-explorer",
		"High-Stakes Surgeon":   "high-stakes-surgeon",
		"  Formula 1 Driver!  ": "formula-1-driver",
		"Café Owner":            "café-owner",
		"!!!":                   "persona",
		"":                      "persona",
	}
	for in, want := range tests {
		assert.Equal(t, want, slugify(in), in)
	}
}

func TestImageFileName(t *testing.T) {
	assert.Equal(t, "01-mars-architect.png", imageFileName(0, "Mars Architect", ".png"))
	assert.Equal(t, "10-pilot.jpg", imageFileName(9, "Pilot", ".jpg"))
	assert.Equal(t, "03-pilot.png", imageFileName(2, "Pilot", ""))
}

func TestWriteExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	personas := []types.Persona{testPersona("Deep Sea Explorer"), testPersona("Pilot")}

	path, err := writeExport(dir, "noir", personas)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, exportFile), path)

	img, err := os.ReadFile(filepath.Join(dir, "01-deep-sea-explorer.png"))
	require.NoError(t, err)
	assert.Equal(t, pngBytes(t), img)
	assert.FileExists(t, filepath.Join(dir, "02-pilot.png"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var export PersonaExport
	require.NoError(t, json.Unmarshal(data, &export))
	assert.Equal(t, "noir", export.RefinedContext)
	require.Len(t, export.Personas, 2)
	assert.Equal(t, "Pilot", export.Personas[1].JobField)
	assert.Equal(t, "02-pilot.png", export.Personas[1].ImageFile)
}

func TestWriteExport_BadImage(t *testing.T) {
	p := testPersona("Pilot")
	p.ImageURL = "data:text/plain;base64,aGVsbG8="

	_, err := writeExport(t.TempDir(), "", []types.Persona{p})
	assert.Error(t, err)
}

func TestReadImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "me.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t), 0o644))

	img, err := readImage(path, 0)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)

	_, err = readImage(path, 10)
	assert.ErrorContains(t, err, "exceeds")

	text := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("hello"), 0o644))
	_, err = readImage(text, 0)
	assert.Error(t, err)

	_, err = readImage(filepath.Join(dir, "missing.png"), 0)
	assert.ErrorContains(t, err, "failed to open image")
}
