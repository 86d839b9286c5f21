package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/persona-shift/internal/types"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		samplesJSON = false
		validateSchema = ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSamplesCommand(t *testing.T) {
	out, err := execute(t, "samples")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, types.SampleProfessions, lines)
}

func TestSamplesCommand_JSON(t *testing.T) {
	out, err := execute(t, "samples", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"Cybersecurity Expert"`)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "["))
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	path, err := writeExport(dir, "noir", []types.Persona{testPersona("Pilot")})
	require.NoError(t, err)

	out, err := execute(t, "validate", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")
}

func TestValidateCommand_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"personas":[{"id":""}]}`), 0o644))

	_, err := execute(t, "validate", "--file", path)
	assert.Error(t, err)
}

func TestGenerateCommand_RequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
	img := filepath.Join(t.TempDir(), "me.png")
	require.NoError(t, os.WriteFile(img, pngBytes(t), 0o644))

	_, err := execute(t, "generate", "--image", img, "--professions", "pilot")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}
