package generation

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngBytes is a 1x1 transparent PNG
var pngBytes, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII=")

func TestDecodeImage(t *testing.T) {
	img, err := DecodeImage(pngBytes)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.False(t, img.Empty())
	assert.Equal(t, ".png", img.Extension())
}

func TestDecodeImage_Rejects(t *testing.T) {
	_, err := DecodeImage(nil)
	assert.ErrorContains(t, err, "empty")

	_, err = DecodeImage([]byte("just some text, not a picture"))
	assert.ErrorContains(t, err, "unsupported image type")
}

func TestParseDataURL(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(pngBytes)

	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "data URL", input: "data:image/png;base64," + encoded},
		{name: "mislabelled data URL is sniffed", input: "data:image/jpeg;base64," + encoded},
		{name: "bare base64", input: encoded},
		{name: "missing comma", input: "data:image/png;base64", wantErr: "malformed"},
		{name: "not base64 encoded", input: "data:image/png," + encoded, wantErr: "base64 encoded"},
		{name: "bad payload", input: "data:image/png;base64,!!!", wantErr: "invalid base64"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := ParseDataURL(tt.input)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "image/png", img.MIMEType)
			assert.Equal(t, pngBytes, img.Data)
		})
	}
}

func TestImage_DataURLRoundTrip(t *testing.T) {
	img := Image{MIMEType: "image/png", Data: pngBytes}

	parsed, err := ParseDataURL(img.DataURL())
	require.NoError(t, err)
	assert.Equal(t, img, parsed)

	assert.Contains(t, Image{Data: []byte{1}}.DataURL(), "data:image/png;base64,")
}
