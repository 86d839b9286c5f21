package generation

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Image is an encoded raster image with its MIME type.
// The pipeline treats it as read-only once decoded.
type Image struct {
	MIMEType string
	Data     []byte
}

// Empty reports whether the image carries no data.
func (i Image) Empty() bool {
	return len(i.Data) == 0
}

// DataURL encodes the image as an inline data URL.
func (i Image) DataURL() string {
	mime := i.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Extension returns the file extension for the image type, e.g. ".png".
func (i Image) Extension() string {
	if m := mimetype.Lookup(i.MIMEType); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return mimetype.Detect(i.Data).Extension()
}

// DecodeImage sniffs raw bytes and rejects anything that is not an image.
func DecodeImage(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, fmt.Errorf("image is empty")
	}

	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return Image{}, fmt.Errorf("unsupported image type %s", detected.String())
	}

	// Drop parameters such as "; charset=..." that some detectors append
	mime, _, _ := strings.Cut(detected.String(), ";")
	return Image{MIMEType: mime, Data: data}, nil
}

// ParseDataURL decodes a "data:<mime>;base64,<payload>" URL or a bare base64 payload.
// The declared MIME type is ignored in favour of the sniffed one.
func ParseDataURL(s string) (Image, error) {
	s = strings.TrimSpace(s)
	payload := s
	if strings.HasPrefix(s, "data:") {
		header, body, ok := strings.Cut(s, ",")
		if !ok {
			return Image{}, fmt.Errorf("malformed data URL")
		}
		if !strings.HasSuffix(header, ";base64") {
			return Image{}, fmt.Errorf("data URL must be base64 encoded")
		}
		payload = body
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("invalid base64 image payload: %w", err)
	}
	return DecodeImage(data)
}
