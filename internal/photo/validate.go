package photo

import (
	"github.com/gabriel-vasile/mimetype"
	"github.com/rotisserie/eris"
)

// Format is a validated image format detected from file content.
type Format struct {
	MIME      string
	Extension string
}

// Accepted image formats. Detection is by magic bytes, never by URL suffix or
// Content-Type header, so a .jpg URL serving an HTML error page is rejected.
var acceptedFormats = map[string]Format{
	"image/jpeg": {MIME: "image/jpeg", Extension: ".jpg"},
	"image/png":  {MIME: "image/png", Extension: ".png"},
	"image/webp": {MIME: "image/webp", Extension: ".webp"},
}

// ValidateImage sniffs the content type from the leading bytes and returns
// the detected format, or an error for anything that is not JPEG, PNG, or
// WebP.
func ValidateImage(data []byte) (Format, error) {
	if len(data) == 0 {
		return Format{}, eris.New("photo: empty response body")
	}
	detected := mimetype.Detect(data)
	if f, ok := acceptedFormats[detected.String()]; ok {
		return f, nil
	}
	return Format{}, eris.Errorf("photo: unsupported content type %s", detected.String())
}
