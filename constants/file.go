package constants

import "strings"

// AllowedImageTypes holds the content types the OCR reader will attempt to decode.
var AllowedImageTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/gif":  {},
	"image/webp": {},
	"image/bmp":  {},
	"image/heic": {},
	"image/heif": {},
}

// MaxImageBytes caps a single screenshot download.
const MaxImageBytes = 20 << 20

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsHEICExt reports whether ext names a HEIC/HEIF container.
func IsHEICExt(ext string) bool {
	switch NormalizeExt(ext) {
	case "heic", "heif", "heics", "heifs":
		return true
	}
	return false
}

// IsImageContentType reports whether the (possibly parameterized) content type is a supported image.
func IsImageContentType(ct string) bool {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	_, ok := AllowedImageTypes[strings.ToLower(strings.TrimSpace(ct))]
	return ok
}
