package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// isHEIC sniffs the ISO-BMFF brand of a HEIC/HEIF container.
func isHEIC(data []byte) bool {
	if len(data) < 12 || !bytes.Equal(data[4:8], []byte("ftyp")) {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "hevc", "hevx", "heim", "heis", "mif1", "msf1":
		return true
	}
	return false
}

// convertHEICtoPNG converts HEIC/HEIF bytes to PNG bytes using the chosen converter.
// converter: "heif-convert" | "magick" | "sips"
func convertHEICtoPNG(ctx context.Context, r Runner, converter string, data []byte) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "ct-heic-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	in := filepath.Join(tmpDir, "screenshot.heic")
	out := filepath.Join(tmpDir, "screenshot.png")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, err
	}

	switch converter {
	case "heif-convert":
		if _, errb, err2 := r.Run(ctx, "heif-convert", in, out); err2 != nil {
			return nil, fmt.Errorf("heif-convert failed: %w: %s", err2, truncate(string(errb), 512))
		}
	case "magick":
		if _, errb, err2 := r.Run(ctx, "magick", in, out); err2 != nil {
			return nil, fmt.Errorf("magick convert failed: %w: %s", err2, truncate(string(errb), 512))
		}
	case "sips":
		if _, errb, err2 := r.Run(ctx, "sips", "-s", "format", "png", in, "--out", out); err2 != nil {
			return nil, fmt.Errorf("sips convert failed: %w: %s", err2, truncate(string(errb), 512))
		}
	default:
		return nil, fmt.Errorf("HEIC not supported: set HEIC_CONVERTER to one of: heif-convert | magick | sips")
	}

	png, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("HEIC conversion produced no output: %w", err)
	}
	return png, nil
}
