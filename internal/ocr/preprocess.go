package ocr

import (
	"bytes"
	"image"
	"image/color"
	"sort"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/joseph-ayodele/challenge-tracker/internal/common"
)

const (
	// ContrastPercent on imaging's scale maps to factor 1/(2-(100+p)/100); 50 is 2.0x
	// around mid-gray. 100 would collapse to a threshold.
	ContrastPercent = 50
	MedianSize      = 3
)

// Decode reads PNG, JPEG, GIF, BMP, TIFF or WebP bytes, honoring EXIF orientation.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, common.KindErrorf(common.KindInvalidImage, "ocr.decode", "empty image")
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, common.NewKindError(common.KindInvalidImage, "ocr.decode", err)
	}
	return img, nil
}

// Preprocess makes a screenshot easier to read: grayscale, 2x contrast,
// 3x3 median denoise, then an autocontrast stretch. The input is not modified.
func Preprocess(img image.Image) (*image.Gray, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, common.KindErrorf(common.KindInvalidImage, "ocr.preprocess", "empty image")
	}
	gray := imaging.Grayscale(img)
	contrasted := imaging.AdjustContrast(gray, ContrastPercent)
	g := toGray(contrasted)
	g = MedianFilter(g, MedianSize)
	return AutoContrast(g), nil
}

// toGray copies the red channel of an already-grayscale NRGBA image,
// compositing transparent pixels over white.
func toGray(src *image.NRGBA) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			i := src.PixOffset(b.Min.X+x, b.Min.Y+y)
			v, a := uint32(src.Pix[i]), uint32(src.Pix[i+3])
			dst.SetGray(x, y, color.Gray{Y: uint8((v*a + 255*(255-a)) / 255)})
		}
	}
	return dst
}

// MedianFilter replaces each pixel with the median of its size x size neighborhood.
// Edges are clamped.
func MedianFilter(src *image.Gray, size int) *image.Gray {
	if size < 3 || size%2 == 0 {
		size = 3
	}
	r := size / 2
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	window := make([]uint8, 0, size*size)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			window = window[:0]
			for dy := -r; dy <= r; dy++ {
				yy := clamp(y+dy, 0, h-1)
				for dx := -r; dx <= r; dx++ {
					xx := clamp(x+dx, 0, w-1)
					window = append(window, src.GrayAt(b.Min.X+xx, b.Min.Y+yy).Y)
				}
			}
			sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })
			dst.SetGray(x, y, color.Gray{Y: window[len(window)/2]})
		}
	}
	return dst
}

// AutoContrast stretches the darkest pixel to 0 and the brightest to 255.
func AutoContrast(src *image.Gray) *image.Gray {
	b := src.Bounds()
	lo, hi := uint8(255), uint8(0)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := src.GrayAt(x, y).Y
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}

	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	if hi <= lo {
		for y := 0; y < b.Dy(); y++ {
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		return dst
	}

	var lut [256]uint8
	scale := 255.0 / float64(hi-lo)
	for i := 0; i < 256; i++ {
		switch {
		case i <= int(lo):
			lut[i] = 0
		case i >= int(hi):
			lut[i] = 255
		default:
			lut[i] = uint8(float64(i-int(lo))*scale + 0.5)
		}
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.SetGray(x, y, color.Gray{Y: lut[src.GrayAt(b.Min.X+x, b.Min.Y+y).Y]})
		}
	}
	return dst
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
