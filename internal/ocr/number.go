package ocr

import (
	"regexp"
	"strconv"

	"github.com/joseph-ayodele/challenge-tracker/internal/common"
)

// optional digits, optional decimal point, digits
var reNumber = regexp.MustCompile(`\d*\.?\d+`)

// FirstNumber returns the first numeric token in recognized text.
// Screenshots showing several numbers (time, date, distance) yield whichever appears first.
func FirstNumber(text string) (float64, error) {
	tok := reNumber.FindString(text)
	if tok == "" {
		return 0, common.NewKindError(common.KindNoNumberFound, "ocr.number", nil)
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, common.NewKindError(common.KindNoNumberFound, "ocr.number", err)
	}
	return v, nil
}
