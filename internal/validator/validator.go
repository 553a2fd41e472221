// Package validator decides whether a claimed value is backed by a screenshot reading.
package validator

import (
	"fmt"
	"math"
	"strconv"

	"github.com/joseph-ayodele/challenge-tracker/internal/entity"
)

// DefaultTolerance is the relative deviation accepted between claim and reading.
const DefaultTolerance = 0.10

// absorbs representation error so 100 vs 110 at 10% stays on the accepted side
const boundaryEpsilon = 1e-9

// Validate accepts iff |claimed-observed| <= claimed*tolerance. The boundary is inclusive.
// A nil observed value means OCR produced nothing to compare against.
func Validate(claimed float64, observed *float64, tolerance float64) entity.ValidationOutcome {
	if observed == nil {
		return entity.Rejected("Could not extract value from screenshot")
	}
	if claimed <= 0 || math.IsNaN(claimed) || math.IsInf(claimed, 0) {
		return entity.Rejected(fmt.Sprintf("Invalid claimed value %s", entity.FormatValue(claimed)))
	}
	if tolerance < 0 {
		tolerance = 0
	}

	diff := math.Abs(claimed - *observed)
	allowed := claimed * tolerance
	if diff <= allowed+boundaryEpsilon*claimed {
		return entity.Accepted()
	}
	return entity.Rejected(fmt.Sprintf("Value mismatch: claimed %s, found %s (tolerance: %s%%)",
		entity.FormatValue(claimed), entity.FormatValue(*observed), percent(tolerance)))
}

// RelativeDifference is |claimed-observed|/claimed, used for logging.
func RelativeDifference(claimed, observed float64) float64 {
	if claimed == 0 {
		return math.Inf(1)
	}
	return math.Abs(claimed-observed) / claimed
}

func percent(tolerance float64) string {
	return strconv.FormatFloat(math.Round(tolerance*10000)/100, 'f', -1, 64)
}
