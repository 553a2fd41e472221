package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/challenge-tracker/internal/common"
)

func TestFirstNumber(t *testing.T) {
	cases := map[string]float64{
		"Distance\n5.2 km":         5.2,
		"Total: 12 km in 1:03:00":  12,
		"Active Calories .75 kcal": 0.75,
		"42":                       42,
	}
	for text, want := range cases {
		got, err := FirstNumber(text)
		require.NoError(t, err, text)
		assert.Equal(t, want, got, text)
	}
}

func TestFirstNumberNone(t *testing.T) {
	_, err := FirstNumber("Great workout!")
	assert.True(t, common.IsKind(err, common.KindNoNumberFound))
}
