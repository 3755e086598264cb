package participant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateExample(t *testing.T) {
	registered := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, "25031002450", Generate(registered, "02", 1450))
}

func TestGenerateDeterministicAndFixedWidth(t *testing.T) {
	registered := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	seeds := []int64{0, 1, 7, 999, 1000, 123456789}
	for _, seed := range seeds {
		first := Generate(registered, "15", seed)
		second := Generate(registered, "15", seed)
		assert.Equal(t, first, second)
		assert.Len(t, first, Length)
		assert.Regexp(t, `^[0-9]{11}$`, first)
	}
}

func TestGenerateSegmentsChangeIndependently(t *testing.T) {
	base := Generate(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), "02", 450)

	otherDate := Generate(time.Date(2025, 4, 11, 0, 0, 0, 0, time.UTC), "02", 450)
	assert.NotEqual(t, base[:6], otherDate[:6])
	assert.Equal(t, base[6:], otherDate[6:])

	otherCode := Generate(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), "07", 450)
	assert.Equal(t, base[:6], otherCode[:6])
	assert.Equal(t, "07", otherCode[6:8])
	assert.Equal(t, base[8:], otherCode[8:])

	otherSeed := Generate(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), "02", 451)
	assert.Equal(t, base[:8], otherSeed[:8])
	assert.Equal(t, "451", otherSeed[8:])
}

func TestGenerateUnknownCode(t *testing.T) {
	registered := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "25031000005", Generate(registered, "", 5))
	assert.Equal(t, "25031000005", Generate(registered, "ABC", 5))
	assert.Equal(t, "25031000005", Generate(registered, "1x", 5))
	assert.Equal(t, "25031003005", Generate(registered, "3", 5))
}

func TestGenerateWrapsEveryThousand(t *testing.T) {
	registered := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, Generate(registered, "02", 450), Generate(registered, "02", 2450))
}

func TestGenerateScopedRejectsOverflow(t *testing.T) {
	registered := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	number, err := GenerateScoped(registered, "02", 999)
	require.NoError(t, err)
	assert.Equal(t, "25031002999", number)

	_, err = GenerateScoped(registered, "02", 1000)
	require.Error(t, err)
}
