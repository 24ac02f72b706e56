package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		number   int64
		pad      int
		expected string
	}{
		{"padded", "REG", 7, 4, "REG-0007"},
		{"exact width", "REG", 1234, 4, "REG-1234"},
		{"wider than pad", "REG", 12345, 4, "REG-12345"},
		{"compound prefix", "ABS-EVT", 12, 5, "ABS-EVT-00012"},
		{"default pad", "REG", 3, 0, "REG-0003"},
		{"pad of one", "R", 9, 1, "R-9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(tt.prefix, tt.number, tt.pad)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFormatRejectsOutOfRange(t *testing.T) {
	for _, n := range []int64{0, -1, -9999, MaxNumber + 1} {
		_, err := Format("REG", n, 4)
		assert.ErrorIs(t, err, ErrInvalidNumber)
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	for n := int64(1); n <= 9999; n++ {
		id, err := FormatDefault("REG", n)
		require.NoError(t, err)
		got, ok := ParseSuffix("REG", id)
		require.True(t, ok, id)
		require.Equal(t, n, got)
	}

	for _, n := range []int64{10000, 123456, 999999999999, MaxNumber} {
		id, err := Format("ABS-EVT", n, 5)
		require.NoError(t, err)
		got, ok := ParseSuffix("ABS-EVT", id)
		require.True(t, ok, id)
		assert.Equal(t, n, got)
	}
}

func TestParseSuffixRejectsForeignAndMalformed(t *testing.T) {
	tests := []struct {
		prefix string
		id     string
	}{
		{"REG", "REGX-0001"},
		{"REG", "XREG-0001"},
		{"REG", "REG-X-1"},
		{"REG", "REG-"},
		{"REG", "REG-12a"},
		{"REG", "REG-0001 "},
		{"REG", "reg-0001"},
		{"REG", "REG0001"},
		{"REG", "REG-1234567890123456789"},
		{"A.B", "AXB-0001"},
		{"ABS", "ABS-EVT-0001"},
	}

	for _, tt := range tests {
		t.Run(tt.prefix+"/"+tt.id, func(t *testing.T) {
			_, ok := ParseSuffix(tt.prefix, tt.id)
			assert.False(t, ok)
		})
	}
}

func TestParseSuffixAcceptsUnpaddedAndOverlong(t *testing.T) {
	n, ok := ParseSuffix("REG", "REG-7")
	require.True(t, ok)
	assert.Equal(t, int64(7), n)

	n, ok = ParseSuffix("REG", "REG-000000050")
	require.True(t, ok)
	assert.Equal(t, int64(50), n)
}

func TestFormatRange(t *testing.T) {
	ids, err := FormatRange("REG", 9998, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"REG-9998", "REG-9999", "REG-10000"}, ids)

	ids, err = FormatRange("REG", 1, 0, 4)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSuffixPatternQuotesPrefix(t *testing.T) {
	assert.Equal(t, `^A\.B-([0-9]{1,18})$`, SuffixPattern("A.B"))
	assert.Equal(t, `^REG-([0-9]{1,18})$`, SuffixPattern("REG"))
}
