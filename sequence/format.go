package sequence

import (
	"fmt"
	"regexp"
	"strconv"
	"sync"
)

const (
	// DefaultPadWidth is the zero padding used when a namespace does not configure one.
	DefaultPadWidth = 4

	// MaxPadWidth bounds configured padding; int64 has 19 digits, the scanner accepts 18.
	MaxPadWidth = 18

	maxSuffixDigits = 18

	// MaxNumber is the largest number the suffix scan can read back. Counters never issue past it.
	MaxNumber int64 = 999999999999999999
)

// Format renders prefix and number as "<prefix>-<number>", zero padded to padWidth digits.
// Numbers wider than padWidth are never truncated.
func Format(prefix string, number int64, padWidth int) (string, error) {
	if number <= 0 || number > MaxNumber {
		return "", fmt.Errorf("%w: %d", ErrInvalidNumber, number)
	}
	if padWidth <= 0 {
		padWidth = DefaultPadWidth
	}
	return fmt.Sprintf("%s-%0*d", prefix, padWidth, number), nil
}

// FormatDefault is Format with DefaultPadWidth.
func FormatDefault(prefix string, number int64) (string, error) {
	return Format(prefix, number, DefaultPadWidth)
}

// FormatRange renders count consecutive identifiers starting at first.
func FormatRange(prefix string, first int64, count int, padWidth int) ([]string, error) {
	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		id, err := Format(prefix, first+int64(i), padWidth)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

var (
	suffixPatternsMu sync.RWMutex
	suffixPatterns   = map[string]*regexp.Regexp{}
)

// SuffixPattern returns the anchored pattern ^<prefix>-([0-9]{1,18})$ for prefix.
// The prefix is quoted so that "REG" never matches "REGX-0001" or "REG-X-1".
func SuffixPattern(prefix string) string {
	return "^" + regexp.QuoteMeta(prefix) + "-([0-9]{1," + strconv.Itoa(maxSuffixDigits) + "})$"
}

func suffixRegexp(prefix string) *regexp.Regexp {
	suffixPatternsMu.RLock()
	re, ok := suffixPatterns[prefix]
	suffixPatternsMu.RUnlock()
	if ok {
		return re
	}

	re = regexp.MustCompile(SuffixPattern(prefix))
	suffixPatternsMu.Lock()
	suffixPatterns[prefix] = re
	suffixPatternsMu.Unlock()
	return re
}

// ParseSuffix extracts the numeric suffix of id when it fully matches prefix.
// Malformed, non-numeric or foreign-prefix identifiers report ok == false.
func ParseSuffix(prefix, id string) (int64, bool) {
	m := suffixRegexp(prefix).FindStringSubmatch(id)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
