package badge

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatCount renders a download count the way the badges do: exact below
// 10k, then truncated (not rounded) with a k/M/T suffix, and scientific
// notation once the suffix range runs out.
func FormatCount(count uint64) string {
	if count < 10_000 {
		return strconv.FormatUint(count, 10)
	}
	if count >= 1_000_000_000_000 {
		s := strconv.FormatFloat(float64(count), 'e', 1, 64)
		return strings.Replace(s, "e+", "e", 1)
	}

	suffixes := [...]byte{'k', 'M', 'T'}
	delta := float64(count)
	i := 0
	for delta >= 1000 {
		delta /= 1000
		i++
	}
	suffix := suffixes[i-1]

	// Keep three significant digits, then drop trailing zeros.
	precision := 2 - int(math.Floor(math.Log10(delta)))
	placeDigit := func(place int) int {
		shifted := delta * math.Pow(10, float64(place))
		return int(uint64(math.Abs(shifted)) % 10)
	}
	for precision > 0 && placeDigit(precision) == 0 {
		precision--
	}

	if precision == 0 {
		return fmt.Sprintf("%d%c", uint64(delta), suffix)
	}

	multiplier := math.Pow(10, float64(precision))
	truncated := math.Trunc(delta*multiplier) / multiplier
	return fmt.Sprintf("%.*f%c", precision, truncated, suffix)
}
