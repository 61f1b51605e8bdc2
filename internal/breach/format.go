// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package breach

import "strconv"

// FormatPwnCount abbreviates large account counts: 1500000 becomes "1.5M",
// 2300 becomes "2.3K".
func FormatPwnCount(count int64) string {
	switch {
	case count >= 1_000_000:
		return strconv.FormatFloat(float64(count)/1_000_000, 'f', 1, 64) + "M"
	case count >= 1_000:
		return strconv.FormatFloat(float64(count)/1_000, 'f', 1, 64) + "K"
	default:
		return strconv.FormatInt(count, 10)
	}
}
