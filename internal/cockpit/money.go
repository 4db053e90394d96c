package cockpit

import (
	"math"
	"strconv"
	"strings"
)

// Money renders v as whole US dollars with thousands separators, or
// "Unknown" when v is nil.
func Money(v *float64) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return "Unknown"
	}

	rounded := math.Round(*v)
	sign := ""
	if rounded < 0 {
		sign = "-"
		rounded = -rounded
	}

	digits := strconv.FormatFloat(rounded, 'f', 0, 64)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return sign + "$" + b.String()
}
