package normalize

import (
	"regexp"
	"strconv"
	"time"
)

// Matches 2025/4/1, 2025-04-01 and 2025年4月1日 (the trailing 日 is not required).
var periodDatePattern = regexp.MustCompile(`(\d{4})[/\-年](\d{1,2})[/\-月](\d{1,2})`)

// ParsePeriod pulls the first two valid dates out of free text. One date is
// used as both start and deadline; none yields (nil, nil). Impossible
// calendar dates are dropped before picking.
func ParsePeriod(text string) (start, deadline *time.Time) {
	var dates []time.Time
	for _, m := range periodDatePattern.FindAllStringSubmatch(Fold(text), -1) {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if t, ok := validDate(y, mo, d); ok {
			dates = append(dates, t)
		}
	}

	switch len(dates) {
	case 0:
		return nil, nil
	case 1:
		s, e := dates[0], dates[0]
		return &s, &e
	default:
		s, e := dates[0], dates[1]
		return &s, &e
	}
}
