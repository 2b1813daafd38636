package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// RangeWildcard is the open bound marker in backend range tokens
	RangeWildcard = "*"

	dateLayout    = "2006-01-02"
	dayStartClock = "T00:00:00Z"
	dayEndClock   = "T23:59:59Z"

	// Date facet gap units
	GapMonth = "MONTH"
	GapYear  = "YEAR"
)

var (
	bucketDateRegex = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})(?:T|\s+)(\d{2}):(\d{2}):(\d{2}).*$`)
	yearMonthRegex  = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
	exactDateRegex  = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	dateRangeRegex  = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})-(\d{4})-(\d{2})-(\d{2})$`)
	rangeTokenRegex = regexp.MustCompile(`^\[.* TO .*\]`)
	gapRegex        = regexp.MustCompile(`^\+(\d+)(MONTH|YEAR)S?(?:/(?:MONTH|YEAR))?$`)

	lessThanRegex = regexp.MustCompile(`^\[\* TO (\d*)\]`)
	boundedRegex  = regexp.MustCompile(`^\[(\d*) TO (\d*)\]`)
	andUpRegex    = regexp.MustCompile(`^\[(\d*) TO \*\]`)
)

// IsRangeToken reports whether token uses the backend range grammar [A TO B]
func IsRangeToken(token string) bool {
	return rangeTokenRegex.MatchString(token)
}

// FormatRange builds a backend range token
func FormatRange(start, end string) string {
	return fmt.Sprintf("[%s TO %s]", start, end)
}

// ParseDateRange parses a URL date range of the form YYYY-MM-DD-YYYY-MM-DD.
// ok is false when the token does not match exactly or names an impossible date.
func ParseDateRange(token string) (start, end time.Time, ok bool) {
	m := dateRangeRegex.FindStringSubmatch(token)
	if m == nil {
		return time.Time{}, time.Time{}, false
	}
	start, ok = makeDate(m[1], m[2], m[3])
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end, ok = makeDate(m[4], m[5], m[6])
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// NormalizeDateToken converts the URL-facing date shapes (YYYY-MM, YYYY-MM-DD and
// YYYY-MM-DD-YYYY-MM-DD) into an inclusive backend range at second precision.
// Anything else is returned unchanged.
func NormalizeDateToken(token string) string {
	if m := yearMonthRegex.FindStringSubmatch(token); m != nil {
		start, ok := makeDate(m[1], m[2], "01")
		if !ok {
			return token
		}
		end := start.AddDate(0, 1, -1)
		return dateRange(start, end)
	}

	if m := exactDateRegex.FindStringSubmatch(token); m != nil {
		day, ok := makeDate(m[1], m[2], m[3])
		if !ok {
			return token
		}
		return dateRange(day, day)
	}

	if start, end, ok := ParseDateRange(token); ok {
		return dateRange(start, end)
	}

	return token
}

// FormatDateRange renders the URL form of a date range, YYYY-MM-DD-YYYY-MM-DD
func FormatDateRange(start, end time.Time) string {
	return start.Format(dateLayout) + "-" + end.Format(dateLayout)
}

// ParseGap reads a backend date gap such as +3MONTH/MONTH into its amount
// and unit (GapMonth or GapYear).
func ParseGap(descriptor string) (amount int, unit string, ok bool) {
	m := gapRegex.FindStringSubmatch(descriptor)
	if m == nil {
		return 0, "", false
	}
	amount, err := strconv.Atoi(m[1])
	if err != nil || amount <= 0 {
		return 0, "", false
	}
	return amount, m[2], true
}

// ParseBucketDate parses the calendar date of a backend timestamp such as
// 2010-05-01T00:00:00Z.
func ParseBucketDate(value string) (time.Time, bool) {
	m := bucketDateRegex.FindStringSubmatch(value)
	if m == nil {
		return time.Time{}, false
	}
	return makeDate(m[1], m[2], m[3])
}

// HumanizeRange renders a backend range token as a display phrase
func HumanizeRange(token string) string {
	if m := lessThanRegex.FindStringSubmatch(token); m != nil {
		return "Less than " + m[1]
	}
	if m := boundedRegex.FindStringSubmatch(token); m != nil {
		return m[1] + " to " + m[2]
	}
	if m := andUpRegex.FindStringSubmatch(token); m != nil {
		return m[1] + " and up"
	}
	return token
}

// RangeLowerBound returns the numeric left bound of a range token, with the
// wildcard read as zero.
func RangeLowerBound(token string) (float64, bool) {
	inner := strings.TrimRight(strings.TrimLeft(token, "["), "]")
	parts := strings.Fields(inner)
	if len(parts) == 0 {
		return 0, false
	}
	bound := strings.ReplaceAll(parts[0], RangeWildcard, "0")
	v, err := strconv.ParseFloat(bound, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// EscapeQueryValue backslash-escapes the backend's special characters.
// Range tokens are returned untouched so their spaces and brackets survive.
func EscapeQueryValue(value string) string {
	if strings.Contains(value, "[") {
		return value
	}

	var b strings.Builder
	b.Grow(len(value) + 8)
	var prev rune
	for _, r := range value {
		if strings.ContainsRune(`&|+-!(){}[]^ "~*?:`, r) && prev != '\\' {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

// HumanizeField turns an index field name into a title, e.g. trip_style -> Trip Style
func HumanizeField(field string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(field, "_", " "))
}

func dateRange(start, end time.Time) string {
	return FormatRange(start.Format(dateLayout)+dayStartClock, end.Format(dateLayout)+dayEndClock)
}

func makeDate(year, month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (Feb 30 -> Mar 2); reject those
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, false
	}
	return t, true
}
