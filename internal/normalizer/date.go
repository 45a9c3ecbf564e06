package normalizer

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"bank-ledger-reconciler/pkg/errors"
)

// DefaultLocation is the timezone documents are issued in
const DefaultLocation = "America/Costa_Rica"

// monthAbbrev maps the first three letters of a Spanish or English month
// name to its number. Full names ("setiembre", "diciembre") resolve through
// their three-letter prefix.
var monthAbbrev = map[string]time.Month{
	"ENE": time.January, "JAN": time.January,
	"FEB": time.February,
	"MAR": time.March,
	"ABR": time.April, "APR": time.April,
	"MAY": time.May,
	"JUN": time.June,
	"JUL": time.July,
	"AGO": time.August, "AUG": time.August,
	"SET": time.September, "SEP": time.September,
	"OCT": time.October,
	"NOV": time.November,
	"DIC": time.December, "DEC": time.December,
}

const timePattern = `(\d{1,2}):(\d{2})(?::(\d{2}))?\s*([aApP]\.?\s?[mM]\.?)?`

var (
	isoDatePattern     = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})(?:[T ]` + timePattern + `)?$`)
	numericDatePattern = regexp.MustCompile(`^(\d{1,2})[/\-](\d{1,2})[/\-](\d{4}|\d{2})(?:,?\s+` + timePattern + `)?$`)
	dayMonthPattern    = regexp.MustCompile(`(?i)^(\d{1,2})(?:\s+de\s+|[\s\-/]+)([A-Za-z]{3,10})\.?(?:\s+de\s+|\s+del\s+|[\s\-/,]+)(\d{4})(?:,?\s+` + timePattern + `)?$`)
	monthDayPattern    = regexp.MustCompile(`^([A-Za-z]{3,10})\.?\s+(\d{1,2}),?\s+(\d{4})(?:,?\s+` + timePattern + `)?$`)
	shortDatePattern   = regexp.MustCompile(`^([A-Za-z]{3})/(\d{2})$`)
)

// DateParser parses date tokens in a fixed location
type DateParser struct {
	Location *time.Location
}

// NewDateParser loads the named location, falling back to UTC when the
// tz database is unavailable.
func NewDateParser(location string) *DateParser {
	if location == "" {
		location = DefaultLocation
	}
	loc, err := time.LoadLocation(location)
	if err != nil {
		loc = time.UTC
	}
	return &DateParser{Location: loc}
}

func (p *DateParser) location() *time.Location {
	if p == nil || p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// ParseDate parses a date from the closed set of supported formats.
// Anything else fails with UnrecognizedDateFormat.
func (p *DateParser) ParseDate(token string) (time.Time, error) {
	s := strings.Join(strings.Fields(token), " ")

	var year, day int
	var month time.Month
	var clock []string

	if m := isoDatePattern.FindStringSubmatch(s); m != nil {
		year, _ = strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		month = time.Month(mo)
		day, _ = strconv.Atoi(m[3])
		clock = m[4:]
	} else if m := numericDatePattern.FindStringSubmatch(s); m != nil {
		day, _ = strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		month = time.Month(mo)
		year, _ = strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
		clock = m[4:]
	} else if m := dayMonthPattern.FindStringSubmatch(s); m != nil {
		var ok bool
		if month, ok = LookupMonth(m[2]); !ok {
			return time.Time{}, errors.DateError(token)
		}
		day, _ = strconv.Atoi(m[1])
		year, _ = strconv.Atoi(m[3])
		clock = m[4:]
	} else if m := monthDayPattern.FindStringSubmatch(s); m != nil {
		var ok bool
		if month, ok = LookupMonth(m[1]); !ok {
			return time.Time{}, errors.DateError(token)
		}
		day, _ = strconv.Atoi(m[2])
		year, _ = strconv.Atoi(m[3])
		clock = m[4:]
	} else {
		return time.Time{}, errors.DateError(token)
	}

	hour, minute, second, err := parseClock(clock)
	if err != nil {
		return time.Time{}, errors.DateError(token)
	}

	t, ok := buildDate(year, month, day, hour, minute, second, p.location())
	if !ok {
		return time.Time{}, errors.DateError(token)
	}
	return t, nil
}

// ParseShortDate parses a "MON/DD" statement token. The year comes from the
// cutoff date; a month later than the cutoff month belongs to the previous
// year.
func (p *DateParser) ParseShortDate(token string, cutoff time.Time) (time.Time, error) {
	m := shortDatePattern.FindStringSubmatch(strings.TrimSpace(token))
	if m == nil {
		return time.Time{}, errors.DateError(token)
	}
	month, ok := LookupMonth(m[1])
	if !ok {
		return time.Time{}, errors.DateError(token)
	}
	day, _ := strconv.Atoi(m[2])

	t, ok := buildDate(InferYear(month, cutoff), month, day, 0, 0, 0, p.location())
	if !ok {
		return time.Time{}, errors.DateError(token)
	}
	return t, nil
}

// InferYear applies the statement rollover rule
func InferYear(month time.Month, cutoff time.Time) int {
	if month > cutoff.Month() {
		return cutoff.Year() - 1
	}
	return cutoff.Year()
}

// LookupMonth resolves a Spanish or English month name or abbreviation
func LookupMonth(name string) (time.Month, bool) {
	name = strings.ToUpper(strings.TrimSuffix(strings.TrimSpace(name), "."))
	if len(name) < 3 {
		return 0, false
	}
	month, ok := monthAbbrev[name[:3]]
	return month, ok
}

func parseClock(parts []string) (int, int, int, error) {
	if len(parts) < 4 || parts[0] == "" {
		return 0, 0, 0, nil
	}
	hour, _ := strconv.Atoi(parts[0])
	minute, _ := strconv.Atoi(parts[1])
	second := 0
	if parts[2] != "" {
		second, _ = strconv.Atoi(parts[2])
	}

	if meridiem := strings.ToLower(strings.NewReplacer(".", "", " ", "").Replace(parts[3])); meridiem != "" {
		if hour < 1 || hour > 12 {
			return 0, 0, 0, errors.DateError(parts[0])
		}
		if meridiem == "pm" && hour != 12 {
			hour += 12
		}
		if meridiem == "am" && hour == 12 {
			hour = 0
		}
	}

	if hour > 23 || minute > 59 || second > 59 {
		return 0, 0, 0, errors.DateError(parts[0])
	}
	return hour, minute, second, nil
}

// buildDate rejects dates that time.Date would normalize, such as 31/02.
func buildDate(year int, month time.Month, day, hour, minute, second int, loc *time.Location) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, hour, minute, second, 0, loc)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}
