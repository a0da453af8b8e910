package blp

import (
	"strings"
	"time"
)

// ParseDate parses the date forms the tools accept: "today", YYYY-MM-DD and
// YYYYMMDD. An empty string is an error; callers decide their own defaults.
func ParseDate(s string, now time.Time) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return time.Time{}, validationErrorf("date is required")
	case "today":
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}

	for _, layout := range []string{time.DateOnly, "20060102"} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, validationErrorf("cannot parse date %q (use YYYY-MM-DD or \"today\")", s)
}

// sessionWindows maps the named trading sessions onto clock windows on the
// requested day. The Terminal owns the true exchange hours; these defaults
// follow US equity conventions and can be overridden per call via the
// kwargs start_time/end_time.
var sessionWindows = map[string][2]string{
	"allday": {"00:00", "23:59"},
	"day":    {"09:30", "16:30"},
	"am":     {"09:30", "12:00"},
	"pm":     {"13:00", "16:30"},
	"pre":    {"04:00", "09:30"},
	"post":   {"16:00", "20:00"},
}

// SessionNames lists the accepted trading session names.
func SessionNames() []string {
	return []string{"allday", "day", "am", "pm", "pre", "post"}
}

// SessionWindow resolves a named trading session to a start/end time on the
// given day.
func SessionWindow(day time.Time, session string) (start, end time.Time, err error) {
	w, ok := sessionWindows[strings.ToLower(strings.TrimSpace(session))]
	if !ok {
		return time.Time{}, time.Time{}, validationErrorf("unknown session %q (use one of %s)",
			session, strings.Join(SessionNames(), ", "))
	}
	start, err = atClock(day, w[0])
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err = atClock(day, w[1])
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// ParseTimeRange resolves an explicit "HH:MM-HH:MM" range on the given day,
// taking precedence over the named session when supplied.
func ParseTimeRange(day time.Time, rng string) (start, end time.Time, err error) {
	parts := strings.SplitN(rng, "-", 2)
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, validationErrorf("time range must be HH:MM-HH:MM, got %q", rng)
	}
	start, err = atClock(day, strings.TrimSpace(parts[0]))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err = atClock(day, strings.TrimSpace(parts[1]))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, validationErrorf("time range end must be after start")
	}
	return start, end, nil
}

// atClock combines a day with an HH:MM clock time.
func atClock(day time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, validationErrorf("cannot parse time %q (use HH:MM)", clock)
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}
