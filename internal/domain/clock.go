package domain

import (
	"time"

	"github.com/maypok86/otter/v2"
)

// DayLayout is the layout of civil-day markers stored in UserState.
const DayLayout = "2006-01-02"

// Clock converts instants to user-local time and builds eating-window bounds.
// It performs no I/O beyond the one-time zone database lookup, whose result is cached.
type Clock struct {
	zones *otter.Cache[string, *time.Location]
}

// NewClock creates a Clock with a bounded zone cache.
func NewClock() *Clock {
	return &Clock{
		zones: otter.Must(&otter.Options[string, *time.Location]{
			MaximumSize: 1024,
		}),
	}
}

// Location resolves an IANA zone name.
func (c *Clock) Location(tz string) (*time.Location, error) {
	if loc, ok := c.zones.GetIfPresent(tz); ok {
		return loc, nil
	}
	// "" and "Local" resolve to process-dependent zones; neither is a user zone.
	if tz == "" || tz == "Local" {
		return nil, withValue(ErrInvalidTimezone, tz)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, withValue(ErrInvalidTimezone, tz)
	}
	c.zones.Set(tz, loc)
	return loc, nil
}

// Localize returns instant expressed in the zone tz.
func (c *Clock) Localize(instant time.Time, tz string) (time.Time, error) {
	loc, err := c.Location(tz)
	if err != nil {
		return time.Time{}, err
	}
	return instant.In(loc), nil
}

// WindowBounds returns the start and end instants of the eating window on the civil day
// given by date's year, month and day. Both ends belong to that same civil day.
// Civil date and time of day are combined through the zone rules, so a DST shift
// changes the UTC offset of the bounds rather than their wall-clock reading.
func (c *Clock) WindowBounds(date time.Time, startM, endM int, tz string) (time.Time, time.Time, error) {
	loc, err := c.Location(tz)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !validMinutes(startM) {
		return time.Time{}, time.Time{}, withValue(ErrInvalidTimeOfDay, FormatMinutes(startM))
	}
	if !validMinutes(endM) {
		return time.Time{}, time.Time{}, withValue(ErrInvalidTimeOfDay, FormatMinutes(endM))
	}
	return atMinutes(date, startM, loc), atMinutes(date, endM, loc), nil
}

// atMinutes builds the local instant mins after midnight on date's civil day.
func atMinutes(date time.Time, mins int, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, mins/60, mins%60, 0, 0, loc)
}

// nextMidnight returns the first instant of the civil day after local's.
func nextMidnight(local time.Time) time.Time {
	y, m, d := local.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, local.Location())
}

func validMinutes(mins int) bool {
	return mins >= 0 && mins <= 1439
}

// InWindow returns true if local time (minutes since midnight) is inside the same-day window [fromM, toM).
func InWindow(localM, fromM, toM int) bool {
	if fromM >= toM {
		return false
	}
	return localM >= fromM && localM < toM
}

// MinutesOfDay returns the minutes since local midnight of t.
func MinutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
