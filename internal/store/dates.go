package store

import "time"

// ParseBound reads a date range bound as a log timestamp or a plain date in
// local time. A plain date used as an upper bound covers the whole day. An
// empty bound is open.
func ParseBound(v string, upper bool) (time.Time, error) {
	if v == "" {
		if upper {
			return time.Date(9999, 12, 31, 23, 59, 59, 0, time.Local), nil
		}
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation(DateLayout, v, time.Local); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	if upper {
		t = t.AddDate(0, 0, 1).Add(-time.Second)
	}
	return t, nil
}
