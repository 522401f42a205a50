package alert

import (
	"fmt"
	"math"
	"time"
)

const (
	// julianUnixEpoch is the Julian Date of 1970-01-01T00:00:00 UTC.
	julianUnixEpoch = 2440587.5
	secondsPerDay   = 86400

	// ISOLayout matches the calendar form used in the partition logs.
	ISOLayout = "2006-01-02 15:04:05.000"
)

var (
	minJD = julianUnixEpoch + float64(time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC).Unix())/secondsPerDay
	maxJD = julianUnixEpoch + float64(time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC).Unix())/secondsPerDay
)

// JDToTime converts a Julian Date on the UTC scale to a time rounded to the millisecond.
func JDToTime(jd float64) (time.Time, error) {
	if math.IsNaN(jd) || math.IsInf(jd, 0) {
		return time.Time{}, fmt.Errorf("julian date %v is not finite", jd)
	}
	if jd < minJD || jd > maxJD {
		return time.Time{}, fmt.Errorf("julian date %v is outside the supported calendar range", jd)
	}

	// Split whole days from the fraction so large JDs keep sub-second precision.
	days := jd - julianUnixEpoch
	whole := math.Floor(days)
	ms := math.Round((days - whole) * secondsPerDay * 1000)

	t := time.Unix(int64(whole)*secondsPerDay, 0).UTC()
	return t.Add(time.Duration(ms) * time.Millisecond), nil
}

// JDToISO converts a Julian Date to "YYYY-MM-DD HH:MM:SS.sss".
func JDToISO(jd float64) (string, error) {
	t, err := JDToTime(jd)
	if err != nil {
		return "", err
	}
	return t.Format(ISOLayout), nil
}
