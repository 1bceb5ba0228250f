package models

import "time"

// Entity durations are expressed in fractional hours; runtime measurements
// use time.Duration and milliseconds. These helpers convert at the boundary.

// HoursToDuration converts fractional hours to a time.Duration.
func HoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}

// DurationToHours converts a time.Duration to fractional hours.
func DurationToHours(d time.Duration) float64 {
	return d.Hours()
}
