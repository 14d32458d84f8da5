package generation

// IsLeapYear implements the proleptic Gregorian rule: divisible by 4 and
// (not divisible by 100 or divisible by 400). Capacity factors divide by
// hours in the year, so an off-by-one day here silently skews every factor
// by ~0.27%.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// HoursInYear returns 8784 for leap years, 8760 otherwise.
func HoursInYear(year int) float64 {
	if IsLeapYear(year) {
		return 24 * 366
	}
	return 24 * 365
}
