package weather

// pointsPerDay is the number of 3-hour intervals in a day.
const pointsPerDay = 8

// maxDailyPoints bounds the daily strip; entry 0 (today) is skipped.
const maxDailyPoints = 5

// Daily picks one point per day from a 3-hourly series: every eighth point,
// skipping the first (it describes today), at most five days.
func (s ForecastSeries) Daily() ForecastSeries {
	var picked ForecastSeries
	for i := 0; i < len(s); i += pointsPerDay {
		picked = append(picked, s[i])
	}
	if len(picked) <= 1 {
		return ForecastSeries{}
	}
	picked = picked[1:]
	if len(picked) > maxDailyPoints {
		picked = picked[:maxDailyPoints]
	}
	return picked
}
