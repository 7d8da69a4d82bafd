package stats

import (
	"time"

	"github.com/noah-isme/sma-bulletin-core/internal/models"
)

// DistributionBucket counts grades whose percentage lies in [Min, Max].
type DistributionBucket struct {
	Range string  `json:"range"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Color string  `json:"color"`
	Count int     `json:"count"`
}

// DayAttendance is one day of the weekly attendance series.
type DayAttendance struct {
	Date    string `json:"date"`
	Label   string `json:"label"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
}

// Buckets are checked in this order; the bounds are inclusive, so
// percentages between two buckets (89.5) or above 100 match none.
var distributionBuckets = [...]DistributionBucket{
	{Range: "Excellent (90-100)", Min: 90, Max: 100, Color: "#10B981"},
	{Range: "Bien (70-89)", Min: 70, Max: 89, Color: "#3B82F6"},
	{Range: "Moyen (50-69)", Min: 50, Max: 69, Color: "#F59E0B"},
	{Range: "Faible (<50)", Min: 0, Max: 49, Color: "#EF4444"},
}

var frenchWeekdays = [...]string{"dim.", "lun.", "mar.", "mer.", "jeu.", "ven.", "sam."}

// GradeDistribution assigns each grade to the first matching bucket.
func GradeDistribution(grades []models.Grade) []DistributionBucket {
	out := make([]DistributionBucket, len(distributionBuckets))
	copy(out, distributionBuckets[:])
	for _, g := range grades {
		pct := g.Percentage()
		for i := range out {
			if pct >= out[i].Min && pct <= out[i].Max {
				out[i].Count++
				break
			}
		}
	}
	return out
}

// WeeklyAttendance counts present and absent records on each of the seven
// calendar days ending with today. Late records are not counted.
func WeeklyAttendance(attendance []models.Attendance, today time.Time) []DayAttendance {
	days := make([]DayAttendance, 7)
	index := make(map[string]int, 7)
	for i := range days {
		d := today.AddDate(0, 0, i-6)
		key := models.DateKey(d)
		days[i] = DayAttendance{Date: key, Label: frenchWeekdays[d.Weekday()]}
		index[key] = i
	}
	for _, a := range attendance {
		i, ok := index[a.Date]
		if !ok {
			continue
		}
		switch a.Status {
		case models.AttendancePresent:
			days[i].Present++
		case models.AttendanceAbsent:
			days[i].Absent++
		}
	}
	return days
}

// TodayAttendance counts present records dated today and the rate against
// the number of enrolled students.
func TodayAttendance(attendance []models.Attendance, studentCount int, today time.Time) (present int, rate int) {
	key := models.DateKey(today)
	for _, a := range attendance {
		if a.Date == key && a.Status == models.AttendancePresent {
			present++
		}
	}
	if studentCount > 0 {
		rate = roundInt(float64(present) / float64(studentCount) * 100)
	}
	return present, rate
}
