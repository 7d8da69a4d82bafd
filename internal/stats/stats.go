// Package stats derives grade and attendance statistics from record
// snapshots. Every function is pure, total over empty input and runs in a
// single pass over its records.
//
// Two rounding conventions coexist on purpose: summary figures for a single
// student (StudentAverage, AttendanceRate, StudentSummary) round to the nearest
// integer, dashboard figures (SubjectPerformance, DecimalAverage,
// PositiveScoreAverage) keep one decimal.
package stats

import (
	"math"

	"github.com/noah-isme/sma-bulletin-core/internal/models"
)

// SubjectPerformance is the mean percentage of one subject.
type SubjectPerformance struct {
	Subject string  `json:"subject"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// SubjectAverage is a class-wide subject mean rounded to an integer.
type SubjectAverage struct {
	Subject string `json:"subject"`
	Average int    `json:"average"`
}

// StudentSummary groups the integer-rounded figures shown for one student.
type StudentSummary struct {
	AverageGrade       int                  `json:"avgGrade"`
	AttendanceRate     int                  `json:"attendanceRate"`
	TotalGrades        int                  `json:"totalGrades"`
	SubjectPerformance []SubjectPerformance `json:"subjectPerformance"`
}

// StudentAverage is the nearest-integer mean percentage of the student's grades.
func StudentAverage(grades []models.Grade, studentID string) int {
	var sum float64
	var n int
	for _, g := range grades {
		if g.StudentID == studentID {
			sum += g.Percentage()
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return roundInt(sum / float64(n))
}

// AttendanceRate is the nearest-integer share of the student's records marked present.
func AttendanceRate(attendance []models.Attendance, studentID string) int {
	var present, total int
	for _, a := range attendance {
		if a.StudentID != studentID {
			continue
		}
		total++
		if a.Status == models.AttendancePresent {
			present++
		}
	}
	if total == 0 {
		return 0
	}
	return roundInt(float64(present) / float64(total) * 100)
}

// SubjectPerformanceFor groups the student's grades by subject, in order of
// first appearance, with one-decimal averages.
func SubjectPerformanceFor(grades []models.Grade, studentID string) []SubjectPerformance {
	groups := groupBySubject(grades, func(g models.Grade) bool { return g.StudentID == studentID })
	out := make([]SubjectPerformance, len(groups))
	for i, acc := range groups {
		out[i] = SubjectPerformance{Subject: acc.subject, Average: RoundOneDecimal(acc.mean()), Count: acc.count}
	}
	return out
}

// SubjectAverageAcrossClass groups every grade by subject with integer averages.
func SubjectAverageAcrossClass(grades []models.Grade) []SubjectAverage {
	groups := groupBySubject(grades, nil)
	out := make([]SubjectAverage, len(groups))
	for i, acc := range groups {
		out[i] = SubjectAverage{Subject: acc.subject, Average: roundInt(acc.mean())}
	}
	return out
}

// StudentSummaryFor computes the integer-rounded summary of one student.
func StudentSummaryFor(grades []models.Grade, attendance []models.Attendance, studentID string) StudentSummary {
	groups := groupBySubject(grades, func(g models.Grade) bool { return g.StudentID == studentID })

	var sum float64
	var total int
	perf := make([]SubjectPerformance, len(groups))
	for i, acc := range groups {
		sum += acc.sum
		total += acc.count
		perf[i] = SubjectPerformance{Subject: acc.subject, Average: float64(roundInt(acc.mean())), Count: acc.count}
	}

	avg := 0
	if total > 0 {
		avg = roundInt(sum / float64(total))
	}
	return StudentSummary{
		AverageGrade:       avg,
		AttendanceRate:     AttendanceRate(attendance, studentID),
		TotalGrades:        total,
		SubjectPerformance: perf,
	}
}

// DecimalAverage is the one-decimal mean percentage of the given grades.
func DecimalAverage(grades []models.Grade) float64 {
	if len(grades) == 0 {
		return 0
	}
	var sum float64
	for _, g := range grades {
		sum += g.Percentage()
	}
	return RoundOneDecimal(sum / float64(len(grades)))
}

// PositiveScoreAverage is DecimalAverage restricted to grades with a score
// above zero, the school-wide figure shown to staff.
func PositiveScoreAverage(grades []models.Grade) float64 {
	var sum float64
	var n int
	for _, g := range grades {
		if g.Score > 0 {
			sum += g.Percentage()
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return RoundOneDecimal(sum / float64(n))
}

type subjectAcc struct {
	subject string
	sum     float64
	count   int
}

func (a subjectAcc) mean() float64 {
	if a.count == 0 {
		return 0
	}
	return a.sum / float64(a.count)
}

func groupBySubject(grades []models.Grade, keep func(models.Grade) bool) []subjectAcc {
	index := make(map[string]int)
	var groups []subjectAcc
	for _, g := range grades {
		if keep != nil && !keep(g) {
			continue
		}
		i, ok := index[g.Subject]
		if !ok {
			i = len(groups)
			index[g.Subject] = i
			groups = append(groups, subjectAcc{subject: g.Subject})
		}
		groups[i].sum += g.Percentage()
		groups[i].count++
	}
	return groups
}

func roundInt(v float64) int {
	return int(math.Round(v))
}

// RoundOneDecimal rounds half away from zero to one decimal place.
func RoundOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}
