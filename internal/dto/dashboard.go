package dto

import (
	"github.com/noah-isme/sma-bulletin-core/internal/models"
	"github.com/noah-isme/sma-bulletin-core/internal/stats"
)

// Dashboard is the role-aware home payload. Exactly one of Staff and
// Student is set.
type Dashboard struct {
	Role           models.UserRole   `json:"role"`
	Date           string            `json:"date"`
	UnreadMessages int               `json:"unreadMessages"`
	UpcomingEvents []models.Event    `json:"upcomingEvents"`
	Staff          *StaffDashboard   `json:"staff,omitempty"`
	Student        *StudentDashboard `json:"student,omitempty"`
	Charts         DashboardCharts   `json:"charts"`
}

// StaffDashboard holds the school-wide cards shown to teachers and directors.
type StaffDashboard struct {
	StudentCount   int     `json:"studentCount"`
	TeacherCount   int     `json:"teacherCount"`
	PresentToday   int     `json:"presentToday"`
	AttendanceRate int     `json:"attendanceRate"`
	AverageGrade   float64 `json:"averageGrade"`
	GradeCount     int     `json:"gradeCount"`
}

// StudentDashboard holds the cards of one student, seen by the student or a parent.
type StudentDashboard struct {
	StudentID          string                     `json:"studentId"`
	StudentName        string                     `json:"studentName,omitempty"`
	Children           []ChildSummary             `json:"children,omitempty"`
	ChildClass         *models.ClassGroup         `json:"childClass,omitempty"`
	GradeCount         int                        `json:"gradeCount"`
	Average            float64                    `json:"average"`
	SubjectPerformance []stats.SubjectPerformance `json:"subjectPerformance"`
	PendingHomeworks   []models.Homework          `json:"pendingHomeworks"`
}

// ChildSummary identifies a parent's child.
type ChildSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	ClassID string `json:"classId"`
}

// DashboardCharts holds the chart series.
type DashboardCharts struct {
	WeeklyAttendance  []stats.DayAttendance      `json:"weeklyAttendance"`
	GradeDistribution []stats.DistributionBucket `json:"gradeDistribution"`
	SubjectAverages   []stats.SubjectAverage     `json:"subjectAverages"`
}
