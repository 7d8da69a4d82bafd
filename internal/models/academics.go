package models

import "time"

// ClassGroup groups students under a main teacher.
type ClassGroup struct {
	ID        string `json:"id" firestore:"-"`
	Name      string `json:"name" firestore:"name"`
	Grade     string `json:"grade" firestore:"grade"`
	TeacherID string `json:"teacherId" firestore:"teacherId"`
}

func (c ClassGroup) RecordID() string { return c.ID }
func (c *ClassGroup) SetID(id string) { c.ID = id }

// Course is a subject taught by one teacher to one class.
type Course struct {
	ID        string `json:"id" firestore:"-"`
	ClassID   string `json:"classId" firestore:"classId"`
	ClassName string `json:"className,omitempty" firestore:"className,omitempty"`
	TeacherID string `json:"teacherId" firestore:"teacherId"`
	Subject   string `json:"subject" firestore:"subject"`
	DayOfWeek int    `json:"dayOfWeek" firestore:"dayOfWeek"`
	StartTime string `json:"startTime" firestore:"startTime"`
	EndTime   string `json:"endTime,omitempty" firestore:"endTime,omitempty"`
	Room      string `json:"room,omitempty" firestore:"room,omitempty"`
}

func (c Course) RecordID() string { return c.ID }
func (c *Course) SetID(id string) { c.ID = id }

// AcademicPeriod is a trimester or semester of an academic year.
type AcademicPeriod struct {
	ID                  string `json:"id" firestore:"-"`
	Name                string `json:"name" firestore:"name"`
	AcademicYear        string `json:"academicYear" firestore:"academicYear"`
	StartDate           string `json:"startDate" firestore:"startDate"`
	EndDate             string `json:"endDate" firestore:"endDate"`
	GradeEntryStartDate string `json:"gradeEntryStartDate,omitempty" firestore:"gradeEntryStartDate,omitempty"`
	GradeEntryEndDate   string `json:"gradeEntryEndDate,omitempty" firestore:"gradeEntryEndDate,omitempty"`
	BulletinPublishDate string `json:"bulletinPublishDate,omitempty" firestore:"bulletinPublishDate,omitempty"`
	IsPublished         bool   `json:"isPublished" firestore:"isPublished"`
	Order               int    `json:"order" firestore:"order"`
}

func (p AcademicPeriod) RecordID() string { return p.ID }
func (p *AcademicPeriod) SetID(id string) { p.ID = id }

// Start returns the parsed start date.
func (p AcademicPeriod) Start() (time.Time, bool) {
	return ParseTime(p.StartDate)
}

// End returns the parsed end date, inclusive of the whole day when date-only.
func (p AcademicPeriod) End() (time.Time, bool) {
	return ParseEndTime(p.EndDate)
}

// Contains reports whether t lies within [start, end]. Periods with
// unparseable bounds contain nothing.
func (p AcademicPeriod) Contains(t time.Time) bool {
	start, ok := p.Start()
	if !ok {
		return false
	}
	end, ok := p.End()
	if !ok {
		return false
	}
	return !t.Before(start) && !t.After(end)
}

// GradeCategory is a grading category such as test or exam.
type GradeCategory struct {
	ID     string  `json:"id" firestore:"-"`
	Name   string  `json:"name" firestore:"name"`
	Code   string  `json:"code" firestore:"code"`
	Weight float64 `json:"weight" firestore:"weight"`
}

func (c GradeCategory) RecordID() string { return c.ID }
func (c *GradeCategory) SetID(id string) { c.ID = id }
