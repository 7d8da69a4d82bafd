package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/noah-isme/sma-bulletin-core/internal/models"
)

// Versions identifies one combination of collection snapshots. It is
// comparable and used as a memoization key.
type Versions struct {
	Users      uint64
	Classes    uint64
	Courses    uint64
	Periods    uint64
	Categories uint64
	Grades     uint64
	Attendance uint64
	Homeworks  uint64
	Comments   uint64
	Messages   uint64
	Events     uint64
}

// Of returns the version of the named collection, 0 for unknown names.
func (v Versions) Of(collection string) uint64 {
	switch collection {
	case models.CollectionUsers:
		return v.Users
	case models.CollectionClasses:
		return v.Classes
	case models.CollectionCourses:
		return v.Courses
	case models.CollectionPeriods:
		return v.Periods
	case models.CollectionGradeCategories:
		return v.Categories
	case models.CollectionGrades:
		return v.Grades
	case models.CollectionAttendance:
		return v.Attendance
	case models.CollectionHomeworks:
		return v.Homeworks
	case models.CollectionComments:
		return v.Comments
	case models.CollectionMessages:
		return v.Messages
	case models.CollectionEvents:
		return v.Events
	}
	return 0
}

// ReadModel composes the four slice stores of one workspace.
type ReadModel struct {
	id string

	Users         *Users
	Academics     *Academics
	Communication *Communication
	Performance   *Performance

	feeds map[string]Binding

	mu      sync.RWMutex
	covered []string
}

// NewReadModel returns an empty read model with a fresh id.
func NewReadModel() *ReadModel {
	m := &ReadModel{
		id:            uuid.NewString(),
		Users:         newUsers(),
		Academics:     newAcademics(),
		Communication: newCommunication(),
		Performance:   newPerformance(),
	}
	m.feeds = map[string]Binding{
		models.CollectionUsers:           NewFeed[models.User](m.Users.Users),
		models.CollectionClasses:         NewFeed[models.ClassGroup](m.Academics.Classes),
		models.CollectionCourses:         NewFeed[models.Course](m.Academics.Courses),
		models.CollectionPeriods:         NewFeed[models.AcademicPeriod](m.Academics.Periods),
		models.CollectionGradeCategories: NewFeed[models.GradeCategory](m.Academics.Categories),
		models.CollectionGrades:          NewFeed[models.Grade](m.Performance.Grades),
		models.CollectionAttendance:      NewFeed[models.Attendance](m.Performance.Attendance),
		models.CollectionHomeworks:       NewFeed[models.Homework](m.Performance.Homeworks),
		models.CollectionComments:        NewFeed[models.TeacherComment](m.Performance.Comments),
		models.CollectionMessages:        NewFeed[models.Message](m.Communication.Messages),
		models.CollectionEvents:          NewFeed[models.Event](m.Communication.Events),
	}
	return m
}

// ID identifies the read model instance.
func (m *ReadModel) ID() string { return m.id }

// Feed returns the binding of a collection.
func (m *ReadModel) Feed(collection string) (Binding, bool) {
	b, ok := m.feeds[collection]
	return b, ok
}

// Collections lists every collection name the read model holds.
func (m *ReadModel) Collections() []string {
	return []string{
		models.CollectionUsers, models.CollectionClasses, models.CollectionCourses,
		models.CollectionPeriods, models.CollectionGradeCategories, models.CollectionGrades,
		models.CollectionAttendance, models.CollectionHomeworks, models.CollectionComments,
		models.CollectionMessages, models.CollectionEvents,
	}
}

// Sources returns every collection as a change source.
func (m *ReadModel) Sources() []Source {
	return []Source{
		m.Users.Users,
		m.Academics.Classes, m.Academics.Courses, m.Academics.Periods, m.Academics.Categories,
		m.Performance.Grades, m.Performance.Attendance, m.Performance.Homeworks, m.Performance.Comments,
		m.Communication.Messages, m.Communication.Events,
	}
}

// SetCoveredPeriodIDs records the periods the grade and comment
// subscriptions are scoped to.
func (m *ReadModel) SetCoveredPeriodIDs(ids []string) {
	cp := append([]string(nil), ids...)
	m.mu.Lock()
	m.covered = cp
	m.mu.Unlock()
}

// CoveredPeriodIDs returns the periods the grade and comment snapshots cover.
func (m *ReadModel) CoveredPeriodIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.covered...)
}

// Versions returns the current version of every collection.
func (m *ReadModel) Versions() Versions {
	return Versions{
		Users:      m.Users.Users.Version(),
		Classes:    m.Academics.Classes.Version(),
		Courses:    m.Academics.Courses.Version(),
		Periods:    m.Academics.Periods.Version(),
		Categories: m.Academics.Categories.Version(),
		Grades:     m.Performance.Grades.Version(),
		Attendance: m.Performance.Attendance.Version(),
		Homeworks:  m.Performance.Homeworks.Version(),
		Comments:   m.Performance.Comments.Version(),
		Messages:   m.Communication.Messages.Version(),
		Events:     m.Communication.Events.Version(),
	}
}

// View captures the latest snapshot of every collection. Each collection is
// internally consistent; collections may be at different points in time.
func (m *ReadModel) View() View {
	users := m.Users.Users.Snapshot()
	classes := m.Academics.Classes.Snapshot()
	courses := m.Academics.Courses.Snapshot()
	periods := m.Academics.Periods.Snapshot()
	categories := m.Academics.Categories.Snapshot()
	grades := m.Performance.Grades.Snapshot()
	attendance := m.Performance.Attendance.Snapshot()
	homeworks := m.Performance.Homeworks.Snapshot()
	comments := m.Performance.Comments.Snapshot()
	messages := m.Communication.Messages.Snapshot()
	events := m.Communication.Events.Snapshot()

	return View{
		Users:      users.Items,
		Classes:    classes.Items,
		Courses:    courses.Items,
		Periods:    periods.Items,
		Categories: categories.Items,
		Grades:     grades.Items,
		Attendance: attendance.Items,
		Homeworks:  homeworks.Items,
		Comments:   comments.Items,
		Messages:   messages.Items,
		Events:     events.Items,
		Covered:    m.CoveredPeriodIDs(),
		Versions: Versions{
			Users: users.Version, Classes: classes.Version, Courses: courses.Version,
			Periods: periods.Version, Categories: categories.Version, Grades: grades.Version,
			Attendance: attendance.Version, Homeworks: homeworks.Version, Comments: comments.Version,
			Messages: messages.Version, Events: events.Version,
		},
	}
}
