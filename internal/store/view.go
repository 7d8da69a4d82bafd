package store

import "github.com/noah-isme/sma-bulletin-core/internal/models"

// View is a bundle of snapshots read together. Derivations take a View so
// they stay independent of how the snapshots were scoped upstream.
type View struct {
	Users      []models.User
	Classes    []models.ClassGroup
	Courses    []models.Course
	Periods    []models.AcademicPeriod
	Categories []models.GradeCategory
	Grades     []models.Grade
	Attendance []models.Attendance
	Homeworks  []models.Homework
	Comments   []models.TeacherComment
	Messages   []models.Message
	Events     []models.Event

	// Covered lists the periods the grade and comment snapshots are scoped to.
	Covered  []string
	Versions Versions
}

// Students returns users with the student role.
func (v View) Students() []models.User {
	return v.usersWithRole(models.RoleStudent)
}

// Teachers returns users with the teacher role.
func (v View) Teachers() []models.User {
	return v.usersWithRole(models.RoleTeacher)
}

func (v View) usersWithRole(role models.UserRole) []models.User {
	out := make([]models.User, 0)
	for _, u := range v.Users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out
}

// ClassStudents returns the students of a class.
func (v View) ClassStudents(classID string) []models.User {
	out := make([]models.User, 0)
	for _, u := range v.Users {
		if u.Role == models.RoleStudent && u.ClassID == classID {
			out = append(out, u)
		}
	}
	return out
}

// User looks a user up by id.
func (v View) User(id string) (models.User, bool) {
	for _, u := range v.Users {
		if u.ID == id {
			return u, true
		}
	}
	return models.User{}, false
}

// Student looks a student up by id.
func (v View) Student(id string) (models.User, bool) {
	u, ok := v.User(id)
	if !ok || u.Role != models.RoleStudent {
		return models.User{}, false
	}
	return u, true
}

// Class looks a class up by id.
func (v View) Class(id string) (models.ClassGroup, bool) {
	for _, c := range v.Classes {
		if c.ID == id {
			return c, true
		}
	}
	return models.ClassGroup{}, false
}

// Course looks a course up by id.
func (v View) Course(id string) (models.Course, bool) {
	for _, c := range v.Courses {
		if c.ID == id {
			return c, true
		}
	}
	return models.Course{}, false
}

// Period looks a period up by id.
func (v View) Period(id string) (models.AcademicPeriod, bool) {
	for _, p := range v.Periods {
		if p.ID == id {
			return p, true
		}
	}
	return models.AcademicPeriod{}, false
}

// Grade looks a grade up by id.
func (v View) Grade(id string) (models.Grade, bool) {
	for _, g := range v.Grades {
		if g.ID == id {
			return g, true
		}
	}
	return models.Grade{}, false
}

// Comment returns the first comment for the (student, course, period) triple.
func (v View) Comment(studentID, courseID, periodID string) (models.TeacherComment, bool) {
	for _, c := range v.Comments {
		if c.StudentID == studentID && c.CourseID == courseID && c.PeriodID == periodID {
			return c, true
		}
	}
	return models.TeacherComment{}, false
}

// CommentByID looks a comment up by id.
func (v View) CommentByID(id string) (models.TeacherComment, bool) {
	for _, c := range v.Comments {
		if c.ID == id {
			return c, true
		}
	}
	return models.TeacherComment{}, false
}

// Loaded reports whether every named collection has received at least one
// snapshot. An unknown name counts as not loaded.
func (v View) Loaded(collections ...string) bool {
	for _, name := range collections {
		if v.Versions.Of(name) == 0 {
			return false
		}
	}
	return true
}

// Covers reports whether the grade and comment snapshots include periodID.
func (v View) Covers(periodID string) bool {
	for _, id := range v.Covered {
		if id == periodID {
			return true
		}
	}
	return false
}
