package store

import "github.com/noah-isme/sma-bulletin-core/internal/models"

// Users holds identity records.
type Users struct {
	Users *Collection[models.User]
}

// Academics holds the school structure.
type Academics struct {
	Classes    *Collection[models.ClassGroup]
	Courses    *Collection[models.Course]
	Periods    *Collection[models.AcademicPeriod]
	Categories *Collection[models.GradeCategory]
}

// Communication holds messages and calendar events.
type Communication struct {
	Messages *Collection[models.Message]
	Events   *Collection[models.Event]
}

// Performance holds grades, attendance, homeworks and teacher comments.
type Performance struct {
	Grades     *Collection[models.Grade]
	Attendance *Collection[models.Attendance]
	Homeworks  *Collection[models.Homework]
	Comments   *Collection[models.TeacherComment]
}

func newUsers() *Users {
	return &Users{Users: NewCollection[models.User](models.CollectionUsers)}
}

func newAcademics() *Academics {
	return &Academics{
		Classes:    NewCollection[models.ClassGroup](models.CollectionClasses),
		Courses:    NewCollection[models.Course](models.CollectionCourses),
		Periods:    NewCollection[models.AcademicPeriod](models.CollectionPeriods),
		Categories: NewCollection[models.GradeCategory](models.CollectionGradeCategories),
	}
}

func newCommunication() *Communication {
	return &Communication{
		Messages: NewCollection[models.Message](models.CollectionMessages),
		Events:   NewCollection[models.Event](models.CollectionEvents),
	}
}

func newPerformance() *Performance {
	return &Performance{
		Grades:     NewCollection[models.Grade](models.CollectionGrades),
		Attendance: NewCollection[models.Attendance](models.CollectionAttendance),
		Homeworks:  NewCollection[models.Homework](models.CollectionHomeworks),
		Comments:   NewCollection[models.TeacherComment](models.CollectionComments),
	}
}
