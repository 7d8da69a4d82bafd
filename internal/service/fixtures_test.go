package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/noah-isme/sma-bulletin-core/internal/models"
	"github.com/noah-isme/sma-bulletin-core/internal/store"
)

var fixtureNow = time.Date(2024, 10, 15, 10, 0, 0, 0, time.UTC)

var (
	teacherSession  = models.Session{UserID: "t1", Name: "Mme Diallo", Role: models.RoleTeacher, ClassIDs: []string{"c1"}}
	directorSession = models.Session{UserID: "d1", Name: "M. Sow", Role: models.RoleDirector}
)

// schoolView is a class c1 with students s1, s2 and the teacher's courses
// k1, k2. In period p1, s1 is graded in k1 and k2, s2 in k1 only (its k2
// grade falls after the period). s1/k1 is validated, s1/k2 commented.
func schoolView() store.View {
	return store.View{
		Users: []models.User{
			{ID: "s1", Name: "Awa Ba", Role: models.RoleStudent, ClassID: "c1", ParentID: "pa1"},
			{ID: "s2", Name: "Moussa Fall", Role: models.RoleStudent, ClassID: "c1"},
			{ID: "s3", Name: "Ines Ndiaye", Role: models.RoleStudent, ClassID: "c2"},
			{ID: "t1", Name: "Mme Diallo", Role: models.RoleTeacher},
			{ID: "t2", Name: "M. Kane", Role: models.RoleTeacher},
			{ID: "pa1", Name: "Parent Ba", Role: models.RoleParent},
		},
		Classes: []models.ClassGroup{
			{ID: "c1", Name: "6e A", TeacherID: "t1"},
			{ID: "c2", Name: "5e B", TeacherID: "t2"},
		},
		Courses: []models.Course{
			{ID: "k1", ClassID: "c1", TeacherID: "t1", Subject: "Mathématiques"},
			{ID: "k2", ClassID: "c1", TeacherID: "t1", Subject: "Physique"},
			{ID: "k3", ClassID: "c1", TeacherID: "t2", Subject: "Anglais"},
			{ID: "k4", ClassID: "c2", TeacherID: "t2", Subject: "Anglais"},
		},
		Periods: []models.AcademicPeriod{
			{ID: "p1", Name: "Trimestre 1", AcademicYear: "2024-2025", StartDate: "2024-09-01", EndDate: "2024-12-20", Order: 1},
			{ID: "p2", Name: "Trimestre 2", AcademicYear: "2024-2025", StartDate: "2025-01-06", EndDate: "2025-03-28", Order: 2},
		},
		Grades: []models.Grade{
			{ID: "g1", StudentID: "s1", CourseID: "k1", Subject: "Mathématiques", Score: 16, MaxScore: 20, Date: "2024-10-01"},
			{ID: "g2", StudentID: "s1", CourseID: "k1", Subject: "Mathématiques", Score: 12, MaxScore: 20, Date: "2024-10-08"},
			{ID: "g3", StudentID: "s1", CourseID: "k2", Subject: "Physique", Score: 15, MaxScore: 20, Date: "2024-10-02"},
			{ID: "g4", StudentID: "s2", CourseID: "k1", Subject: "Mathématiques", Score: 9, MaxScore: 20, Date: "2024-10-03"},
			{ID: "g5", StudentID: "s2", CourseID: "k2", Subject: "Physique", Score: 11, MaxScore: 20, Date: "2025-01-10"},
			{ID: "g6", StudentID: "s1", CourseID: "k3", Subject: "Anglais", Score: 14, MaxScore: 20, Date: "2024-10-04"},
		},
		Comments: []models.TeacherComment{
			{ID: "cm1", TeacherID: "t1", StudentID: "s1", CourseID: "k1", PeriodID: "p1", Comment: "Très bien", IsValidated: true},
			{ID: "cm2", TeacherID: "t1", StudentID: "s1", CourseID: "k2", PeriodID: "p1", Comment: "Peut mieux faire"},
		},
		Covered:  []string{"p1", "p2"},
		Versions: loadedVersions(),
	}
}

func loadedVersions() store.Versions {
	return store.Versions{
		Users: 1, Classes: 1, Courses: 1, Periods: 1, Categories: 1, Grades: 1,
		Attendance: 1, Homeworks: 1, Comments: 1, Messages: 1, Events: 1,
	}
}

type fakeCommentWriter struct {
	mu          sync.Mutex
	created     []models.TeacherComment
	batches     int
	validated   []string
	texts       map[string]string
	createErr   error
	batchErr    error
	validateErr map[string]error
}

func (w *fakeCommentWriter) Create(_ context.Context, c models.TeacherComment) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.createErr != nil {
		return "", w.createErr
	}
	c.ID = fmt.Sprintf("new%d", len(w.created)+1)
	w.created = append(w.created, c)
	return c.ID, nil
}

func (w *fakeCommentWriter) BatchCreate(_ context.Context, comments []models.TeacherComment) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches++
	if w.batchErr != nil {
		return w.batchErr
	}
	for _, c := range comments {
		c.ID = fmt.Sprintf("new%d", len(w.created)+1)
		w.created = append(w.created, c)
	}
	return nil
}

func (w *fakeCommentWriter) UpdateText(_ context.Context, id, text, _ string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.texts == nil {
		w.texts = make(map[string]string)
	}
	w.texts[id] = text
	return nil
}

func (w *fakeCommentWriter) Validate(_ context.Context, id, _ string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.validated = append(w.validated, id)
	return w.validateErr[id]
}

func (w *fakeCommentWriter) writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.created) + len(w.validated) + len(w.texts)
}

// apply returns the comments as the store would deliver them after the writes.
func (w *fakeCommentWriter) apply(comments []models.TeacherComment) []models.TeacherComment {
	w.mu.Lock()
	defer w.mu.Unlock()
	validated := make(map[string]bool, len(w.validated))
	for _, id := range w.validated {
		if w.validateErr[id] == nil {
			validated[id] = true
		}
	}
	out := make([]models.TeacherComment, 0, len(comments)+len(w.created))
	for _, c := range comments {
		if validated[c.ID] {
			c.IsValidated = true
		}
		out = append(out, c)
	}
	return append(out, w.created...)
}

type fakeAuditRecorder struct {
	mu     sync.Mutex
	audits []models.ValidationAudit
	err    error
}

func (r *fakeAuditRecorder) Insert(_ context.Context, audit *models.ValidationAudit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audits = append(r.audits, *audit)
	return r.err
}

type fakePeriodWriter struct {
	calls []string
	err   error
}

func (w *fakePeriodWriter) SetPublished(_ context.Context, id string, published bool, date string) error {
	w.calls = append(w.calls, fmt.Sprintf("%s:%t:%s", id, published, date))
	return w.err
}

type fakeGradeWriter struct {
	created []models.Grade
	updates map[string]models.GradeUpdate
	err     error
}

func (w *fakeGradeWriter) Create(_ context.Context, g models.Grade) (string, error) {
	if w.err != nil {
		return "", w.err
	}
	w.created = append(w.created, g)
	return fmt.Sprintf("grade%d", len(w.created)), nil
}

func (w *fakeGradeWriter) Update(_ context.Context, id string, u models.GradeUpdate) error {
	if w.err != nil {
		return w.err
	}
	if w.updates == nil {
		w.updates = make(map[string]models.GradeUpdate)
	}
	w.updates[id] = u
	return nil
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }
