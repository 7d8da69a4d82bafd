package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-bulletin-core/internal/dto"
	"github.com/noah-isme/sma-bulletin-core/internal/models"
	"github.com/noah-isme/sma-bulletin-core/internal/stats"
	"github.com/noah-isme/sma-bulletin-core/internal/store"
	appErrors "github.com/noah-isme/sma-bulletin-core/pkg/errors"
)

// Bulk validation scopes recorded in metrics and audit rows.
const (
	ValidationScopeClass   = "class"
	ValidationScopeStudent = "student"
)

// CommentWriter persists teacher comments.
type CommentWriter interface {
	Create(ctx context.Context, comment models.TeacherComment) (string, error)
	BatchCreate(ctx context.Context, comments []models.TeacherComment) error
	UpdateText(ctx context.Context, id, text, updatedAt string) error
	Validate(ctx context.Context, id, validatedAt string) error
}

// AuditRecorder stores one row per bulk validation.
type AuditRecorder interface {
	Insert(ctx context.Context, audit *models.ValidationAudit) error
}

// BulletinServiceConfig tunes bulk validation.
type BulletinServiceConfig struct {
	UpdateConcurrency int
}

// BulletinServiceParams groups constructor dependencies.
type BulletinServiceParams struct {
	Comments  CommentWriter
	Audit     AuditRecorder
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Config    BulletinServiceConfig
}

// BulletinService drives the comment and validation workflow of period
// bulletins. Reads take a store.View; writes go through the comment writer.
type BulletinService struct {
	comments  CommentWriter
	audit     AuditRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       BulletinServiceConfig
}

// NewBulletinService constructs the service.
func NewBulletinService(params BulletinServiceParams) *BulletinService {
	cfg := params.Config
	if cfg.UpdateConcurrency <= 0 {
		cfg.UpdateConcurrency = 8
	}
	v := params.Validator
	if v == nil {
		v = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulletinService{
		comments:  params.Comments,
		audit:     params.Audit,
		metrics:   params.Metrics,
		validator: v,
		logger:    logger,
		cfg:       cfg,
	}
}

type pairKey struct {
	studentID string
	courseID  string
}

// activePairs collects, in one pass over the grades, the (student, course)
// pairs graded within the period's date range.
func activePairs(grades []models.Grade, p models.AcademicPeriod) map[pairKey]int {
	active := make(map[pairKey]int)
	for _, g := range grades {
		if g.CourseID == "" {
			continue
		}
		t, ok := models.ParseTime(g.Date)
		if !ok || !p.Contains(t) {
			continue
		}
		active[pairKey{g.StudentID, g.CourseID}]++
	}
	return active
}

// commentIndex maps each triple of the period to its first comment.
func commentIndex(comments []models.TeacherComment, periodID string) map[pairKey]models.TeacherComment {
	idx := make(map[pairKey]models.TeacherComment)
	for _, c := range comments {
		if c.PeriodID != periodID {
			continue
		}
		key := pairKey{c.StudentID, c.CourseID}
		if _, seen := idx[key]; !seen {
			idx[key] = c
		}
	}
	return idx
}

// teacherCourses filters courses by teacher and class; an empty id matches any.
func teacherCourses(courses []models.Course, teacherID, classID string) []models.Course {
	out := make([]models.Course, 0)
	for _, c := range courses {
		if classID != "" && c.ClassID != classID {
			continue
		}
		if teacherID != "" && c.TeacherID != teacherID {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ValidationAllowed reports whether bulletin validation is open for the
// period at now, and from which date it opens otherwise.
func ValidationAllowed(p models.AcademicPeriod, now time.Time) (bool, string) {
	start, ok := p.Start()
	if !ok {
		return false, p.StartDate
	}
	if now.Before(start) {
		return false, models.DateKey(start)
	}
	return true, ""
}

// bulletinInputs are the snapshots every bulletin write decides on.
var bulletinInputs = []string{
	models.CollectionUsers, models.CollectionCourses, models.CollectionPeriods,
	models.CollectionGrades, models.CollectionComments,
}

// requireLoaded refuses writes planned on a collection that has not received
// its first snapshot: an empty list there means "unknown", not "none".
func requireLoaded(view store.View, collections ...string) error {
	if !view.Loaded(collections...) {
		return appErrors.Clone(appErrors.ErrNotReady, "workspace is still loading, retry shortly")
	}
	return nil
}

func gateError(p models.AcademicPeriod, now time.Time) error {
	if ok, opensOn := ValidationAllowed(p, now); !ok {
		return appErrors.Clone(appErrors.ErrValidationNotOpen, "bulletin validation opens on "+opensOn)
	}
	return nil
}

// TeacherClasses returns the classes where the teacher has at least one course, sorted by name.
func (s *BulletinService) TeacherClasses(view store.View, teacherID string) []models.ClassGroup {
	ids := make(map[string]struct{})
	for _, c := range view.Courses {
		if c.TeacherID == teacherID {
			ids[c.ClassID] = struct{}{}
		}
	}
	out := make([]models.ClassGroup, 0, len(ids))
	for _, cls := range view.Classes {
		if _, ok := ids[cls.ID]; ok {
			out = append(out, cls)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ClassesFor lists the classes the session validates bulletins for: every
// class for management, the classes of their courses for teachers.
func (s *BulletinService) ClassesFor(view store.View, session models.Session) []models.ClassGroup {
	if !session.Role.IsManagement() {
		return s.TeacherClasses(view, session.UserID)
	}
	out := append([]models.ClassGroup(nil), view.Classes...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ClassValidationStats counts the active (student, course) pairs of a class
// for the teacher's courses, and how many carry a validated comment. An empty
// teacherID counts every course of the class.
func (s *BulletinService) ClassValidationStats(view store.View, teacherID, classID, periodID string) dto.ClassValidationStats {
	result := dto.ClassValidationStats{ClassID: classID, PeriodID: periodID}
	p, ok := view.Period(periodID)
	if !ok {
		return result
	}

	active := activePairs(view.Grades, p)
	comments := commentIndex(view.Comments, periodID)
	courses := teacherCourses(view.Courses, teacherID, classID)

	for _, student := range view.ClassStudents(classID) {
		for _, course := range courses {
			key := pairKey{student.ID, course.ID}
			if active[key] == 0 {
				continue
			}
			result.Total++
			if c, ok := comments[key]; ok && c.IsValidated {
				result.Validated++
			}
		}
	}
	return result
}

// TripleState derives the validation state of one (student, course, period) triple.
func (s *BulletinService) TripleState(view store.View, studentID, courseID, periodID string) dto.TripleState {
	p, ok := view.Period(periodID)
	if !ok {
		return dto.StateNoActivity
	}
	if activePairs(view.Grades, p)[pairKey{studentID, courseID}] == 0 {
		return dto.StateNoActivity
	}
	return stateOf(view.Comment(studentID, courseID, periodID))
}

func stateOf(c models.TeacherComment, exists bool) dto.TripleState {
	switch {
	case !exists:
		return dto.StateUncommented
	case c.IsValidated:
		return dto.StateValidated
	default:
		return dto.StateCommentedUnvalidated
	}
}

// StudentCourseAverages builds a student's bulletin lines for the teacher's
// courses in any class, so a student who changed class keeps the lines of
// the former one. Only courses with an in-period grade are listed; averages
// are mean raw scores.
func (s *BulletinService) StudentCourseAverages(view store.View, teacherID, studentID, periodID string, now time.Time) dto.StudentBulletin {
	result := dto.StudentBulletin{StudentID: studentID, PeriodID: periodID, Courses: []dto.CourseAverage{}}
	student, ok := view.Student(studentID)
	if !ok {
		return result
	}
	result.StudentName = student.Name
	p, ok := view.Period(periodID)
	if !ok {
		return result
	}
	result.ValidationAllowed, result.ValidationOpensOn = ValidationAllowed(p, now)

	type acc struct {
		sum   float64
		count int
	}
	byCourse := make(map[string]*acc)
	for _, g := range view.Grades {
		if g.StudentID != studentID || g.CourseID == "" {
			continue
		}
		t, ok := models.ParseTime(g.Date)
		if !ok || !p.Contains(t) {
			continue
		}
		a := byCourse[g.CourseID]
		if a == nil {
			a = &acc{}
			byCourse[g.CourseID] = a
		}
		a.sum += g.Score
		a.count++
	}
	comments := commentIndex(view.Comments, periodID)

	var total float64
	for _, course := range teacherCourses(view.Courses, teacherID, "") {
		a := byCourse[course.ID]
		if a == nil {
			continue
		}
		line := dto.CourseAverage{
			Course:     course,
			GradeCount: a.count,
			Average:    stats.RoundOneDecimal(a.sum / float64(a.count)),
		}
		c, exists := comments[pairKey{studentID, course.ID}]
		if exists {
			cc := c
			line.ExistingComment = &cc
		}
		line.State = stateOf(c, exists)
		total += line.Average
		result.Courses = append(result.Courses, line)
	}
	if len(result.Courses) > 0 {
		result.OverallAverage = stats.RoundOneDecimal(total / float64(len(result.Courses)))
	}
	return result
}

// SaveComment creates the comment of a triple or edits its text. Editing
// clears validation; a validated comment cannot be edited. Unknown student,
// course or period make the call a no-op.
func (s *BulletinService) SaveComment(ctx context.Context, view store.View, session models.Session, req dto.SaveCommentRequest, now time.Time) (dto.SaveCommentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SaveCommentResult{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment payload")
	}
	if err := requireLoaded(view, bulletinInputs...); err != nil {
		return dto.SaveCommentResult{}, err
	}
	skipped := dto.SaveCommentResult{Action: dto.CommentActionSkipped}

	student, ok := view.Student(req.StudentID)
	if !ok {
		return skipped, nil
	}
	course, ok := view.Course(req.CourseID)
	if !ok {
		return skipped, nil
	}
	p, ok := view.Period(req.PeriodID)
	if !ok {
		return skipped, nil
	}
	if err := s.authorizeCourse(session, course); err != nil {
		return dto.SaveCommentResult{}, err
	}
	if !view.Covers(p.ID) {
		return dto.SaveCommentResult{}, appErrors.Clone(appErrors.ErrPreconditionFailed, "period is outside the loaded academic year")
	}

	stamp := models.FormatTimestamp(now)
	existing, exists := view.Comment(student.ID, course.ID, p.ID)
	if exists {
		if existing.IsValidated {
			return dto.SaveCommentResult{}, appErrors.ErrCommentValidated
		}
		if req.Comment == nil {
			return dto.SaveCommentResult{Action: dto.CommentActionUnchanged, CommentID: existing.ID}, nil
		}
		text := strings.TrimSpace(*req.Comment)
		if text == "" {
			return dto.SaveCommentResult{}, appErrors.Clone(appErrors.ErrValidation, "comment text is required")
		}
		if text == existing.Comment {
			return dto.SaveCommentResult{Action: dto.CommentActionUnchanged, CommentID: existing.ID}, nil
		}
		if err := s.comments.UpdateText(ctx, existing.ID, text, stamp); err != nil {
			return dto.SaveCommentResult{}, err
		}
		return dto.SaveCommentResult{Action: dto.CommentActionUpdated, CommentID: existing.ID}, nil
	}

	if req.Comment == nil || strings.TrimSpace(*req.Comment) == "" {
		return dto.SaveCommentResult{}, appErrors.Clone(appErrors.ErrValidation, "comment text is required")
	}
	comment := newComment(view, session, student, course, p, strings.TrimSpace(*req.Comment), stamp)
	id, err := s.comments.Create(ctx, comment)
	if err != nil {
		return dto.SaveCommentResult{}, err
	}
	s.logger.Info("teacher comment created",
		zap.String("student_id", student.ID),
		zap.String("course_id", course.ID),
		zap.String("period_id", p.ID),
	)
	return dto.SaveCommentResult{Action: dto.CommentActionCreated, CommentID: id}, nil
}

// ValidateComment signs off a single comment, keeping its text. Unknown or
// already validated comments are a no-op.
func (s *BulletinService) ValidateComment(ctx context.Context, view store.View, session models.Session, commentID string, now time.Time) (bool, error) {
	if err := requireLoaded(view, models.CollectionComments, models.CollectionCourses, models.CollectionPeriods); err != nil {
		return false, err
	}
	comment, ok := view.CommentByID(commentID)
	if !ok {
		return false, nil
	}
	p, ok := view.Period(comment.PeriodID)
	if !ok {
		return false, nil
	}
	if err := gateError(p, now); err != nil {
		return false, err
	}
	if course, ok := view.Course(comment.CourseID); ok {
		if err := s.authorizeCourse(session, course); err != nil {
			return false, err
		}
	} else if !session.Role.IsManagement() && comment.TeacherID != session.UserID {
		return false, appErrors.ErrForbidden
	}
	if comment.IsValidated {
		return false, nil
	}
	if err := s.comments.Validate(ctx, comment.ID, models.FormatTimestamp(now)); err != nil {
		return false, err
	}
	return true, nil
}

// ValidateClass validates every active pair of the class for the caller's
// courses. See bulkValidate for the confirmation protocol.
func (s *BulletinService) ValidateClass(ctx context.Context, view store.View, session models.Session, classID string, req dto.ValidateRequest, now time.Time) (dto.ValidationOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ValidationOutcome{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid validation payload")
	}
	if err := requireLoaded(view, bulletinInputs...); err != nil {
		return dto.ValidationOutcome{}, err
	}
	if _, ok := view.Class(classID); !ok {
		return dto.ValidationOutcome{Status: dto.ValidationStatusSkipped}, nil
	}
	students := view.ClassStudents(classID)
	return s.bulkValidate(ctx, view, session, bulkTarget{
		scope:    ValidationScopeClass,
		classID:  classID,
		students: students,
		courses:  teacherCourses(view.Courses, CourseOwner(session), classID),
	}, req, now)
}

// ValidateStudent validates every active pair of one student for the
// caller's courses, whichever class they belong to.
func (s *BulletinService) ValidateStudent(ctx context.Context, view store.View, session models.Session, studentID string, req dto.ValidateRequest, now time.Time) (dto.ValidationOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ValidationOutcome{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid validation payload")
	}
	if err := requireLoaded(view, bulletinInputs...); err != nil {
		return dto.ValidationOutcome{}, err
	}
	student, ok := view.Student(studentID)
	if !ok {
		return dto.ValidationOutcome{Status: dto.ValidationStatusSkipped}, nil
	}
	return s.bulkValidate(ctx, view, session, bulkTarget{
		scope:     ValidationScopeStudent,
		classID:   student.ClassID,
		studentID: student.ID,
		students:  []models.User{student},
		courses:   teacherCourses(view.Courses, CourseOwner(session), ""),
	}, req, now)
}

type bulkTarget struct {
	scope     string
	classID   string
	studentID string
	students  []models.User
	courses   []models.Course
}

type bulkPlan struct {
	creates []models.TeacherComment
	updates []string
}

func (p bulkPlan) count() int { return len(p.creates) + len(p.updates) }

// bulkValidate plans the writes for the target and executes them once the
// caller confirmed the announced count. Nothing to do is reported as
// already_validated; an unconfirmed or mismatching confirmation returns
// confirmation_required with the count and performs no writes.
func (s *BulletinService) bulkValidate(ctx context.Context, view store.View, session models.Session, target bulkTarget, req dto.ValidateRequest, now time.Time) (dto.ValidationOutcome, error) {
	p, ok := view.Period(req.PeriodID)
	if !ok {
		return dto.ValidationOutcome{Status: dto.ValidationStatusSkipped}, nil
	}
	if err := gateError(p, now); err != nil {
		s.metrics.ObserveBulkValidation(target.scope, "gated", 0, 0)
		return dto.ValidationOutcome{}, err
	}
	if !view.Covers(p.ID) {
		return dto.ValidationOutcome{}, appErrors.Clone(appErrors.ErrPreconditionFailed, "period is outside the loaded academic year")
	}

	plan := s.plan(view, session, target, p, models.FormatTimestamp(now))
	count := plan.count()
	if count == 0 {
		s.metrics.ObserveBulkValidation(target.scope, dto.ValidationStatusAlreadyValidated, 0, 0)
		return dto.ValidationOutcome{Status: dto.ValidationStatusAlreadyValidated}, nil
	}
	if !req.Confirmed || req.ExpectedCount != count {
		return dto.ValidationOutcome{Status: dto.ValidationStatusConfirmationRequired, Count: count}, nil
	}

	outcome := dto.ValidationOutcome{
		Status:  dto.ValidationStatusValidated,
		Count:   count,
		Created: len(plan.creates),
		Updated: len(plan.updates),
	}
	err := s.execute(ctx, plan, models.FormatTimestamp(now))
	s.recordAudit(ctx, session, target, p.ID, outcome, err, now)
	if err != nil {
		s.metrics.ObserveBulkValidation(target.scope, "failed", 0, 0)
		s.logger.Error("bulk validation failed",
			zap.String("scope", target.scope),
			zap.String("class_id", target.classID),
			zap.String("period_id", p.ID),
			zap.Int("count", count),
			zap.Error(err),
		)
		return dto.ValidationOutcome{}, appErrors.Wrap(err, appErrors.ErrBulkValidation.Code, appErrors.ErrBulkValidation.Status, appErrors.ErrBulkValidation.Message)
	}
	s.metrics.ObserveBulkValidation(target.scope, dto.ValidationStatusValidated, outcome.Created, outcome.Updated)
	s.logger.Info("bulk validation completed",
		zap.String("scope", target.scope),
		zap.String("class_id", target.classID),
		zap.String("period_id", p.ID),
		zap.Int("created", outcome.Created),
		zap.Int("updated", outcome.Updated),
	)
	return outcome, nil
}

func (s *BulletinService) plan(view store.View, session models.Session, target bulkTarget, p models.AcademicPeriod, stamp string) bulkPlan {
	active := activePairs(view.Grades, p)
	comments := commentIndex(view.Comments, p.ID)

	var plan bulkPlan
	for _, student := range target.students {
		for _, course := range target.courses {
			key := pairKey{student.ID, course.ID}
			if active[key] == 0 {
				continue
			}
			c, exists := comments[key]
			switch {
			case !exists:
				created := newComment(view, session, student, course, p, "", stamp)
				created.IsValidated = true
				created.ValidationDate = stamp
				plan.creates = append(plan.creates, created)
			case !c.IsValidated:
				plan.updates = append(plan.updates, c.ID)
			}
		}
	}
	return plan
}

// execute creates the missing comments atomically, then issues every
// validation update. Updates are independent: all are attempted and their
// failures combined.
func (s *BulletinService) execute(ctx context.Context, plan bulkPlan, stamp string) error {
	if len(plan.creates) > 0 {
		if err := s.comments.BatchCreate(ctx, plan.creates); err != nil {
			return err
		}
	}

	var (
		mu   sync.Mutex
		errs error
		g    errgroup.Group
	)
	g.SetLimit(s.cfg.UpdateConcurrency)
	for _, id := range plan.updates {
		id := id
		g.Go(func() error {
			if err := s.comments.Validate(ctx, id, stamp); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

func (s *BulletinService) recordAudit(ctx context.Context, session models.Session, target bulkTarget, periodID string, outcome dto.ValidationOutcome, execErr error, now time.Time) {
	if s.audit == nil {
		return
	}
	audit := &models.ValidationAudit{
		TeacherID:    session.UserID,
		ClassID:      target.classID,
		PeriodID:     periodID,
		Scope:        target.scope,
		CreatedCount: outcome.Created,
		UpdatedCount: outcome.Updated,
		ExecutedAt:   now.UTC(),
	}
	if target.studentID != "" {
		id := target.studentID
		audit.StudentID = &id
	}
	if execErr != nil {
		msg := execErr.Error()
		audit.Failed = true
		audit.ErrorMessage = &msg
	}
	start := time.Now()
	err := s.audit.Insert(ctx, audit)
	s.metrics.ObserveDBQuery("insert_validation_audit", time.Since(start))
	if err != nil {
		s.logger.Warn("validation audit insert failed", zap.String("period_id", periodID), zap.Error(err))
	}
}

// PeriodValidationOverview reports validation progress of every class over
// all (class student, class course) pairs, regardless of grading activity.
func (s *BulletinService) PeriodValidationOverview(view store.View, periodID string) dto.PeriodOverview {
	result := dto.PeriodOverview{PeriodID: periodID, Classes: []dto.ClassOverview{}}
	comments := commentIndex(view.Comments, periodID)

	studentsByClass := make(map[string][]string)
	for _, u := range view.Students() {
		studentsByClass[u.ClassID] = append(studentsByClass[u.ClassID], u.ID)
	}
	coursesByClass := make(map[string][]string)
	for _, c := range view.Courses {
		coursesByClass[c.ClassID] = append(coursesByClass[c.ClassID], c.ID)
	}

	for _, cls := range view.Classes {
		line := dto.ClassOverview{ClassID: cls.ID, ClassName: cls.Name}
		for _, studentID := range studentsByClass[cls.ID] {
			for _, courseID := range coursesByClass[cls.ID] {
				line.Total++
				if c, ok := comments[pairKey{studentID, courseID}]; ok && c.IsValidated {
					line.Validated++
				}
			}
		}
		line.IsFullyValidated = line.Total > 0 && line.Validated == line.Total
		if line.IsFullyValidated {
			result.ValidatedClasses++
		}
		result.Classes = append(result.Classes, line)
	}
	sort.SliceStable(result.Classes, func(i, j int) bool { return result.Classes[i].ClassName < result.Classes[j].ClassName })
	result.TotalClasses = len(result.Classes)
	result.PendingClasses = result.TotalClasses - result.ValidatedClasses
	return result
}

// CourseOwner is the teacher id the session's bulletin work is limited to.
// Management is not limited and gets "".
func CourseOwner(session models.Session) string {
	if session.Role.IsManagement() {
		return ""
	}
	return session.UserID
}

func (s *BulletinService) authorizeCourse(session models.Session, course models.Course) error {
	if session.Role.IsManagement() || course.TeacherID == session.UserID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "course is taught by another teacher")
}

func newComment(view store.View, session models.Session, student models.User, course models.Course, p models.AcademicPeriod, text, stamp string) models.TeacherComment {
	teacherID, teacherName := session.UserID, session.Name
	if course.TeacherID != "" && course.TeacherID != session.UserID {
		teacherID = course.TeacherID
		teacherName = ""
		if u, ok := view.User(teacherID); ok {
			teacherName = u.Name
		}
	}
	return models.TeacherComment{
		TeacherID:   teacherID,
		TeacherName: teacherName,
		StudentID:   student.ID,
		StudentName: student.Name,
		CourseID:    course.ID,
		CourseName:  course.Subject,
		PeriodID:    p.ID,
		PeriodName:  p.Name,
		Comment:     text,
		CreatedAt:   stamp,
		UpdatedAt:   stamp,
	}
}

