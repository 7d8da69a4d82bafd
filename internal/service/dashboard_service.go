package service

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-core/internal/dto"
	"github.com/noah-isme/sma-bulletin-core/internal/models"
	"github.com/noah-isme/sma-bulletin-core/internal/stats"
	"github.com/noah-isme/sma-bulletin-core/internal/store"
	appErrors "github.com/noah-isme/sma-bulletin-core/pkg/errors"
)

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL             time.Duration
	UpcomingEventsLimit  int
	PendingHomeworkLimit int
	MemoSize             int
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Cache   *CacheService
	Metrics *MetricsService
	Logger  *zap.Logger
	Config  DashboardServiceConfig
}

// dashboardKey identifies one dashboard computation. Snapshot versions make
// any upstream change a new key.
type dashboardKey struct {
	workspace string
	versions  store.Versions
	userID    string
	role      models.UserRole
	childID   string
	minute    string
}

// DashboardService composes statistics into role-aware dashboards.
type DashboardService struct {
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	memo    *store.Memo[dashboardKey, *dto.Dashboard]
	cfg     DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.UpcomingEventsLimit <= 0 {
		cfg.UpcomingEventsLimit = 3
	}
	if cfg.PendingHomeworkLimit <= 0 {
		cfg.PendingHomeworkLimit = 5
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		cache:   params.Cache,
		metrics: params.Metrics,
		logger:  logger,
		memo:    store.NewMemo[dashboardKey, *dto.Dashboard](cfg.MemoSize),
		cfg:     cfg,
	}
}

// Build returns the dashboard of the session user over the read model's
// latest snapshots. The boolean reports whether it was served from the memo
// or the shared cache.
func (s *DashboardService) Build(ctx context.Context, model *store.ReadModel, session models.Session, childID string, now time.Time) (*dto.Dashboard, bool, error) {
	view := model.View()
	key := s.key(model.ID(), view, session, childID, now)

	var cacheHit bool
	start := time.Now()
	dashboard, memoHit := s.memo.Get(key, func() *dto.Dashboard {
		if !s.cache.Enabled() {
			return s.compose(view, session, childID, now)
		}
		cacheKey := s.cacheKey(view, key)
		if cached, ok := s.tryCache(ctx, cacheKey); ok {
			cacheHit = true
			return cached
		}
		d := s.compose(view, session, childID, now)
		s.persistCache(ctx, cacheKey, key.userID, d)
		return d
	})
	s.metrics.ObserveRecomputation("dashboard", memoHit || cacheHit, time.Since(start))
	return dashboard, memoHit || cacheHit, nil
}

// Watch recomputes the dashboard whenever a collection of the read model
// changes and hands every result to onUpdate. Calling stop ends the updates.
func (s *DashboardService) Watch(model *store.ReadModel, session models.Session, childID string, clock func() time.Time, onUpdate func(*dto.Dashboard)) (stop func()) {
	if clock == nil {
		clock = time.Now
	}
	return store.Watch(func() {
		view := model.View()
		now := clock()
		key := s.key(model.ID(), view, session, childID, now)
		start := time.Now()
		d, hit := s.memo.Get(key, func() *dto.Dashboard {
			return s.compose(view, session, childID, now)
		})
		s.metrics.ObserveRecomputation("dashboard", hit, time.Since(start))
		onUpdate(d)
	}, model.Sources()...)
}

// StudentStats returns the integer-rounded summary of one student.
func (s *DashboardService) StudentStats(view store.View, studentID string) stats.StudentSummary {
	return stats.StudentSummaryFor(view.Grades, view.Attendance, studentID)
}

// AuthorizeStudent checks that the session may read the student's figures:
// staff always, students themselves, parents their children.
func (s *DashboardService) AuthorizeStudent(view store.View, session models.Session, studentID string) error {
	switch {
	case session.Role.IsStaff():
		return nil
	case session.Role == models.RoleStudent && session.UserID == studentID:
		return nil
	case session.Role == models.RoleParent:
		for _, child := range children(view, session) {
			if child.ID == studentID {
				return nil
			}
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "student is outside your scope")
}

func (s *DashboardService) key(workspace string, view store.View, session models.Session, childID string, now time.Time) dashboardKey {
	return dashboardKey{
		workspace: workspace,
		versions:  view.Versions,
		userID:    session.UserID,
		role:      session.Role,
		childID:   childID,
		minute:    now.UTC().Format("2006-01-02T15:04"),
	}
}

// cacheKey fingerprints the snapshot contents rather than the workspace and
// its versions, which are local to the process, so every instance computes
// the same key for the same data.
func (s *DashboardService) cacheKey(view store.View, key dashboardKey) string {
	content := view
	content.Versions = store.Versions{}
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%s|%s|%s|", key.role, key.childID, key.minute)
	_ = json.NewEncoder(h).Encode(content)
	return fmt.Sprintf("dashboard:%s:%x", key.userID, h.Sum64())
}

func (s *DashboardService) tryCache(ctx context.Context, cacheKey string) (*dto.Dashboard, bool) {
	var cached dto.Dashboard
	hit, err := s.cache.Get(ctx, cacheKey, &cached)
	if err != nil || !hit {
		return nil, false
	}
	return &cached, true
}

func (s *DashboardService) persistCache(ctx context.Context, cacheKey, userID string, value *dto.Dashboard) {
	if err := s.cache.Set(ctx, cacheKey, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *DashboardService) compose(view store.View, session models.Session, childID string, now time.Time) *dto.Dashboard {
	d := &dto.Dashboard{
		Role:           session.Role,
		Date:           models.DateKey(now),
		UnreadMessages: unreadMessages(view.Messages, session.UserID),
		UpcomingEvents: upcomingEvents(view.Events, now, s.cfg.UpcomingEventsLimit),
	}

	if session.Role.IsStaff() {
		students := view.Students()
		present, rate := stats.TodayAttendance(view.Attendance, len(students), now)
		d.Staff = &dto.StaffDashboard{
			StudentCount:   len(students),
			TeacherCount:   len(view.Teachers()),
			PresentToday:   present,
			AttendanceRate: rate,
			AverageGrade:   stats.PositiveScoreAverage(view.Grades),
			GradeCount:     len(view.Grades),
		}
		d.Charts = charts(view.Grades, view.Attendance, now)
		return d
	}

	student := &dto.StudentDashboard{
		SubjectPerformance: []stats.SubjectPerformance{},
		PendingHomeworks:   []models.Homework{},
	}
	d.Student = student

	var target models.User
	var found bool
	switch session.Role {
	case models.RoleParent:
		kids := children(view, session)
		for _, k := range kids {
			student.Children = append(student.Children, dto.ChildSummary{ID: k.ID, Name: k.Name, ClassID: k.ClassID})
			if k.ID == childID {
				target, found = k, true
			}
		}
		if !found && len(kids) > 0 {
			target, found = kids[0], true
		}
	default:
		target, found = view.User(session.UserID)
		if !found {
			target = models.User{ID: session.UserID, Name: session.Name, ClassID: session.ClassID}
			found = true
		}
	}
	if !found {
		d.Charts = charts(nil, nil, now)
		return d
	}

	student.StudentID = target.ID
	student.StudentName = target.Name
	if cls, ok := view.Class(target.ClassID); ok {
		student.ChildClass = &cls
	}

	grades := make([]models.Grade, 0)
	for _, g := range view.Grades {
		if g.StudentID == target.ID {
			grades = append(grades, g)
		}
	}
	attendance := make([]models.Attendance, 0)
	for _, a := range view.Attendance {
		if a.StudentID == target.ID {
			attendance = append(attendance, a)
		}
	}

	student.GradeCount = len(grades)
	student.Average = stats.DecimalAverage(grades)
	student.SubjectPerformance = stats.SubjectPerformanceFor(grades, target.ID)
	student.PendingHomeworks = pendingHomeworks(view.Homeworks, target.ClassID, now, s.cfg.PendingHomeworkLimit)
	d.Charts = charts(grades, attendance, now)
	return d
}

func charts(grades []models.Grade, attendance []models.Attendance, now time.Time) dto.DashboardCharts {
	return dto.DashboardCharts{
		WeeklyAttendance:  stats.WeeklyAttendance(attendance, now),
		GradeDistribution: stats.GradeDistribution(grades),
		SubjectAverages:   stats.SubjectAverageAcrossClass(grades),
	}
}

// children returns the parent's children: students naming the parent plus
// those listed on the session, in user order.
func children(view store.View, session models.Session) []models.User {
	listed := make(map[string]struct{}, len(session.ChildrenIDs))
	for _, id := range session.ChildrenIDs {
		listed[id] = struct{}{}
	}
	out := make([]models.User, 0)
	for _, u := range view.Students() {
		_, ok := listed[u.ID]
		if ok || u.ParentID == session.UserID {
			out = append(out, u)
		}
	}
	return out
}

func unreadMessages(messages []models.Message, userID string) int {
	n := 0
	for _, m := range messages {
		if m.ReceiverID == userID && !m.Read {
			n++
		}
	}
	return n
}

func upcomingEvents(events []models.Event, now time.Time, limit int) []models.Event {
	type dated struct {
		event models.Event
		start time.Time
	}
	future := make([]dated, 0)
	for _, e := range events {
		start, ok := models.ParseTime(e.Start)
		if ok && !start.Before(now) {
			future = append(future, dated{e, start})
		}
	}
	sort.SliceStable(future, func(i, j int) bool { return future[i].start.Before(future[j].start) })
	out := make([]models.Event, 0, limit)
	for i := 0; i < len(future) && i < limit; i++ {
		out = append(out, future[i].event)
	}
	return out
}

// pendingHomeworks lists the class homeworks not yet due, soonest first. A
// date-only due date stays pending for the whole day.
func pendingHomeworks(homeworks []models.Homework, classID string, now time.Time, limit int) []models.Homework {
	type dated struct {
		hw  models.Homework
		due time.Time
	}
	pending := make([]dated, 0)
	for _, h := range homeworks {
		if h.ClassID != classID {
			continue
		}
		due, ok := models.ParseEndTime(h.DueDate)
		if ok && !due.Before(now) {
			pending = append(pending, dated{h, due})
		}
	}
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].due.Before(pending[j].due) })
	out := make([]models.Homework, 0, limit)
	for i := 0; i < len(pending) && i < limit; i++ {
		out = append(out, pending[i].hw)
	}
	return out
}
