package service

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-core/internal/models"
	"github.com/noah-isme/sma-bulletin-core/internal/period"
	"github.com/noah-isme/sma-bulletin-core/internal/store"
	"github.com/noah-isme/sma-bulletin-core/pkg/jobs"
)

// RecordSource streams query snapshots of the document store.
type RecordSource interface {
	Listen(ctx context.Context, filter models.QueryFilter, onSnapshot store.SnapshotFunc) error
}

// SyncServiceConfig tunes listener start-up.
type SyncServiceConfig struct {
	Workers    int
	Retries    int
	RetryDelay time.Duration
	// StartTimeout bounds how long a worker waits for a listener's first snapshot.
	StartTimeout time.Duration
}

// listenJob starts one listener for one part of a collection's scope generation.
type listenJob struct {
	collection string
	generation uint64
	part       int
	filter     models.QueryFilter
}

type collectionScope struct {
	generation uint64
	filters    []models.QueryFilter
	ctx        context.Context
	cancel     context.CancelFunc
}

// SyncService keeps a read model in sync with the record source for one
// session: periods are listened to whole, every other collection is scoped
// by role and by the relevant periods, and re-scoped when those change.
type SyncService struct {
	source   RecordSource
	model    *store.ReadModel
	session  models.Session
	resolver *period.Resolver
	metrics  *MetricsService
	logger   *zap.Logger
	clock    func() time.Time
	cfg      SyncServiceConfig

	queue *jobs.Queue[listenJob]
	wg    sync.WaitGroup

	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	resolved    bool
	relevant    []string
	scopes      map[string]*collectionScope
	unsubscribe func()
}

// NewSyncService wires a sync loop for the session into model.
func NewSyncService(source RecordSource, model *store.ReadModel, session models.Session, resolver *period.Resolver, metrics *MetricsService, cfg SyncServiceConfig, logger *zap.Logger) *SyncService {
	if resolver == nil {
		resolver = period.NewResolver("")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = 30 * time.Second
	}
	s := &SyncService{
		source:   source,
		model:    model,
		session:  session,
		resolver: resolver,
		metrics:  metrics,
		logger:   logger.With(zap.String("user_id", session.UserID), zap.String("workspace", model.ID())),
		clock:    time.Now,
		cfg:      cfg,
		scopes:   make(map[string]*collectionScope),
	}
	s.queue = jobs.NewQueue[listenJob]("sync-"+model.ID(), s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: 256,
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     s.logger,
	})
	s.queue.OnGiveUp(func(job jobs.Job[listenJob], err error) {
		s.metrics.RecordListenerEvent(job.Payload.collection, "gave_up")
	})
	return s
}

// Model returns the synced read model.
func (s *SyncService) Model() *store.ReadModel { return s.model }

// Start subscribes the periods and, through them, every scoped collection.
// The listeners live until Stop or until ctx is cancelled.
func (s *SyncService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
	s.mu.Unlock()

	s.queue.Start(s.ctx)
	unsubscribe := s.model.Academics.Periods.Subscribe(func(snap store.Snapshot[models.AcademicPeriod]) {
		if snap.Version == 0 {
			return
		}
		s.rescope(snap.Items)
	})
	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	pending := s.resetScope(models.CollectionPeriods, []models.QueryFilter{models.Where(models.CollectionPeriods)})
	return s.enqueue(pending)
}

// Refresh re-resolves the relevant periods against the current clock, for
// days where the academic year changes without a period update.
func (s *SyncService) Refresh() {
	s.rescope(s.model.Academics.Periods.Snapshot().Items)
}

// Stop cancels every listener and waits for them to return. No snapshot is
// applied to the read model afterwards.
func (s *SyncService) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	unsubscribe := s.unsubscribe
	s.mu.Unlock()

	cancel()
	if unsubscribe != nil {
		unsubscribe()
	}
	s.queue.Stop()
	s.wg.Wait()
}

// RelevantPeriodIDs returns the periods the scoped collections cover.
func (s *SyncService) RelevantPeriodIDs() []string {
	return s.model.CoveredPeriodIDs()
}

// WaitReady blocks until every collection of the read model received its
// first snapshot, or ctx ends.
func (s *SyncService) WaitReady(ctx context.Context) error {
	done := make(chan struct{})
	var once sync.Once
	stop := store.Watch(func() {
		if s.loaded() {
			once.Do(func() { close(done) })
		}
	}, s.model.Sources()...)
	defer stop()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SyncService) loaded() bool {
	return allPositive(s.model.Versions())
}

func allPositive(v store.Versions) bool {
	for _, n := range []uint64{
		v.Users, v.Classes, v.Courses, v.Periods, v.Categories, v.Grades,
		v.Attendance, v.Homeworks, v.Comments, v.Messages, v.Events,
	} {
		if n == 0 {
			return false
		}
	}
	return true
}

// rescope resolves the relevant periods and restarts the listeners of every
// collection whose filters changed.
func (s *SyncService) rescope(periods []models.AcademicPeriod) {
	ids := s.resolver.RelevantPeriodIDs(periods, s.clock())

	s.mu.Lock()
	if s.ctx == nil || s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	if s.resolved && period.SameIDs(ids, s.relevant) {
		s.mu.Unlock()
		return
	}
	s.resolved = true
	s.relevant = ids
	s.model.SetCoveredPeriodIDs(ids)

	byCollection := filtersByCollection(ScopeForRole(s.session, ids))
	var pending []listenJob
	for _, name := range s.model.Collections() {
		if name == models.CollectionPeriods {
			continue
		}
		filters := byCollection[name]
		if current, ok := s.scopes[name]; ok && reflect.DeepEqual(current.filters, filters) {
			continue
		}
		pending = append(pending, s.resetScopeLocked(name, filters)...)
	}
	s.mu.Unlock()

	s.logger.Info("subscriptions scoped", zap.Strings("period_ids", ids), zap.Int("listeners", len(pending)))
	if err := s.enqueue(pending); err != nil {
		s.logger.Warn("scope listeners not started", zap.Error(err))
	}
}

func (s *SyncService) resetScope(collection string, filters []models.QueryFilter) []listenJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetScopeLocked(collection, filters)
}

// resetScopeLocked cancels the listeners of a collection and opens a new
// generation with one part per filter. s.mu must be held.
func (s *SyncService) resetScopeLocked(collection string, filters []models.QueryFilter) []listenJob {
	binding, ok := s.model.Feed(collection)
	if !ok {
		return nil
	}
	if current, ok := s.scopes[collection]; ok {
		current.cancel()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	gen := binding.Reset(len(filters))
	s.scopes[collection] = &collectionScope{generation: gen, filters: filters, ctx: ctx, cancel: cancel}

	out := make([]listenJob, 0, len(filters))
	for i, f := range filters {
		out = append(out, listenJob{collection: collection, generation: gen, part: i, filter: f})
	}
	return out
}

func (s *SyncService) enqueue(pending []listenJob) error {
	for _, j := range pending {
		job := jobs.Job[listenJob]{
			ID:      fmt.Sprintf("%s/%d/%d", j.collection, j.generation, j.part),
			Payload: j,
		}
		if err := s.queue.Enqueue(job); err != nil {
			return err
		}
	}
	return nil
}

// scopeContext returns the context of the collection's scope when the
// generation is still current.
func (s *SyncService) scopeContext(collection string, generation uint64) (context.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scope, ok := s.scopes[collection]
	if !ok || scope.generation != generation || scope.ctx.Err() != nil {
		return nil, false
	}
	return scope.ctx, true
}

// handle starts a listener and waits for its first snapshot. A failure
// before that is returned for a retry; a later failure restarts the
// listener through the queue.
func (s *SyncService) handle(ctx context.Context, job jobs.Job[listenJob]) error {
	lj := job.Payload
	scopeCtx, ok := s.scopeContext(lj.collection, lj.generation)
	if !ok {
		return nil
	}
	binding, _ := s.model.Feed(lj.collection)

	first := make(chan error, 1)
	var (
		once     sync.Once
		started  bool
		detached atomic.Bool
	)
	signal := func(err error) { once.Do(func() { first <- err }) }

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.source.Listen(scopeCtx, lj.filter, func(docs []store.Document) error {
			started = true
			signal(nil)
			s.metrics.RecordListenerEvent(lj.collection, "snapshot")
			return binding.Apply(lj.generation, lj.part, docs)
		})
		signal(err)
		if err == nil || scopeCtx.Err() != nil {
			return
		}
		s.metrics.RecordListenerEvent(lj.collection, "failed")
		s.logger.Warn("listener failed", zap.String("collection", lj.collection), zap.Int("part", lj.part), zap.Error(err))
		if started || detached.Load() {
			if err := s.enqueue([]listenJob{lj}); err != nil {
				s.logger.Warn("listener restart not queued", zap.String("collection", lj.collection), zap.Error(err))
			}
		}
	}()

	timer := time.NewTimer(s.cfg.StartTimeout)
	defer timer.Stop()
	select {
	case err := <-first:
		return err
	case <-timer.C:
		detached.Store(true)
		s.logger.Warn("listener slow to deliver", zap.String("collection", lj.collection))
		return nil
	case <-ctx.Done():
		detached.Store(true)
		return nil
	}
}
