package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-core/internal/models"
	"github.com/noah-isme/sma-bulletin-core/internal/period"
	"github.com/noah-isme/sma-bulletin-core/internal/store"
)

// Workspace is the synced read model of one session user.
type Workspace struct {
	Model *store.ReadModel
	Sync  *SyncService

	mu       sync.Mutex
	lastUsed time.Time

	started  chan struct{}
	startErr error
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastUsed = now
	w.mu.Unlock()
}

func (w *Workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastUsed
}

// WorkspaceRegistryConfig tunes workspace lifetime.
type WorkspaceRegistryConfig struct {
	IdleTTL      time.Duration
	ReadyTimeout time.Duration
	Sync         SyncServiceConfig
}

// WorkspaceRegistry keeps one workspace per session user and evicts idle ones.
type WorkspaceRegistry struct {
	ctx      context.Context
	source   RecordSource
	resolver *period.Resolver
	metrics  *MetricsService
	logger   *zap.Logger
	clock    func() time.Time
	cfg      WorkspaceRegistryConfig

	mu    sync.Mutex
	items map[string]*Workspace
}

// NewWorkspaceRegistry builds a registry. Workspace listeners live within ctx.
func NewWorkspaceRegistry(ctx context.Context, source RecordSource, resolver *period.Resolver, metrics *MetricsService, cfg WorkspaceRegistryConfig, logger *zap.Logger) *WorkspaceRegistry {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkspaceRegistry{
		ctx:      ctx,
		source:   source,
		resolver: resolver,
		metrics:  metrics,
		logger:   logger,
		clock:    time.Now,
		cfg:      cfg,
		items:    make(map[string]*Workspace),
	}
}

func workspaceKey(session models.Session) string {
	return string(session.Role) + ":" + session.UserID
}

// Acquire returns the session's workspace, starting it on first use. Every
// caller, including those racing the first one, waits a bounded time for
// the first snapshots of all collections.
func (r *WorkspaceRegistry) Acquire(ctx context.Context, session models.Session) (*Workspace, error) {
	key := workspaceKey(session)
	now := r.clock()

	r.mu.Lock()
	ws, ok := r.items[key]
	if !ok {
		model := store.NewReadModel()
		ws = &Workspace{
			Model:    model,
			Sync:     NewSyncService(r.source, model, session, r.resolver, r.metrics, r.cfg.Sync, r.logger),
			lastUsed: now,
			started:  make(chan struct{}),
		}
		r.items[key] = ws
	}
	count := len(r.items)
	r.mu.Unlock()

	if ok {
		ws.touch(now)
	} else {
		r.metrics.SetActiveWorkspaces(count)
		ws.startErr = ws.Sync.Start(r.ctx)
		close(ws.started)
		if ws.startErr != nil {
			r.remove(key, ws)
			return nil, ws.startErr
		}
		r.logger.Info("workspace started", zap.String("user_id", session.UserID), zap.String("role", string(session.Role)))
	}

	waitCtx, cancel := context.WithTimeout(ctx, r.cfg.ReadyTimeout)
	defer cancel()
	select {
	case <-ws.started:
	case <-waitCtx.Done():
		return nil, waitCtx.Err()
	}
	if ws.startErr != nil {
		return nil, ws.startErr
	}
	if err := ws.Sync.WaitReady(waitCtx); err != nil {
		r.logger.Warn("workspace not fully loaded", zap.String("user_id", session.UserID), zap.Error(err))
	}
	return ws, nil
}

// AcquireModel is Acquire reduced to the workspace's read model.
func (r *WorkspaceRegistry) AcquireModel(ctx context.Context, session models.Session) (*store.ReadModel, error) {
	ws, err := r.Acquire(ctx, session)
	if err != nil {
		return nil, err
	}
	return ws.Model, nil
}

// Sweep stops the workspaces idle for longer than the TTL and returns how
// many were evicted.
func (r *WorkspaceRegistry) Sweep() int {
	cutoff := r.clock().Add(-r.cfg.IdleTTL)

	r.mu.Lock()
	var evicted []*Workspace
	for key, ws := range r.items {
		if ws.idleSince().Before(cutoff) {
			evicted = append(evicted, ws)
			delete(r.items, key)
		}
	}
	count := len(r.items)
	r.mu.Unlock()

	for _, ws := range evicted {
		ws.Sync.Stop()
	}
	r.metrics.SetActiveWorkspaces(count)
	if len(evicted) > 0 {
		r.logger.Info("idle workspaces evicted", zap.Int("evicted", len(evicted)), zap.Int("active", count))
	}
	return len(evicted)
}

// Refresh re-resolves the relevant periods of every workspace.
func (r *WorkspaceRegistry) Refresh() {
	for _, ws := range r.snapshot() {
		ws.Sync.Refresh()
	}
}

// Len returns the number of live workspaces.
func (r *WorkspaceRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Close stops every workspace.
func (r *WorkspaceRegistry) Close() {
	r.mu.Lock()
	all := make([]*Workspace, 0, len(r.items))
	for key, ws := range r.items {
		all = append(all, ws)
		delete(r.items, key)
	}
	r.mu.Unlock()

	for _, ws := range all {
		ws.Sync.Stop()
	}
	r.metrics.SetActiveWorkspaces(0)
}

func (r *WorkspaceRegistry) snapshot() []*Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Workspace, 0, len(r.items))
	for _, ws := range r.items {
		out = append(out, ws)
	}
	return out
}

func (r *WorkspaceRegistry) remove(key string, ws *Workspace) {
	r.mu.Lock()
	if r.items[key] == ws {
		delete(r.items, key)
	}
	count := len(r.items)
	r.mu.Unlock()
	r.metrics.SetActiveWorkspaces(count)
}
