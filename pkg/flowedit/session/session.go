// Package session drives one editing session over a bot's flow. It
// owns the working graph, mirrors every mutation to the fallback cache,
// persists through a flow store, and coalesces change notifications for
// listeners.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/whatbot/flowedit/pkg/flowedit"
	"github.com/whatbot/flowedit/pkg/flowedit/cache"
	"github.com/whatbot/flowedit/pkg/flowedit/config"
	"github.com/whatbot/flowedit/pkg/flowedit/observability"
	"github.com/whatbot/flowedit/pkg/flowedit/store"
)

// State is the session lifecycle phase.
type State int

// Session states.
const (
	StateUnloaded State = iota
	StateLoading
	StateReady
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Load sources, recorded in metrics and logs.
const (
	SourceStore = "store"
	SourceCache = "cache"
	SourceEmpty = "empty"
)

// Sentinel errors for session operations.
var (
	// ErrSessionClosed indicates the session has been closed.
	ErrSessionClosed = errors.New("editor session closed")

	// ErrNotReady indicates an edit or save before a flow was opened.
	ErrNotReady = errors.New("no flow loaded")

	// ErrNotSaved indicates a publish attempt on a flow the store has
	// never seen.
	ErrNotSaved = errors.New("flow must be saved before publishing")
)

// Options configures a Session. Zero values select sane defaults:
// default settings, the process logger, and no-op telemetry.
type Options struct {
	Logger   *slog.Logger
	Metrics  observability.MetricsRecorder
	Spans    observability.SpanManager
	Settings config.Settings

	// AutoSave persists the flow automatically once edits go quiet for
	// the settings' save debounce window.
	AutoSave bool
}

// Session is one editor working on one bot's flow at a time. Opening a
// different bot reuses the session; a load still in flight for the
// previous bot is discarded when it lands.
//
// All methods are safe for concurrent use.
type Session struct {
	store    store.Store
	cache    cache.Cache
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager
	settings config.Settings

	// saveMu serializes Save calls so a slow first save can never race
	// a second into a duplicate create.
	saveMu sync.Mutex

	mu      sync.Mutex
	gen     uint64
	state   State
	botID   string
	botName string
	// provisional marks a fresh draft whose identity the store has not
	// assigned yet; persisted marks an id the store has confirmed.
	// Neither set means the id is real but unconfirmed (offline load or
	// a flow the store reported missing); saves then try Update first.
	provisional bool
	persisted   bool
	status      store.Status
	graph       flowedit.Graph
	offline     bool
	closed      bool
	listeners   []func(flowedit.Graph)

	notifier *Notifier
	autoSave *Notifier // nil when auto-save is disabled
}

// New creates a session over the given store and cache.
func New(st store.Store, ca cache.Cache, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NoopMetrics{}
	}
	if opts.Spans == nil {
		opts.Spans = observability.NoopSpanManager{}
	}
	if opts.Settings == (config.Settings{}) {
		opts.Settings = config.DefaultSettings()
	}

	s := &Session{
		store:    st,
		cache:    ca,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		spans:    opts.Spans,
		settings: opts.Settings,
	}
	s.notifier = NewNotifier(opts.Settings.NotifyDebounce, s.notifyListeners)
	if opts.AutoSave {
		s.autoSave = NewNotifier(opts.Settings.SaveDebounce, func() {
			// Save logs its own failures; an auto-save cycle never
			// surfaces errors to the editor.
			_, _ = s.Save(context.Background())
		})
	}
	return s
}

// FromSettings creates a session with its backends resolved from
// editor settings: an HTTP flow store at APIBaseURL and, when
// RedisAddr is set, a Redis fallback cache. Without a Redis address
// the fallback cache lives in process. opts.Settings is overridden by
// settings.
func FromSettings(settings config.Settings, opts Options) *Session {
	opts.Settings = settings
	st := store.NewHTTPStore(settings.APIBaseURL, nil)

	var ca cache.Cache
	if settings.RedisAddr != "" {
		ca = cache.NewRedisCache(redis.NewClient(&redis.Options{Addr: settings.RedisAddr}))
	} else {
		ca = cache.NewMemoryCache()
	}
	return New(st, ca, opts)
}

// Open loads the flow for botID and makes it the session's working
// graph. An empty botID starts a fresh draft under a provisional
// identity; the store assigns the real ID on first save.
//
// The load resolves store first, then cache when the store is
// unreachable and offline fallback is enabled, then a seeded starter
// graph. If Open is called again before a previous load lands, the
// stale result is discarded.
func (s *Session) Open(ctx context.Context, botID, botName string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	// Re-opening the bot already loaded or loading collapses into the
	// existing state; only a different identity supersedes it.
	if botID != "" && botID == s.botID && s.state != StateUnloaded {
		s.mu.Unlock()
		return nil
	}
	s.gen++
	gen := s.gen

	if botID == "" {
		botID = "draft-" + uuid.NewString()
		g := flowedit.SeedGraph()
		s.adopt(gen, botID, botName, g, false, store.StatusDraft, false)
		s.provisional = true
		s.mu.Unlock()

		s.mirror(ctx, botID, botName, g)
		s.notifier.Trigger()
		return nil
	}

	s.state = StateLoading
	s.botID = botID
	s.botName = botName
	s.mu.Unlock()

	ctx, span := s.spans.StartLoadSpan(ctx, botID)
	elapsed := observability.TimedOperation()
	g, source, persisted, status, offline, err := s.load(ctx, botID)
	s.spans.EndSpanWithError(span, err)
	s.metrics.RecordLoad(ctx, source, sinceMs(elapsed()), err)
	if err != nil {
		s.mu.Lock()
		if s.gen == gen {
			s.state = StateUnloaded
		}
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	if s.gen != gen || s.closed {
		current := s.botID
		s.mu.Unlock()
		observability.LogStaleLoadDiscarded(s.logger, botID, current)
		return nil
	}
	s.adopt(gen, botID, botName, g, persisted, status, offline)
	s.mu.Unlock()

	observability.LogFlowLoaded(s.logger, botID, source, len(g.Nodes), elapsed())
	s.mirror(ctx, botID, botName, g)
	s.notifier.Trigger()
	return nil
}

// adopt installs a loaded flow as the working state. Caller holds mu.
func (s *Session) adopt(gen uint64, botID, botName string, g flowedit.Graph, persisted bool, status store.Status, offline bool) {
	s.gen = gen
	s.state = StateReady
	s.botID = botID
	s.botName = botName
	s.graph = flowedit.ResolveEdges(g)
	s.provisional = false
	s.persisted = persisted
	s.status = status
	s.offline = offline
}

// load resolves a flow from the store, cache, or a fresh seed.
func (s *Session) load(ctx context.Context, botID string) (g flowedit.Graph, source string, persisted bool, status store.Status, offline bool, err error) {
	flow, storeErr := s.store.Get(ctx, botID)
	if storeErr == nil {
		return flow.FlowData, SourceStore, true, flow.Status, false, nil
	}

	if !errors.Is(storeErr, store.ErrNotFound) {
		if !s.settings.OfflineFallback {
			return flowedit.Graph{}, SourceStore, false, "", false, storeErr
		}
		observability.LogLoadFallback(s.logger, botID, storeErr)
		offline = true
	}

	cached, ok, cacheErr := s.cache.GetGraph(ctx, botID)
	if cacheErr == nil && ok {
		return cached, SourceCache, false, store.StatusDraft, offline, nil
	}

	return flowedit.SeedGraph(), SourceEmpty, false, store.StatusDraft, offline, nil
}

// Graph returns the current working graph.
func (s *Session) Graph() flowedit.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph
}

// State returns the session lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BotID returns the current bot identity, which may be provisional
// until the first save.
func (s *Session) BotID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.botID
}

// BotName returns the bot's display name.
func (s *Session) BotName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.botName
}

// Status returns the flow's lifecycle status as last seen.
func (s *Session) Status() store.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Offline reports whether the session fell back to cached data because
// the flow service was unreachable.
func (s *Session) Offline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offline
}

// AddNode creates a node of the given type with default content and
// adds it to the graph.
func (s *Session) AddNode(ctx context.Context, t flowedit.NodeType, pos flowedit.Position) (flowedit.Node, error) {
	n := flowedit.NewNode(t, pos)
	err := s.mutate(ctx, "add_node", func(g flowedit.Graph) flowedit.Graph {
		return g.AddNode(n)
	})
	if err != nil {
		return flowedit.Node{}, err
	}
	return n, nil
}

// UpdateNode rewrites a node's payload through update. A missing node
// is a no-op. A payload that violates channel limits (more than
// MaxButtons buttons) is rejected and the graph stays unchanged.
func (s *Session) UpdateNode(ctx context.Context, id string, update func(flowedit.NodeData) flowedit.NodeData) error {
	return s.mutateChecked(ctx, "update_node", func(g flowedit.Graph) (flowedit.Graph, error) {
		next := g.ApplyNodeUpdate(id, update)
		if n, ok := next.FindNode(id); ok {
			if err := flowedit.ValidateNodeData(n.Data); err != nil {
				return flowedit.Graph{}, err
			}
		}
		return next, nil
	})
}

// MoveNode repositions a node on the canvas.
func (s *Session) MoveNode(ctx context.Context, id string, pos flowedit.Position) error {
	return s.mutate(ctx, "move_node", func(g flowedit.Graph) flowedit.Graph {
		return g.MoveNode(id, pos)
	})
}

// DeleteNode removes a node along with its edges and every connection
// reference pointing at it.
func (s *Session) DeleteNode(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete_node", func(g flowedit.Graph) flowedit.Graph {
		return g.RemoveNode(id)
	})
}

// Connect wires sourceID's handle to targetID.
func (s *Session) Connect(ctx context.Context, sourceID, sourceHandle, targetID string) error {
	return s.mutate(ctx, "connect", func(g flowedit.Graph) flowedit.Graph {
		return flowedit.Connect(g, sourceID, sourceHandle, targetID)
	})
}

// Disconnect clears the connection on sourceID's handle.
func (s *Session) Disconnect(ctx context.Context, sourceID, sourceHandle string) error {
	return s.mutate(ctx, "disconnect", func(g flowedit.Graph) flowedit.Graph {
		return flowedit.Disconnect(g, sourceID, sourceHandle)
	})
}

// ReplaceGraph swaps the entire working graph, as an import does.
func (s *Session) ReplaceGraph(ctx context.Context, g flowedit.Graph) error {
	return s.mutate(ctx, "replace_graph", func(flowedit.Graph) flowedit.Graph {
		return g
	})
}

// mutate applies one graph transition, re-derives edges, mirrors the
// result to the cache, and schedules a change notification.
func (s *Session) mutate(ctx context.Context, op string, f func(flowedit.Graph) flowedit.Graph) error {
	return s.mutateChecked(ctx, op, func(g flowedit.Graph) (flowedit.Graph, error) {
		return f(g), nil
	})
}

// mutateChecked is mutate for transitions that can reject their input.
// A rejected transition leaves the graph untouched: nothing is
// mirrored and no notification fires.
func (s *Session) mutateChecked(ctx context.Context, op string, f func(flowedit.Graph) (flowedit.Graph, error)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state != StateReady {
		s.mu.Unlock()
		return ErrNotReady
	}
	next, err := f(s.graph)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	g := flowedit.ResolveEdges(next)
	s.graph = g
	botID := s.botID
	botName := s.botName
	s.mu.Unlock()

	s.metrics.RecordMutation(ctx, op)
	s.mirror(ctx, botID, botName, g)
	s.notifier.Trigger()
	if s.autoSave != nil {
		s.autoSave.Trigger()
	}
	return nil
}

// mirror writes the working state to the fallback cache. Cache failures
// are logged, never surfaced: the cache is best effort.
func (s *Session) mirror(ctx context.Context, botID, botName string, g flowedit.Graph) {
	if err := s.cache.PutGraph(ctx, botID, g); err != nil {
		s.logger.Warn("cache mirror failed", "bot_id", botID, "error", err.Error())
		return
	}
	if botName != "" {
		if err := s.cache.PutName(ctx, botID, botName); err != nil {
			s.logger.Warn("cache mirror failed", "bot_id", botID, "error", err.Error())
		}
	}
}

// Save persists the working graph. The first save of a fresh draft
// creates the flow and adopts the store-assigned identity, re-keying
// the cache; later saves update in place. Saving an empty flow is
// rejected without touching the store.
func (s *Session) Save(ctx context.Context) (store.Flow, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return store.Flow{}, ErrSessionClosed
	}
	if s.state != StateReady {
		s.mu.Unlock()
		return store.Flow{}, ErrNotReady
	}
	if len(s.graph.Nodes) == 0 {
		s.mu.Unlock()
		return store.Flow{}, &flowedit.ValidationError{
			Field:   "nodes",
			Message: "cannot save a flow with no nodes",
		}
	}
	gen := s.gen
	botID := s.botID
	persisted := s.persisted
	provisional := s.provisional
	flow := store.Flow{
		ID:        s.botID,
		Name:      s.botName,
		Status:    s.status,
		NodeCount: len(s.graph.Nodes),
		FlowData:  s.graph,
	}
	s.mu.Unlock()

	ctx, span := s.spans.StartSaveSpan(ctx, botID)
	elapsed := observability.TimedOperation()

	var saved store.Flow
	var err error
	switch {
	case provisional:
		// Fresh draft: the store has never seen this flow.
		flow.ID = ""
		saved, err = s.store.Create(ctx, flow)
	case persisted:
		saved, err = s.store.Update(ctx, botID, flow)
	default:
		// Real id the store never confirmed (offline load or a missing
		// flow): the record may well exist, so update in place and
		// create only when the store says it is truly gone.
		saved, err = s.store.Update(ctx, botID, flow)
		if errors.Is(err, store.ErrNotFound) {
			flow.ID = ""
			saved, err = s.store.Create(ctx, flow)
		}
	}
	s.spans.EndSpanWithError(span, err)
	s.metrics.RecordSave(ctx, sinceMs(elapsed()), err)

	if err != nil {
		observability.LogSaveError(s.logger, botID, err)
		var te *store.TransportError
		if errors.As(err, &te) {
			s.mu.Lock()
			if s.gen == gen {
				s.offline = true
			}
			s.mu.Unlock()
		}
		return store.Flow{}, err
	}

	s.mu.Lock()
	if s.gen == gen {
		if saved.ID != botID {
			// Identity adoption: the store named the flow.
			s.botID = saved.ID
			if rekeyErr := s.cache.Rekey(ctx, botID, saved.ID); rekeyErr != nil {
				s.logger.Warn("cache rekey failed", "bot_id", saved.ID, "error", rekeyErr.Error())
			}
		}
		s.provisional = false
		s.persisted = true
		s.status = saved.Status
		s.offline = false
	}
	s.mu.Unlock()

	observability.LogFlowSaved(s.logger, saved.ID, saved.NodeCount, elapsed())
	return saved, nil
}

// Publish marks the flow published. The flow must have been saved.
func (s *Session) Publish(ctx context.Context) (store.Flow, error) {
	return s.setStatus(ctx, store.StatusPublished)
}

// Unpublish puts the flow back into draft.
func (s *Session) Unpublish(ctx context.Context) (store.Flow, error) {
	return s.setStatus(ctx, store.StatusDraft)
}

func (s *Session) setStatus(ctx context.Context, status store.Status) (store.Flow, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return store.Flow{}, ErrSessionClosed
	}
	if s.state != StateReady {
		s.mu.Unlock()
		return store.Flow{}, ErrNotReady
	}
	if !s.persisted {
		s.mu.Unlock()
		return store.Flow{}, ErrNotSaved
	}
	gen := s.gen
	botID := s.botID
	s.mu.Unlock()

	var flow store.Flow
	var err error
	if status == store.StatusPublished {
		flow, err = s.store.Publish(ctx, botID)
	} else {
		flow, err = s.store.Unpublish(ctx, botID)
	}
	if err != nil {
		return store.Flow{}, err
	}

	s.mu.Lock()
	if s.gen == gen {
		s.status = flow.Status
	}
	s.mu.Unlock()

	observability.LogStatusChange(s.logger, botID, string(flow.Status))
	return flow, nil
}

// Compile compacts the working graph into the runtime flow format.
func (s *Session) Compile(ctx context.Context) (flowedit.CleanFlow, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return flowedit.CleanFlow{}, ErrSessionClosed
	}
	if s.state != StateReady {
		s.mu.Unlock()
		return flowedit.CleanFlow{}, ErrNotReady
	}
	g := s.graph
	botID := s.botID
	s.mu.Unlock()

	ctx, span := s.spans.StartOpSpan(ctx, "compact")
	elapsed := observability.TimedOperation()
	flow := flowedit.Compact(g)
	ms := elapsed()
	s.spans.EndSpanWithError(span, nil)
	s.metrics.RecordCompaction(ctx, len(g.Nodes), len(flow.Nodes), sinceMs(ms))

	observability.LogCompaction(s.logger, botID, len(g.Nodes), len(flow.Nodes), ms)
	return flow, nil
}

// Subscribe registers a listener for debounced graph changes. The
// returned function removes the listener.
func (s *Session) Subscribe(fn func(flowedit.Graph)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
	idx := len(s.listeners) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < len(s.listeners) {
			s.listeners[idx] = nil
		}
	}
}

// notifyListeners delivers the current graph to every listener. Runs on
// the notifier's timer goroutine.
func (s *Session) notifyListeners() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	g := s.graph
	listeners := make([]func(flowedit.Graph), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		if fn != nil {
			fn(g)
		}
	}
}

// Close stops notifications and rejects further operations. The store
// and cache are owned by the caller and stay open.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.state = StateUnloaded
	s.mu.Unlock()

	s.notifier.Stop()
	if s.autoSave != nil {
		s.autoSave.Stop()
	}
	return nil
}

// sinceMs converts a millisecond reading back to a duration for metric
// recording.
func sinceMs(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
