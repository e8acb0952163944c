package session

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whatbot/flowedit/pkg/flowedit"
	"github.com/whatbot/flowedit/pkg/flowedit/cache"
	"github.com/whatbot/flowedit/pkg/flowedit/config"
	"github.com/whatbot/flowedit/pkg/flowedit/store"
)

// flakyStore wraps a memory store and injects transport failures or a
// blocking gate on Get.
type flakyStore struct {
	*store.MemoryStore
	failGet bool
	gate    chan struct{}
}

func (f *flakyStore) Get(ctx context.Context, id string) (store.Flow, error) {
	if f.gate != nil {
		<-f.gate
	}
	if f.failGet {
		return store.Flow{}, &store.TransportError{
			Op: "get", Endpoint: "/flows/" + id, Err: errors.New("connection refused"),
		}
	}
	return f.MemoryStore.Get(ctx, id)
}

func (f *flakyStore) Update(ctx context.Context, id string, flow store.Flow) (store.Flow, error) {
	if f.failGet {
		return store.Flow{}, &store.TransportError{
			Op: "update", Endpoint: "/flows/" + id, Err: errors.New("connection refused"),
		}
	}
	return f.MemoryStore.Update(ctx, id, flow)
}

// newTestSession builds a session over fresh memory backends with an
// immediate notifier.
func newTestSession(t *testing.T) (*Session, *flakyStore, *cache.MemoryCache) {
	t.Helper()
	fs := &flakyStore{MemoryStore: store.NewMemoryStore()}
	ca := cache.NewMemoryCache()

	settings := config.DefaultSettings()
	settings.NotifyDebounce = 0

	s := New(fs, ca, Options{Settings: settings})
	t.Cleanup(func() {
		s.Close()
		ca.Close()
		fs.MemoryStore.Close()
	})
	return s, fs, ca
}

// TestSession_OpenFreshDraft verifies an empty bot ID starts a seeded
// draft under a provisional identity.
func TestSession_OpenFreshDraft(t *testing.T) {
	s, _, ca := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.Open(ctx, "", "New Bot"))

	assert.Equal(t, StateReady, s.State())
	assert.True(t, strings.HasPrefix(s.BotID(), "draft-"))
	assert.Equal(t, "New Bot", s.BotName())
	assert.False(t, s.Offline())

	g := s.Graph()
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, flowedit.NodeTrigger, g.Nodes[0].Type)

	// The draft is mirrored immediately.
	_, ok, err := ca.GetGraph(ctx, s.BotID())
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestSession_OpenFromStore verifies a stored flow loads with its
// status and graph.
func TestSession_OpenFromStore(t *testing.T) {
	s, fs, _ := newTestSession(t)
	ctx := context.Background()

	g := flowedit.SeedGraph()
	g = g.AddNode(flowedit.NewNode(flowedit.NodeText, flowedit.Position{X: 600, Y: 100}))
	created, err := fs.MemoryStore.Create(ctx, store.Flow{
		Name: "Existing", FlowData: g, NodeCount: 2,
	})
	require.NoError(t, err)
	_, err = fs.MemoryStore.Publish(ctx, created.ID)
	require.NoError(t, err)

	require.NoError(t, s.Open(ctx, created.ID, "Existing"))

	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, created.ID, s.BotID())
	assert.Equal(t, store.StatusPublished, s.Status())
	assert.Len(t, s.Graph().Nodes, 2)
	assert.False(t, s.Offline())
}

// TestSession_ReopenSameBotCollapses verifies re-opening the loaded bot
// does not reload and wipe unsaved edits.
func TestSession_ReopenSameBotCollapses(t *testing.T) {
	s, fs, _ := newTestSession(t)
	ctx := context.Background()

	created, err := fs.MemoryStore.Create(ctx, store.Flow{
		Name: "Bot", FlowData: flowedit.SeedGraph(), NodeCount: 1,
	})
	require.NoError(t, err)

	require.NoError(t, s.Open(ctx, created.ID, "Bot"))
	_, err = s.AddNode(ctx, flowedit.NodeText, flowedit.Position{X: 600})
	require.NoError(t, err)

	require.NoError(t, s.Open(ctx, created.ID, "Bot"))
	assert.Len(t, s.Graph().Nodes, 2, "unsaved edit must survive a same-bot open")
}

// TestSession_OpenFallsBackToCache verifies an unreachable store yields
// the cached draft and marks the session offline.
func TestSession_OpenFallsBackToCache(t *testing.T) {
	s, fs, ca := newTestSession(t)
	ctx := context.Background()

	cached := flowedit.SeedGraph()
	cached = cached.AddNode(flowedit.NewNode(flowedit.NodeButton, flowedit.Position{}))
	require.NoError(t, ca.PutGraph(ctx, "bot-7", cached))

	fs.failGet = true
	require.NoError(t, s.Open(ctx, "bot-7", "Cached Bot"))

	assert.Equal(t, StateReady, s.State())
	assert.True(t, s.Offline())
	assert.Len(t, s.Graph().Nodes, 2)
}

// TestSession_OpenFallsBackToSeed verifies no store and no cache still
// yields an editable starter graph.
func TestSession_OpenFallsBackToSeed(t *testing.T) {
	s, fs, _ := newTestSession(t)
	fs.failGet = true

	require.NoError(t, s.Open(context.Background(), "bot-9", "Unreachable"))

	assert.Equal(t, StateReady, s.State())
	assert.True(t, s.Offline())
	assert.Len(t, s.Graph().Nodes, 1)
}

// TestSession_OpenNoFallbackErrors verifies disabling offline fallback
// surfaces the transport error.
func TestSession_OpenNoFallbackErrors(t *testing.T) {
	fs := &flakyStore{MemoryStore: store.NewMemoryStore(), failGet: true}
	ca := cache.NewMemoryCache()
	settings := config.DefaultSettings()
	settings.OfflineFallback = false
	settings.NotifyDebounce = 0

	s := New(fs, ca, Options{Settings: settings})
	defer s.Close()

	err := s.Open(context.Background(), "bot-1", "x")
	require.Error(t, err)

	var te *store.TransportError
	assert.ErrorAs(t, err, &te)
	assert.Equal(t, StateUnloaded, s.State())
}

// TestSession_StaleLoadDiscarded verifies a load still in flight when
// the session moves on is dropped.
func TestSession_StaleLoadDiscarded(t *testing.T) {
	s, fs, _ := newTestSession(t)
	ctx := context.Background()

	slow, err := fs.MemoryStore.Create(ctx, store.Flow{
		Name: "Slow", FlowData: flowedit.SeedGraph(), NodeCount: 1,
	})
	require.NoError(t, err)

	gate := make(chan struct{})
	fs.gate = gate
	done := make(chan error, 1)
	go func() { done <- s.Open(ctx, slow.ID, "Slow") }()

	// Move to a fresh draft while the first load is blocked. Opening a
	// draft never touches the store, so the gate doesn't block it.
	require.Eventually(t, func() bool { return s.State() == StateLoading }, time.Second, time.Millisecond)
	require.NoError(t, s.Open(ctx, "", "Fresh"))
	draftID := s.BotID()

	// Release the slow load; its result must be discarded.
	close(gate)
	require.NoError(t, <-done)

	assert.Equal(t, draftID, s.BotID())
	assert.Equal(t, "Fresh", s.BotName())
}

// TestSession_MutationsMirrorToCache verifies every edit lands in the
// cache synchronously.
func TestSession_MutationsMirrorToCache(t *testing.T) {
	s, _, ca := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, "", "Bot"))

	n, err := s.AddNode(ctx, flowedit.NodeText, flowedit.Position{X: 500, Y: 200})
	require.NoError(t, err)

	cached, ok, err := ca.GetGraph(ctx, s.BotID())
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, cached.Nodes, 2)

	require.NoError(t, s.DeleteNode(ctx, n.ID))
	cached, _, err = ca.GetGraph(ctx, s.BotID())
	require.NoError(t, err)
	assert.Len(t, cached.Nodes, 1)
}

// TestSession_ConnectResolvesEdges verifies Connect updates both the
// node payload and the derived edge list.
func TestSession_ConnectResolvesEdges(t *testing.T) {
	s, _, _ := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, "", "Bot"))

	trigger := s.Graph().Nodes[0]
	text, err := s.AddNode(ctx, flowedit.NodeText, flowedit.Position{X: 600, Y: 100})
	require.NoError(t, err)

	require.NoError(t, s.Connect(ctx, trigger.ID, "", text.ID))

	g := s.Graph()
	require.Len(t, g.Edges, 1)
	assert.Equal(t, trigger.ID, g.Edges[0].Source)
	assert.Equal(t, text.ID, g.Edges[0].Target)

	require.NoError(t, s.Disconnect(ctx, trigger.ID, ""))
	assert.Empty(t, s.Graph().Edges)
}

// TestSession_UpdateNodeEnforcesButtonLimit verifies a payload edit
// pushing past the channel button limit is rejected and neither the
// working graph nor the cache mirror pick it up.
func TestSession_UpdateNodeEnforcesButtonLimit(t *testing.T) {
	s, _, ca := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, "", "Bot"))

	n, err := s.AddNode(ctx, flowedit.NodeButton, flowedit.Position{X: 600})
	require.NoError(t, err)

	err = s.UpdateNode(ctx, n.ID, func(data flowedit.NodeData) flowedit.NodeData {
		d := data.(*flowedit.ButtonData)
		d.Buttons = []flowedit.Button{
			{Label: "a"}, {Label: "b"}, {Label: "c"}, {Label: "d"},
		}
		return d
	})
	var ve *flowedit.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "buttons", ve.Field)

	got, ok := s.Graph().FindNode(n.ID)
	require.True(t, ok)
	assert.Empty(t, got.Data.(*flowedit.ButtonData).Buttons)

	cached, ok, err := ca.GetGraph(ctx, s.BotID())
	require.NoError(t, err)
	require.True(t, ok)
	got, ok = cached.FindNode(n.ID)
	require.True(t, ok)
	assert.Empty(t, got.Data.(*flowedit.ButtonData).Buttons)
}

// TestSession_EditBeforeOpen verifies mutations require a loaded flow.
func TestSession_EditBeforeOpen(t *testing.T) {
	s, _, _ := newTestSession(t)

	_, err := s.AddNode(context.Background(), flowedit.NodeText, flowedit.Position{})
	assert.ErrorIs(t, err, ErrNotReady)

	_, err = s.Save(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)
}

// TestSession_SaveRejectsEmptyFlow verifies an empty graph never
// reaches the store.
func TestSession_SaveRejectsEmptyFlow(t *testing.T) {
	s, fs, _ := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, "", "Bot"))

	trigger := s.Graph().Nodes[0]
	require.NoError(t, s.DeleteNode(ctx, trigger.ID))

	_, err := s.Save(ctx)
	var ve *flowedit.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "nodes", ve.Field)
	assert.Zero(t, fs.MemoryStore.Len())
}

// TestSession_FirstSaveAdoptsIdentity verifies the store-assigned ID
// replaces the provisional one and the cache is re-keyed.
func TestSession_FirstSaveAdoptsIdentity(t *testing.T) {
	s, fs, ca := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, "", "Bot"))
	provisional := s.BotID()

	saved, err := s.Save(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)
	assert.NotEqual(t, provisional, saved.ID)
	assert.Equal(t, saved.ID, s.BotID())

	// Cache entries moved to the new identity.
	_, ok, err := ca.GetGraph(ctx, provisional)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = ca.GetGraph(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// A second save updates in place rather than creating again.
	_, err = s.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fs.MemoryStore.Len())
}

// TestSession_SaveAfterOfflineLoadUpdatesInPlace verifies a bot opened
// through the cache fallback keeps its store identity: once the service
// is back, saving updates the existing record instead of creating a
// duplicate under a fresh id.
func TestSession_SaveAfterOfflineLoadUpdatesInPlace(t *testing.T) {
	s, fs, ca := newTestSession(t)
	ctx := context.Background()

	created, err := fs.MemoryStore.Create(ctx, store.Flow{
		Name: "Bot", FlowData: flowedit.SeedGraph(), NodeCount: 1,
	})
	require.NoError(t, err)

	draft := created.FlowData.AddNode(flowedit.NewNode(flowedit.NodeText, flowedit.Position{X: 600}))
	require.NoError(t, ca.PutGraph(ctx, created.ID, draft))

	fs.failGet = true
	require.NoError(t, s.Open(ctx, created.ID, "Bot"))
	require.True(t, s.Offline())
	require.Len(t, s.Graph().Nodes, 2)

	fs.failGet = false
	saved, err := s.Save(ctx)
	require.NoError(t, err)

	assert.Equal(t, created.ID, saved.ID)
	assert.Equal(t, created.ID, s.BotID())
	assert.Equal(t, 1, fs.MemoryStore.Len())
	assert.False(t, s.Offline())

	got, err := fs.MemoryStore.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, got.FlowData.Nodes, 2)
}

// TestSession_SaveAfterMissingFlowCreates verifies a flow the store
// reported missing is created on save, and the session adopts the new
// identity.
func TestSession_SaveAfterMissingFlowCreates(t *testing.T) {
	s, fs, _ := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.Open(ctx, "bot-gone", "Bot"))
	require.False(t, s.Offline())

	saved, err := s.Save(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, "bot-gone", saved.ID)
	assert.Equal(t, saved.ID, s.BotID())
	assert.Equal(t, 1, fs.MemoryStore.Len())
}

// TestSession_SaveFailureGoesOffline verifies a transport failure on
// save flags the session and keeps the draft cached.
func TestSession_SaveFailureGoesOffline(t *testing.T) {
	s, fs, ca := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, "", "Bot"))

	_, err := s.Save(ctx)
	require.NoError(t, err)

	fs.failGet = true
	_, err = s.Save(ctx)
	require.Error(t, err)
	assert.True(t, s.Offline())

	_, ok, err := ca.GetGraph(ctx, s.BotID())
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestSession_PublishRequiresSave verifies publish gating and the
// status round trip.
func TestSession_PublishRequiresSave(t *testing.T) {
	s, _, _ := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, "", "Bot"))

	_, err := s.Publish(ctx)
	assert.ErrorIs(t, err, ErrNotSaved)

	_, err = s.Save(ctx)
	require.NoError(t, err)

	flow, err := s.Publish(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.StatusPublished, flow.Status)
	assert.Equal(t, store.StatusPublished, s.Status())

	flow, err = s.Unpublish(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.StatusDraft, flow.Status)
}

// TestSession_Compile verifies compaction produces the runtime format
// with a start node.
func TestSession_Compile(t *testing.T) {
	s, _, _ := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, "", "Bot"))

	trigger := s.Graph().Nodes[0]
	text, err := s.AddNode(ctx, flowedit.NodeText, flowedit.Position{X: 600, Y: 100})
	require.NoError(t, err)
	require.NoError(t, s.Connect(ctx, trigger.ID, "", text.ID))

	flow, err := s.Compile(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, flow.Nodes)
	assert.Equal(t, flowedit.StartType, flow.Nodes[0].Type)
}

// TestSession_SubscribeDebounced verifies listeners receive the final
// graph after a burst of edits.
func TestSession_SubscribeDebounced(t *testing.T) {
	fs := &flakyStore{MemoryStore: store.NewMemoryStore()}
	ca := cache.NewMemoryCache()
	settings := config.DefaultSettings()
	settings.NotifyDebounce = 10 * time.Millisecond

	s := New(fs, ca, Options{Settings: settings})
	defer s.Close()
	ctx := context.Background()

	var calls atomic.Int32
	var lastCount atomic.Int32
	unsubscribe := s.Subscribe(func(g flowedit.Graph) {
		calls.Add(1)
		lastCount.Store(int32(len(g.Nodes)))
	})
	defer unsubscribe()

	require.NoError(t, s.Open(ctx, "", "Bot"))
	for i := 0; i < 5; i++ {
		_, err := s.AddNode(ctx, flowedit.NodeText, flowedit.Position{X: float64(i) * 100})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		return calls.Load() >= 1 && lastCount.Load() == 6
	}, time.Second, 5*time.Millisecond)
	assert.Less(t, calls.Load(), int32(6), "burst should coalesce")
}

// TestSession_AutoSave verifies edits persist on their own once the
// burst goes quiet.
func TestSession_AutoSave(t *testing.T) {
	fs := &flakyStore{MemoryStore: store.NewMemoryStore()}
	ca := cache.NewMemoryCache()
	settings := config.DefaultSettings()
	settings.NotifyDebounce = 0
	settings.SaveDebounce = 10 * time.Millisecond

	s := New(fs, ca, Options{Settings: settings, AutoSave: true})
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Open(ctx, "", "Bot"))
	_, err := s.AddNode(ctx, flowedit.NodeText, flowedit.Position{X: 600})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return fs.MemoryStore.Len() == 1 && !strings.HasPrefix(s.BotID(), "draft-")
	}, time.Second, 5*time.Millisecond)

	summaries, err := fs.MemoryStore.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 2, summaries[0].NodeCount)
}

// TestSession_Closed verifies operations fail after Close.
func TestSession_Closed(t *testing.T) {
	s, _, _ := newTestSession(t)
	require.NoError(t, s.Open(context.Background(), "", "Bot"))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	err := s.Open(context.Background(), "", "Bot")
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = s.Save(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
}
