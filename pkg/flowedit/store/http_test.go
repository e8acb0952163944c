package store

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newClientServerPair stands up the REST server over a memory store and
// returns an HTTPStore pointed at it.
func newClientServerPair(t *testing.T) (*HTTPStore, *MemoryStore) {
	t.Helper()
	mem := NewMemoryStore()
	srv := httptest.NewServer(NewServer(mem, nil).Routes())
	t.Cleanup(func() {
		srv.Close()
		mem.Close()
	})
	return NewHTTPStore(srv.URL, srv.Client()), mem
}

// TestHTTPStore_CreateGetRoundTrip verifies a flow created through the
// client comes back intact through the server.
func TestHTTPStore_CreateGetRoundTrip(t *testing.T) {
	client, _ := newClientServerPair(t)
	ctx := context.Background()

	created, err := client.Create(ctx, testFlow("Remote Flow"))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, StatusDraft, created.Status)

	got, err := client.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Remote Flow", got.Name)
	assert.Len(t, got.FlowData.Nodes, 1)
}

// TestHTTPStore_NotFound verifies 404 maps to ErrNotFound and carries
// transport details.
func TestHTTPStore_NotFound(t *testing.T) {
	client, _ := newClientServerPair(t)

	_, err := client.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusNotFound, te.StatusCode)
	assert.Equal(t, "get", te.Op)
}

// TestHTTPStore_CreateRejectsUnnamed verifies server-side validation
// surfaces as a transport error with the service's message.
func TestHTTPStore_CreateRejectsUnnamed(t *testing.T) {
	client, _ := newClientServerPair(t)

	_, err := client.Create(context.Background(), Flow{})
	require.Error(t, err)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusBadRequest, te.StatusCode)
	assert.Contains(t, te.Error(), "flow name is required")
}

// TestHTTPStore_UpdateListDelete verifies the remaining verbs against
// the real server routes.
func TestHTTPStore_UpdateListDelete(t *testing.T) {
	client, _ := newClientServerPair(t)
	ctx := context.Background()

	a, err := client.Create(ctx, testFlow("a"))
	require.NoError(t, err)
	b, err := client.Create(ctx, testFlow("b"))
	require.NoError(t, err)

	next := a
	next.Name = "a-renamed"
	updated, err := client.Update(ctx, a.ID, next)
	require.NoError(t, err)
	assert.Equal(t, "a-renamed", updated.Name)

	summaries, err := client.List(ctx)
	require.NoError(t, err)
	assert.Len(t, summaries, 2)

	require.NoError(t, client.Delete(ctx, b.ID))
	summaries, err = client.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "a-renamed", summaries[0].Name)
}

// TestHTTPStore_ListEmpty verifies an empty store yields an empty,
// non-nil slice over the wire.
func TestHTTPStore_ListEmpty(t *testing.T) {
	client, _ := newClientServerPair(t)

	summaries, err := client.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, summaries)
	assert.Empty(t, summaries)
}

// TestHTTPStore_PublishCycle verifies publish/unpublish through the
// full stack.
func TestHTTPStore_PublishCycle(t *testing.T) {
	client, _ := newClientServerPair(t)
	ctx := context.Background()

	created, err := client.Create(ctx, testFlow("cycle"))
	require.NoError(t, err)

	published, err := client.Publish(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, published.Status)

	draft, err := client.Unpublish(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, draft.Status)

	_, err = client.Publish(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestHTTPStore_ConnectionFailure verifies a dead endpoint produces a
// transport error without a status code.
func TestHTTPStore_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewHTTPStore(url, nil)
	_, err := client.Get(context.Background(), "any")
	require.Error(t, err)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Zero(t, te.StatusCode)
	assert.NotErrorIs(t, err, ErrNotFound)
}
