package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidianstack/rosterd/internal/api"
	"github.com/obsidianstack/rosterd/internal/store"
)

func newServer(t *testing.T, opts ...api.Option) (*Client, *store.Store) {
	t.Helper()
	st := store.New()
	srv := httptest.NewServer(api.New(st, opts...))
	t.Cleanup(srv.Close)
	return New(srv.URL + "/"), st
}

func TestClient_RoundTrip(t *testing.T) {
	c, st := newServer(t)
	ctx := context.Background()

	msg, err := c.Upsert(ctx, "bob", "ee")
	require.NoError(t, err)
	assert.Equal(t, api.MsgUpserted, msg)

	records, err := c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"bob": "ee"}, records)

	_, err = c.Replace(ctx, "bob", "me")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"bob": "me"}, st.Snapshot())

	msg, err = c.Remove(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, api.MsgRemoved, msg)

	records, err = c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records)
}

func TestClient_RemoveAbsentSucceeds(t *testing.T) {
	c, _ := newServer(t)
	_, err := c.Remove(context.Background(), "nobody")
	assert.NoError(t, err)
}

func TestClient_StatusError(t *testing.T) {
	c, st := newServer(t)

	_, err := c.Upsert(context.Background(), "", "cs")
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se), "want *StatusError, got %T", err)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, "name must not be empty", se.Message)
	assert.Zero(t, st.Len())
}

func TestClient_CustomPrefix(t *testing.T) {
	st := store.New()
	srv := httptest.NewServer(api.New(st, api.WithPrefix("/v2/roster")))
	t.Cleanup(srv.Close)

	c := New(srv.URL, WithPrefix("/v2/roster"))
	_, err := c.Upsert(context.Background(), "alice", "cs")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Len())

	_, err = New(srv.URL).List(context.Background())
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestClient_ContextCancelled(t *testing.T) {
	c, _ := newServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestErrorMessage_PlainBody(t *testing.T) {
	assert.Equal(t, "bad gateway", errorMessage([]byte("bad gateway\n")))
	assert.Equal(t, "nope", errorMessage([]byte(`{"error":"nope"}`)))
}

func TestStatusError_Error(t *testing.T) {
	assert.Equal(t, "rosterd: unexpected status 502", (&StatusError{Code: 502}).Error())
	assert.Equal(t, "rosterd: status 400: bad", (&StatusError{Code: 400, Message: "bad"}).Error())
}
