package runbooks

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsbook/opsbook/internal/client"
	"github.com/opsbook/opsbook/internal/config"
	"github.com/opsbook/opsbook/internal/testserver"
	"github.com/opsbook/opsbook/internal/testutil"
)

func newApplier(t *testing.T) (*testserver.Server, *Applier) {
	t.Helper()
	srv := testserver.New(t)
	key := srv.AddUser("alice", "secret")
	c := client.New(&config.Config{APIEndpoint: srv.URL()}, client.StaticKey(key), testutil.SilentLogger())
	return srv, NewApplier(c, testutil.SilentLogger())
}

func TestApplier_CreatesThenUpdates(t *testing.T) {
	srv, applier := newApplier(t)
	ctx := context.Background()

	doc, err := Parse([]byte(sampleRunbook))
	require.NoError(t, err)

	created, err := applier.Apply(ctx, doc)
	require.NoError(t, err)
	assert.True(t, created.Created)
	assert.Equal(t, 1, created.Runbook.Version)
	require.Len(t, srv.RequestsTo(http.MethodPost, "/runbooks"), 1)

	doc.ID = created.Runbook.ID
	doc.Title = "Restart web tier (v2)"
	updated, err := applier.Apply(ctx, doc)
	require.NoError(t, err)
	assert.False(t, updated.Created)
	assert.Equal(t, 2, updated.Runbook.Version)
	stored, ok := srv.Runbook(doc.ID)
	require.True(t, ok)
	assert.Equal(t, "Restart web tier (v2)", stored.Title)
}

func TestApplier_UnknownID(t *testing.T) {
	_, applier := newApplier(t)

	_, err := applier.Apply(context.Background(), &Document{ID: "missing", Title: "x"})
	require.Error(t, err)
}
