package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/thenorthsolution/djs-utils/internal/common/errors"
	dg "github.com/thenorthsolution/djs-utils/internal/domain/giveaway"
	"github.com/thenorthsolution/djs-utils/internal/repository/repotest"
)

func newAdapter(t *testing.T) dg.Adapter {
	a := New(filepath.Join(t.TempDir(), "nested", "giveaways.json"))
	require.NoError(t, a.Start(context.Background()))
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestContract(t *testing.T) {
	repotest.Run(t, newAdapter)
}

func TestFileLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "giveaways.json")
	a := New(path)
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))

	g, err := a.CreateGiveaway(ctx, repotest.NewGiveaway("g1"))
	require.NoError(t, err)
	_, err = a.CreateEntry(ctx, dg.Entry{GiveawayID: g.ID, UserID: "u1"})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		Giveaways []map[string]any `json:"giveaways"`
		Entries   []map[string]any `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc.Giveaways, 1)
	require.Len(t, doc.Entries, 1)
	assert.Equal(t, g.ID, doc.Giveaways[0]["messageId"])
	assert.Equal(t, false, doc.Giveaways[0]["ended"])
	assert.IsType(t, "", doc.Giveaways[0]["dueDate"])
	assert.Equal(t, g.ID, doc.Entries[0]["giveawayId"])
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "giveaways.json")
	ctx := context.Background()

	first := New(path)
	require.NoError(t, first.Start(ctx))
	g, err := first.CreateGiveaway(ctx, repotest.NewGiveaway("g1"))
	require.NoError(t, err)

	second := New(path)
	require.NoError(t, second.Start(ctx))
	got, err := second.FetchGiveaways(ctx, dg.GiveawayByID(g.ID))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, g.Name, got[0].Name)
}

func TestCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "giveaways.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	err := New(path).Start(context.Background())
	assert.True(t, apperrors.IsStorage(err), "got %v", err)
}
