package redis

import (
	"context"
	"os"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dg "github.com/thenorthsolution/djs-utils/internal/domain/giveaway"
	platformredis "github.com/thenorthsolution/djs-utils/internal/platform/redis"
	"github.com/thenorthsolution/djs-utils/internal/repository/repotest"
)

func newAdapter(t *testing.T) *Adapter {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := platformredis.Open(ctx, platformredis.Options{Addr: addr})
	require.NoError(t, err)

	prefix := "test:" + gofakeit.LetterN(10) + ":"
	a := New(client, prefix)
	require.NoError(t, a.Start(ctx))
	t.Cleanup(func() {
		keys, _ := client.Keys(context.Background(), prefix+"*").Result()
		if len(keys) > 0 {
			_ = client.Del(context.Background(), keys...).Err()
		}
		_ = a.Close()
	})
	return a
}

func TestContract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) dg.Adapter { return newAdapter(t) })
}

func TestUserIndexReleasedOnDelete(t *testing.T) {
	a := newAdapter(t)
	ctx := context.Background()

	g, err := a.CreateGiveaway(ctx, repotest.NewGiveaway("g1"))
	require.NoError(t, err)
	_, err = a.CreateEntry(ctx, dg.Entry{GiveawayID: g.ID, UserID: "u1"})
	require.NoError(t, err)

	_, err = a.DeleteEntries(ctx, dg.EntriesOf(g.ID))
	require.NoError(t, err)

	again, err := a.CreateEntry(ctx, dg.Entry{GiveawayID: g.ID, UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "u1", again.UserID)
}

func TestKeys(t *testing.T) {
	a := New(nil, "p:")

	assert.Equal(t, "p:giveaway:1", a.giveawayKey("1"))
	assert.Equal(t, "p:giveaway:1:entries", a.giveawayEntriesKey("1"))
	assert.Equal(t, "p:giveaway:1:users", a.giveawayUsersKey("1"))
	assert.Equal(t, "p:entry:9", a.entryKey("9"))
}
