package workers

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dg "github.com/thenorthsolution/djs-utils/internal/domain/giveaway"
	platformredis "github.com/thenorthsolution/djs-utils/internal/platform/redis"
	"github.com/thenorthsolution/djs-utils/internal/service/giveaway"
)

type fakeCleanService struct {
	CleanFunc func(ctx context.Context, giveaways []dg.Giveaway) ([]dg.Giveaway, error)
}

func (f *fakeCleanService) Clean(ctx context.Context, giveaways []dg.Giveaway) ([]dg.Giveaway, error) {
	return f.CleanFunc(ctx, giveaways)
}

func TestCleanerRunOnce(t *testing.T) {
	tests := []struct {
		name      string
		cleaned   []dg.Giveaway
		err       error
		wantCount int
		wantErr   bool
	}{
		{name: "nothing to clean", cleaned: []dg.Giveaway{}},
		{name: "orphans removed", cleaned: []dg.Giveaway{{ID: "1"}, {ID: "2"}}, wantCount: 2},
		{name: "service failure", err: errors.New("storage down"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeCleanService{CleanFunc: func(_ context.Context, gs []dg.Giveaway) ([]dg.Giveaway, error) {
				assert.Nil(t, gs)
				return tt.cleaned, tt.err
			}}
			c, err := NewCleaner(svc, "@every 1h", zerolog.Nop())
			require.NoError(t, err)

			n, err := c.RunOnce(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, n)
		})
	}
}

func TestCleanerSchedule(t *testing.T) {
	_, err := NewCleaner(&fakeCleanService{}, "not a schedule", zerolog.Nop())
	assert.Error(t, err)

	var runs atomic.Int32
	svc := &fakeCleanService{CleanFunc: func(context.Context, []dg.Giveaway) ([]dg.Giveaway, error) {
		runs.Add(1)
		return nil, nil
	}}
	c, err := NewCleaner(svc, "@every 1s", zerolog.Nop())
	require.NoError(t, err)

	c.Start(context.Background())
	require.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	c.Stop()
}

type call struct {
	method string
	args   []string
}

type recordingListener struct {
	mu    sync.Mutex
	calls []call
}

func (l *recordingListener) record(method string, args ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call{method: method, args: args})
}

func (l *recordingListener) Calls() []call {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]call(nil), l.calls...)
}

func (l *recordingListener) GuildDelete(_ context.Context, guildID string) {
	l.record("GuildDelete", guildID)
}

func (l *recordingListener) ChannelDelete(_ context.Context, channelID string) {
	l.record("ChannelDelete", channelID)
}

func (l *recordingListener) MessageDelete(_ context.Context, channelID, messageID string) {
	l.record("MessageDelete", channelID, messageID)
}

func (l *recordingListener) MessageDeleteBulk(_ context.Context, channelID string, messageIDs []string) {
	l.record("MessageDeleteBulk", append([]string{channelID}, messageIDs...)...)
}

func (l *recordingListener) InteractionCreate(context.Context, giveaway.Interaction) {}

const (
	guildID   = "200000000000000001"
	channelID = "300000000000000001"
	messageA  = "400000000000000001"
	messageB  = "400000000000000002"
)

func TestProcessMessage(t *testing.T) {
	tests := []struct {
		name    string
		event   StreamEvent
		want    *call
		wantErr bool
	}{
		{
			name:  "guild delete",
			event: StreamEvent{Type: EventGuildDelete, GuildID: guildID},
			want:  &call{"GuildDelete", []string{guildID}},
		},
		{
			name:  "channel delete",
			event: StreamEvent{Type: EventChannelDelete, ChannelID: channelID},
			want:  &call{"ChannelDelete", []string{channelID}},
		},
		{
			name:  "message delete",
			event: StreamEvent{Type: EventMessageDelete, ChannelID: channelID, MessageIDs: []string{messageA}},
			want:  &call{"MessageDelete", []string{channelID, messageA}},
		},
		{
			name:  "bulk delete",
			event: StreamEvent{Type: EventMessageDeleteBulk, ChannelID: channelID, MessageIDs: []string{messageA, messageB}},
			want:  &call{"MessageDeleteBulk", []string{channelID, messageA, messageB}},
		},
		{
			name:  "bulk delete of one",
			event: StreamEvent{Type: EventMessageDeleteBulk, ChannelID: channelID, MessageIDs: []string{messageA}},
			want:  &call{"MessageDeleteBulk", []string{channelID, messageA}},
		},
		{
			name:    "missing guild id",
			event:   StreamEvent{Type: EventGuildDelete},
			wantErr: true,
		},
		{
			name:    "malformed message id",
			event:   StreamEvent{Type: EventMessageDeleteBulk, ChannelID: channelID, MessageIDs: []string{messageA, "oops"}},
			wantErr: true,
		},
		{
			name:    "unknown type",
			event:   StreamEvent{Type: "bot_removed", ChannelID: channelID},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &recordingListener{}
			w := NewStreamBridge(nil, "events", "group", l, zerolog.Nop())

			err := w.processMessage(context.Background(), tt.event.Values())
			if tt.wantErr {
				assert.Error(t, err)
				assert.Empty(t, l.Calls())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []call{*tt.want}, l.Calls())
		})
	}
}

func TestStreamBridgeRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := platformredis.Open(ctx, platformredis.Options{Addr: addr})
	require.NoError(t, err)
	key := "test:events:" + gofakeit.LetterN(10)
	t.Cleanup(func() {
		_ = rdb.Del(context.Background(), key).Err()
		_ = rdb.Close()
	})

	l := &recordingListener{}
	w := NewStreamBridge(rdb, key, "test", l, zerolog.Nop())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// The group is created at the stream tail, so publish until the
	// consumer picks an event up.
	require.Eventually(t, func() bool {
		require.NoError(t, Publish(ctx, rdb, key, StreamEvent{Type: EventChannelDelete, ChannelID: channelID}))
		return len(l.Calls()) > 0
	}, 10*time.Second, 200*time.Millisecond)
	assert.Equal(t, "ChannelDelete", l.Calls()[0].method)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("stream bridge did not stop")
	}
}
