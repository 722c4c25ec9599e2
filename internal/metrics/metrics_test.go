package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/thenorthsolution/djs-utils/internal/common/errors"
	"github.com/thenorthsolution/djs-utils/internal/service/giveaway"
)

func TestObserve(t *testing.T) {
	c := New(prometheus.NewRegistry())

	events := []giveaway.Event{
		{Kind: giveaway.EventGiveawayCreate},
		{Kind: giveaway.EventGiveawayCreate},
		{Kind: giveaway.EventGiveawayPause},
		{Kind: giveaway.EventGiveawayResume},
		{Kind: giveaway.EventEntryAdd},
		{Kind: giveaway.EventEntryAdd},
		{Kind: giveaway.EventEntryRemove},
		{Kind: giveaway.EventGiveawayEnd, Entries: &giveaway.EntriesData{WinnerUserIDs: []string{"a", "b"}}},
		{Kind: giveaway.EventGiveawayEnd, Entries: &giveaway.EntriesData{}},
		{Kind: giveaway.EventGiveawayReroll, Entries: &giveaway.EntriesData{WinnerUserIDs: []string{"c"}}},
		{Kind: giveaway.EventGiveawayDelete},
		{Kind: giveaway.EventEntryCreate},
		{Kind: giveaway.EventError, Err: apperrors.NewMessageNotFoundError("1")},
		{Kind: giveaway.EventError, Err: errors.New("plain")},
	}
	for _, e := range events {
		c.Observe(e)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(c.GiveawaysCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.GiveawaysPaused))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.GiveawaysResumed))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.EntriesAdded))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.EntriesRemoved))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.GiveawaysEnded.WithLabelValues("winners")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.GiveawaysEnded.WithLabelValues("no_winner")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.GiveawaysRerolled))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.WinnersSelected))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.GiveawaysDeleted))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Errors.WithLabelValues("MESSAGE_NOT_FOUND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Errors.WithLabelValues("INTERNAL_ERROR")))
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	c.Observe(giveaway.Event{Kind: giveaway.EventGiveawayCreate})

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "giveaways_created_total 1")
}
