package codec

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dg "github.com/thenorthsolution/djs-utils/internal/domain/giveaway"
)

func TestGiveawayDocumentShape(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	g := dg.Giveaway{
		ID:          "100",
		GuildID:     "g",
		ChannelID:   "c",
		MessageID:   "100",
		Name:        "Prize",
		WinnerCount: 1,
		CreatedAt:   created,
		Paused:      true,
		Remaining:   90 * time.Second,
		DueDate:     created.Add(time.Hour),
	}

	raw, err := json.Marshal(FromGiveaway(g))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "2024-03-01T10:00:00Z", doc["createdAt"])
	assert.Equal(t, true, doc["paused"])
	assert.EqualValues(t, 90000, doc["remaining"])
	assert.Equal(t, []any{}, doc["winnersEntryId"])
	assert.NotContains(t, doc, "riggedUsersId")

	var back Giveaway
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, 90*time.Second, back.Domain().Remaining)
	assert.True(t, back.Domain().DueDate.Equal(g.DueDate))
}
