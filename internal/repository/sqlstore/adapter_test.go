package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/thenorthsolution/djs-utils/internal/common/errors"
	dg "github.com/thenorthsolution/djs-utils/internal/domain/giveaway"
	"github.com/thenorthsolution/djs-utils/internal/platform/db"
	"github.com/thenorthsolution/djs-utils/internal/repository/repotest"
)

func newSQLiteAdapter(t *testing.T) dg.Adapter {
	conn, err := db.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "giveaways.db"))
	require.NoError(t, err)
	a := New(conn, Tables{})
	require.NoError(t, a.Start(context.Background()))
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestSQLiteContract(t *testing.T) {
	repotest.Run(t, newSQLiteAdapter)
}

func TestPostgresContract(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	repotest.Run(t, func(t *testing.T) dg.Adapter {
		conn, err := db.OpenPostgres(context.Background(), dsn)
		require.NoError(t, err)
		suffix := time.Now().Format("150405.000000")
		a := New(conn, Tables{Giveaways: "Giveaways_" + suffix, Entries: "GiveawayEntries_" + suffix})
		require.NoError(t, a.Start(context.Background()))
		t.Cleanup(func() {
			_, _ = conn.Exec(`DROP TABLE ` + quote(a.tables.Entries))
			_, _ = conn.Exec(`DROP TABLE ` + quote(a.tables.Giveaways))
			_ = a.Close()
		})
		return a
	})
}

func TestStoredTokens(t *testing.T) {
	a := newSQLiteAdapter(t).(*Adapter)
	ctx := context.Background()

	g := repotest.NewGiveaway("g1")
	g.RiggedUserIDs = []string{"r1"}
	created, err := a.CreateGiveaway(ctx, g)
	require.NoError(t, err)

	var row giveawayRow
	require.NoError(t, a.db.Get(&row, `SELECT `+giveawayColumns+` FROM "Giveaways" WHERE "id" = ?`, created.ID))
	assert.Equal(t, "false", row.Paused)
	assert.Equal(t, "false", row.Ended)
	assert.Equal(t, `["r1"]`, row.RiggedUsersID.String)
	assert.Equal(t, `[]`, row.WinnersEntryID)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`, row.DueDate)
}

func TestForeignKeyCascade(t *testing.T) {
	a := newSQLiteAdapter(t).(*Adapter)
	ctx := context.Background()

	g, err := a.CreateGiveaway(ctx, repotest.NewGiveaway("g1"))
	require.NoError(t, err)
	_, err = a.CreateEntry(ctx, dg.Entry{GiveawayID: g.ID, UserID: "u1"})
	require.NoError(t, err)

	_, err = a.db.Exec(`DELETE FROM "Giveaways" WHERE "id" = ?`, g.ID)
	require.NoError(t, err)

	var n int
	require.NoError(t, a.db.Get(&n, `SELECT COUNT(*) FROM "GiveawayEntries"`))
	assert.Zero(t, n)
}

func newMockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	a := New(sqlx.NewDb(conn, "postgres"), Tables{})
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = conn.Close()
	})
	return a, mock
}

func TestPostgresPlaceholders(t *testing.T) {
	a, mock := newMockAdapter(t)

	rows := sqlmock.NewRows([]string{"id", "guildId", "channelId", "messageId", "hostId", "name", "description",
		"winnerCount", "createdAt", "paused", "remaining", "ended", "dueDate", "riggedUsersId", "winnersEntryId"}).
		AddRow("1", "g1", "c1", "1", nil, "Nitro", nil, 1, "2024-01-01T00:00:00.000Z", "false", nil, "false",
			"2024-01-02T00:00:00.000Z", nil, "[]")
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "Giveaways" WHERE "guildId" = $1 AND "ended" = $2 ORDER BY "createdAt", "id" LIMIT 5`)).
		WithArgs("g1", "false").
		WillReturnRows(rows)

	got, err := a.FetchGiveaways(context.Background(), dg.GiveawayQuery{
		Filter: dg.GiveawayFilter{GuildID: dg.Ptr("g1"), Ended: dg.Ptr(false)},
		Limit:  5,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Nitro", got[0].Name)
	assert.False(t, got[0].Ended)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), got[0].DueDate)
}

func TestPostgresEmptyHostFilter(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "Giveaways" WHERE COALESCE("hostId", '') = $1`)).
		WithArgs("").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	got, err := a.FetchGiveaways(context.Background(), dg.GiveawayQuery{
		Filter: dg.GiveawayFilter{HostID: dg.Ptr("")},
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPostgresUniqueViolation(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "Giveaways"`)).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})

	_, err := a.CreateGiveaway(context.Background(), repotest.NewGiveaway("g1"))
	assert.True(t, apperrors.IsConflict(err), "got %v", err)
}

func TestStorageErrorsAreWrapped(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectBegin().WillReturnError(assert.AnError)

	_, err := a.DeleteGiveaways(context.Background(), dg.GiveawayByID("1"))
	assert.True(t, apperrors.IsStorage(err), "got %v", err)
	assert.ErrorIs(t, err, assert.AnError)
}
