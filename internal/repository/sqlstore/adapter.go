// Package sqlstore persists giveaways in a relational database through sqlx.
// SQLite (modernc.org/sqlite) and PostgreSQL (lib/pq) share one schema.
package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	apperrors "github.com/thenorthsolution/djs-utils/internal/common/errors"
	dg "github.com/thenorthsolution/djs-utils/internal/domain/giveaway"
)

type Adapter struct {
	dg.Notifier

	db     *sqlx.DB
	tables Tables
}

var _ dg.Adapter = (*Adapter)(nil)

// New wraps an open database. The adapter owns db and closes it on Close.
func New(db *sqlx.DB, tables Tables) *Adapter {
	return &Adapter{db: db, tables: tables.withDefaults()}
}

// Start creates the tables and indexes when missing.
func (a *Adapter) Start(ctx context.Context) error {
	for _, stmt := range a.tables.schema() {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return apperrors.NewStorageError("create schema", err)
		}
	}
	return nil
}

func (a *Adapter) Close() error {
	return a.db.Close()
}

func (a *Adapter) FetchGiveaways(ctx context.Context, q dg.GiveawayQuery) ([]dg.Giveaway, error) {
	gs, err := a.selectGiveaways(ctx, a.db, q)
	if err != nil {
		return nil, apperrors.NewStorageError("fetch giveaways", err)
	}
	return gs, nil
}

func (a *Adapter) selectGiveaways(ctx context.Context, ext sqlx.ExtContext, q dg.GiveawayQuery) ([]dg.Giveaway, error) {
	cond, args := where(giveawayClauses(q.Filter))
	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY "createdAt", "id"%s`,
		giveawayColumns, quote(a.tables.Giveaways), cond, limit(q.Limit))

	var rows []giveawayRow
	if err := sqlx.SelectContext(ctx, ext, &rows, ext.Rebind(query), args...); err != nil {
		return nil, err
	}
	out := make([]dg.Giveaway, 0, len(rows))
	for _, r := range rows {
		g, err := r.domain()
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (a *Adapter) selectEntries(ctx context.Context, ext sqlx.ExtContext, q dg.EntryQuery) ([]dg.Entry, error) {
	cond, args := where(entryClauses(q.Filter))
	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY "createdAt", "id"%s`,
		entryColumns, quote(a.tables.Entries), cond, limit(q.Limit))

	var rows []entryRow
	if err := sqlx.SelectContext(ctx, ext, &rows, ext.Rebind(query), args...); err != nil {
		return nil, err
	}
	out := make([]dg.Entry, 0, len(rows))
	for _, r := range rows {
		e, err := r.domain()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// execIn runs query with its trailing IN (?) expanded to ids.
func execIn(ctx context.Context, ext sqlx.ExtContext, query string, args ...any) error {
	expanded, expandedArgs, err := sqlx.In(query, args...)
	if err != nil {
		return err
	}
	_, err = ext.ExecContext(ctx, ext.Rebind(expanded), expandedArgs...)
	return err
}

func (a *Adapter) UpdateGiveaways(ctx context.Context, q dg.GiveawayQuery, patch dg.GiveawayPatch) ([]dg.Giveaway, error) {
	sets, err := giveawayAssignments(patch)
	if err != nil {
		return nil, apperrors.NewStorageError("encode patch", err)
	}

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperrors.NewStorageError("begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	before, err := a.selectGiveaways(ctx, tx, q)
	if err != nil {
		return nil, apperrors.NewStorageError("select giveaways", err)
	}
	if len(before) == 0 || len(sets) == 0 {
		return before, nil
	}

	ids := make([]string, len(before))
	after := make([]dg.Giveaway, len(before))
	for i, g := range before {
		ids[i] = g.ID
		after[i] = patch.Apply(g)
	}

	set, args := assignments(sets)
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE "id" IN (?)`, quote(a.tables.Giveaways), set)
	if err := execIn(ctx, tx, query, append(args, ids)...); err != nil {
		return nil, apperrors.NewStorageError("update giveaways", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewStorageError("commit", err)
	}

	a.GiveawaysUpdated(before, after)
	return after, nil
}

func (a *Adapter) DeleteGiveaways(ctx context.Context, q dg.GiveawayQuery) ([]dg.Giveaway, error) {
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperrors.NewStorageError("begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	deleted, err := a.selectGiveaways(ctx, tx, q)
	if err != nil {
		return nil, apperrors.NewStorageError("select giveaways", err)
	}
	if len(deleted) == 0 {
		return deleted, nil
	}
	ids := make([]string, len(deleted))
	for i, g := range deleted {
		ids[i] = g.ID
	}

	var rows []entryRow
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM %s WHERE "giveawayId" IN (?) ORDER BY "createdAt", "id"`,
		entryColumns, quote(a.tables.Entries)), ids)
	if err != nil {
		return nil, apperrors.NewStorageError("select entries", err)
	}
	if err := tx.SelectContext(ctx, &rows, tx.Rebind(query), args...); err != nil {
		return nil, apperrors.NewStorageError("select entries", err)
	}
	cascaded := make([]dg.Entry, 0, len(rows))
	for _, r := range rows {
		e, err := r.domain()
		if err != nil {
			return nil, apperrors.NewStorageError("decode entry", err)
		}
		cascaded = append(cascaded, e)
	}

	// Entries go explicitly so the cascade does not depend on the
	// connection's foreign key setting.
	if err := execIn(ctx, tx, fmt.Sprintf(`DELETE FROM %s WHERE "giveawayId" IN (?)`, quote(a.tables.Entries)), ids); err != nil {
		return nil, apperrors.NewStorageError("delete entries", err)
	}
	if err := execIn(ctx, tx, fmt.Sprintf(`DELETE FROM %s WHERE "id" IN (?)`, quote(a.tables.Giveaways)), ids); err != nil {
		return nil, apperrors.NewStorageError("delete giveaways", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewStorageError("commit", err)
	}

	a.GiveawaysDeleted(deleted, cascaded)
	return deleted, nil
}

func (a *Adapter) CreateGiveaway(ctx context.Context, g dg.Giveaway) (dg.Giveaway, error) {
	if g.MessageID == "" {
		return dg.Giveaway{}, apperrors.NewValidationError("message_id", "required")
	}
	g = dg.Normalize(g)

	values, err := giveawayValues(g)
	if err != nil {
		return dg.Giveaway{}, apperrors.NewStorageError("encode giveaway", err)
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		quote(a.tables.Giveaways), giveawayColumns)
	if _, err := a.db.ExecContext(ctx, a.db.Rebind(query), values...); err != nil {
		if isUniqueViolation(err) {
			return dg.Giveaway{}, apperrors.NewConflictError("giveaway", "message already hosts a giveaway")
		}
		return dg.Giveaway{}, apperrors.NewStorageError("insert giveaway", err)
	}

	a.GiveawaysCreated(g)
	return g, nil
}

func (a *Adapter) FetchEntries(ctx context.Context, q dg.EntryQuery) ([]dg.Entry, error) {
	es, err := a.selectEntries(ctx, a.db, q)
	if err != nil {
		return nil, apperrors.NewStorageError("fetch entries", err)
	}
	return es, nil
}

func (a *Adapter) UpdateEntries(ctx context.Context, q dg.EntryQuery, patch dg.EntryPatch) ([]dg.Entry, error) {
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperrors.NewStorageError("begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	before, err := a.selectEntries(ctx, tx, q)
	if err != nil {
		return nil, apperrors.NewStorageError("select entries", err)
	}
	if len(before) == 0 || patch.IsZero() {
		return before, nil
	}
	ids := make([]string, len(before))
	after := make([]dg.Entry, len(before))
	for i, e := range before {
		ids[i] = e.ID
		after[i] = patch.Apply(e)
	}

	query := fmt.Sprintf(`UPDATE %s SET "chance" = ? WHERE "id" IN (?)`, quote(a.tables.Entries))
	if err := execIn(ctx, tx, query, *patch.Chance, ids); err != nil {
		return nil, apperrors.NewStorageError("update entries", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewStorageError("commit", err)
	}

	a.EntriesUpdated(before, after)
	return after, nil
}

func (a *Adapter) DeleteEntries(ctx context.Context, q dg.EntryQuery) ([]dg.Entry, error) {
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperrors.NewStorageError("begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	deleted, err := a.selectEntries(ctx, tx, q)
	if err != nil {
		return nil, apperrors.NewStorageError("select entries", err)
	}
	if len(deleted) == 0 {
		return deleted, nil
	}
	ids := make([]string, len(deleted))
	for i, e := range deleted {
		ids[i] = e.ID
	}
	if err := execIn(ctx, tx, fmt.Sprintf(`DELETE FROM %s WHERE "id" IN (?)`, quote(a.tables.Entries)), ids); err != nil {
		return nil, apperrors.NewStorageError("delete entries", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewStorageError("commit", err)
	}

	a.EntriesDeleted(deleted)
	return deleted, nil
}

func (a *Adapter) CreateEntry(ctx context.Context, e dg.Entry) (dg.Entry, error) {
	e = dg.NormalizeEntry(e)

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return dg.Entry{}, apperrors.NewStorageError("begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	var parents int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE "id" = ?`, quote(a.tables.Giveaways))
	if err := tx.GetContext(ctx, &parents, tx.Rebind(query), e.GiveawayID); err != nil {
		return dg.Entry{}, apperrors.NewStorageError("select giveaway", err)
	}
	if parents == 0 {
		return dg.Entry{}, apperrors.NewGiveawayNotFoundError(e.GiveawayID)
	}

	query = fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?)`, quote(a.tables.Entries), entryColumns)
	if _, err := tx.ExecContext(ctx, tx.Rebind(query), e.ID, e.GiveawayID, e.UserID, e.Chance, formatTime(e.CreatedAt)); err != nil {
		if isUniqueViolation(err) {
			return dg.Entry{}, apperrors.NewConflictError("entry", "user already entered")
		}
		return dg.Entry{}, apperrors.NewStorageError("insert entry", err)
	}
	if err := tx.Commit(); err != nil {
		return dg.Entry{}, apperrors.NewStorageError("commit", err)
	}

	a.EntriesCreated(e)
	return e, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
