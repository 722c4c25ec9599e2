// Package redis stores giveaways as JSON values in Redis with set indexes.
package redis

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/thenorthsolution/djs-utils/internal/common/errors"
	dg "github.com/thenorthsolution/djs-utils/internal/domain/giveaway"
	"github.com/thenorthsolution/djs-utils/internal/repository/codec"
)

// Adapter keeps one JSON value per record plus set indexes:
//
//	<prefix>giveaways                  ids of all giveaways
//	<prefix>giveaway:<id>              giveaway JSON
//	<prefix>giveaway:<id>:entries      ids of the giveaway's entries
//	<prefix>giveaway:<id>:users        userId -> entryId, enforces one entry per user
//	<prefix>entries                    ids of all entries
//	<prefix>entry:<id>                 entry JSON
type Adapter struct {
	dg.Notifier

	rdb    *redis.Client
	prefix string
	// mu serialises read-modify-write sequences within this process.
	mu sync.Mutex
}

var _ dg.Adapter = (*Adapter)(nil)

// New wraps rdb. The adapter owns rdb and closes it on Close.
func New(rdb *redis.Client, prefix string) *Adapter {
	return &Adapter{rdb: rdb, prefix: prefix}
}

func (a *Adapter) giveawaysKey() string                { return a.prefix + "giveaways" }
func (a *Adapter) giveawayKey(id string) string        { return a.prefix + "giveaway:" + id }
func (a *Adapter) giveawayEntriesKey(id string) string { return a.prefix + "giveaway:" + id + ":entries" }
func (a *Adapter) giveawayUsersKey(id string) string   { return a.prefix + "giveaway:" + id + ":users" }
func (a *Adapter) entriesKey() string                  { return a.prefix + "entries" }
func (a *Adapter) entryKey(id string) string           { return a.prefix + "entry:" + id }

func (a *Adapter) Start(ctx context.Context) error {
	if err := a.rdb.Ping(ctx).Err(); err != nil {
		return apperrors.NewStorageError("ping", err)
	}
	return nil
}

func (a *Adapter) Close() error {
	return a.rdb.Close()
}

func (a *Adapter) loadGiveaways(ctx context.Context, q dg.GiveawayQuery) ([]dg.Giveaway, error) {
	var ids []string
	if q.Filter.ID != nil {
		ids = []string{*q.Filter.ID}
	} else {
		var err error
		if ids, err = a.rdb.SMembers(ctx, a.giveawaysKey()).Result(); err != nil {
			return nil, apperrors.NewStorageError("list giveaways", err)
		}
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = a.giveawayKey(id)
	}
	values, err := a.mget(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := []dg.Giveaway{}
	for _, raw := range values {
		var r codec.Giveaway
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, apperrors.NewStorageError("decode giveaway", err)
		}
		if g := r.Domain(); q.Filter.Match(g) {
			out = append(out, g)
		}
	}
	slices.SortFunc(out, func(x, y dg.Giveaway) int {
		if c := x.CreatedAt.Compare(y.CreatedAt); c != 0 {
			return c
		}
		return dg.CompareIDs(x.ID, y.ID)
	})
	return dg.Limit(out, q.Limit), nil
}

func (a *Adapter) loadEntries(ctx context.Context, q dg.EntryQuery) ([]dg.Entry, error) {
	var (
		ids []string
		err error
	)
	switch {
	case q.Filter.ID != nil:
		ids = []string{*q.Filter.ID}
	case q.Filter.GiveawayID != nil:
		ids, err = a.rdb.SMembers(ctx, a.giveawayEntriesKey(*q.Filter.GiveawayID)).Result()
	default:
		ids, err = a.rdb.SMembers(ctx, a.entriesKey()).Result()
	}
	if err != nil {
		return nil, apperrors.NewStorageError("list entries", err)
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = a.entryKey(id)
	}
	values, err := a.mget(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := []dg.Entry{}
	for _, raw := range values {
		var r codec.Entry
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, apperrors.NewStorageError("decode entry", err)
		}
		if e := r.Domain(); q.Filter.Match(e) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(x, y dg.Entry) int { return dg.CompareIDs(x.ID, y.ID) })
	return dg.Limit(out, q.Limit), nil
}

// mget returns the values that exist among keys.
func (a *Adapter) mget(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	values, err := a.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, apperrors.NewStorageError("load values", err)
	}
	out := make([][]byte, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, []byte(s))
		}
	}
	return out, nil
}

func (a *Adapter) FetchGiveaways(ctx context.Context, q dg.GiveawayQuery) ([]dg.Giveaway, error) {
	return a.loadGiveaways(ctx, q)
}

func (a *Adapter) UpdateGiveaways(ctx context.Context, q dg.GiveawayQuery, patch dg.GiveawayPatch) ([]dg.Giveaway, error) {
	a.mu.Lock()
	before, err := a.loadGiveaways(ctx, q)
	if err != nil || len(before) == 0 || patch.IsZero() {
		a.mu.Unlock()
		return before, err
	}

	after := make([]dg.Giveaway, len(before))
	_, err = a.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, g := range before {
			after[i] = patch.Apply(g)
			data, err := json.Marshal(codec.FromGiveaway(after[i]))
			if err != nil {
				return err
			}
			pipe.Set(ctx, a.giveawayKey(g.ID), data, 0)
		}
		return nil
	})
	a.mu.Unlock()
	if err != nil {
		return nil, apperrors.NewStorageError("update giveaways", err)
	}

	a.GiveawaysUpdated(before, after)
	return after, nil
}

func (a *Adapter) DeleteGiveaways(ctx context.Context, q dg.GiveawayQuery) ([]dg.Giveaway, error) {
	a.mu.Lock()
	deleted, err := a.loadGiveaways(ctx, q)
	if err != nil || len(deleted) == 0 {
		a.mu.Unlock()
		return deleted, err
	}

	var cascaded []dg.Entry
	for _, g := range deleted {
		es, err := a.loadEntries(ctx, dg.EntriesOf(g.ID))
		if err != nil {
			a.mu.Unlock()
			return nil, err
		}
		cascaded = append(cascaded, es...)
	}

	_, err = a.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range cascaded {
			pipe.Del(ctx, a.entryKey(e.ID))
			pipe.SRem(ctx, a.entriesKey(), e.ID)
		}
		for _, g := range deleted {
			pipe.Del(ctx, a.giveawayKey(g.ID), a.giveawayEntriesKey(g.ID), a.giveawayUsersKey(g.ID))
			pipe.SRem(ctx, a.giveawaysKey(), g.ID)
		}
		return nil
	})
	a.mu.Unlock()
	if err != nil {
		return nil, apperrors.NewStorageError("delete giveaways", err)
	}

	a.GiveawaysDeleted(deleted, cascaded)
	return deleted, nil
}

func (a *Adapter) CreateGiveaway(ctx context.Context, g dg.Giveaway) (dg.Giveaway, error) {
	if g.MessageID == "" {
		return dg.Giveaway{}, apperrors.NewValidationError("message_id", "required")
	}
	g = dg.Normalize(g)
	data, err := json.Marshal(codec.FromGiveaway(g))
	if err != nil {
		return dg.Giveaway{}, apperrors.NewStorageError("encode giveaway", err)
	}

	ok, err := a.rdb.SetNX(ctx, a.giveawayKey(g.ID), data, 0).Result()
	if err != nil {
		return dg.Giveaway{}, apperrors.NewStorageError("insert giveaway", err)
	}
	if !ok {
		return dg.Giveaway{}, apperrors.NewConflictError("giveaway", "message already hosts a giveaway")
	}
	if err := a.rdb.SAdd(ctx, a.giveawaysKey(), g.ID).Err(); err != nil {
		return dg.Giveaway{}, apperrors.NewStorageError("index giveaway", err)
	}

	a.GiveawaysCreated(g)
	return g, nil
}

func (a *Adapter) FetchEntries(ctx context.Context, q dg.EntryQuery) ([]dg.Entry, error) {
	return a.loadEntries(ctx, q)
}

func (a *Adapter) UpdateEntries(ctx context.Context, q dg.EntryQuery, patch dg.EntryPatch) ([]dg.Entry, error) {
	a.mu.Lock()
	before, err := a.loadEntries(ctx, q)
	if err != nil || len(before) == 0 || patch.IsZero() {
		a.mu.Unlock()
		return before, err
	}

	after := make([]dg.Entry, len(before))
	_, err = a.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, e := range before {
			after[i] = patch.Apply(e)
			data, err := json.Marshal(codec.FromEntry(after[i]))
			if err != nil {
				return err
			}
			pipe.Set(ctx, a.entryKey(e.ID), data, 0)
		}
		return nil
	})
	a.mu.Unlock()
	if err != nil {
		return nil, apperrors.NewStorageError("update entries", err)
	}

	a.EntriesUpdated(before, after)
	return after, nil
}

func (a *Adapter) DeleteEntries(ctx context.Context, q dg.EntryQuery) ([]dg.Entry, error) {
	a.mu.Lock()
	deleted, err := a.loadEntries(ctx, q)
	if err != nil || len(deleted) == 0 {
		a.mu.Unlock()
		return deleted, err
	}

	_, err = a.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range deleted {
			pipe.Del(ctx, a.entryKey(e.ID))
			pipe.SRem(ctx, a.entriesKey(), e.ID)
			pipe.SRem(ctx, a.giveawayEntriesKey(e.GiveawayID), e.ID)
			pipe.HDel(ctx, a.giveawayUsersKey(e.GiveawayID), e.UserID)
		}
		return nil
	})
	a.mu.Unlock()
	if err != nil {
		return nil, apperrors.NewStorageError("delete entries", err)
	}

	a.EntriesDeleted(deleted)
	return deleted, nil
}

func (a *Adapter) CreateEntry(ctx context.Context, e dg.Entry) (dg.Entry, error) {
	e = dg.NormalizeEntry(e)
	data, err := json.Marshal(codec.FromEntry(e))
	if err != nil {
		return dg.Entry{}, apperrors.NewStorageError("encode entry", err)
	}

	if err := a.insertEntry(ctx, e, data); err != nil {
		return dg.Entry{}, err
	}

	a.EntriesCreated(e)
	return e, nil
}

func (a *Adapter) insertEntry(ctx context.Context, e dg.Entry, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	exists, err := a.rdb.Exists(ctx, a.giveawayKey(e.GiveawayID)).Result()
	if err != nil {
		return apperrors.NewStorageError("check giveaway", err)
	}
	if exists == 0 {
		return apperrors.NewGiveawayNotFoundError(e.GiveawayID)
	}

	claimed, err := a.rdb.HSetNX(ctx, a.giveawayUsersKey(e.GiveawayID), e.UserID, e.ID).Result()
	if err != nil {
		return apperrors.NewStorageError("claim entry", err)
	}
	if !claimed {
		return apperrors.NewConflictError("entry", "user already entered")
	}

	_, err = a.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, a.entryKey(e.ID), data, 0)
		pipe.SAdd(ctx, a.entriesKey(), e.ID)
		pipe.SAdd(ctx, a.giveawayEntriesKey(e.GiveawayID), e.ID)
		return nil
	})
	if err != nil {
		// Release the claim so the user can retry.
		_ = a.rdb.HDel(context.WithoutCancel(ctx), a.giveawayUsersKey(e.GiveawayID), e.UserID).Err()
		return apperrors.NewStorageError("insert entry", err)
	}
	return nil
}
