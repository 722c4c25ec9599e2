// Package jsonfile stores giveaways in a single JSON document on disk.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	apperrors "github.com/thenorthsolution/djs-utils/internal/common/errors"
	dg "github.com/thenorthsolution/djs-utils/internal/domain/giveaway"
	"github.com/thenorthsolution/djs-utils/internal/repository/codec"
)

type document struct {
	Giveaways []codec.Giveaway `json:"giveaways"`
	Entries   []codec.Entry    `json:"entries"`
}

// Adapter keeps the whole dataset in one file. The file is re-read on
// every call so external edits are picked up, and rewritten atomically
// through a temporary file.
type Adapter struct {
	dg.Notifier

	path string
	mu   sync.Mutex
}

var _ dg.Adapter = (*Adapter)(nil)

func New(path string) *Adapter {
	return &Adapter{path: path}
}

// Start creates the file and its directory when missing.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return apperrors.NewStorageError("create directory", err)
	}
	if _, err := os.Stat(a.path); errors.Is(err, fs.ErrNotExist) {
		return a.save(&document{})
	} else if err != nil {
		return apperrors.NewStorageError("stat file", err)
	}
	_, err := a.load()
	return err
}

func (a *Adapter) Close() error { return nil }

func (a *Adapter) load() (*document, error) {
	raw, err := os.ReadFile(a.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &document{}, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError("read file", err)
	}
	doc := &document{}
	if len(raw) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, apperrors.NewStorageError("decode file", err)
	}
	return doc, nil
}

func (a *Adapter) save(doc *document) error {
	if doc.Giveaways == nil {
		doc.Giveaways = []codec.Giveaway{}
	}
	if doc.Entries == nil {
		doc.Entries = []codec.Entry{}
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperrors.NewStorageError("encode file", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(a.path), filepath.Base(a.path)+".*.tmp")
	if err != nil {
		return apperrors.NewStorageError("write file", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return apperrors.NewStorageError("write file", err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewStorageError("write file", err)
	}
	if err := os.Rename(tmp.Name(), a.path); err != nil {
		return apperrors.NewStorageError("replace file", err)
	}
	return nil
}

// mutate loads the document, runs fn and saves when fn reports a change.
func (a *Adapter) mutate(fn func(doc *document) (changed bool, err error)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	doc, err := a.load()
	if err != nil {
		return err
	}
	changed, err := fn(doc)
	if err != nil || !changed {
		return err
	}
	return a.save(doc)
}

func (a *Adapter) read() (*document, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.load()
}

func (a *Adapter) FetchGiveaways(ctx context.Context, q dg.GiveawayQuery) ([]dg.Giveaway, error) {
	doc, err := a.read()
	if err != nil {
		return nil, err
	}
	return matchGiveaways(doc, q), nil
}

func matchGiveaways(doc *document, q dg.GiveawayQuery) []dg.Giveaway {
	out := []dg.Giveaway{}
	for _, r := range doc.Giveaways {
		if g := r.Domain(); q.Filter.Match(g) {
			out = append(out, g)
			if q.Limit > 0 && len(out) == q.Limit {
				break
			}
		}
	}
	return out
}

func (a *Adapter) UpdateGiveaways(ctx context.Context, q dg.GiveawayQuery, patch dg.GiveawayPatch) ([]dg.Giveaway, error) {
	var before, after []dg.Giveaway
	err := a.mutate(func(doc *document) (bool, error) {
		before = matchGiveaways(doc, q)
		if len(before) == 0 || patch.IsZero() {
			return false, nil
		}
		for _, old := range before {
			updated := patch.Apply(old)
			i := slices.IndexFunc(doc.Giveaways, func(r codec.Giveaway) bool { return r.ID == old.ID })
			doc.Giveaways[i] = codec.FromGiveaway(updated)
			after = append(after, updated)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if after == nil {
		return before, nil
	}
	a.GiveawaysUpdated(before, after)
	return after, nil
}

func (a *Adapter) DeleteGiveaways(ctx context.Context, q dg.GiveawayQuery) ([]dg.Giveaway, error) {
	var deleted []dg.Giveaway
	var cascaded []dg.Entry
	err := a.mutate(func(doc *document) (bool, error) {
		deleted = matchGiveaways(doc, q)
		if len(deleted) == 0 {
			return false, nil
		}
		ids := make(map[string]struct{}, len(deleted))
		for _, g := range deleted {
			ids[g.ID] = struct{}{}
		}
		doc.Giveaways = slices.DeleteFunc(doc.Giveaways, func(r codec.Giveaway) bool {
			_, ok := ids[r.ID]
			return ok
		})
		doc.Entries = slices.DeleteFunc(doc.Entries, func(r codec.Entry) bool {
			if _, ok := ids[r.GiveawayID]; ok {
				cascaded = append(cascaded, r.Domain())
				return true
			}
			return false
		})
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	a.GiveawaysDeleted(deleted, cascaded)
	return deleted, nil
}

func (a *Adapter) CreateGiveaway(ctx context.Context, g dg.Giveaway) (dg.Giveaway, error) {
	if g.MessageID == "" {
		return dg.Giveaway{}, apperrors.NewValidationError("message_id", "required")
	}
	g = dg.Normalize(g)
	err := a.mutate(func(doc *document) (bool, error) {
		if slices.ContainsFunc(doc.Giveaways, func(r codec.Giveaway) bool { return r.ID == g.ID }) {
			return false, apperrors.NewConflictError("giveaway", "message already hosts a giveaway")
		}
		doc.Giveaways = append(doc.Giveaways, codec.FromGiveaway(g))
		return true, nil
	})
	if err != nil {
		return dg.Giveaway{}, err
	}
	a.GiveawaysCreated(g)
	return g, nil
}

func (a *Adapter) FetchEntries(ctx context.Context, q dg.EntryQuery) ([]dg.Entry, error) {
	doc, err := a.read()
	if err != nil {
		return nil, err
	}
	return matchEntries(doc, q), nil
}

func matchEntries(doc *document, q dg.EntryQuery) []dg.Entry {
	out := []dg.Entry{}
	for _, r := range doc.Entries {
		if e := r.Domain(); q.Filter.Match(e) {
			out = append(out, e)
			if q.Limit > 0 && len(out) == q.Limit {
				break
			}
		}
	}
	return out
}

func (a *Adapter) UpdateEntries(ctx context.Context, q dg.EntryQuery, patch dg.EntryPatch) ([]dg.Entry, error) {
	var before, after []dg.Entry
	err := a.mutate(func(doc *document) (bool, error) {
		before = matchEntries(doc, q)
		if len(before) == 0 || patch.IsZero() {
			return false, nil
		}
		for _, old := range before {
			updated := patch.Apply(old)
			i := slices.IndexFunc(doc.Entries, func(r codec.Entry) bool { return r.ID == old.ID })
			doc.Entries[i] = codec.FromEntry(updated)
			after = append(after, updated)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if after == nil {
		return before, nil
	}
	a.EntriesUpdated(before, after)
	return after, nil
}

func (a *Adapter) DeleteEntries(ctx context.Context, q dg.EntryQuery) ([]dg.Entry, error) {
	var deleted []dg.Entry
	err := a.mutate(func(doc *document) (bool, error) {
		deleted = matchEntries(doc, q)
		if len(deleted) == 0 {
			return false, nil
		}
		ids := make(map[string]struct{}, len(deleted))
		for _, e := range deleted {
			ids[e.ID] = struct{}{}
		}
		doc.Entries = slices.DeleteFunc(doc.Entries, func(r codec.Entry) bool {
			_, ok := ids[r.ID]
			return ok
		})
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	a.EntriesDeleted(deleted)
	return deleted, nil
}

func (a *Adapter) CreateEntry(ctx context.Context, e dg.Entry) (dg.Entry, error) {
	e = dg.NormalizeEntry(e)
	err := a.mutate(func(doc *document) (bool, error) {
		if !slices.ContainsFunc(doc.Giveaways, func(r codec.Giveaway) bool { return r.ID == e.GiveawayID }) {
			return false, apperrors.NewGiveawayNotFoundError(e.GiveawayID)
		}
		if slices.ContainsFunc(doc.Entries, func(r codec.Entry) bool {
			return r.GiveawayID == e.GiveawayID && r.UserID == e.UserID
		}) {
			return false, apperrors.NewConflictError("entry", "user already entered")
		}
		doc.Entries = append(doc.Entries, codec.FromEntry(e))
		return true, nil
	})
	if err != nil {
		return dg.Entry{}, err
	}
	a.EntriesCreated(e)
	return e, nil
}
