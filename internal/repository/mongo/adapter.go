// Package mongo stores giveaways and entries as MongoDB documents.
package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "github.com/thenorthsolution/djs-utils/internal/common/errors"
	dg "github.com/thenorthsolution/djs-utils/internal/domain/giveaway"
)

// Collections names the two collections the adapter owns.
type Collections struct {
	Giveaways string
	Entries   string
}

type Adapter struct {
	dg.Notifier

	client    *mongo.Client
	giveaways *mongo.Collection
	entries   *mongo.Collection
}

var _ dg.Adapter = (*Adapter)(nil)

// New binds the adapter to database. The adapter owns client and
// disconnects it on Close.
func New(client *mongo.Client, database string, cols Collections) *Adapter {
	if cols.Giveaways == "" {
		cols.Giveaways = "Giveaways"
	}
	if cols.Entries == "" {
		cols.Entries = "GiveawayEntries"
	}
	db := client.Database(database)
	return &Adapter{
		client:    client,
		giveaways: db.Collection(cols.Giveaways),
		entries:   db.Collection(cols.Entries),
	}
}

// Start ensures the unique indexes exist.
func (a *Adapter) Start(ctx context.Context) error {
	_, err := a.giveaways.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "messageId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return apperrors.NewStorageError("create giveaway indexes", err)
	}
	_, err = a.entries.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "giveawayId", Value: 1}, {Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "giveawayId", Value: 1}, {Key: "createdAt", Value: 1}}},
	})
	if err != nil {
		return apperrors.NewStorageError("create entry indexes", err)
	}
	return nil
}

func (a *Adapter) Close() error {
	return a.client.Disconnect(context.Background())
}

func findOptions(limit int) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}

func (a *Adapter) findGiveaways(ctx context.Context, filter bson.D, limit int) ([]dg.Giveaway, error) {
	cur, err := a.giveaways.Find(ctx, filter, findOptions(limit))
	if err != nil {
		return nil, apperrors.NewStorageError("find giveaways", err)
	}
	var docs []giveawayDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, apperrors.NewStorageError("decode giveaways", err)
	}
	out := make([]dg.Giveaway, len(docs))
	for i, d := range docs {
		out[i] = d.domain()
	}
	return out, nil
}

func (a *Adapter) findEntries(ctx context.Context, filter bson.D, limit int) ([]dg.Entry, error) {
	cur, err := a.entries.Find(ctx, filter, findOptions(limit))
	if err != nil {
		return nil, apperrors.NewStorageError("find entries", err)
	}
	var docs []entryDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, apperrors.NewStorageError("decode entries", err)
	}
	out := make([]dg.Entry, len(docs))
	for i, d := range docs {
		out[i] = d.domain()
	}
	return out, nil
}

func (a *Adapter) FetchGiveaways(ctx context.Context, q dg.GiveawayQuery) ([]dg.Giveaway, error) {
	return a.findGiveaways(ctx, giveawayFilter(q.Filter), q.Limit)
}

func (a *Adapter) UpdateGiveaways(ctx context.Context, q dg.GiveawayQuery, patch dg.GiveawayPatch) ([]dg.Giveaway, error) {
	before, err := a.findGiveaways(ctx, giveawayFilter(q.Filter), q.Limit)
	if err != nil || len(before) == 0 || patch.IsZero() {
		return before, err
	}

	ids := make([]string, len(before))
	after := make([]dg.Giveaway, len(before))
	for i, g := range before {
		ids[i] = g.ID
		after[i] = patch.Apply(g)
	}
	if _, err := a.giveaways.UpdateMany(ctx, inIDs(ids), giveawaySet(patch)); err != nil {
		return nil, apperrors.NewStorageError("update giveaways", err)
	}

	a.GiveawaysUpdated(before, after)
	return after, nil
}

// DeleteGiveaways removes the giveaways and their entries. MongoDB offers
// no cross-collection atomicity without a replica set, so entries are
// removed first and a failure leaves the giveaways in place.
func (a *Adapter) DeleteGiveaways(ctx context.Context, q dg.GiveawayQuery) ([]dg.Giveaway, error) {
	deleted, err := a.findGiveaways(ctx, giveawayFilter(q.Filter), q.Limit)
	if err != nil || len(deleted) == 0 {
		return deleted, err
	}
	ids := make([]string, len(deleted))
	for i, g := range deleted {
		ids[i] = g.ID
	}

	byParent := bson.D{{Key: "giveawayId", Value: bson.D{{Key: "$in", Value: ids}}}}
	cascaded, err := a.findEntries(ctx, byParent, 0)
	if err != nil {
		return nil, err
	}
	if _, err := a.entries.DeleteMany(ctx, byParent); err != nil {
		return nil, apperrors.NewStorageError("delete entries", err)
	}
	if _, err := a.giveaways.DeleteMany(ctx, inIDs(ids)); err != nil {
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

	if _, err := a.giveaways.InsertOne(ctx, fromGiveaway(g)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return dg.Giveaway{}, apperrors.NewConflictError("giveaway", "message already hosts a giveaway")
		}
		return dg.Giveaway{}, apperrors.NewStorageError("insert giveaway", err)
	}

	a.GiveawaysCreated(g)
	return g, nil
}

func (a *Adapter) FetchEntries(ctx context.Context, q dg.EntryQuery) ([]dg.Entry, error) {
	return a.findEntries(ctx, entryFilter(q.Filter), q.Limit)
}

func (a *Adapter) UpdateEntries(ctx context.Context, q dg.EntryQuery, patch dg.EntryPatch) ([]dg.Entry, error) {
	before, err := a.findEntries(ctx, entryFilter(q.Filter), q.Limit)
	if err != nil || len(before) == 0 || patch.IsZero() {
		return before, err
	}
	ids := make([]string, len(before))
	after := make([]dg.Entry, len(before))
	for i, e := range before {
		ids[i] = e.ID
		after[i] = patch.Apply(e)
	}

	update := bson.D{{Key: "$set", Value: bson.D{{Key: "chance", Value: *patch.Chance}}}}
	if _, err := a.entries.UpdateMany(ctx, inIDs(ids), update); err != nil {
		return nil, apperrors.NewStorageError("update entries", err)
	}

	a.EntriesUpdated(before, after)
	return after, nil
}

func (a *Adapter) DeleteEntries(ctx context.Context, q dg.EntryQuery) ([]dg.Entry, error) {
	deleted, err := a.findEntries(ctx, entryFilter(q.Filter), q.Limit)
	if err != nil || len(deleted) == 0 {
		return deleted, err
	}
	ids := make([]string, len(deleted))
	for i, e := range deleted {
		ids[i] = e.ID
	}
	if _, err := a.entries.DeleteMany(ctx, inIDs(ids)); err != nil {
		return nil, apperrors.NewStorageError("delete entries", err)
	}

	a.EntriesDeleted(deleted)
	return deleted, nil
}

func (a *Adapter) CreateEntry(ctx context.Context, e dg.Entry) (dg.Entry, error) {
	e = dg.NormalizeEntry(e)

	n, err := a.giveaways.CountDocuments(ctx, bson.D{{Key: "_id", Value: e.GiveawayID}}, options.Count().SetLimit(1))
	if err != nil {
		return dg.Entry{}, apperrors.NewStorageError("count giveaways", err)
	}
	if n == 0 {
		return dg.Entry{}, apperrors.NewGiveawayNotFoundError(e.GiveawayID)
	}

	if _, err := a.entries.InsertOne(ctx, fromEntry(e)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return dg.Entry{}, apperrors.NewConflictError("entry", "user already entered")
		}
		return dg.Entry{}, apperrors.NewStorageError("insert entry", err)
	}

	a.EntriesCreated(e)
	return e, nil
}

func inIDs(ids []string) bson.D {
	return bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}
}
