// Package mongostore persists expenses in a MongoDB collection, one document
// per record keyed by the expense id.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"spendlog/internal/core"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultDatabase   = "spendlog"
	CollectionName    = "expenses"
	defaultOpTimeout  = 10 * time.Second
	connectionTimeout = 10 * time.Second
)

type expenseDocument struct {
	ID          string    `bson:"_id"`
	DeviceID    string    `bson:"deviceId"`
	Title       string    `bson:"title"`
	Category    string    `bson:"category"`
	AmountCents int64     `bson:"amountCents"`
	ExpenseDate time.Time `bson:"expenseDate"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// Connect dials uri, verifies the connection and ensures the list index exists.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	if database == "" {
		database = DefaultDatabase
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	s := &Store{client: client, collection: client.Database(database).Collection(CollectionName)}
	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	slog.Info("Connected to MongoDB", "database", database, "collection", CollectionName)
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "deviceId", Value: 1}, {Key: "expenseDate", Value: -1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("device_expense_date"),
	})
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultOpTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return core.StoreError("ping mongodb", err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, e core.Expense) error {
	if _, err := s.collection.InsertOne(ctx, toDocument(e)); err != nil {
		return core.StoreError("insert expense", err)
	}
	return nil
}

func (s *Store) ListByDevice(ctx context.Context, deviceID string) ([]core.Expense, error) {
	opts := options.Find().SetSort(listSort())
	cur, err := s.collection.Find(ctx, bson.D{{Key: "deviceId", Value: deviceID}}, opts)
	if err != nil {
		return nil, core.StoreError("list expenses", err)
	}
	defer cur.Close(ctx)

	out := make([]core.Expense, 0)
	for cur.Next(ctx) {
		var doc expenseDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, core.StoreError("decode expense", err)
		}
		out = append(out, fromDocument(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, core.StoreError("list expenses", err)
	}
	return out, nil
}

func (s *Store) UpdateOwned(ctx context.Context, id, deviceID string, patch core.ExpensePatch, now time.Time) (core.Expense, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc expenseDocument
	err := s.collection.FindOneAndUpdate(ctx, ownedFilter(id, deviceID), updateDocument(patch, now), opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Expense{}, core.ErrNotFoundOrUnauthorized
	}
	if err != nil {
		return core.Expense{}, core.StoreError("update expense", err)
	}
	return fromDocument(doc), nil
}

func (s *Store) DeleteOwned(ctx context.Context, id, deviceID string) (core.Expense, error) {
	var doc expenseDocument
	err := s.collection.FindOneAndDelete(ctx, ownedFilter(id, deviceID)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Expense{}, core.ErrNotFoundOrUnauthorized
	}
	if err != nil {
		return core.Expense{}, core.StoreError("delete expense", err)
	}
	return fromDocument(doc), nil
}

func ownedFilter(id, deviceID string) bson.D {
	return bson.D{{Key: "_id", Value: id}, {Key: "deviceId", Value: deviceID}}
}

func listSort() bson.D {
	return bson.D{{Key: "expenseDate", Value: -1}, {Key: "createdAt", Value: -1}}
}

// updateDocument builds a $set covering only the fields present in patch.
func updateDocument(patch core.ExpensePatch, now time.Time) bson.D {
	set := bson.D{}
	if patch.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *patch.Title})
	}
	if patch.Category != nil {
		set = append(set, bson.E{Key: "category", Value: string(*patch.Category)})
	}
	if patch.Amount != nil {
		set = append(set, bson.E{Key: "amountCents", Value: patch.Amount.Cents})
	}
	if patch.ExpenseDate != nil {
		set = append(set, bson.E{Key: "expenseDate", Value: patch.ExpenseDate.Time})
	}
	set = append(set, bson.E{Key: "updatedAt", Value: now.UTC()})
	return bson.D{{Key: "$set", Value: set}}
}

func toDocument(e core.Expense) expenseDocument {
	return expenseDocument{
		ID:          e.ID,
		DeviceID:    e.DeviceID,
		Title:       e.Title,
		Category:    string(e.Category),
		AmountCents: e.Amount.Cents,
		ExpenseDate: e.ExpenseDate.Time,
		CreatedAt:   e.CreatedAt.UTC(),
		UpdatedAt:   e.UpdatedAt.UTC(),
	}
}

func fromDocument(d expenseDocument) core.Expense {
	date := d.ExpenseDate.UTC()
	return core.Expense{
		ID:          d.ID,
		DeviceID:    d.DeviceID,
		Title:       d.Title,
		Category:    core.Category(d.Category),
		Amount:      core.Money{Cents: d.AmountCents},
		ExpenseDate: core.NewDate(date.Year(), int(date.Month()), date.Day()),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}
