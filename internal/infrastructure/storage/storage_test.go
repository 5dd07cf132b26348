package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"JobsScanner/internal/domain"
)

const listingURL = "https://www.marugujarat.in/gpsc-recruitment/"

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewPostgresStore(db, "processed_listings")
	store.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return store, mock
}

func TestPostgresStore_Exists(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT 1 FROM "processed_listings" WHERE url = \$1`).
		WithArgs(listingURL).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(`SELECT 1 FROM "processed_listings" WHERE url = \$1`).
		WithArgs("https://example.com/new/").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	found, err := store.Exists(context.Background(), listingURL)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = store.Exists(context.Background(), "https://example.com/new/")
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ExistsFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT 1 FROM "processed_listings"`).
		WillReturnError(errors.New("connection reset"))

	_, err := store.Exists(context.Background(), listingURL)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStore)
}

func TestPostgresStore_RecordProcessed(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO "processed_listings" .*ON CONFLICT \(url\) DO NOTHING`).
		WithArgs(listingURL, "GPSC Recruitment 2026", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.RecordProcessed(context.Background(), listingURL, "GPSC Recruitment 2026"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordProcessedFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO "processed_listings"`).
		WillReturnError(errors.New("disk full"))

	err := store.RecordProcessed(context.Background(), listingURL, "title")
	assert.ErrorIs(t, err, domain.ErrStore)
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "processed_listings"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

type fakeCollection struct {
	docs     map[string]domain.ProcessingRecord
	countErr error
	insErr   error
}

func newFakeCollection() *fakeCollection {
	return &fakeCollection{docs: map[string]domain.ProcessingRecord{}}
}

func (f *fakeCollection) CountDocuments(_ context.Context, filter interface{}, _ ...*options.CountOptions) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	url, _ := filter.(bson.M)["url"].(string)
	if _, ok := f.docs[url]; ok {
		return 1, nil
	}
	return 0, nil
}

func (f *fakeCollection) InsertOne(_ context.Context, document interface{}, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	if f.insErr != nil {
		return nil, f.insErr
	}
	rec := document.(domain.ProcessingRecord)
	if _, ok := f.docs[rec.URL]; ok {
		return nil, mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "duplicate key"}}}
	}
	f.docs[rec.URL] = rec
	return &mongo.InsertOneResult{InsertedID: rec.URL}, nil
}

func TestMongoStore_RecordThenExists(t *testing.T) {
	coll := newFakeCollection()
	store := newMongoStoreWithCollection(coll)
	ctx := context.Background()

	found, err := store.Exists(ctx, listingURL)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.RecordProcessed(ctx, listingURL, "GPSC Recruitment 2026"))

	found, err = store.Exists(ctx, listingURL)
	require.NoError(t, err)
	assert.True(t, found)

	rec := coll.docs[listingURL]
	assert.Equal(t, "GPSC Recruitment 2026", rec.Title)
	assert.False(t, rec.ProcessedAt.IsZero())
}

func TestMongoStore_DuplicateInsertIsNotAnError(t *testing.T) {
	store := newMongoStoreWithCollection(newFakeCollection())
	ctx := context.Background()

	require.NoError(t, store.RecordProcessed(ctx, listingURL, "first"))
	assert.NoError(t, store.RecordProcessed(ctx, listingURL, "second"))
}

func TestMongoStore_Failures(t *testing.T) {
	coll := newFakeCollection()
	coll.countErr = errors.New("server selection timeout")
	coll.insErr = errors.New("not primary")
	store := newMongoStoreWithCollection(coll)

	_, err := store.Exists(context.Background(), listingURL)
	assert.ErrorIs(t, err, domain.ErrStore)

	err = store.RecordProcessed(context.Background(), listingURL, "t")
	assert.ErrorIs(t, err, domain.ErrStore)
}

func TestMongoStore_CloseWithoutClient(t *testing.T) {
	store := newMongoStoreWithCollection(newFakeCollection())
	assert.NoError(t, store.Close(context.Background()))
}

func TestOpen_UnsupportedScheme(t *testing.T) {
	_, err := Open(context.Background(), "redis://localhost:6379", "jobs", "processed", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStore)
	assert.Contains(t, err.Error(), "redis")
}
