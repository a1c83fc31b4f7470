package store_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/example/agri-workflow/internal/infrastructure/store"
	"github.com/example/agri-workflow/internal/infrastructure/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const maxVersionQuery = "SELECT COALESCE(MAX(version), 0) FROM events WHERE aggregate_id = $1"

var eventColumns = []string{"id", "aggregate_id", "aggregate_type", "event_type", "data", "version", "created_at"}

func TestPostgresEventStore_Append(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	publisher := mocks.NewMockPublisher()
	es := store.NewPostgresEventStore(db, publisher)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(maxVersionQuery)).
		WithArgs("ord_1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WithArgs(sqlmock.AnyArg(), "ord_1", "Order", "OrderStatusChanged", sqlmock.AnyArg(), 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	event, err := es.Append(context.Background(), "ord_1", "Order", "OrderStatusChanged", samplePayload{OrderID: "ord_1"})

	require.NoError(t, err)
	assert.Equal(t, 3, event.Version)
	assert.Len(t, publisher.Published, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEventStore_Append_PublishFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	publisher := mocks.NewMockPublisher()
	publisher.Err = errors.New("broker unavailable")
	es := store.NewPostgresEventStore(db, publisher)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(maxVersionQuery)).
		WithArgs("ord_1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectRollback()

	_, err = es.Append(context.Background(), "ord_1", "Order", "OrderCreated", samplePayload{})

	assert.ErrorIs(t, err, publisher.Err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEventStore_Append_InsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	publisher := mocks.NewMockPublisher()
	es := store.NewPostgresEventStore(db, publisher)
	conflict := errors.New("duplicate key value violates unique constraint")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(maxVersionQuery)).
		WithArgs("ord_1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).WillReturnError(conflict)
	mock.ExpectRollback()

	_, err = es.Append(context.Background(), "ord_1", "Order", "OrderStatusChanged", samplePayload{})

	assert.ErrorIs(t, err, conflict)
	assert.Empty(t, publisher.Published, "nothing is published for an event that was not stored")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEventStore_GetEvents(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	es := store.NewPostgresEventStore(db, nil)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE aggregate_id = $1 ORDER BY version ASC")).
		WithArgs("ord_1").
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow("e1", "ord_1", "Order", "OrderCreated", []byte(`{"order_id":"ord_1"}`), 1, created).
			AddRow("e2", "ord_1", "Order", "OrderStatusChanged", []byte(`{}`), 2, created.Add(time.Minute)))

	events := es.GetEvents("ord_1")

	require.Len(t, events, 2)
	assert.Equal(t, "OrderCreated", events[0].EventType)
	assert.JSONEq(t, `{"order_id":"ord_1"}`, string(events[0].Data))
	assert.Equal(t, 2, events[1].Version)
	assert.Equal(t, created, events[0].Timestamp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEventStore_GetAllEvents_QueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	es := store.NewPostgresEventStore(db, nil)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at ASC, version ASC")).
		WillReturnError(errors.New("connection reset"))

	assert.Empty(t, es.GetAllEvents())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEventStore_GetEventsByType(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	es := store.NewPostgresEventStore(db, nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE aggregate_type = $1")).
		WithArgs("Financing").
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow("e1", "fin_1", "Financing", "FinancingApplied", []byte(`{}`), 1, time.Now()))

	events := es.GetEventsByType("Financing")

	require.Len(t, events, 1)
	assert.Equal(t, "fin_1", events[0].AggregateID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEventStore_EnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	es := store.NewPostgresEventStore(db, nil)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS events")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, es.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
