package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

const eventsSchema = `CREATE TABLE IF NOT EXISTS events (
	id             UUID PRIMARY KEY,
	aggregate_id   TEXT        NOT NULL,
	aggregate_type TEXT        NOT NULL,
	event_type     TEXT        NOT NULL,
	data           JSONB       NOT NULL,
	version        INTEGER     NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	UNIQUE (aggregate_id, version)
)`

const selectEvents = `SELECT id, aggregate_id, aggregate_type, event_type, data, version, created_at FROM events`

// PostgresEventStore stores the audit trail in PostgreSQL
type PostgresEventStore struct {
	db        *sql.DB
	publisher Publisher
}

func NewPostgresEventStore(db *sql.DB, publisher Publisher) *PostgresEventStore {
	return &PostgresEventStore{
		db:        db,
		publisher: publisher,
	}
}

// EnsureSchema creates the events table when missing
func (es *PostgresEventStore) EnsureSchema(ctx context.Context) error {
	if _, err := es.db.ExecContext(ctx, eventsSchema); err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}
	return nil
}

// Append inserts an event and publishes it inside one transaction; the insert
// is rolled back when publishing fails.
func (es *PostgresEventStore) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", eventType, err)
	}

	tx, err := es.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var currentVersion int
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM events WHERE aggregate_id = $1",
		aggregateID,
	).Scan(&currentVersion)
	if err != nil {
		return nil, err
	}

	event := Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     time.Now(),
		Version:       currentVersion + 1,
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (id, aggregate_id, aggregate_type, event_type, data, version, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID,
		event.AggregateID,
		event.AggregateType,
		event.EventType,
		[]byte(event.Data),
		event.Version,
		event.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	if es.publisher != nil {
		if err := es.publisher.Publish(ctx, aggregateID, event); err != nil {
			return nil, fmt.Errorf("failed to publish %s: %w", eventType, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &event, nil
}

// GetEvents returns all events for an aggregate in version order
func (es *PostgresEventStore) GetEvents(aggregateID string) []Event {
	return es.query(context.Background(),
		selectEvents+" WHERE aggregate_id = $1 ORDER BY version ASC", aggregateID)
}

// GetAllEvents returns the whole audit trail in creation order
func (es *PostgresEventStore) GetAllEvents() []Event {
	return es.query(context.Background(),
		selectEvents+" ORDER BY created_at ASC, version ASC")
}

// GetEventsByType returns all events of one aggregate type
func (es *PostgresEventStore) GetEventsByType(aggregateType string) []Event {
	return es.query(context.Background(),
		selectEvents+" WHERE aggregate_type = $1 ORDER BY created_at ASC, version ASC", aggregateType)
}

func (es *PostgresEventStore) query(ctx context.Context, q string, args ...any) []Event {
	rows, err := es.db.QueryContext(ctx, q, args...)
	if err != nil {
		log.Printf("[EventStore] Query failed: %v", err)
		return nil
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var data []byte
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.AggregateType, &e.EventType, &data, &e.Version, &e.Timestamp); err != nil {
			log.Printf("[EventStore] Skipping unreadable row: %v", err)
			continue
		}
		e.Data = json.RawMessage(data)
		events = append(events, e)
	}
	return events
}

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}
