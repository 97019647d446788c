package calendar

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/eunsilkim-ELSA/family-calendar/internal/database"
	log "github.com/sirupsen/logrus"
)

const eventTable = "calendar_event"

// SQLRepository stores one row per slot record. Bucket order is the insertion order (row id).
type SQLRepository struct {
	conn    database.Conn
	tx      database.Tx
	dialect goqu.DialectWrapper
}

type eventRow struct {
	id    int64
	key   string
	event Event
}

func NewSQLRepository(conn database.Conn) *SQLRepository {
	return &SQLRepository{conn: conn, dialect: goqu.Dialect(conn.Dialect())}
}

// getQueryer returns the appropriate database interface for queries (either tx or conn)
func (r *SQLRepository) getQueryer() database.Queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.conn
}

func (r *SQLRepository) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	return r.inTransaction(ctx, func(txRepo *SQLRepository) error {
		return fn(txRepo)
	})
}

func (r *SQLRepository) inTransaction(ctx context.Context, fn func(txRepo *SQLRepository) error) error {
	if r.tx != nil {
		return fn(r)
	}
	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// The Rollback will be a no-op if the transaction was already committed
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, database.ErrTxDone) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	txRepo := &SQLRepository{conn: r.conn, tx: tx, dialect: r.dialect}
	if err := fn(txRepo); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *SQLRepository) selectEvents() *goqu.SelectDataset {
	return r.dialect.From(eventTable).
		Prepared(true).
		Select("id", "slot_key", "text", "bg", "who", "event_id", "memo")
}

// queryRows runs a select and reads it to the end, so the caller can issue further statements
// on the same transaction.
func (r *SQLRepository) queryRows(ctx context.Context, ds *goqu.SelectDataset) ([]eventRow, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := r.getQueryer().Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []eventRow
	for rows.Next() {
		var row eventRow
		var memo sql.NullString
		if err := rows.Scan(
			&row.id,
			&row.key,
			&row.event.Text,
			&row.event.Bg,
			&row.event.Who,
			&row.event.EventId,
			&memo,
		); err != nil {
			return nil, err
		}
		row.event.Memo = memo.String
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLRepository) exec(ctx context.Context, sqlizer interface {
	ToSQL() (string, []any, error)
}) (int64, error) {
	query, args, err := sqlizer.ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build statement: %w", err)
	}
	return r.getQueryer().Exec(ctx, query, args...)
}

func (r *SQLRepository) GetBoard(ctx context.Context) (Board, error) {
	rows, err := r.queryRows(ctx, r.selectEvents().Order(goqu.I("slot_key").Asc(), goqu.I("id").Asc()))
	if err != nil {
		log.Errorf("failed to load calendar events: %v", err)
		return nil, fmt.Errorf("failed to load calendar events: %w", err)
	}
	board := make(Board)
	for _, row := range rows {
		board[row.key] = append(board[row.key], row.event)
	}
	return board, nil
}

func (r *SQLRepository) GetEvent(ctx context.Context, eventId string) (Event, error) {
	if eventId == "" {
		return Event{}, fmt.Errorf("%w: empty event id", ErrEventNotFound)
	}
	rows, err := r.queryRows(ctx, r.selectEvents().
		Where(goqu.C("event_id").Eq(eventId)).
		Order(goqu.I("id").Asc()).
		Limit(1))
	if err != nil {
		log.Errorf("failed to get event %s: %v", eventId, err)
		return Event{}, fmt.Errorf("failed to get event: %w", err)
	}
	if len(rows) == 0 {
		return Event{}, fmt.Errorf("%w: %s", ErrEventNotFound, eventId)
	}
	return rows[0].event, nil
}

// rowAt finds the record at position index of a bucket.
func (r *SQLRepository) rowAt(ctx context.Context, key string, index int) (eventRow, error) {
	if index < 0 {
		return eventRow{}, fmt.Errorf("%w: %s[%d]", ErrEventNotFound, key, index)
	}
	rows, err := r.queryRows(ctx, r.selectEvents().
		Where(goqu.C("slot_key").Eq(key)).
		Order(goqu.I("id").Asc()).
		Limit(1).
		Offset(uint(index)))
	if err != nil {
		log.Errorf("failed to get event %s[%d]: %v", key, index, err)
		return eventRow{}, fmt.Errorf("failed to get event: %w", err)
	}
	if len(rows) == 0 {
		return eventRow{}, fmt.Errorf("%w: %s[%d]", ErrEventNotFound, key, index)
	}
	return rows[0], nil
}

func (r *SQLRepository) GetEventAt(ctx context.Context, key string, index int) (Event, error) {
	row, err := r.rowAt(ctx, key, index)
	if err != nil {
		return Event{}, err
	}
	return row.event, nil
}

func (r *SQLRepository) StoreEvents(ctx context.Context, events []SlotEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.inTransaction(ctx, func(txRepo *SQLRepository) error {
		// One statement per record keeps the row ids in the order of events.
		for _, e := range events {
			insert := txRepo.dialect.Insert(eventTable).Prepared(true).Rows(goqu.Record{
				"slot_key": e.Key,
				"text":     e.Event.Text,
				"bg":       e.Event.Bg,
				"who":      e.Event.Who,
				"event_id": e.Event.EventId,
				"memo":     nullable(e.Event.Memo),
			})
			if _, err := txRepo.exec(ctx, insert); err != nil {
				log.Errorf("failed to store event in %s: %v", e.Key, err)
				return fmt.Errorf("failed to store event: %w", err)
			}
		}
		return nil
	})
}

func (r *SQLRepository) UpdateEvents(ctx context.Context, eventId string, update func(Event) Event) (int, error) {
	if eventId == "" {
		return 0, nil
	}
	updated := 0
	err := r.inTransaction(ctx, func(txRepo *SQLRepository) error {
		rows, err := txRepo.queryRows(ctx, txRepo.selectEvents().
			Where(goqu.C("event_id").Eq(eventId)).
			Order(goqu.I("id").Asc()))
		if err != nil {
			log.Errorf("failed to find event %s: %v", eventId, err)
			return fmt.Errorf("failed to find event: %w", err)
		}
		for _, row := range rows {
			if err := txRepo.updateRow(ctx, row.id, update(row.event)); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

func (r *SQLRepository) UpdateEventAt(ctx context.Context, key string, index int, update func(Event) Event) error {
	return r.inTransaction(ctx, func(txRepo *SQLRepository) error {
		row, err := txRepo.rowAt(ctx, key, index)
		if err != nil {
			return err
		}
		return txRepo.updateRow(ctx, row.id, update(row.event))
	})
}

func (r *SQLRepository) updateRow(ctx context.Context, id int64, e Event) error {
	update := r.dialect.Update(eventTable).Prepared(true).
		Set(goqu.Record{
			"text":     e.Text,
			"bg":       e.Bg,
			"who":      e.Who,
			"event_id": e.EventId,
			"memo":     nullable(e.Memo),
		}).
		Where(goqu.C("id").Eq(id))
	if _, err := r.exec(ctx, update); err != nil {
		log.Errorf("failed to update event row %d: %v", id, err)
		return fmt.Errorf("failed to update event: %w", err)
	}
	return nil
}

func (r *SQLRepository) DeleteEvents(ctx context.Context, eventId string) (int, error) {
	if eventId == "" {
		return 0, nil
	}
	removed, err := r.exec(ctx, r.dialect.Delete(eventTable).Prepared(true).
		Where(goqu.C("event_id").Eq(eventId)))
	if err != nil {
		log.Errorf("failed to delete event %s: %v", eventId, err)
		return 0, fmt.Errorf("failed to delete event: %w", err)
	}
	return int(removed), nil
}

func (r *SQLRepository) DeleteEventAt(ctx context.Context, key string, index int) error {
	return r.inTransaction(ctx, func(txRepo *SQLRepository) error {
		row, err := txRepo.rowAt(ctx, key, index)
		if err != nil {
			return err
		}
		_, err = txRepo.exec(ctx, txRepo.dialect.Delete(eventTable).Prepared(true).
			Where(goqu.C("id").Eq(row.id)))
		if err != nil {
			log.Errorf("failed to delete event row %d: %v", row.id, err)
			return fmt.Errorf("failed to delete event: %w", err)
		}
		return nil
	})
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
