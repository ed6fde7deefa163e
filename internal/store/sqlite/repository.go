// Package sqlite implements the remote-store contract on a local SQLite
// database. Every successful mutation re-reads the full record set and
// broadcasts it to subscribers, and publishes a change notification for
// out-of-process consumers such as the sheets mirror worker.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"tracker/internal/core"
	applog "tracker/internal/log"
	"tracker/internal/store"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// Notifier publishes change notifications after mutations. Satisfied by
// *amqp.Client; a nil Notifier disables notifications.
type Notifier interface {
	PublishChange(ctx context.Context, id, op string) error
}

// Repository is a SQLite-backed store.Store.
type Repository struct {
	db       *sql.DB
	notifier Notifier
	logger   *applog.Logger

	mu      sync.Mutex
	subs    map[int]chan []store.RawRecord
	nextSub int
}

var _ store.Store = (*Repository)(nil)

// NewRepository opens (creating if necessary) the database at dbPath and
// runs migrations. notifier may be nil.
func NewRepository(dbPath string, notifier Notifier, logger *applog.Logger) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	return &Repository{
		db:       db,
		notifier: notifier,
		logger:   logger.WithComponent(applog.ComponentStore),
		subs:     make(map[int]chan []store.RawRecord),
	}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SubscribeAll implements store.Subscriber. The current record set is
// delivered immediately, then again after every local mutation.
func (r *Repository) SubscribeAll(ctx context.Context) (<-chan []store.RawRecord, error) {
	snap, err := r.readAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read initial snapshot: %w", err)
	}

	ch := make(chan []store.RawRecord, 64)
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch
	ch <- snap
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

// Create implements store.Creator.
func (r *Repository) Create(ctx context.Context, fields store.Fields, author string) (string, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO records (description, amount, author, timestamp) VALUES (?, ?, ?, ?)`,
		fields.Description,
		core.Money{Cents: fields.AmountCents}.String(),
		author,
		fields.Timestamp.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("last insert id: %w", err)
	}
	id := strconv.FormatInt(rowID, 10)

	r.logger.InfoContext(ctx, "record stored",
		applog.FieldOperation, applog.OpCreate,
		applog.FieldRecordID, id,
		applog.FieldAmountCents, fields.AmountCents,
		applog.FieldAuthor, author)

	r.afterMutation(ctx, id, "create")
	return id, nil
}

// Update implements store.Updater: a full replace of description, amount
// and timestamp. Author and id are immutable.
func (r *Repository) Update(ctx context.Context, id string, fields store.Fields) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE records SET description = ?, amount = ?, timestamp = ? WHERE id = ?`,
		fields.Description,
		core.Money{Cents: fields.AmountCents}.String(),
		fields.Timestamp.UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}

	r.afterMutation(ctx, id, "update")
	return nil
}

// Delete implements store.Deleter. Deleting an absent record is not an
// error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	r.afterMutation(ctx, id, "delete")
	return nil
}

// GetRecord returns one record in wire form. Used by the mirror worker to
// resolve current data for a change notification.
func (r *Repository) GetRecord(ctx context.Context, id string) (store.RawRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, description, amount, author, timestamp FROM records WHERE id = ?`, id)

	var rec store.RawRecord
	err := row.Scan(&rec.ID, &rec.Description, &rec.Amount, &rec.Author, &rec.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return store.RawRecord{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return store.RawRecord{}, fmt.Errorf("scan record: %w", err)
	}
	return rec, nil
}

func (r *Repository) readAll(ctx context.Context) ([]store.RawRecord, error) {
	// No ORDER BY: the store contract gives no ordering guarantee inside
	// a snapshot.
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, description, amount, author, timestamp FROM records`)
	if err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	defer rows.Close()

	var out []store.RawRecord
	for rows.Next() {
		var rec store.RawRecord
		if err := rows.Scan(&rec.ID, &rec.Description, &rec.Amount, &rec.Author, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func (r *Repository) afterMutation(ctx context.Context, id, op string) {
	snap, err := r.readAll(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "snapshot read after mutation failed",
			applog.FieldOperation, op,
			applog.FieldError, err)
		return
	}

	r.mu.Lock()
	for _, ch := range r.subs {
		select {
		case ch <- snap:
		default:
			// Full restatements; a consumer this far behind recovers from
			// the next snapshot.
		}
	}
	r.mu.Unlock()

	if r.notifier != nil {
		if err := r.notifier.PublishChange(ctx, id, op); err != nil {
			// Local state is already committed; notification loss only
			// delays the mirror.
			r.logger.WarnContext(ctx, "change notification failed",
				applog.FieldOperation, op,
				applog.FieldRecordID, id,
				applog.FieldError, err)
		}
	}
}
