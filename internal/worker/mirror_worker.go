// Package worker consumes change notifications and mirrors them to the
// sheets audit journal.
package worker

import (
	"context"
	"errors"
	"fmt"

	"tracker/internal/amqp"
	applog "tracker/internal/log"
	"tracker/internal/store"
	"tracker/internal/store/sqlite"
)

// Journal is the destination of mirrored changes. Satisfied by
// *sheets.Mirror.
type Journal interface {
	AppendChange(ctx context.Context, op string, id string, rec store.RawRecord) error
}

// MirrorWorker resolves change notifications against the local store and
// appends them to the journal.
type MirrorWorker struct {
	repo    *sqlite.Repository
	journal Journal
	logger  *applog.Logger
}

// NewMirrorWorker creates a worker reading record data from repo.
func NewMirrorWorker(repo *sqlite.Repository, journal Journal, logger *applog.Logger) *MirrorWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &MirrorWorker{
		repo:    repo,
		journal: journal,
		logger:  logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleChange processes one change notification.
//
// Creates and updates fetch the record's current state, so replaying an
// old notification mirrors the newest data rather than the historical
// payload. A record already deleted by the time its create/update message
// arrives is journalled as a delete.
func (w *MirrorWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	w.logger.InfoContext(ctx, "processing change notification",
		applog.FieldOperation, applog.OpMirror,
		applog.FieldRecordID, msg.ID,
		"op", msg.Op)

	switch msg.Op {
	case amqp.OpCreate, amqp.OpUpdate:
		rec, err := w.repo.GetRecord(ctx, msg.ID)
		if errors.Is(err, sqlite.ErrNotFound) {
			return w.journal.AppendChange(ctx, amqp.OpDelete, msg.ID, store.RawRecord{})
		}
		if err != nil {
			return fmt.Errorf("resolve record %s: %w", msg.ID, err)
		}
		return w.journal.AppendChange(ctx, msg.Op, msg.ID, rec)
	case amqp.OpDelete:
		return w.journal.AppendChange(ctx, amqp.OpDelete, msg.ID, store.RawRecord{})
	default:
		// Unknown op, drop rather than requeue forever.
		w.logger.WarnContext(ctx, "unknown change op dropped",
			applog.FieldRecordID, msg.ID,
			"op", msg.Op)
		return nil
	}
}
