// Package controller reconciles the continuously refreshing snapshot state
// with the single in-flight local edit session.
//
// The controller is the only owner of the derived month index and the edit
// session, the sole issuer of mutation intents, and the single source of
// truth for what the presentation layer renders.
package controller

import (
	"context"
	"sync"
	"time"

	"tracker/internal/aggregate"
	"tracker/internal/cache"
	"tracker/internal/core"
	"tracker/internal/ingest"
	applog "tracker/internal/log"
	"tracker/internal/session"
	"tracker/internal/store"
)

// View is the atomic render state: the month groups and the edit session
// derived from the same snapshot generation. Receivers must treat it as
// read-only; all mutation flows back through the controller's commands.
type View struct {
	Groups  []aggregate.MonthGroup
	Session session.State
}

const (
	memoSize = 32
	memoTTL  = 10 * time.Minute
)

// Controller implements the reconciliation engine.
type Controller struct {
	mutator store.Mutator
	ing     *ingest.Ingest
	logger  *applog.Logger
	now     func() time.Time

	mu          sync.Mutex
	author      string
	sess        *session.Session
	groups      []aggregate.MonthGroup
	lastApplied string // fingerprint of the last applied snapshot
	memo        *cache.LRUCache[[]aggregate.MonthGroup]
	watchers    map[int]chan View
	nextWatcher int
}

// New creates a controller issuing mutations through mutator on behalf of
// author. The author may be set later via SetAuthor when the device
// identity is established after startup.
func New(mutator store.Mutator, author string, logger *applog.Logger) *Controller {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Controller{
		mutator:  mutator,
		ing:      ingest.New(logger.WithComponent(applog.ComponentIngest)),
		logger:   logger.WithComponent(applog.ComponentController),
		now:      time.Now,
		author:   author,
		sess:     session.New(),
		memo:     cache.NewLRUCache[[]aggregate.MonthGroup](memoSize, memoTTL),
		watchers: make(map[int]chan View),
	}
}

// WithClock overrides the wall clock. Test hook.
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	c.ing.WithClock(now)
	return c
}

// Run consumes the store subscription until ctx is done, applying
// snapshots strictly in delivery order.
func (c *Controller) Run(ctx context.Context, sub store.Subscriber) error {
	snapshots, err := sub.SubscribeAll(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-snapshots:
			if !ok {
				return nil
			}
			c.ApplySnapshot(raw)
		}
	}
}

// ApplySnapshot ingests a raw snapshot, rebuilds the derived index, runs
// the forced-transition rule against it and publishes one atomic view.
//
// Re-applying a snapshot identical to the last applied one is a no-op: the
// session is untouched and no new view is emitted.
func (c *Controller) ApplySnapshot(raw []store.RawRecord) {
	records := c.ing.Normalize(raw)
	fp := ingest.Fingerprint(records)

	c.mu.Lock()
	if fp == c.lastApplied {
		c.mu.Unlock()
		c.logger.Debug("duplicate snapshot ignored", applog.FieldFingerprint, fp)
		return
	}

	groups, ok := c.memo.Get(fp)
	if !ok {
		groups = aggregate.GroupByMonth(records)
		c.memo.Set(fp, groups)
	}
	c.groups = groups
	c.lastApplied = fp

	present := make(map[string]struct{}, len(records))
	for _, r := range records {
		present[r.ID] = struct{}{}
	}
	forced := c.sess.Reconcile(func(id string) bool {
		_, ok := present[id]
		return ok
	})

	view := c.viewLocked()
	c.mu.Unlock()

	if forced {
		c.logger.Info("edit target deleted remotely, session reset",
			applog.FieldOperation, applog.OpSnapshot)
	}
	c.logger.Debug("snapshot applied",
		applog.FieldRecordCount, len(records),
		applog.FieldGroupCount, len(groups))
	c.publish(view)
}

// CurrentView returns the latest internally consistent view.
func (c *Controller) CurrentView() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Watch returns a channel re-emitting the view on every snapshot
// application and every local state transition. The channel closes when
// ctx is done. Slow receivers miss intermediate views rather than block
// the engine.
func (c *Controller) Watch(ctx context.Context) <-chan View {
	ch := make(chan View, 16)

	c.mu.Lock()
	id := c.nextWatcher
	c.nextWatcher++
	c.watchers[id] = ch
	ch <- c.viewLocked()
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		delete(c.watchers, id)
		c.mu.Unlock()
		close(ch)
	}()
	return ch
}

// SetAuthor records the display name new records are attributed to.
func (c *Controller) SetAuthor(name string) {
	c.mu.Lock()
	c.author = name
	c.mu.Unlock()
}

// Stage replaces the staged draft values; a pure local transition.
func (c *Controller) Stage(d session.Draft) {
	c.mu.Lock()
	c.sess.Stage(d)
	view := c.viewLocked()
	c.mu.Unlock()
	c.publish(view)
}

// BeginEdit targets an existing record, seeding the draft from its values
// in the current index. No store interaction.
func (c *Controller) BeginEdit(id string) error {
	c.mu.Lock()
	rec, ok := c.findLocked(id)
	if !ok {
		c.mu.Unlock()
		return notFoundError(id)
	}
	c.sess.BeginEdit(rec)
	view := c.viewLocked()
	c.mu.Unlock()
	c.publish(view)
	return nil
}

// CancelEdit abandons the staged draft. No store interaction.
func (c *Controller) CancelEdit() {
	c.mu.Lock()
	c.sess.Reset()
	view := c.viewLocked()
	c.mu.Unlock()
	c.publish(view)
}

// CommitCreate validates the staged draft and issues a create intent. The
// session leaves composing only after the store call succeeds; on failure
// the draft survives intact so the user can retry without re-entering
// data. The new record appears in the index only once the store delivers
// the snapshot containing it.
func (c *Controller) CommitCreate(ctx context.Context) error {
	c.mu.Lock()
	author := c.author
	if author == "" {
		c.mu.Unlock()
		return setupError("display name not set")
	}
	cents, err := c.sess.ValidateDraft(c.now())
	if err != nil {
		c.mu.Unlock()
		return validationError(err)
	}
	fields := c.draftFieldsLocked(cents)
	c.mu.Unlock()

	// The lock is not held across the store call; snapshots keep flowing.
	id, err := c.mutator.Create(ctx, fields, author)
	if err != nil {
		c.logger.ErrorContext(ctx, "create intent failed",
			applog.FieldOperation, applog.OpCreate,
			applog.FieldError, err)
		return transportError("create", err)
	}

	c.mu.Lock()
	if c.sess.Mode() != session.ModeEditing {
		c.sess.Reset()
	}
	view := c.viewLocked()
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "record created",
		applog.FieldOperation, applog.OpCreate,
		applog.FieldRecordID, id,
		applog.FieldAmountCents, fields.AmountCents)
	c.publish(view)
	return nil
}

// CommitUpdate validates the staged draft and issues an update intent for
// the record under edit: a full replace of description, amount and
// timestamp. On failure the edit session and draft are preserved exactly.
func (c *Controller) CommitUpdate(ctx context.Context) error {
	c.mu.Lock()
	if c.sess.Mode() != session.ModeEditing {
		c.mu.Unlock()
		return validationError(errNoEditInProgress)
	}
	id := c.sess.TargetID()
	cents, err := c.sess.ValidateDraft(c.now())
	if err != nil {
		c.mu.Unlock()
		return validationError(err)
	}
	fields := c.draftFieldsLocked(cents)
	c.mu.Unlock()

	if err := c.mutator.Update(ctx, id, fields); err != nil {
		c.logger.ErrorContext(ctx, "update intent failed",
			applog.FieldOperation, applog.OpUpdate,
			applog.FieldRecordID, id,
			applog.FieldError, err)
		return transportError("update", err)
	}

	c.mu.Lock()
	// A snapshot may have force-reset the session while the call was in
	// flight; only clear it if it still targets the same record.
	if c.sess.Mode() == session.ModeEditing && c.sess.TargetID() == id {
		c.sess.Reset()
	}
	view := c.viewLocked()
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "record updated",
		applog.FieldOperation, applog.OpUpdate,
		applog.FieldRecordID, id)
	c.publish(view)
	return nil
}

// CommitDelete issues a delete intent for id. The caller must have
// obtained one explicit user confirmation beforehand; given that expressed
// intent, an edit session on the same record is cleared optimistically and
// stays cleared even if the store call fails.
func (c *Controller) CommitDelete(ctx context.Context, id string) error {
	c.mu.Lock()
	cleared := false
	if c.sess.Mode() == session.ModeEditing && c.sess.TargetID() == id {
		c.sess.Reset()
		cleared = true
	}
	view := c.viewLocked()
	c.mu.Unlock()
	if cleared {
		c.publish(view)
	}

	if err := c.mutator.Delete(ctx, id); err != nil {
		c.logger.ErrorContext(ctx, "delete intent failed",
			applog.FieldOperation, applog.OpDelete,
			applog.FieldRecordID, id,
			applog.FieldError, err)
		return transportError("delete", err)
	}

	c.logger.InfoContext(ctx, "record deleted",
		applog.FieldOperation, applog.OpDelete,
		applog.FieldRecordID, id)
	return nil
}

func (c *Controller) draftFieldsLocked(cents int64) store.Fields {
	d := c.sess.Draft()
	ts := d.Timestamp
	if ts.IsZero() {
		ts = c.now()
	}
	return store.Fields{
		Description: core.NormalizeDescription(d.Description),
		AmountCents: cents,
		Timestamp:   ts,
	}
}

func (c *Controller) findLocked(id string) (core.Record, bool) {
	for _, g := range c.groups {
		for _, e := range g.Entries {
			if e.ID == id {
				return e, true
			}
		}
	}
	return core.Record{}, false
}

func (c *Controller) viewLocked() View {
	groups := make([]aggregate.MonthGroup, len(c.groups))
	copy(groups, c.groups)
	return View{Groups: groups, Session: c.sess.State()}
}

func (c *Controller) publish(view View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.watchers {
		select {
		case ch <- view:
		default:
			// receiver lagging, it will catch up on the next view
		}
	}
}
