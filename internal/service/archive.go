package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/archiver/internal/database"
	"github.com/kiwari-pos/archiver/internal/enum"
	"github.com/kiwari-pos/archiver/internal/lock"
	"github.com/kiwari-pos/archiver/internal/ws"
	"github.com/shopspring/decimal"
)

const (
	archiveLockKey = "orders"
	historyLink    = "/orders/history"
)

// Errors returned by the archive service.
var (
	ErrRunInProgress = errors.New("archive run already in progress")
	ErrOrderChanged  = errors.New("order status changed during archive")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ArchiveStore defines the DB methods used by an archive run.
// Satisfied by *database.Queries (and its WithTx variant).
type ArchiveStore interface {
	SettingsReader
	CandidateStore
	UpsertSetting(ctx context.Context, arg database.UpsertSettingParams) (database.SystemSetting, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	CreateHistoricalOrder(ctx context.Context, arg database.CreateHistoricalOrderParams) (database.HistoricalOrder, error)
	CreateHistoricalOrderItems(ctx context.Context, arg []database.CreateHistoricalOrderItemsParams) (int64, error)
	ArchiveOrder(ctx context.Context, arg database.ArchiveOrderParams) (int64, error)
	CreateNotification(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error)
}

// NewArchiveStore creates an ArchiveStore from a DBTX (pool, tx or savepoint).
type NewArchiveStore func(db database.DBTX) ArchiveStore

// Broadcaster pushes events to live dashboard connections.
type Broadcaster interface {
	BroadcastToTopic(topic string, event ws.Event)
}

// ArchiveOptions tunes a run. Zero values fall back to defaults.
type ArchiveOptions struct {
	BatchSize int
	LockTTL   time.Duration
}

// ResultKind tells the caller which response shape an invocation produced.
type ResultKind int

const (
	ResultStatus ResultKind = iota
	ResultDisabled
	ResultNothingToArchive
	ResultCompleted
)

// RunDetails counts archived orders per reporting bucket.
type RunDetails struct {
	Completed int `json:"completed"`
	Delivered int `json:"delivered"`
	Cancelled int `json:"cancelled"`
	Pending   int `json:"pending"`
	Preparing int `json:"preparing"`
	Total     int `json:"total"`
}

// InvokeResult is the outcome of one invocation.
type InvokeResult struct {
	Kind      ResultKind
	Action    string
	Mode      string
	Settings  []database.SystemSetting
	Processed int
	Errors    int
	LastRun   time.Time
	Details   RunDetails
}

// ArchiveService moves aged orders into the historical tables.
type ArchiveService struct {
	pool     TxBeginner
	store    ArchiveStore
	newStore NewArchiveStore
	locker   lock.Locker
	events   Broadcaster
	opts     ArchiveOptions
	now      func() time.Time
}

// NewArchiveService creates a new ArchiveService. store is used outside of
// transactions; newStore rebuilds it on each per-order transaction.
// events may be nil.
func NewArchiveService(pool TxBeginner, store ArchiveStore, newStore NewArchiveStore, locker lock.Locker, events Broadcaster, opts ArchiveOptions) *ArchiveService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 200
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Minute
	}
	return &ArchiveService{
		pool:     pool,
		store:    store,
		newStore: newStore,
		locker:   locker,
		events:   events,
		opts:     opts,
		now:      time.Now,
	}
}

// NormalizeAction maps an absent or unknown action to run-now.
func NormalizeAction(action string) string {
	switch action {
	case enum.ActionCheckStatus, enum.ActionRunNow, enum.ActionRunScheduled:
		return action
	}
	return enum.ActionRunNow
}

// Settings returns the parsed settings and the raw rows.
func (s *ArchiveService) Settings(ctx context.Context) (ArchiveSettings, []database.SystemSetting, error) {
	return LoadArchiveSettings(ctx, s.store)
}

// Invoke runs one of the three invocation modes.
//
//   - check-status reads settings and never writes.
//   - run-now always runs the pipeline.
//   - run-scheduled runs only when auto_archive_enabled; when disabled it returns
//     without touching last_archive_run (only runs that reach selection record it).
func (s *ArchiveService) Invoke(ctx context.Context, action string) (*InvokeResult, error) {
	action = NormalizeAction(action)

	settings, rows, err := LoadArchiveSettings(ctx, s.store)
	if err != nil {
		return nil, err
	}

	mode := enum.RunModeManual
	switch action {
	case enum.ActionCheckStatus:
		return &InvokeResult{Kind: ResultStatus, Action: action, Settings: rows}, nil
	case enum.ActionRunScheduled:
		if !settings.AutoArchiveEnabled {
			log.Printf("archive: scheduled run skipped, auto-archiving disabled")
			return &InvokeResult{Kind: ResultDisabled, Action: action, Mode: enum.RunModeScheduled}, nil
		}
		mode = enum.RunModeScheduled
	}

	lease, err := s.locker.Acquire(ctx, archiveLockKey, s.opts.LockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, ErrRunInProgress
		}
		return nil, fmt.Errorf("acquire archive lock: %w", err)
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			log.Printf("ERROR: release archive lock: %v", err)
		}
	}()

	res, err := s.run(ctx, settings, mode, lease)
	if err != nil {
		return nil, err
	}
	res.Action = action
	return res, nil
}

// run selects and archives candidates. The lease is refreshed after every
// page so a run longer than LockTTL keeps its lock; losing it stops the run.
func (s *ArchiveService) run(ctx context.Context, settings ArchiveSettings, mode string, lease lock.Lease) (*InvokeResult, error) {
	now := s.now().UTC()
	src := NewCandidateSource(s.store, ComputeThresholds(settings, now), s.opts.BatchSize)

	if err := src.Prime(ctx); err != nil {
		return nil, err
	}

	var tally runTally
	for {
		if err := ctx.Err(); err != nil {
			s.finalize(ctx, now, mode, &tally)
			return nil, fmt.Errorf("archive run interrupted: %w", err)
		}
		page, err := src.Next(ctx)
		if err != nil {
			// Orders archived before the failing page stay archived; record them.
			s.finalize(ctx, now, mode, &tally)
			return nil, err
		}
		if page == nil {
			break
		}
		for _, order := range page {
			tally.add(s.archiveOrder(ctx, order, now))
		}
		if err := lease.Refresh(ctx, s.opts.LockTTL); err != nil {
			s.finalize(ctx, now, mode, &tally)
			return nil, fmt.Errorf("refresh archive lock: %w", err)
		}
	}

	s.finalize(ctx, now, mode, &tally)

	log.Printf("archive: %s run finished: candidates=%d processed=%d errors=%d value=%s",
		mode, tally.candidates, tally.processed, tally.errors, tally.amount.StringFixed(2))

	kind := ResultCompleted
	if tally.candidates == 0 {
		kind = ResultNothingToArchive
	}
	return &InvokeResult{
		Kind:      kind,
		Mode:      mode,
		Processed: tally.processed,
		Errors:    tally.errors,
		LastRun:   now,
		Details:   tally.details(),
	}, nil
}

// --- Per-order transition ---

type archiveStep string

const (
	stepBegin           archiveStep = "begin"
	stepHistoricalOrder archiveStep = "historical_order"
	stepHistoricalItems archiveStep = "historical_items"
	stepStatus          archiveStep = "status"
	stepCommit          archiveStep = "commit"
)

type stepFailure struct {
	step archiveStep
	err  error
}

// orderOutcome is the result of archiving one candidate. Failures are values,
// never returned errors, so one bad order cannot stop the run.
type orderOutcome struct {
	orderID  uuid.UUID
	bucket   enum.StatusBucket
	total    decimal.Decimal
	archived bool
	failures []stepFailure
}

func (o orderOutcome) fail(step archiveStep, err error) orderOutcome {
	o.failures = append(o.failures, stepFailure{step: step, err: err})
	return o
}

// archiveOrder copies one order into history and flips it to archived.
//
// The historical order insert and the status flip share a transaction. The
// item copy runs in a savepoint: if it fails the order is still archived
// without its items. A failed historical insert leaves the order live.
//
// Unlike a plain sequence of writes, a failed or missed status flip also
// rolls back the historical copy, so history only ever holds orders that
// were flipped to archived in the same commit.
func (s *ArchiveService) archiveOrder(ctx context.Context, order database.Order, now time.Time) orderOutcome {
	out := orderOutcome{
		orderID: order.ID,
		bucket:  enum.BucketOf(order.Status),
		total:   numericToDecimal(order.Total),
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return out.fail(stepBegin, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.CreateHistoricalOrder(ctx, historicalOrderParams(order)); err != nil {
		return out.fail(stepHistoricalOrder, err)
	}

	if err := s.copyItems(ctx, tx, order.ID); err != nil {
		out = out.fail(stepHistoricalItems, err)
	}

	n, err := store.ArchiveOrder(ctx, database.ArchiveOrderParams{
		ID:        order.ID,
		Status:    order.Status,
		UpdatedAt: now,
	})
	if err != nil {
		return out.fail(stepStatus, err)
	}
	if n == 0 {
		return out.fail(stepStatus, ErrOrderChanged)
	}

	if err := tx.Commit(ctx); err != nil {
		return out.fail(stepCommit, err)
	}
	out.archived = true
	return out
}

func (s *ArchiveService) copyItems(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) error {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	defer sp.Rollback(ctx) //nolint:errcheck

	store := s.newStore(sp)

	items, err := store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	rows := make([]database.CreateHistoricalOrderItemsParams, len(items))
	for i, item := range items {
		rows[i] = database.CreateHistoricalOrderItemsParams{
			ID:         item.ID,
			OrderID:    item.OrderID,
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Price:      item.Price,
			Quantity:   item.Quantity,
			Notes:      item.Notes,
			CreatedAt:  item.CreatedAt,
		}
	}

	n, err := store.CreateHistoricalOrderItems(ctx, rows)
	if err != nil {
		return fmt.Errorf("copy order items: %w", err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("copy order items: copied %d of %d", n, len(rows))
	}

	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

// historicalOrderParams copies the order as-is; the status is the one it had
// when selected, not "archived".
func historicalOrderParams(o database.Order) database.CreateHistoricalOrderParams {
	return database.CreateHistoricalOrderParams{
		ID:           o.ID,
		CustomerName: o.CustomerName,
		TableNumber:  o.TableNumber,
		TableID:      o.TableID,
		Status:       o.Status,
		Total:        o.Total,
		ItemsCount:   o.ItemsCount,
		IsDelivery:   o.IsDelivery,
		KitchenID:    o.KitchenID,
		ExternalID:   o.ExternalID,
		Discount:     o.Discount,
		OrderSource:  o.OrderSource,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

// --- Run accumulator ---

type runTally struct {
	candidates int
	processed  int
	errors     int
	buckets    map[enum.StatusBucket]int
	amount     decimal.Decimal
}

func (t *runTally) add(o orderOutcome) {
	t.candidates++
	for _, f := range o.failures {
		t.errors++
		log.Printf("ERROR: archive order %s: %s: %v", o.orderID, f.step, f.err)
	}
	if !o.archived {
		return
	}
	t.processed++
	t.amount = t.amount.Add(o.total)
	if o.bucket != enum.BucketNone {
		if t.buckets == nil {
			t.buckets = make(map[enum.StatusBucket]int)
		}
		t.buckets[o.bucket]++
	}
}

func (t *runTally) details() RunDetails {
	return RunDetails{
		Completed: t.buckets[enum.BucketCompleted],
		Delivered: t.buckets[enum.BucketDelivered],
		Cancelled: t.buckets[enum.BucketCancelled],
		Pending:   t.buckets[enum.BucketPending],
		Preparing: t.buckets[enum.BucketPreparing],
		Total:     t.processed,
	}
}

// --- Finalizer ---

type notificationEvent struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link"`
	Mode      string    `json:"mode"`
	Processed int       `json:"processed"`
	Errors    int       `json:"errors"`
	CreatedAt time.Time `json:"created_at"`
}

// finalize records last_archive_run and, when anything was archived, appends a
// notification. Neither failure is returned.
func (s *ArchiveService) finalize(ctx context.Context, now time.Time, mode string, t *runTally) {
	ctx = context.WithoutCancel(ctx)

	if _, err := s.store.UpsertSetting(ctx, database.UpsertSettingParams{
		Key:   enum.SettingLastArchiveRun,
		Value: pgtype.Text{String: FormatTimestamp(now), Valid: true},
	}); err != nil {
		log.Printf("ERROR: archive: record last run: %v", err)
	}

	if t.processed == 0 {
		return
	}

	title := "Manual archive completed"
	if mode == enum.RunModeScheduled {
		title = "Scheduled archive completed"
	}
	message := fmt.Sprintf("%d orders archived (%s run), total %s", t.processed, mode, t.amount.StringFixed(2))
	if t.errors > 0 {
		message += fmt.Sprintf(", %d errors", t.errors)
	}

	n, err := s.store.CreateNotification(ctx, database.CreateNotificationParams{
		Title:   title,
		Message: message,
		Type:    enum.NotificationTypeArchive,
		Link:    pgtype.Text{String: historyLink, Valid: true},
	})
	if err != nil {
		log.Printf("ERROR: archive: create notification: %v", err)
		return
	}

	if s.events == nil {
		return
	}
	payload, err := json.Marshal(notificationEvent{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Link:      historyLink,
		Mode:      mode,
		Processed: t.processed,
		Errors:    t.errors,
		CreatedAt: n.CreatedAt.Time,
	})
	if err != nil {
		log.Printf("ERROR: archive: encode notification event: %v", err)
		return
	}
	s.events.BroadcastToTopic(ws.TopicNotifications, ws.Event{
		Type:    ws.EventArchiveCompleted,
		Payload: payload,
	})
}
