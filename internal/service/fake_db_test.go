package service

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/archiver/internal/database"
	"github.com/kiwari-pos/archiver/internal/ws"
)

// fakeDB is an in-memory stand-in for the archive tables. Writes made through
// a fakeTx are buffered and only applied when the outermost tx commits, so
// rollback behaviour can be asserted.
type fakeDB struct {
	mu sync.Mutex

	orders        map[uuid.UUID]database.Order
	items         map[uuid.UUID][]database.OrderItem
	historical    map[uuid.UUID]database.HistoricalOrder
	histItems     map[uuid.UUID][]database.HistoricalOrderItem
	settings      map[string]pgtype.Text
	notifications []database.Notification

	// Fault injection.
	listSettingsErr  error
	listUpdatedErr   func(arg database.ListOrdersUpdatedBeforeParams) error
	listCreatedErr   func(arg database.ListOrdersCreatedBeforeParams) error
	historicalErr    func(id uuid.UUID) error
	itemsErr         func(orderID uuid.UUID) error
	archiveErr       func(id uuid.UUID) error
	beforeArchive    func(id uuid.UUID) // runs before the CAS check
	upsertErr        error
	upsertKeyErr     func(key string) error
	notificationErr  error
	commitErr        error
	beginErr         error
	listUpdatedCalls int
	listCreatedCalls int
	upserts          []database.UpsertSettingParams
	archiveCalls     []database.ArchiveOrderParams
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		orders:     make(map[uuid.UUID]database.Order),
		items:      make(map[uuid.UUID][]database.OrderItem),
		historical: make(map[uuid.UUID]database.HistoricalOrder),
		histItems:  make(map[uuid.UUID][]database.HistoricalOrderItem),
		settings:   make(map[string]pgtype.Text),
	}
}

func (db *fakeDB) setSetting(key, value string) {
	db.settings[key] = pgtype.Text{String: value, Valid: true}
}

func (db *fakeDB) addOrder(status string, total string, created, updated time.Time) database.Order {
	o := database.Order{
		ID:           uuid.New(),
		CustomerName: "Walk-in",
		Status:       status,
		Total:        makeNumeric(total),
		CreatedAt:    pgtype.Timestamptz{Time: created, Valid: true},
		UpdatedAt:    pgtype.Timestamptz{Time: updated, Valid: true},
	}
	db.orders[o.ID] = o
	return o
}

func (db *fakeDB) addItem(orderID uuid.UUID, name, price string, qty int32) database.OrderItem {
	item := database.OrderItem{
		ID:       uuid.New(),
		OrderID:  orderID,
		Name:     name,
		Price:    makeNumeric(price),
		Quantity: qty,
	}
	db.items[orderID] = append(db.items[orderID], item)
	o := db.orders[orderID]
	o.ItemsCount++
	db.orders[orderID] = o
	return item
}

// --- Transactions ---

type fakeTx struct {
	db     *fakeDB
	parent *fakeTx
	ops    []func()
	closed bool
}

func (tx *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return &fakeTx{db: tx.db, parent: tx}, nil
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	if tx.closed {
		return pgx.ErrTxClosed
	}
	if tx.parent == nil && tx.db.commitErr != nil {
		tx.closed = true
		return tx.db.commitErr
	}
	tx.closed = true
	if tx.parent != nil {
		tx.parent.ops = append(tx.parent.ops, tx.ops...)
		return nil
	}
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	for _, op := range tx.ops {
		op()
	}
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true
	tx.ops = nil
	return nil
}

func (tx *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (tx *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (tx *fakeTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (tx *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (tx *fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (tx *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (tx *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (tx *fakeTx) Conn() *pgx.Conn { panic("not implemented") }

// fakePool implements TxBeginner.
type fakePool struct {
	db  *fakeDB
	txs []*fakeTx
}

func (p *fakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	if p.db.beginErr != nil {
		return nil, p.db.beginErr
	}
	tx := &fakeTx{db: p.db}
	p.txs = append(p.txs, tx)
	return tx, nil
}

// --- Store ---

// fakeStore implements ArchiveStore over fakeDB. Reads see committed state.
type fakeStore struct {
	db *fakeDB
	tx *fakeTx
}

func (s *fakeStore) write(op func()) {
	if s.tx != nil {
		s.tx.ops = append(s.tx.ops, op)
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	op()
}

func newFakeStoreFactory(db *fakeDB) NewArchiveStore {
	return func(d database.DBTX) ArchiveStore {
		tx, _ := d.(*fakeTx)
		return &fakeStore{db: db, tx: tx}
	}
}

func (s *fakeStore) ListSettingsByKeys(ctx context.Context, keys []string) ([]database.SystemSetting, error) {
	if s.db.listSettingsErr != nil {
		return nil, s.db.listSettingsErr
	}
	var out []database.SystemSetting
	for _, k := range keys {
		v, ok := s.db.settings[k]
		if !ok {
			continue
		}
		out = append(out, database.SystemSetting{ID: uuid.NewSHA1(uuid.Nil, []byte(k)), Key: k, Value: v})
	}
	return out, nil
}

func (s *fakeStore) UpsertSetting(ctx context.Context, arg database.UpsertSettingParams) (database.SystemSetting, error) {
	if s.db.upsertErr != nil {
		return database.SystemSetting{}, s.db.upsertErr
	}
	if s.db.upsertKeyErr != nil {
		if err := s.db.upsertKeyErr(arg.Key); err != nil {
			return database.SystemSetting{}, err
		}
	}
	s.write(func() {
		s.db.upserts = append(s.db.upserts, arg)
		s.db.settings[arg.Key] = arg.Value
	})
	return database.SystemSetting{Key: arg.Key, Value: arg.Value}, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func (s *fakeStore) selectOrders(statuses []string, before time.Time, afterID uuid.UUID, limit int32, byCreated bool) []database.Order {
	var out []database.Order
	for _, o := range s.db.orders {
		if !contains(statuses, o.Status) {
			continue
		}
		ts := o.UpdatedAt.Time
		if byCreated {
			ts = o.CreatedAt.Time
		}
		if !ts.Before(before) {
			continue
		}
		if bytes.Compare(o.ID[:], afterID[:]) <= 0 {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0 })
	if int32(len(out)) > limit {
		out = out[:limit]
	}
	return out
}

func (s *fakeStore) ListOrdersUpdatedBefore(ctx context.Context, arg database.ListOrdersUpdatedBeforeParams) ([]database.Order, error) {
	s.db.listUpdatedCalls++
	if s.db.listUpdatedErr != nil {
		if err := s.db.listUpdatedErr(arg); err != nil {
			return nil, err
		}
	}
	return s.selectOrders(arg.Statuses, arg.Before, arg.AfterID, arg.Limit, false), nil
}

func (s *fakeStore) ListOrdersCreatedBefore(ctx context.Context, arg database.ListOrdersCreatedBeforeParams) ([]database.Order, error) {
	s.db.listCreatedCalls++
	if s.db.listCreatedErr != nil {
		if err := s.db.listCreatedErr(arg); err != nil {
			return nil, err
		}
	}
	return s.selectOrders(arg.Statuses, arg.Before, arg.AfterID, arg.Limit, true), nil
}

func (s *fakeStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return s.db.items[orderID], nil
}

func (s *fakeStore) CreateHistoricalOrder(ctx context.Context, arg database.CreateHistoricalOrderParams) (database.HistoricalOrder, error) {
	if s.db.historicalErr != nil {
		if err := s.db.historicalErr(arg.ID); err != nil {
			return database.HistoricalOrder{}, err
		}
	}
	if _, exists := s.db.historical[arg.ID]; exists {
		return database.HistoricalOrder{}, &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	}
	h := database.HistoricalOrder{
		ID:           arg.ID,
		CustomerName: arg.CustomerName,
		TableNumber:  arg.TableNumber,
		TableID:      arg.TableID,
		Status:       arg.Status,
		Total:        arg.Total,
		ItemsCount:   arg.ItemsCount,
		IsDelivery:   arg.IsDelivery,
		KitchenID:    arg.KitchenID,
		ExternalID:   arg.ExternalID,
		Discount:     arg.Discount,
		OrderSource:  arg.OrderSource,
		CreatedAt:    arg.CreatedAt,
		UpdatedAt:    arg.UpdatedAt,
		ArchivedAt:   pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	s.write(func() { s.db.historical[h.ID] = h })
	return h, nil
}

func (s *fakeStore) CreateHistoricalOrderItems(ctx context.Context, arg []database.CreateHistoricalOrderItemsParams) (int64, error) {
	if len(arg) > 0 && s.db.itemsErr != nil {
		if err := s.db.itemsErr(arg[0].OrderID); err != nil {
			return 0, err
		}
	}
	rows := make([]database.HistoricalOrderItem, len(arg))
	for i, a := range arg {
		rows[i] = database.HistoricalOrderItem{
			ID:         a.ID,
			OrderID:    a.OrderID,
			MenuItemID: a.MenuItemID,
			Name:       a.Name,
			Price:      a.Price,
			Quantity:   a.Quantity,
			Notes:      a.Notes,
			CreatedAt:  a.CreatedAt,
		}
	}
	s.write(func() {
		for _, r := range rows {
			s.db.histItems[r.OrderID] = append(s.db.histItems[r.OrderID], r)
		}
	})
	return int64(len(rows)), nil
}

func (s *fakeStore) ArchiveOrder(ctx context.Context, arg database.ArchiveOrderParams) (int64, error) {
	s.db.archiveCalls = append(s.db.archiveCalls, arg)
	if s.db.archiveErr != nil {
		if err := s.db.archiveErr(arg.ID); err != nil {
			return 0, err
		}
	}
	if s.db.beforeArchive != nil {
		s.db.beforeArchive(arg.ID)
	}
	o, ok := s.db.orders[arg.ID]
	if !ok || o.Status != arg.Status {
		return 0, nil
	}
	s.write(func() {
		o := s.db.orders[arg.ID]
		o.Status = "archived"
		o.UpdatedAt = pgtype.Timestamptz{Time: arg.UpdatedAt, Valid: true}
		s.db.orders[arg.ID] = o
	})
	return 1, nil
}

func (s *fakeStore) CreateNotification(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error) {
	if s.db.notificationErr != nil {
		return database.Notification{}, s.db.notificationErr
	}
	n := database.Notification{
		ID:        uuid.New(),
		Title:     arg.Title,
		Message:   arg.Message,
		Type:      arg.Type,
		Link:      arg.Link,
		CreatedAt: pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	s.write(func() { s.db.notifications = append(s.db.notifications, n) })
	return n, nil
}

// --- Broadcaster ---

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []ws.Event
	topics []string
}

func (b *recordingBroadcaster) BroadcastToTopic(topic string, event ws.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = append(b.topics, topic)
	b.events = append(b.events, event)
}

var errInjected = errors.New("injected failure")
