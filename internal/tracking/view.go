// Package tracking keeps a live, monotonically advancing view of tracked
// orders on top of the live feed.
package tracking

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zoransi/split-laundry-express/internal/domain"
	"github.com/zoransi/split-laundry-express/internal/livefeed"
	"github.com/zoransi/split-laundry-express/internal/protocol"
)

type OrderFetcher interface {
	FetchOrder(ctx context.Context, orderID string) (*domain.Order, error)
}

// Feed is the part of livefeed.Manager the view depends on.
type Feed interface {
	JoinOrder(orderID string) error
	LeaveOrder(orderID string) error
	Observe(o livefeed.Observer) func()
	Snapshot() livefeed.Snapshot
	Close() error
}

var _ Feed = (*livefeed.Manager)(nil)

type Entry struct {
	Status  domain.OrderStatus
	At      time.Time
	Message string
}

type OrderView struct {
	OrderID   string
	Status    domain.OrderStatus
	UpdatedAt time.Time
	Order     *domain.Order
	Timeline  []Entry
	// FetchError holds the last refetch failure, cleared on success.
	FetchError string
}

// State is what the view renders.
type State struct {
	Connection livefeed.Snapshot
	Orders     []OrderView
}

type View struct {
	feed     Feed
	fetcher  OrderFetcher
	logger   *zap.SugaredLogger
	onUpdate func(State)

	mu        sync.Mutex
	orders    map[string]*OrderView
	conn      livefeed.Snapshot
	closed    bool
	unobserve func()

	emitMu sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewView(feed Feed, fetcher OrderFetcher, logger *zap.SugaredLogger, onUpdate func(State)) *View {
	ctx, cancel := context.WithCancel(context.Background())
	v := &View{
		feed:     feed,
		fetcher:  fetcher,
		logger:   logger,
		onUpdate: onUpdate,
		orders:   make(map[string]*OrderView),
		conn:     feed.Snapshot(),
		ctx:      ctx,
		cancel:   cancel,
	}
	v.unobserve = feed.Observe(v)
	return v
}

// Track starts following an order. The order is joined on the feed and,
// when the feed is already connected, fetched right away.
func (v *View) Track(ctx context.Context, orderID string) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return livefeed.ErrManagerClosed
	}
	if _, ok := v.orders[orderID]; !ok {
		v.orders[orderID] = &OrderView{OrderID: orderID}
	}
	connected := v.conn.Connected()
	v.mu.Unlock()

	if err := v.feed.JoinOrder(orderID); err != nil {
		return err
	}

	if connected {
		if err := v.refetch(ctx, orderID); err != nil {
			return err
		}
	}
	v.emit()
	return nil
}

func (v *View) Untrack(orderID string) error {
	v.mu.Lock()
	delete(v.orders, orderID)
	v.mu.Unlock()

	err := v.feed.LeaveOrder(orderID)
	v.emit()
	return err
}

// StateChanged refetches every tracked order whenever the feed becomes
// connected, covering events missed while it was down.
func (v *View) StateChanged(s livefeed.Snapshot) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	becameConnected := s.Connected() && !v.conn.Connected()
	v.conn = s
	ids := v.trackedLocked()
	refetch := becameConnected && len(ids) > 0
	if refetch {
		v.wg.Add(1)
	}
	v.mu.Unlock()

	if refetch {
		go func() {
			defer v.wg.Done()
			for _, id := range ids {
				if err := v.refetch(v.ctx, id); err != nil && v.ctx.Err() == nil {
					v.logger.Warnw("failed to refetch order", "order_id", id, "error", err)
				}
			}
			v.emit()
		}()
	}
	v.emit()
}

func (v *View) OrderEvent(msg protocol.Message) {
	if !msg.IsStatusUpdate() {
		return
	}
	at := time.Now()
	if msg.UpdatedAt != nil {
		at = *msg.UpdatedAt
	}
	if v.Apply(msg.OrderID, msg.Status, at) {
		v.emit()
	}
}

// Apply moves a tracked order to status unless status would take it back
// in the lifecycle. It reports whether the view changed.
func (v *View) Apply(orderID string, status domain.OrderStatus, at time.Time) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	o, ok := v.orders[orderID]
	if !ok {
		return false
	}
	return v.applyLocked(o, status, at)
}

func (v *View) applyLocked(o *OrderView, status domain.OrderStatus, at time.Time) bool {
	if !domain.Supersedes(status, o.Status) {
		if status != o.Status {
			v.logger.Debugw("discarding stale status", "order_id", o.OrderID, "status", status, "displayed", o.Status)
		}
		return false
	}
	o.Status = status
	o.UpdatedAt = at
	o.Timeline = append(o.Timeline, Entry{
		Status:  status,
		At:      at,
		Message: domain.StatusMessage(status),
	})
	return true
}

func (v *View) refetch(ctx context.Context, orderID string) error {
	order, err := v.fetcher.FetchOrder(ctx, orderID)

	v.mu.Lock()
	defer v.mu.Unlock()

	o, ok := v.orders[orderID]
	if !ok {
		return nil
	}
	if err != nil {
		o.FetchError = err.Error()
		return err
	}
	o.FetchError = ""
	o.Order = order
	v.applyLocked(o, order.Status, order.UpdatedAt)
	return nil
}

// State returns a copy of what is currently displayed.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := State{Connection: v.conn}
	for _, id := range v.trackedLocked() {
		o := *v.orders[id]
		o.Timeline = append([]Entry(nil), o.Timeline...)
		s.Orders = append(s.Orders, o)
	}
	return s
}

func (v *View) trackedLocked() []string {
	ids := make([]string, 0, len(v.orders))
	for id := range v.orders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (v *View) emit() {
	if v.onUpdate == nil {
		return
	}
	v.emitMu.Lock()
	defer v.emitMu.Unlock()

	v.mu.Lock()
	closed := v.closed
	v.mu.Unlock()
	if closed {
		return
	}
	v.onUpdate(v.State())
}

// Close leaves every tracked order, stops observing the feed and closes it.
// It is safe to call while the feed is reconnecting.
func (v *View) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	ids := v.trackedLocked()
	v.mu.Unlock()

	v.cancel()
	v.unobserve()
	for _, id := range ids {
		if err := v.feed.LeaveOrder(id); err != nil {
			v.logger.Warnw("failed to leave order", "order_id", id, "error", err)
		}
	}
	v.wg.Wait()

	return v.feed.Close()
}
