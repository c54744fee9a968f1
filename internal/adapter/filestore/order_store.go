package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/YelzhanWeb/campuseats/internal/domain"
)

// StorageKey is the key the order list is kept under inside the file.
const StorageKey = "campus-eats-vendor-orders"

type document struct {
	Orders  []*domain.Order     `json:"campus-eats-vendor-orders"`
	History []*domain.StatusLog `json:"campus-eats-status-log"`
}

// WriteFunc persists the whole serialized list. It must either replace the
// previous content completely or leave it untouched.
type WriteFunc func(path string, data []byte) error

type Option func(*OrderStore)

func WithWriter(w WriteFunc) Option {
	return func(s *OrderStore) { s.write = w }
}

func WithClock(now func() time.Time) Option {
	return func(s *OrderStore) { s.now = now }
}

// OrderStore keeps every order in one JSON file that several processes may
// share. Writers hold an exclusive lock on a sidecar file while they re-read,
// check and rewrite the list; readers pick up the file again whenever it was
// replaced since their last read. The in-memory list only changes after the
// file write succeeded.
type OrderStore struct {
	mu      sync.Mutex
	path    string
	lock    *flock.Flock
	loaded  os.FileInfo
	orders  []*domain.Order // newest first
	history []*domain.StatusLog
	write   WriteFunc
	now     func() time.Time
}

// Open loads the list stored at path. A missing file is an empty store.
func Open(path string, opts ...Option) (*OrderStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	s := &OrderStore{
		path:  path,
		lock:  flock.New(path + ".lock"),
		write: WriteAtomic,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.reload(true); err != nil {
		return nil, err
	}
	return s, nil
}

// reload reads the file when it was replaced since the last read, or always
// when force is set. Callers hold mu.
func (s *OrderStore) reload(force bool) error {
	info, err := os.Stat(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.orders, s.history, s.loaded = nil, nil, nil
		return nil
	case err != nil:
		return fmt.Errorf("failed to stat order file: %w", err)
	}

	if !force && s.loaded != nil && os.SameFile(s.loaded, info) &&
		s.loaded.ModTime().Equal(info.ModTime()) && s.loaded.Size() == info.Size() {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read order file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode order file %s: %w", s.path, err)
	}
	s.orders = doc.Orders
	s.history = doc.History
	s.loaded = info
	return nil
}

// refresh brings the in-memory copy up to date for a read.
func (s *OrderStore) refresh(op string) error {
	if err := s.reload(false); err != nil {
		return &domain.PersistenceError{Op: op, Err: err}
	}
	return nil
}

// locked runs fn holding the file lock, with the list freshly read from disk.
// Callers hold mu.
func (s *OrderStore) locked(ctx context.Context, op string, fn func() error) error {
	ok, err := s.lock.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		return &domain.PersistenceError{Op: op, Err: fmt.Errorf("failed to lock order file: %w", err)}
	}
	if !ok {
		return &domain.PersistenceError{Op: op, Err: errors.New("order file is locked")}
	}
	defer s.lock.Unlock()

	if err := s.reload(true); err != nil {
		return &domain.PersistenceError{Op: op, Err: err}
	}
	return fn()
}

func (s *OrderStore) Append(ctx context.Context, order *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.locked(ctx, "append", func() error {
		if s.indexOf(order.ID) >= 0 {
			return &domain.ConflictError{OrderID: order.ID, Reason: domain.ConflictDuplicateID}
		}

		orders := make([]*domain.Order, 0, len(s.orders)+1)
		orders = append(orders, order.Clone())
		orders = append(orders, s.orders...)

		history := s.withLog(&domain.StatusLog{
			OrderID:   order.ID,
			To:        order.Status,
			Role:      domain.RoleCustomer,
			ChangedBy: order.Customer.Phone,
			ChangedAt: order.CreatedAt,
		})

		return s.commit("append", orders, history)
	})
}

// UpdateStatus applies change only while the stored order is still in
// change.From. The check and the write happen under the same lock.
func (s *OrderStore) UpdateStatus(ctx context.Context, change domain.Change) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := change.Authorize(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var updated *domain.Order
	err := s.locked(ctx, "update_status", func() error {
		i := s.indexOf(change.OrderID)
		if i < 0 {
			return domain.ErrNotFound
		}

		updated = s.orders[i].Clone()
		if err := updated.TransitionTo(change, s.now()); err != nil {
			return err
		}

		orders := make([]*domain.Order, len(s.orders))
		copy(orders, s.orders)
		orders[i] = updated

		from := change.From
		history := s.withLog(&domain.StatusLog{
			OrderID:   updated.ID,
			From:      &from,
			To:        updated.Status,
			Role:      change.Actor.Role,
			ChangedBy: change.Actor.ID,
			ChangedAt: updated.UpdatedAt,
		})

		return s.commit("update_status", orders, history)
	})
	if err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

func (s *OrderStore) Get(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refresh("get"); err != nil {
		return nil, err
	}
	i := s.indexOf(id)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	return s.orders[i].Clone(), nil
}

func (s *OrderStore) List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refresh("list"); err != nil {
		return nil, err
	}
	var orders []*domain.Order
	for _, o := range s.orders {
		if filter.Match(o) {
			orders = append(orders, o.Clone())
		}
	}
	domain.SortByCreated(orders)
	return orders, nil
}

func (s *OrderStore) History(ctx context.Context, id string) ([]*domain.StatusLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refresh("history"); err != nil {
		return nil, err
	}
	var logs []*domain.StatusLog
	for _, l := range s.history {
		if l.OrderID == id {
			cp := *l
			logs = append(logs, &cp)
		}
	}
	return logs, nil
}

func (s *OrderStore) indexOf(id string) int {
	for i, o := range s.orders {
		if o.ID == id {
			return i
		}
	}
	return -1
}

func (s *OrderStore) withLog(entry *domain.StatusLog) []*domain.StatusLog {
	entry.ID = len(s.history) + 1
	history := make([]*domain.StatusLog, 0, len(s.history)+1)
	history = append(history, s.history...)
	return append(history, entry)
}

// commit writes the new state and only then makes it visible. Callers hold mu.
func (s *OrderStore) commit(op string, orders []*domain.Order, history []*domain.StatusLog) error {
	data, err := json.MarshalIndent(document{Orders: orders, History: history}, "", "  ")
	if err != nil {
		return &domain.PersistenceError{Op: op, Err: fmt.Errorf("failed to encode orders: %w", err)}
	}
	if err := s.write(s.path, data); err != nil {
		return &domain.PersistenceError{Op: op, Err: err}
	}

	s.orders = orders
	s.history = history
	if info, err := os.Stat(s.path); err == nil {
		s.loaded = info
	}
	return nil
}

// WriteAtomic writes data to a temp file next to path and renames it over path.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace order file: %w", err)
	}
	return nil
}
