// Package memstore is an in-process persistence.Store on go-memdb. Write
// transactions are serialised by memdb's single writer lock, which gives InTx
// the same count-then-insert guarantees the PostgreSQL store gets from row
// locks. It backs the memory STORE_BACKEND and the service tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"

	"github.com/zenGate-Global/worklane/platform/go/persistence"
)

var (
	_ persistence.Store  = (*Store)(nil)
	_ persistence.Client = (*client)(nil)
	_ persistence.Tx     = (*tx)(nil)
)

// Store implements persistence.Store in memory.
type Store struct {
	db *memdb.MemDB

	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// New builds an empty store.
func New() (*Store, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("memdb schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// MustNew is New for tests and wiring code that cannot recover.
func MustNew() *Store {
	s, err := New()
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Store) Client() persistence.Client {
	return &client{queries: queries{store: s}}
}

func (s *Store) InTx(ctx context.Context, fn func(tx persistence.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	if err := fn(&tx{queries: queries{store: s, txn: txn}}); err != nil {
		return err
	}

	txn.Commit()
	return nil
}

// tick returns a strictly increasing timestamp so ordering by creation time
// is deterministic.
func (s *Store) tick() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

type queries struct {
	store *Store
	txn   *memdb.Txn // set inside InTx
}

type client struct {
	queries
}

func (c *client) Ping(ctx context.Context) error {
	return ctx.Err()
}

type tx struct {
	queries
}

// LockTenant needs no extra lock: the enclosing write txn already excludes
// every other writer.
func (t *tx) LockTenant(ctx context.Context, id uuid.UUID) (persistence.Tenant, error) {
	return t.GetTenant(ctx, id)
}

func (q *queries) read(ctx context.Context, fn func(txn *memdb.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if q.txn != nil {
		return fn(q.txn)
	}
	txn := q.store.db.Txn(false)
	defer txn.Abort()
	return fn(txn)
}

func (q *queries) write(ctx context.Context, fn func(txn *memdb.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if q.txn != nil {
		return fn(q.txn)
	}
	txn := q.store.db.Txn(true)
	defer txn.Abort()
	if err := fn(txn); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func first[T any](txn *memdb.Txn, table, index string, args ...any) (*T, error) {
	raw, err := txn.First(table, index, args...)
	if err != nil {
		return nil, fmt.Errorf("%s lookup: %w", table, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", table, persistence.ErrNotFound)
	}
	return raw.(*T), nil
}

func all[T any](txn *memdb.Txn, table, index string, args ...any) ([]*T, error) {
	it, err := txn.Get(table, index, args...)
	if err != nil {
		return nil, fmt.Errorf("%s scan: %w", table, err)
	}
	var out []*T
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, raw.(*T))
	}
	return out, nil
}

func count(txn *memdb.Txn, table, index string, id uuid.UUID) (int, error) {
	it, err := txn.Get(table, index, id)
	if err != nil {
		return 0, fmt.Errorf("%s count: %w", table, err)
	}
	n := 0
	for raw := it.Next(); raw != nil; raw = it.Next() {
		n++
	}
	return n, nil
}

func paginate[T any](items []T, page persistence.Page) persistence.ListResult[T] {
	result := persistence.ListResult[T]{Items: []T{}, Total: len(items)}
	if page.Limit <= 0 {
		return result
	}
	start := page.Offset()
	if start < 0 || start >= len(items) {
		return result
	}
	end := min(start+page.Limit, len(items))
	result.Items = append(result.Items, items[start:end]...)
	return result
}

// newestFirst orders by creation time descending, then id.
func newestFirst[T any](items []*T, created func(*T) time.Time, id func(*T) uuid.UUID) {
	sort.SliceStable(items, func(i, j int) bool {
		ci, cj := created(items[i]), created(items[j])
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return id(items[i]).String() < id(items[j]).String()
	})
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func maskValue[T any](mask persistence.FieldMask, field string) (T, error) {
	raw, _ := mask.Get(field)
	v, ok := raw.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("field %q: unexpected value type %T", field, raw)
	}
	return v, nil
}

// maskOptional reads a nullable field; both a nil interface and a typed nil
// pointer mean NULL.
func maskOptional[T any](mask persistence.FieldMask, field string) (*T, error) {
	raw, _ := mask.Get(field)
	if raw == nil {
		return nil, nil
	}
	v, ok := raw.(*T)
	if !ok {
		return nil, fmt.Errorf("field %q: unexpected value type %T", field, raw)
	}
	if v == nil {
		return nil, nil
	}
	c := *v
	return &c, nil
}
