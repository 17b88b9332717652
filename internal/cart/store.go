package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/angelmondragon/teahouse-backend/pkg/logger"
	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"
)

// DefaultStorageKey is the key the cart snapshot is stored under.
const DefaultStorageKey = "cartItems"

// KV is the durable storage the cart snapshots into.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// PersistObserver is notified of every durable write attempt.
type PersistObserver interface {
	ObserveCartPersist(op string, err error)
}

// Options configures a Store. KV may be nil for a memory-only cart.
type Options struct {
	KV         KV
	StorageKey string
	Pricing    Pricing
	Logger     *logger.Logger
	Observer   PersistObserver
}

// Store owns the shopper's in-progress selection. The in-memory state is
// authoritative; durable writes are asynchronous and best-effort.
type Store struct {
	mu      sync.Mutex
	items   map[string]*LineItem
	order   []string
	pricing Pricing
	logg    *logger.Logger

	kv     KV
	key    string
	writer *writer
}

func NewStore(opts Options) *Store {
	key := strings.TrimSpace(opts.StorageKey)
	if key == "" {
		key = DefaultStorageKey
	}
	pricing := opts.Pricing
	if pricing.MinQty == 0 && pricing.Rate.IsZero() {
		pricing = DefaultPricing()
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	s := &Store{
		items:   make(map[string]*LineItem),
		pricing: pricing,
		logg:    logg,
		kv:      opts.KV,
		key:     key,
	}
	if opts.KV != nil {
		s.writer = newWriter(opts.KV, key, logg, opts.Observer)
	}
	return s
}

// Pricing returns the discount rule the store applies.
func (s *Store) Pricing() Pricing {
	return s.pricing
}

// Load hydrates the cart from durable storage. Absent or unreadable content
// leaves an empty cart and is never returned as an error.
func (s *Store) Load(ctx context.Context) {
	if s.kv == nil {
		return
	}
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.warn(ctx, "cart.storage.read_failed", err)
		s.reset()
		return
	}
	if !ok || strings.TrimSpace(raw) == "" {
		s.reset()
		return
	}
	items, err := decodeSnapshot(raw)
	if err != nil {
		s.warn(ctx, "cart.storage.parse_failed", err)
		s.reset()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*LineItem, len(items))
	s.order = s.order[:0]
	for i := range items {
		item := items[i]
		if existing, dup := s.items[item.ID]; dup {
			existing.Quantity += item.Quantity
			continue
		}
		s.items[item.ID] = &item
		s.order = append(s.order, item.ID)
	}
}

// AddItem inserts product with quantity 1, or increments the existing line.
func (s *Store) AddItem(product Product) {
	id := strings.TrimSpace(product.ID)
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[id]; ok {
		existing.Quantity++
		s.persistLocked()
		return
	}
	price := decimal.Zero
	if product.Price != nil && !product.Price.IsNegative() {
		price = *product.Price
	}
	s.items[id] = &LineItem{ID: id, ProductName: product.Name, UnitPrice: price, Quantity: 1}
	s.order = append(s.order, id)
	s.persistLocked()
}

// RemoveItem deletes the line regardless of its quantity.
func (s *Store) RemoveItem(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return
	}
	s.dropLocked(id)
	s.persistLocked()
}

// RemovePaid takes the paid quantities off the cart. Units added after the
// paid snapshot was taken stay in the cart.
func (s *Store) RemovePaid(paid []LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for _, line := range paid {
		item, ok := s.items[line.ID]
		if !ok {
			continue
		}
		changed = true
		if item.Quantity > line.Quantity {
			item.Quantity -= line.Quantity
			continue
		}
		s.dropLocked(line.ID)
	}
	if changed {
		s.persistLocked()
	}
}

func (s *Store) dropLocked(id string) {
	delete(s.items, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// IncrementQuantity adds one unit to an existing line.
func (s *Store) IncrementQuantity(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return
	}
	item.Quantity++
	s.persistLocked()
}

// DecrementQuantity never takes a line below one unit.
func (s *Store) DecrementQuantity(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok || item.Quantity <= 1 {
		return
	}
	item.Quantity--
	s.persistLocked()
}

// Clear empties the in-memory cart. The durable copy is rewritten as an
// empty snapshot by the next write, it is not removed.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*LineItem)
	s.order = nil
	s.persistLocked()
}

// ClearAndPersist empties the cart and removes the durable copy, waiting for
// the removal to land.
func (s *Store) ClearAndPersist(ctx context.Context) error {
	s.mu.Lock()
	s.items = make(map[string]*LineItem)
	s.order = nil
	if s.writer == nil {
		s.mu.Unlock()
		return nil
	}
	s.writer.schedule(writeOp{remove: true})
	s.mu.Unlock()
	return s.writer.flush(ctx)
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Len reports the number of distinct lines.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// DetailedItems derives pricing for every line. The result is computed
// fresh on each call.
func (s *Store) DetailedItems() []DetailedItem {
	items := s.Items()
	out := make([]DetailedItem, 0, len(items))
	for _, item := range items {
		out = append(out, s.pricing.Detail(item))
	}
	return out
}

// Total is the sum of the discounted line totals.
func (s *Store) Total() decimal.Decimal {
	total := decimal.Zero
	for _, d := range s.DetailedItems() {
		total = total.Add(d.DiscountedTotal)
	}
	return total
}

// Fingerprint hashes the cart content. Any change to ids, prices or
// quantities changes it; insertion order does not.
func (s *Store) Fingerprint() uint64 {
	return Fingerprint(s.Items())
}

// Fingerprint hashes a set of line items independent of their order.
func Fingerprint(items []LineItem) uint64 {
	sorted := make([]LineItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	h := xxhash.New()
	for _, item := range sorted {
		_, _ = h.WriteString(item.ID)
		_, _ = h.WriteString("|")
		_, _ = h.WriteString(item.UnitPrice.String())
		_, _ = h.WriteString("|")
		_, _ = h.WriteString(strconv.Itoa(item.Quantity))
		_, _ = h.WriteString("\n")
	}
	return h.Sum64()
}

// Flush waits until every scheduled durable write has been attempted.
func (s *Store) Flush(ctx context.Context) error {
	if s.writer == nil {
		return nil
	}
	return s.writer.flush(ctx)
}

// Close drains pending writes and stops the writer. Mutations after Close
// only affect memory.
func (s *Store) Close(ctx context.Context) error {
	if s.writer == nil {
		return nil
	}
	return s.writer.close(ctx)
}

func (s *Store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*LineItem)
	s.order = nil
}

func (s *Store) snapshotLocked() []LineItem {
	out := make([]LineItem, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.items[id])
	}
	return out
}

// persistLocked must run under s.mu so snapshots reach the writer in
// mutation order.
func (s *Store) persistLocked() {
	if s.writer == nil {
		return
	}
	payload, err := json.Marshal(s.snapshotLocked())
	if err != nil {
		s.warn(context.Background(), "cart.storage.encode_failed", err)
		return
	}
	s.writer.schedule(writeOp{payload: string(payload)})
}

func (s *Store) warn(ctx context.Context, msg string, err error) {
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"storage_key": s.key,
		"error":       err.Error(),
	}), msg)
}

var errInvalidSnapshot = errors.New("invalid cart snapshot")

func decodeSnapshot(raw string) ([]LineItem, error) {
	var items []LineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	for i, item := range items {
		if strings.TrimSpace(item.ID) == "" {
			return nil, fmt.Errorf("%w: line %d has no id", errInvalidSnapshot, i)
		}
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: line %s has quantity %d", errInvalidSnapshot, item.ID, item.Quantity)
		}
		if item.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: line %s has a negative price", errInvalidSnapshot, item.ID)
		}
	}
	return items, nil
}
