package cart

import (
	"slices"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/cafe-cart/internal/obs"
	"github.com/noah-isme/cafe-cart/internal/pricing"
)

// AddItemInput carries a confirmed item configuration. Prices are taken as
// supplied by the catalog and are not validated here.
type AddItemInput struct {
	ItemTypeID        int64
	OptionIDs         []int64
	UnitBasePrice     decimal.Decimal
	UnitSalePercent   decimal.Decimal
	OptionPriceDeltas []decimal.Decimal
	Quantity          int
}

// Option customises a Store.
type Option func(*Store)

// WithLogger sets the logger used to report persistence failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithBackend labels persistence metrics with the backend name.
func WithBackend(name string) Option {
	return func(s *Store) {
		s.backend = name
	}
}

// Store holds the pending order of one session. It is not safe for concurrent
// use; callers serialise mutations.
type Store struct {
	entries      []Entry
	onSiteMode   bool
	deliveryRoom *string

	persister Persister
	logger    zerolog.Logger
	backend   string
}

// NewStore builds a store and hydrates it once from p. A missing or unreadable
// snapshot yields an empty cart. A nil persister keeps the cart in memory only.
func NewStore(p Persister, opts ...Option) *Store {
	s := &Store{
		persister: p,
		logger:    zerolog.Nop(),
		backend:   "memory",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hydrate()
	return s
}

func (s *Store) hydrate() {
	if s.persister == nil {
		return
	}
	snap, ok, err := s.persister.Load()
	if err != nil {
		s.logger.Warn().Err(err).Str("backend", s.backend).Msg("cart_restore_failed")
		return
	}
	if !ok {
		return
	}
	for _, se := range snap.Entries {
		if se.ItemTypeID <= 0 || se.Quantity < 1 {
			continue
		}
		s.merge(se.entry())
	}
	s.onSiteMode = snap.OnSiteMode
	s.deliveryRoom = copyString(snap.DeliveryRoom)
}

// AddItem merges the configuration into a matching entry or appends a new one.
// A quantity below one is treated as one.
func (s *Store) AddItem(in AddItemInput) {
	qty := in.Quantity
	if qty < 1 {
		qty = 1
	}
	s.merge(Entry{
		ItemTypeID:        in.ItemTypeID,
		SelectedOptionIDs: normalizeOptions(in.OptionIDs),
		UnitBasePrice:     in.UnitBasePrice,
		UnitSalePercent:   in.UnitSalePercent,
		OptionPriceDeltas: slices.Clone(in.OptionPriceDeltas),
		Quantity:          qty,
	})
	s.persist("add_item")
}

// merge increments a matching entry, refreshing its price data, or appends.
func (s *Store) merge(e Entry) {
	e.SelectedOptionIDs = normalizeOptions(e.SelectedOptionIDs)
	for i := range s.entries {
		if EntriesMatch(s.entries[i], e) {
			s.entries[i].Quantity += e.Quantity
			s.entries[i].UnitBasePrice = e.UnitBasePrice
			s.entries[i].UnitSalePercent = e.UnitSalePercent
			s.entries[i].OptionPriceDeltas = e.OptionPriceDeltas
			return
		}
	}
	s.entries = append(s.entries, e)
}

// ChangeQuantity adds delta to the entry at index. An entry whose quantity
// drops to zero or below is removed. Out-of-range indexes are ignored.
func (s *Store) ChangeQuantity(index, delta int) {
	if !s.inRange(index) || delta == 0 {
		return
	}
	next := s.entries[index].Quantity + delta
	if next <= 0 {
		s.entries = slices.Delete(s.entries, index, index+1)
	} else {
		s.entries[index].Quantity = next
	}
	s.persist("change_quantity")
}

// RemoveEntry deletes the entry at index. Out-of-range indexes are ignored.
func (s *Store) RemoveEntry(index int) {
	if !s.inRange(index) {
		return
	}
	s.entries = slices.Delete(s.entries, index, index+1)
	s.persist("remove_entry")
}

// Clear empties the cart and resets the on-site mode and delivery room.
func (s *Store) Clear() {
	s.entries = nil
	s.onSiteMode = false
	s.deliveryRoom = nil
	s.persist("clear")
}

// SetOnSiteOrderMode marks the pending order as a staff-placed walk-in order.
func (s *Store) SetOnSiteOrderMode(onSite bool) {
	s.onSiteMode = onSite
	s.persist("set_on_site_mode")
}

// OnSiteOrderMode reports whether the pending order is an on-site order.
func (s *Store) OnSiteOrderMode() bool { return s.onSiteMode }

// SetDeliveryRoom sets the delivery destination; nil clears it.
func (s *Store) SetDeliveryRoom(room *string) {
	s.deliveryRoom = copyString(room)
	s.persist("set_delivery_room")
}

// DeliveryRoom returns a copy of the delivery destination, if any.
func (s *Store) DeliveryRoom() *string { return copyString(s.deliveryRoom) }

// TotalItems returns the sum of quantities over all entries.
func (s *Store) TotalItems() int {
	total := 0
	for _, e := range s.entries {
		total += e.Quantity
	}
	return total
}

// TotalPricePreview returns the display-only cart total.
func (s *Store) TotalPricePreview() decimal.Decimal {
	lines := make([]pricing.Line, 0, len(s.entries))
	for _, e := range s.entries {
		lines = append(lines, e.line())
	}
	return pricing.Compute(lines).Total
}

// Len returns the number of entries.
func (s *Store) Len() int { return len(s.entries) }

// Entry returns a copy of the entry at index.
func (s *Store) Entry(index int) (Entry, bool) {
	if !s.inRange(index) {
		return Entry{}, false
	}
	return s.entries[index].clone(), true
}

// Entries returns copies of all entries in display order.
func (s *Store) Entries() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.clone())
	}
	return out
}

// Snapshot returns the serialisable state of the store.
func (s *Store) Snapshot() Snapshot {
	entries := make([]SnapshotEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e.snapshot())
	}
	return Snapshot{
		Entries:      entries,
		OnSiteMode:   s.onSiteMode,
		DeliveryRoom: copyString(s.deliveryRoom),
	}
}

func (s *Store) inRange(index int) bool {
	return index >= 0 && index < len(s.entries)
}

// persist writes the current state through to the persister. Failures are
// logged and counted but never surfaced.
func (s *Store) persist(op string) {
	if obs.CartMutationsTotal != nil {
		obs.CartMutationsTotal.WithLabelValues(op).Inc()
	}
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(s.Snapshot()); err != nil {
		if obs.CartPersistFailuresTotal != nil {
			obs.CartPersistFailuresTotal.WithLabelValues(s.backend).Inc()
		}
		s.logger.Warn().Err(err).Str("op", op).Str("backend", s.backend).Msg("cart_persist_failed")
	}
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
