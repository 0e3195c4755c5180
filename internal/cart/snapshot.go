package cart

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Snapshot is the persisted form of a Store.
type Snapshot struct {
	Entries      []SnapshotEntry `json:"entries"`
	OnSiteMode   bool            `json:"onSiteMode"`
	DeliveryRoom *string         `json:"deliveryRoom"`
}

// SnapshotEntry is the persisted form of an Entry. Decimals are encoded as
// JSON strings.
type SnapshotEntry struct {
	ItemTypeID        int64             `json:"itemTypeId"`
	SelectedOptionIDs []int64           `json:"selectedOptionIds"`
	Quantity          int               `json:"quantity"`
	UnitBasePrice     decimal.Decimal   `json:"unitBasePrice"`
	UnitSalePercent   decimal.Decimal   `json:"unitSalePercent"`
	OptionPriceDeltas []decimal.Decimal `json:"optionPriceDeltas"`
}

// Persister stores and restores cart snapshots. Load reports false when no
// snapshot exists.
type Persister interface {
	Load() (Snapshot, bool, error)
	Save(Snapshot) error
}

// Encode serialises the snapshot as JSON.
func (s Snapshot) Encode() ([]byte, error) {
	entries := make([]SnapshotEntry, len(s.Entries))
	copy(entries, s.Entries)
	for i := range entries {
		if entries[i].SelectedOptionIDs == nil {
			entries[i].SelectedOptionIDs = []int64{}
		}
		if entries[i].OptionPriceDeltas == nil {
			entries[i].OptionPriceDeltas = []decimal.Decimal{}
		}
	}
	s.Entries = entries
	return json.Marshal(s)
}

// DecodeSnapshot parses a snapshot previously produced by Encode.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	if len(data) == 0 {
		return Snapshot{}, errors.New("cart: empty snapshot")
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("cart: decode snapshot: %w", err)
	}
	return snap, nil
}

func (e Entry) snapshot() SnapshotEntry {
	c := e.clone()
	return SnapshotEntry{
		ItemTypeID:        c.ItemTypeID,
		SelectedOptionIDs: c.SelectedOptionIDs,
		Quantity:          c.Quantity,
		UnitBasePrice:     c.UnitBasePrice,
		UnitSalePercent:   c.UnitSalePercent,
		OptionPriceDeltas: c.OptionPriceDeltas,
	}
}

func (se SnapshotEntry) entry() Entry {
	return Entry{
		ItemTypeID:        se.ItemTypeID,
		SelectedOptionIDs: se.SelectedOptionIDs,
		UnitBasePrice:     se.UnitBasePrice,
		UnitSalePercent:   se.UnitSalePercent,
		OptionPriceDeltas: se.OptionPriceDeltas,
		Quantity:          se.Quantity,
	}.clone()
}
