package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/cafe-cart/internal/cafeapi"
	"github.com/noah-isme/cafe-cart/internal/cart"
)

var (
	// ErrSoldOut is returned when an item or a chosen option is sold out.
	ErrSoldOut = errors.New("catalog: sold out")
	// ErrUnknownOption is returned for an option id that does not belong to the item.
	ErrUnknownOption = errors.New("catalog: unknown option")
	// ErrConflictingOptions is returned when two options of the same group are chosen.
	ErrConflictingOptions = errors.New("catalog: more than one option chosen in a group")
)

// Upstream is the part of the café API the catalog reads.
type Upstream interface {
	Categories(ctx context.Context) cafeapi.Result[[]cafeapi.Category]
	ItemTypes(ctx context.Context) cafeapi.Result[[]cafeapi.ItemType]
	ItemTypesByCategory(ctx context.Context, category int64) cafeapi.Result[[]cafeapi.ItemType]
	ItemType(ctx context.Context, id int64) cafeapi.Result[cafeapi.ItemType]
	Ads(ctx context.Context) cafeapi.Result[[]cafeapi.Ad]
	Settings(ctx context.Context, key string) cafeapi.Result[string]
}

// Service serves the menu from the café API through a Redis cache and turns
// a chosen configuration into priced cart input.
type Service struct {
	api    Upstream
	cache  *Cache
	logger zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	API    Upstream
	Cache  *Cache
	Logger zerolog.Logger
}

// NewService constructs a catalog service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.API == nil {
		return nil, errors.New("catalog: upstream is required")
	}
	return &Service{api: cfg.API, cache: cfg.Cache, logger: cfg.Logger}, nil
}

// cached serves key from the cache or fetches and stores it. Cache failures
// are logged and fall through to the upstream.
func cached[T any](ctx context.Context, s *Service, key string, fetch func() cafeapi.Result[T]) (T, error) {
	var v T
	hit, err := s.cache.GetJSON(ctx, key, &v)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog_cache_read_failed")
	}
	if hit {
		return v, nil
	}
	v, err = fetch().Unwrap()
	if err != nil {
		return v, err
	}
	if err := s.cache.SetJSON(ctx, key, v); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog_cache_write_failed")
	}
	return v, nil
}

func (s *Service) Categories(ctx context.Context) ([]cafeapi.Category, error) {
	return cached(ctx, s, "categories", func() cafeapi.Result[[]cafeapi.Category] {
		return s.api.Categories(ctx)
	})
}

// Items lists the menu, optionally restricted to one category.
func (s *Service) Items(ctx context.Context, category *int64) ([]cafeapi.ItemType, error) {
	if category == nil {
		return cached(ctx, s, "items:all", func() cafeapi.Result[[]cafeapi.ItemType] {
			return s.api.ItemTypes(ctx)
		})
	}
	id := *category
	return cached(ctx, s, "items:category:"+strconv.FormatInt(id, 10), func() cafeapi.Result[[]cafeapi.ItemType] {
		return s.api.ItemTypesByCategory(ctx, id)
	})
}

func (s *Service) Item(ctx context.Context, id int64) (cafeapi.ItemType, error) {
	return cached(ctx, s, itemKey(id), func() cafeapi.Result[cafeapi.ItemType] {
		return s.api.ItemType(ctx, id)
	})
}

func (s *Service) Ads(ctx context.Context) ([]cafeapi.Ad, error) {
	return cached(ctx, s, "ads", func() cafeapi.Result[[]cafeapi.Ad] {
		return s.api.Ads(ctx)
	})
}

// Refresh drops every cached menu response.
func (s *Service) Refresh(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Flush(ctx)
}

// ShopOpen reports the shop-open setting. It is never cached.
func (s *Service) ShopOpen(ctx context.Context) (bool, error) {
	v, err := s.api.Settings(ctx, cafeapi.SettingShopOpen).Unwrap()
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(v) == "1", nil
}

// Resolve prices a configuration of itemTypeID for the cart. The item is
// always fetched fresh so sold-out flags and prices are current. Option groups
// without a chosen option fall back to their default option, if any.
func (s *Service) Resolve(ctx context.Context, itemTypeID int64, optionIDs []int64, quantity int) (cart.AddItemInput, error) {
	item, err := s.api.ItemType(ctx, itemTypeID).Unwrap()
	if err != nil {
		return cart.AddItemInput{}, err
	}
	if err := s.cache.SetJSON(ctx, itemKey(itemTypeID), item); err != nil {
		s.logger.Warn().Err(err).Int64("item_type_id", itemTypeID).Msg("catalog_cache_write_failed")
	}
	if item.SoldOut {
		return cart.AddItemInput{}, fmt.Errorf("%w: item %d", ErrSoldOut, item.ID)
	}

	type located struct {
		group  int
		option cafeapi.OptionItem
	}
	index := make(map[int64]located)
	for g, group := range item.Options {
		for _, opt := range group.Items {
			index[opt.ID] = located{group: g, option: opt}
		}
	}

	chosen := make(map[int]cafeapi.OptionItem, len(item.Options))
	for _, id := range optionIDs {
		loc, ok := index[id]
		if !ok {
			return cart.AddItemInput{}, fmt.Errorf("%w: %d", ErrUnknownOption, id)
		}
		if loc.option.SoldOut {
			return cart.AddItemInput{}, fmt.Errorf("%w: option %d", ErrSoldOut, id)
		}
		if prev, taken := chosen[loc.group]; taken && prev.ID != id {
			return cart.AddItemInput{}, fmt.Errorf("%w: %s", ErrConflictingOptions, item.Options[loc.group].Name)
		}
		chosen[loc.group] = loc.option
	}
	for g, group := range item.Options {
		if _, ok := chosen[g]; ok {
			continue
		}
		for _, opt := range group.Items {
			if opt.IsDefault && !opt.SoldOut {
				chosen[g] = opt
				break
			}
		}
	}

	selected := make([]cafeapi.OptionItem, 0, len(chosen))
	for _, opt := range chosen {
		selected = append(selected, opt)
	}
	slices.SortFunc(selected, func(a, b cafeapi.OptionItem) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	ids := make([]int64, 0, len(selected))
	deltas := make([]decimal.Decimal, 0, len(selected))
	for _, opt := range selected {
		ids = append(ids, opt.ID)
		deltas = append(deltas, opt.PriceChange)
	}

	return cart.AddItemInput{
		ItemTypeID:        itemTypeID,
		OptionIDs:         ids,
		UnitBasePrice:     item.BasePrice,
		UnitSalePercent:   item.SalePercent,
		OptionPriceDeltas: deltas,
		Quantity:          quantity,
	}, nil
}

func itemKey(id int64) string {
	return "item:" + strconv.FormatInt(id, 10)
}
