package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cafe-cart/internal/cafeapi"
	"github.com/noah-isme/cafe-cart/internal/catalog"
)

type fakeUpstream struct {
	items      map[int64]cafeapi.ItemType
	itemCalls  int
	listCalls  int
	shopOpen   string
	failStatus int
}

func (f *fakeUpstream) Categories(context.Context) cafeapi.Result[[]cafeapi.Category] {
	return cafeapi.Ok([]cafeapi.Category{{ID: 1, Name: "Coffee"}})
}

func (f *fakeUpstream) ItemTypes(context.Context) cafeapi.Result[[]cafeapi.ItemType] {
	f.listCalls++
	out := make([]cafeapi.ItemType, 0, len(f.items))
	for _, it := range f.items {
		out = append(out, it)
	}
	return cafeapi.Ok(out)
}

func (f *fakeUpstream) ItemTypesByCategory(_ context.Context, category int64) cafeapi.Result[[]cafeapi.ItemType] {
	f.listCalls++
	var out []cafeapi.ItemType
	for _, it := range f.items {
		if it.Category.ID == category {
			out = append(out, it)
		}
	}
	return cafeapi.Ok(out)
}

func (f *fakeUpstream) ItemType(_ context.Context, id int64) cafeapi.Result[cafeapi.ItemType] {
	f.itemCalls++
	if f.failStatus != 0 {
		return cafeapi.Err[cafeapi.ItemType](&cafeapi.APIError{Status: f.failStatus, Detail: "upstream says no"})
	}
	it, ok := f.items[id]
	if !ok {
		return cafeapi.Err[cafeapi.ItemType](&cafeapi.APIError{Status: http.StatusNotFound, Detail: "Item not found"})
	}
	return cafeapi.Ok(it)
}

func (f *fakeUpstream) Ads(context.Context) cafeapi.Result[[]cafeapi.Ad] {
	return cafeapi.Ok([]cafeapi.Ad{{ID: 1, Name: "Autumn", Image: "a.png", URL: "https://example.com"}})
}

func (f *fakeUpstream) Settings(_ context.Context, key string) cafeapi.Result[string] {
	if key != cafeapi.SettingShopOpen {
		return cafeapi.Err[string](&cafeapi.APIError{Status: http.StatusNotFound, Detail: "no such key"})
	}
	return cafeapi.Ok(f.shopOpen)
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func latte() cafeapi.ItemType {
	return cafeapi.ItemType{
		ID:          7,
		Name:        "Latte",
		Category:    cafeapi.Category{ID: 1, Name: "Coffee"},
		BasePrice:   d("12"),
		SalePercent: d("0.9"),
		Options: []cafeapi.OptionType{
			{ID: 1, Name: "Size", Items: []cafeapi.OptionItem{
				{ID: 11, Name: "Regular", TypeID: 1, IsDefault: true, PriceChange: d("0")},
				{ID: 12, Name: "Large", TypeID: 1, PriceChange: d("2")},
			}},
			{ID: 2, Name: "Milk", Items: []cafeapi.OptionItem{
				{ID: 21, Name: "Whole", TypeID: 2, IsDefault: true, PriceChange: d("0")},
				{ID: 22, Name: "Oat", TypeID: 2, PriceChange: d("1.5")},
				{ID: 23, Name: "Soy", TypeID: 2, PriceChange: d("1"), SoldOut: true},
			}},
			{ID: 3, Name: "Extras", Items: []cafeapi.OptionItem{
				{ID: 31, Name: "Shot", TypeID: 3, PriceChange: d("3")},
			}},
		},
	}
}

func newService(t *testing.T, up *fakeUpstream) (*catalog.Service, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc, err := catalog.NewService(catalog.ServiceConfig{
		API:    up,
		Cache:  catalog.NewCache(client, time.Minute, "menu:"),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	return svc, mr
}

func TestResolveFillsDefaults(t *testing.T) {
	svc, _ := newService(t, &fakeUpstream{items: map[int64]cafeapi.ItemType{7: latte()}})

	in, err := svc.Resolve(context.Background(), 7, []int64{22, 12}, 2)
	require.NoError(t, err)
	require.Equal(t, int64(7), in.ItemTypeID)
	require.Equal(t, []int64{12, 22}, in.OptionIDs)
	require.Len(t, in.OptionPriceDeltas, 2)
	require.True(t, in.OptionPriceDeltas[0].Equal(d("2")))
	require.True(t, in.OptionPriceDeltas[1].Equal(d("1.5")))
	require.True(t, in.UnitSalePercent.Equal(d("0.9")))
	require.Equal(t, 2, in.Quantity)

	in, err = svc.Resolve(context.Background(), 7, nil, 1)
	require.NoError(t, err)
	require.Equal(t, []int64{11, 21}, in.OptionIDs, "groups without defaults stay empty")
}

func TestResolveRejections(t *testing.T) {
	soldOut := latte()
	soldOut.ID = 8
	soldOut.SoldOut = true
	svc, _ := newService(t, &fakeUpstream{items: map[int64]cafeapi.ItemType{7: latte(), 8: soldOut}})
	ctx := context.Background()

	_, err := svc.Resolve(ctx, 7, []int64{99}, 1)
	require.ErrorIs(t, err, catalog.ErrUnknownOption)

	_, err = svc.Resolve(ctx, 7, []int64{23}, 1)
	require.ErrorIs(t, err, catalog.ErrSoldOut)

	_, err = svc.Resolve(ctx, 7, []int64{11, 12}, 1)
	require.ErrorIs(t, err, catalog.ErrConflictingOptions)

	_, err = svc.Resolve(ctx, 8, nil, 1)
	require.ErrorIs(t, err, catalog.ErrSoldOut)

	_, err = svc.Resolve(ctx, 404, nil, 1)
	apiErr, ok := cafeapi.AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestResolveDuplicateOptionIsAccepted(t *testing.T) {
	svc, _ := newService(t, &fakeUpstream{items: map[int64]cafeapi.ItemType{7: latte()}})
	in, err := svc.Resolve(context.Background(), 7, []int64{12, 12, 31}, 1)
	require.NoError(t, err)
	require.Equal(t, []int64{12, 21, 31}, in.OptionIDs)
}

func TestItemsAreCached(t *testing.T) {
	up := &fakeUpstream{items: map[int64]cafeapi.ItemType{7: latte()}}
	svc, mr := newService(t, up)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		items, err := svc.Items(ctx, nil)
		require.NoError(t, err)
		require.Len(t, items, 1)
	}
	require.Equal(t, 1, up.listCalls)
	require.True(t, mr.Exists("menu:items:all"))

	cat := int64(1)
	_, err := svc.Items(ctx, &cat)
	require.NoError(t, err)
	require.True(t, mr.Exists("menu:items:category:1"))

	item, err := svc.Item(ctx, 7)
	require.NoError(t, err)
	require.True(t, item.BasePrice.Equal(d("12")))
	_, err = svc.Item(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, 1, up.itemCalls)
}

func TestCacheOutageFallsThrough(t *testing.T) {
	up := &fakeUpstream{items: map[int64]cafeapi.ItemType{7: latte()}}
	svc, mr := newService(t, up)
	mr.Close()

	cats, err := svc.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)
}

func TestShopOpen(t *testing.T) {
	up := &fakeUpstream{shopOpen: "1"}
	svc, _ := newService(t, up)
	open, err := svc.ShopOpen(context.Background())
	require.NoError(t, err)
	require.True(t, open)

	up.shopOpen = "0"
	open, err = svc.ShopOpen(context.Background())
	require.NoError(t, err)
	require.False(t, open)
}

func TestHandlers(t *testing.T) {
	up := &fakeUpstream{items: map[int64]cafeapi.ItemType{7: latte()}, shopOpen: "1"}
	svc, _ := newService(t, up)
	router := chi.NewRouter()
	catalog.NewHandler(catalog.HandlerConfig{Service: svc}).Routes(router)

	t.Run("item detail", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/7", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Data cafeapi.ItemType `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "Latte", body.Data.Name)
	})

	t.Run("bad id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/abc", nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad category", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items?category=-2", nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("upstream not found keeps status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/404", nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
		var body struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "UPSTREAM_ERROR", body.Error.Code)
		require.Equal(t, "Item not found", body.Error.Message)
	})

	t.Run("upstream outage is bad gateway", func(t *testing.T) {
		up.failStatus = http.StatusInternalServerError
		defer func() { up.failStatus = 0 }()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/8", nil))
		require.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("shop open", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/open", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"data":{"open":true}}`, rec.Body.String())
	})

	t.Run("ads and categories", func(t *testing.T) {
		for _, path := range []string{"/ads", "/categories"} {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			require.Equal(t, http.StatusOK, rec.Code, path)
		}
	})
}

func TestRefreshFlushesMenuCache(t *testing.T) {
	up := &fakeUpstream{items: map[int64]cafeapi.ItemType{7: latte()}}
	svc, mr := newService(t, up)
	ctx := context.Background()

	_, err := svc.Items(ctx, nil)
	require.NoError(t, err)
	_, err = svc.Categories(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, mr.Keys())

	require.NoError(t, svc.Refresh(ctx))
	require.Empty(t, mr.Keys())

	_, err = svc.Items(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 2, up.listCalls)
}
