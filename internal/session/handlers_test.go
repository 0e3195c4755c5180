package session_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cafe-cart/internal/auth"
	"github.com/noah-isme/cafe-cart/internal/cafeapi"
	"github.com/noah-isme/cafe-cart/internal/cart"
	"github.com/noah-isme/cafe-cart/internal/cartstore"
	"github.com/noah-isme/cafe-cart/internal/catalog"
	"github.com/noah-isme/cafe-cart/internal/lock"
	"github.com/noah-isme/cafe-cart/internal/quota"
	"github.com/noah-isme/cafe-cart/internal/session"
)

const sessionA = "7b0a3f5e-52c1-4a8e-9c55-0d2d3b8f6e11"

type fakeResolver struct{}

func (fakeResolver) Resolve(_ context.Context, itemTypeID int64, optionIDs []int64, qty int) (cart.AddItemInput, error) {
	if itemTypeID == 99 {
		return cart.AddItemInput{}, catalog.ErrSoldOut
	}
	deltas := make([]decimal.Decimal, len(optionIDs))
	for i := range deltas {
		deltas[i] = decimal.RequireFromString("0.5")
	}
	return cart.AddItemInput{
		ItemTypeID:        itemTypeID,
		OptionIDs:         optionIDs,
		UnitBasePrice:     decimal.RequireFromString("10"),
		UnitSalePercent:   decimal.RequireFromString("0.8"),
		OptionPriceDeltas: deltas,
		Quantity:          qty,
	}, nil
}

type fakeProfiles struct{ perms string }

func (f fakeProfiles) Me(_ context.Context, token string) cafeapi.Result[cafeapi.UserSecure] {
	if token != "good" {
		return cafeapi.Err[cafeapi.UserSecure](&cafeapi.APIError{Status: http.StatusUnauthorized, Detail: "bad token"})
	}
	return cafeapi.Ok(cafeapi.UserSecure{User: cafeapi.User{ID: "u1", Permissions: f.perms}})
}

type fakeQuota struct{ usage cafeapi.Quota }

func (f fakeQuota) Quota(context.Context, string) cafeapi.Result[cafeapi.Quota] {
	return cafeapi.Ok(f.usage)
}

type cartBody struct {
	Data session.View `json:"data"`
}

type harness struct {
	router http.Handler
	mem    *cartstore.Memory
}

func newHarness(t *testing.T, perms string, locker session.Locker) harness {
	t.Helper()
	mem := cartstore.NewMemory()
	svc, err := session.NewService(session.ServiceConfig{Backend: mem, Locker: locker, Items: fakeResolver{}, Logger: zerolog.Nop()})
	require.NoError(t, err)
	mw := auth.Middleware{Profiles: fakeProfiles{perms: perms}}
	h := session.NewHandler(svc, mw, fakeQuota{usage: cafeapi.Quota{OnlineToday: 2}}, quota.Limits{PerOrder: 5, PerDay: 3}, zerolog.Nop())

	r := chi.NewRouter()
	r.Use(mw.Authenticate)
	r.Route("/api/v1/cart", h.Routes)
	return harness{router: r, mem: mem}
}

func (h harness) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(session.HeaderName, sessionA)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) session.View {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body cartBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Data
}

func TestCartLifecycle(t *testing.T) {
	h := newHarness(t, "", nil)

	view := decodeCart(t, h.do(t, http.MethodPost, "/api/v1/cart/items", `{"itemTypeId":1}`, nil))
	require.Len(t, view.Entries, 1)
	require.Equal(t, 1, view.TotalItems)
	require.Equal(t, "8.00", view.TotalPreview)

	view = decodeCart(t, h.do(t, http.MethodPost, "/api/v1/cart/items", `{"itemTypeId":1,"quantity":2}`, nil))
	require.Len(t, view.Entries, 1)
	require.Equal(t, 3, view.Entries[0].Quantity)
	require.Equal(t, "24.00", view.TotalPreview)

	view = decodeCart(t, h.do(t, http.MethodPatch, "/api/v1/cart/items/0", `{"delta":-3}`, nil))
	require.Empty(t, view.Entries)
	require.Zero(t, view.TotalItems)
}

func TestCartPersistsAcrossRequests(t *testing.T) {
	h := newHarness(t, "", nil)
	decodeCart(t, h.do(t, http.MethodPost, "/api/v1/cart/items", `{"itemTypeId":4,"optionIds":[3,2]}`, nil))
	decodeCart(t, h.do(t, http.MethodPut, "/api/v1/cart/delivery-room", `{"room":"  B204 "}`, nil))

	raw, ok := h.mem.Raw(sessionA)
	require.True(t, ok)
	snap, err := cart.DecodeSnapshot(raw)
	require.NoError(t, err)
	require.Equal(t, []int64{2, 3}, snap.Entries[0].SelectedOptionIDs)
	require.Equal(t, "B204", *snap.DeliveryRoom)

	view := decodeCart(t, h.do(t, http.MethodGet, "/api/v1/cart", "", nil))
	require.Equal(t, "9.00", view.TotalPreview)
	require.Equal(t, "B204", *view.DeliveryRoom)

	view = decodeCart(t, h.do(t, http.MethodPut, "/api/v1/cart/delivery-room", `{"room":null}`, nil))
	require.Nil(t, view.DeliveryRoom)
}

func TestCartIssuesSessionWhenMissing(t *testing.T) {
	h := newHarness(t, "", nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get(session.HeaderName))

	rec = h.do(t, http.MethodGet, "/api/v1/cart", "", map[string]string{session.HeaderName: "not-a-uuid"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartRejectsInvalidInput(t *testing.T) {
	h := newHarness(t, "", nil)
	require.Equal(t, http.StatusUnprocessableEntity, h.do(t, http.MethodPost, "/api/v1/cart/items", `{"itemTypeId":0}`, nil).Code)
	require.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, "/api/v1/cart/items", `{`, nil).Code)
	require.Equal(t, http.StatusBadRequest, h.do(t, http.MethodDelete, "/api/v1/cart/items/abc", "", nil).Code)

	rec := h.do(t, http.MethodPost, "/api/v1/cart/items", `{"itemTypeId":99}`, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "SOLD_OUT")
}

func TestCartOutOfRangeIndexIsNoop(t *testing.T) {
	h := newHarness(t, "", nil)
	decodeCart(t, h.do(t, http.MethodPost, "/api/v1/cart/items", `{"itemTypeId":1}`, nil))
	view := decodeCart(t, h.do(t, http.MethodDelete, "/api/v1/cart/items/5", "", nil))
	require.Len(t, view.Entries, 1)
	view = decodeCart(t, h.do(t, http.MethodDelete, "/api/v1/cart/items/0", "", nil))
	require.Empty(t, view.Entries)
}

func TestCartOnSiteModeRequiresStaff(t *testing.T) {
	customer := newHarness(t, "", nil)
	rec := customer.do(t, http.MethodPut, "/api/v1/cart/mode", `{"onSite":true}`, map[string]string{"Authorization": "Bearer good"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	view := decodeCart(t, customer.do(t, http.MethodPut, "/api/v1/cart/mode", `{"onSite":false}`, nil))
	require.False(t, view.OnSiteMode)

	staff := newHarness(t, "admin.manage", nil)
	view = decodeCart(t, staff.do(t, http.MethodPut, "/api/v1/cart/mode", `{"onSite":true}`, map[string]string{"Authorization": "Bearer good"}))
	require.True(t, view.OnSiteMode)

	view = decodeCart(t, staff.do(t, http.MethodDelete, "/api/v1/cart", "", nil))
	require.False(t, view.OnSiteMode)
}

func TestCartQuotaShownForSignedInUsers(t *testing.T) {
	h := newHarness(t, "", nil)
	view := decodeCart(t, h.do(t, http.MethodPost, "/api/v1/cart/items", `{"itemTypeId":1,"quantity":2}`, nil))
	require.Nil(t, view.Quota)

	view = decodeCart(t, h.do(t, http.MethodGet, "/api/v1/cart", "", map[string]string{"Authorization": "Bearer good"}))
	require.NotNil(t, view.Quota)
	require.Equal(t, 1, view.Quota.Remaining)
	require.True(t, view.Quota.CanCheckout)
	require.False(t, view.Quota.OverPerOrder)
}

func TestCartConcurrentAddsUnderLock(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := lock.Locker{R: client, Prefix: "cart-lock:", RetryBackoff: time.Millisecond, MaxWait: 5 * time.Second}
	h := newHarness(t, "", locker)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.do(t, http.MethodPost, "/api/v1/cart/items", `{"itemTypeId":1}`, nil)
		}()
	}
	wg.Wait()

	view := decodeCart(t, h.do(t, http.MethodGet, "/api/v1/cart", "", nil))
	require.Len(t, view.Entries, 1)
	require.Equal(t, 10, view.TotalItems)
	require.False(t, mr.Exists("cart-lock:"+sessionA))
}
