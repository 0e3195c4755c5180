package cafeapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/noah-isme/cafe-cart/internal/order"
)

// OrderHistoryPageSize is the page size used for order history.
const OrderHistoryPageSize = 20

func idQuery(id int64) url.Values {
	return url.Values{"id": {strconv.FormatInt(id, 10)}}
}

func (c *Client) Order(ctx context.Context, id int64) Result[Order] {
	return call[Order](ctx, c, http.MethodGet, "order", idQuery(id), nil, "")
}

// Orders returns one page of the signed-in user's order history.
func (c *Client) Orders(ctx context.Context, page, size int, token string) Result[OrderPage] {
	if size <= 0 {
		size = OrderHistoryPageSize
	}
	q := url.Values{"page": {strconv.Itoa(page)}, "size": {strconv.Itoa(size)}}
	return call[OrderPage](ctx, c, http.MethodGet, "orders", q, nil, token)
}

func (c *Client) OrderByNumber(ctx context.Context, number string) Result[Order] {
	return call[Order](ctx, c, http.MethodGet, "order/bynumber", url.Values{"number": {number}}, nil, "")
}

// EstimateNow returns the current queue estimate.
func (c *Client) EstimateNow(ctx context.Context) Result[Estimate] {
	return call[Estimate](ctx, c, http.MethodGet, "order/estimate", nil, nil, "")
}

// Estimate returns the waiting time estimate for one order.
func (c *Client) Estimate(ctx context.Context, id int64) Result[Estimate] {
	return call[Estimate](ctx, c, http.MethodGet, "order/estimate", idQuery(id), nil, "")
}

// AvailableOrders lists the orders staff still have to handle.
func (c *Client) AvailableOrders(ctx context.Context, token string) Result[[]Order] {
	return call[[]Order](ctx, c, http.MethodGet, "orders/available", nil, nil, token)
}

type statusUpdate struct {
	ID     int64        `json:"id"`
	Status order.Status `json:"status"`
	Paid   bool         `json:"paid"`
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id int64, status order.Status, paid bool, token string) Result[Order] {
	body := statusUpdate{ID: id, Status: status, Paid: paid}
	return call[Order](ctx, c, http.MethodPatch, "order", nil, body, token)
}

func (c *Client) CancelOrder(ctx context.Context, id int64, token string) Result[bool] {
	return call[bool](ctx, c, http.MethodDelete, "order", idQuery(id), nil, token)
}

// OnSiteEligibility reports whether a walk-in customer name may place an order.
func (c *Client) OnSiteEligibility(ctx context.Context, name string) Result[bool] {
	return call[bool](ctx, c, http.MethodGet, "order/on-site-eligibility", url.Values{"name": {name}}, nil, "")
}

// CreateOrder submits an order. It is attempted exactly once.
func (c *Client) CreateOrder(ctx context.Context, req order.CreateRequest, token string) Result[Order] {
	return call[Order](ctx, c, http.MethodPost, "order", nil, req, token)
}

// Quota returns today's order counts used for the per-day quota display.
func (c *Client) Quota(ctx context.Context, token string) Result[Quota] {
	return call[Quota](ctx, c, http.MethodGet, "order/quota", nil, nil, token)
}
