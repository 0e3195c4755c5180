package cafeapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// LoginRedirectTarget asks the café API where to send the user to sign in.
func (c *Client) LoginRedirectTarget(ctx context.Context, redirect string) Result[LoginRedirect] {
	return call[LoginRedirect](ctx, c, http.MethodGet, "login", url.Values{"redirect": {redirect}}, nil, "")
}

func (c *Client) Me(ctx context.Context, token string) Result[UserSecure] {
	return call[UserSecure](ctx, c, http.MethodGet, "me", nil, nil, token)
}

func (c *Client) MeCanOrder(ctx context.Context, token string) Result[CanOrder] {
	return call[CanOrder](ctx, c, http.MethodGet, "me/canorder", nil, nil, token)
}

func (c *Client) MeStatistics(ctx context.Context, token string) Result[UserStatistics] {
	return call[UserStatistics](ctx, c, http.MethodGet, "me/statistics", nil, nil, token)
}

func (c *Client) DeleteMe(ctx context.Context, token string) Result[bool] {
	return call[bool](ctx, c, http.MethodDelete, "me", nil, nil, token)
}

// Stats returns the staff statistics aggregate grouped by the given dimension.
func (c *Client) Stats(ctx context.Context, by string, limit int, token string) Result[StatsAggregate] {
	q := url.Values{"by": {by}, "limit": {strconv.Itoa(limit)}}
	return call[StatsAggregate](ctx, c, http.MethodGet, "statistics", q, nil, token)
}

// StatsExportToken returns a one-time token for downloading an export.
func (c *Client) StatsExportToken(ctx context.Context, exportType, by string, limit int, token string) Result[string] {
	q := url.Values{"type": {exportType}, "by": {by}, "limit": {strconv.Itoa(limit)}}
	return call[string](ctx, c, http.MethodGet, "statistics/export/token", q, nil, token)
}
