package cafeapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Setting keys known to the café API.
const SettingShopOpen = "shop-open"

func (c *Client) ItemTypes(ctx context.Context) Result[[]ItemType] {
	return call[[]ItemType](ctx, c, http.MethodGet, "items", nil, nil, "")
}

func (c *Client) ItemTypesByCategory(ctx context.Context, category int64) Result[[]ItemType] {
	q := url.Values{"category": {strconv.FormatInt(category, 10)}}
	return call[[]ItemType](ctx, c, http.MethodGet, "items", q, nil, "")
}

func (c *Client) ItemType(ctx context.Context, id int64) Result[ItemType] {
	q := url.Values{"id": {strconv.FormatInt(id, 10)}}
	return call[ItemType](ctx, c, http.MethodGet, "item", q, nil, "")
}

func (c *Client) Categories(ctx context.Context) Result[[]Category] {
	return call[[]Category](ctx, c, http.MethodGet, "categories", nil, nil, "")
}

func (c *Client) Category(ctx context.Context, id int64) Result[Category] {
	q := url.Values{"id": {strconv.FormatInt(id, 10)}}
	return call[Category](ctx, c, http.MethodGet, "category", q, nil, "")
}

// Settings reads a single setting value.
func (c *Client) Settings(ctx context.Context, key string) Result[string] {
	return call[string](ctx, c, http.MethodGet, "settings", url.Values{"key": {key}}, nil, "")
}

// SetSettings updates a setting. The café API exposes this as a GET.
func (c *Client) SetSettings(ctx context.Context, key, value, token string) Result[string] {
	q := url.Values{"key": {key}, "value": {value}}
	return call[string](ctx, c, http.MethodGet, "settings/update", q, nil, token)
}

// Ads lists the promotional banners shown on the menu.
func (c *Client) Ads(ctx context.Context) Result[[]Ad] {
	return call[[]Ad](ctx, c, http.MethodGet, "pms", nil, nil, "")
}
