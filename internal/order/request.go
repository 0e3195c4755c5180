package order

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/cafe-cart/internal/cart"
)

var (
	// ErrEmptyCart is returned when a payload is requested for a cart without entries.
	ErrEmptyCart = errors.New("order: cart is empty")
	// ErrOnSiteNameRequired is returned when an on-site order has no customer name.
	ErrOnSiteNameRequired = errors.New("order: on-site name is required")
	// ErrInvalidType is returned for an unknown order type.
	ErrInvalidType = errors.New("order: invalid order type")
	// ErrInvalidPayload wraps validation failures of the assembled payload.
	ErrInvalidPayload = errors.New("order: invalid payload")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Cart is the read side of a cart needed to build an order.
type Cart interface {
	Entries() []cart.Entry
	TotalItems() int
	OnSiteOrderMode() bool
	DeliveryRoom() *string
}

// BuildRequest assembles the order payload from the cart contents. Lines keep
// display order. The delivery room is only sent for delivery orders and the
// on-site name only for on-site orders.
func BuildRequest(c Cart, t Type, onSiteName string) (CreateRequest, error) {
	if !t.Valid() {
		return CreateRequest{}, fmt.Errorf("%w: %q", ErrInvalidType, t)
	}
	entries := c.Entries()
	if len(entries) == 0 {
		return CreateRequest{}, ErrEmptyCart
	}

	req := CreateRequest{
		Type:        t,
		Items:       make([]ItemCreate, 0, len(entries)),
		OnSiteOrder: c.OnSiteOrderMode(),
	}
	for _, e := range entries {
		req.Items = append(req.Items, ItemCreate{
			ItemType:       e.ItemTypeID,
			AppliedOptions: optionList(e.SelectedOptionIDs),
			Amount:         e.Quantity,
		})
	}
	if t == TypeDelivery {
		req.DeliveryRoom = c.DeliveryRoom()
	}
	if req.OnSiteOrder {
		name := strings.TrimSpace(onSiteName)
		if name == "" {
			return CreateRequest{}, ErrOnSiteNameRequired
		}
		req.OnSiteName = &name
	}
	if err := validate.Struct(req); err != nil {
		return CreateRequest{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return req, nil
}

func optionList(ids []int64) []int64 {
	if len(ids) == 0 {
		return []int64{}
	}
	return slices.Clone(ids)
}
