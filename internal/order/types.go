package order

// Type selects how a finished order reaches the customer.
type Type string

const (
	TypePickUp   Type = "pickUp"
	TypeDelivery Type = "delivery"
)

// Valid reports whether t is a known order type.
func (t Type) Valid() bool {
	return t == TypePickUp || t == TypeDelivery
}

// Status is the preparation state reported by the café API. The gateway never
// drives transitions itself; staff updates are forwarded as-is.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusDone    Status = "done"
)

// Valid reports whether s is a known order status.
func (s Status) Valid() bool {
	return s == StatusWaiting || s == StatusDone
}

// ItemCreate is one submitted order line.
type ItemCreate struct {
	ItemType       int64   `json:"itemType" validate:"gt=0"`
	AppliedOptions []int64 `json:"appliedOptions" validate:"dive,gt=0"`
	Amount         int     `json:"amount" validate:"min=1"`
}

// CreateRequest is the order creation payload accepted by the café API.
type CreateRequest struct {
	Type         Type         `json:"type" validate:"oneof=pickUp delivery"`
	DeliveryRoom *string      `json:"deliveryRoom"`
	Items        []ItemCreate `json:"items" validate:"min=1,dive"`
	OnSiteOrder  bool         `json:"onSiteOrder"`
	OnSiteName   *string      `json:"onSiteName" validate:"required_if=OnSiteOrder true"`
}
