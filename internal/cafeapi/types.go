package cafeapi

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/cafe-cart/internal/order"
)

// Category groups item types on the menu.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Tag struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// OptionItem is one selectable choice within an option group.
type OptionItem struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	TypeID      int64           `json:"typeId"`
	IsDefault   bool            `json:"isDefault"`
	PriceChange decimal.Decimal `json:"priceChange"`
	SoldOut     bool            `json:"soldOut"`
}

// OptionType is an option group such as size or temperature.
type OptionType struct {
	ID    int64        `json:"id"`
	Name  string       `json:"name"`
	Items []OptionItem `json:"items"`
}

// ItemType is a menu item with its option groups and pricing.
type ItemType struct {
	ID               int64           `json:"id"`
	Category         Category        `json:"category"`
	Name             string          `json:"name"`
	Image            string          `json:"image"`
	Tags             []Tag           `json:"tags"`
	Description      string          `json:"description"`
	ShortDescription string          `json:"shortDescription"`
	Options          []OptionType    `json:"options"`
	BasePrice        decimal.Decimal `json:"basePrice"`
	SalePercent      decimal.Decimal `json:"salePercent"`
	SoldOut          bool            `json:"soldOut"`
}

type User struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Permissions string `json:"permissions"`
	Blocked     bool   `json:"blocked"`
	Points      string `json:"points"`
}

// UserSecure is the signed-in user's own profile.
type UserSecure struct {
	User
	Pinyin *string `json:"pinyin"`
	Phone  *string `json:"phone"`
}

// HasPermission reports whether the user's permission string grants perm.
func (u UserSecure) HasPermission(perm string) bool {
	return perm != "" && strings.Contains(u.Permissions, perm)
}

type OrderedItem struct {
	ID             int64        `json:"id"`
	OrderID        int64        `json:"orderId"`
	ItemType       ItemType     `json:"itemType"`
	AppliedOptions []OptionItem `json:"appliedOptions"`
	Amount         int          `json:"amount"`
}

// Order is a placed order as stored by the café API.
type Order struct {
	ID           int64           `json:"id"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	Number       string          `json:"number"`
	Status       order.Status    `json:"status"`
	Type         order.Type      `json:"type"`
	DeliveryRoom *string         `json:"deliveryRoom"`
	CreatedTime  string          `json:"createdTime"`
	User         *User           `json:"user"`
	Items        []OrderedItem   `json:"items"`
	OnSiteName   *string         `json:"onSiteName"`
	Paid         bool            `json:"paid"`
}

// OrderPage is one page of the signed-in user's order history.
type OrderPage struct {
	Items []Order `json:"items"`
	Total int     `json:"total"`
	Page  int     `json:"page"`
	Size  int     `json:"size"`
	Pages int     `json:"pages"`
}

// Estimate is the expected waiting time, optionally for one order.
type Estimate struct {
	Time   int           `json:"time"`
	Orders int           `json:"orders"`
	Type   *string       `json:"type"`
	Number *string       `json:"number"`
	Status *order.Status `json:"status"`
}

// CanOrder reports whether the user may place a new order and, when not,
// which active order blocks it.
type CanOrder struct {
	Result          bool             `json:"result"`
	OrderID         *int64           `json:"orderId"`
	OrderNumber     *string          `json:"orderNumber"`
	OrderDate       *string          `json:"orderDate"`
	OrderTotalPrice *decimal.Decimal `json:"orderTotalPrice"`
}

type UserStatistics struct {
	TotalOrders int             `json:"totalOrders"`
	TotalSpent  decimal.Decimal `json:"totalSpent"`
	TotalCups   int             `json:"totalCups"`
	Deletable   bool            `json:"deletable"`
}

// StatsAggregate is the staff dashboard summary.
type StatsAggregate struct {
	TodayRevenue     decimal.Decimal            `json:"todayRevenue"`
	TodayUniqueUsers int                        `json:"todayUniqueUsers"`
	TodayOrders      int                        `json:"todayOrders"`
	TodayCups        int                        `json:"todayCups"`
	WeekRevenue      decimal.Decimal            `json:"weekRevenue"`
	WeekRevenueRange string                     `json:"weekRevenueRange"`
	Revenue          map[string]decimal.Decimal `json:"revenue"`
	UniqueUsers      map[string]int             `json:"uniqueUsers"`
	Orders           map[string]int             `json:"orders"`
	Cups             map[string]int             `json:"cups"`
}

// Quota is today's usage against the per-day order quota.
type Quota struct {
	OnSiteToday int `json:"onSiteToday"`
	OnlineToday int `json:"onlineToday"`
}

type Ad struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
	URL   string `json:"url"`
}

// LoginRedirect is the OAuth entry point returned by the login endpoint.
type LoginRedirect struct {
	Target string `json:"target"`
}
