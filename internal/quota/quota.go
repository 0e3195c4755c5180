// Package quota compares a cart against the café's order quotas for display.
// The café API enforces the limits; nothing here blocks an order.
package quota

// Limits are the configured quotas. Zero means unlimited.
type Limits struct {
	PerOrder int `json:"perOrder"`
	PerDay   int `json:"perDay"`
}

// Usage is today's order count as reported by the café API.
type Usage struct {
	OnSiteToday int `json:"onSiteToday"`
	OnlineToday int `json:"onlineToday"`
}

// Status is the advisory result shown next to the cart.
type Status struct {
	CanCheckout  bool `json:"canCheckout"`
	OverPerOrder bool `json:"overPerOrder"`
	OverPerDay   bool `json:"overPerDay"`
	// Remaining is the number of orders left today in the relevant bucket,
	// or -1 when there is no daily limit.
	Remaining int `json:"remaining"`
}

// Evaluate checks totalItems against the per-order limit and the bucket for
// the order kind against the per-day limit. On-site and online orders are
// counted separately.
func Evaluate(totalItems int, onSite bool, limits Limits, usage Usage) Status {
	st := Status{Remaining: -1}
	if limits.PerOrder > 0 && totalItems > limits.PerOrder {
		st.OverPerOrder = true
	}
	if limits.PerDay > 0 {
		used := usage.OnlineToday
		if onSite {
			used = usage.OnSiteToday
		}
		st.Remaining = max(limits.PerDay-used, 0)
		st.OverPerDay = st.Remaining == 0
	}
	st.CanCheckout = totalItems > 0 && !st.OverPerOrder && !st.OverPerDay
	return st
}
