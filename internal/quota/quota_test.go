package quota_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cafe-cart/internal/quota"
)

func TestEvaluate(t *testing.T) {
	limits := quota.Limits{PerOrder: 5, PerDay: 3}

	cases := []struct {
		name   string
		items  int
		onSite bool
		usage  quota.Usage
		want   quota.Status
	}{
		{"empty cart", 0, false, quota.Usage{}, quota.Status{Remaining: 3}},
		{"within limits", 2, false, quota.Usage{OnlineToday: 1}, quota.Status{CanCheckout: true, Remaining: 2}},
		{"over per order", 6, false, quota.Usage{}, quota.Status{OverPerOrder: true, Remaining: 3}},
		{"daily online exhausted", 1, false, quota.Usage{OnlineToday: 3, OnSiteToday: 0}, quota.Status{OverPerDay: true, Remaining: 0}},
		{"on-site bucket is separate", 1, true, quota.Usage{OnlineToday: 3, OnSiteToday: 1}, quota.Status{CanCheckout: true, Remaining: 2}},
		{"over-used clamps to zero", 1, true, quota.Usage{OnSiteToday: 9}, quota.Status{OverPerDay: true, Remaining: 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, quota.Evaluate(tc.items, tc.onSite, limits, tc.usage))
		})
	}
}

func TestEvaluateUnlimited(t *testing.T) {
	st := quota.Evaluate(100, false, quota.Limits{}, quota.Usage{OnlineToday: 50})
	require.True(t, st.CanCheckout)
	require.Equal(t, -1, st.Remaining)
}
