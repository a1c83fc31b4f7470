package navigation

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSubRoute(t *testing.T) {
	tests := []struct {
		raw        string
		wantName   string
		wantParams url.Values
	}{
		{"order-detail?id=ord_1", "order-detail", url.Values{"id": {"ord_1"}}},
		{"refund?id=ord_2&step=evidence", "refund", url.Values{"id": {"ord_2"}, "step": {"evidence"}}},
		{"repayment", "repayment", url.Values{}},
		{"search?q=a?b", "search", url.Values{"q": {"a?b"}}},
		{"", "", url.Values{}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			route, err := ParseSubRoute(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, route.Name)
			assert.Equal(t, tt.wantParams, route.Params)
		})
	}
}

func TestParseSubRoute_MalformedQuery(t *testing.T) {
	_, err := ParseSubRoute("detail?id=%zz")
	assert.Error(t, err)
}

func TestSubRoute_String(t *testing.T) {
	route, err := ParseSubRoute("refund?step=2&id=ord_1")
	require.NoError(t, err)

	assert.Equal(t, "refund?id=ord_1&step=2", route.String())
	assert.Equal(t, "home", SubRoute{Name: "home"}.String())
}

func TestShell_StartsOnHome(t *testing.T) {
	shell := NewShell(RoleFarmer)

	assert.Equal(t, RoleFarmer, shell.Role())
	assert.Equal(t, HomeTab, shell.ActiveTab())
	assert.Equal(t, SubRoute{}, shell.SubRoute())
}

func TestShell_FollowsBus(t *testing.T) {
	bus := NewBus()
	shell := NewShell(RoleBank)
	detach := shell.Attach(bus)
	defer detach()

	bus.PublishTabChange("finance")
	bus.PublishSubRouteChange("finance", "financing-detail?id=fin_1")

	assert.Equal(t, "finance", shell.ActiveTab())
	assert.Equal(t, "financing-detail", shell.SubRoute().Name)
	assert.Equal(t, "fin_1", shell.SubRoute().Params.Get("id"))

	bus.PublishTabChange("orders")
	assert.Equal(t, SubRoute{}, shell.SubRoute(), "tab change clears the sub-route")
}

func TestShell_IgnoresSubRouteForOtherTab(t *testing.T) {
	bus := NewBus()
	shell := NewShell(RoleBuyer)
	shell.Attach(bus)
	bus.PublishTabChange("orders")

	bus.PublishSubRouteChange("finance", "financing-detail?id=fin_1")
	bus.PublishSubRouteChange("orders", "detail?id=%zz")

	assert.Equal(t, "orders", shell.ActiveTab())
	assert.Equal(t, SubRoute{}, shell.SubRoute())
}

func TestShell_Detach(t *testing.T) {
	bus := NewBus()
	farmer := NewShell(RoleFarmer)
	buyer := NewShell(RoleBuyer)
	detachFarmer := farmer.Attach(bus)
	buyer.Attach(bus)

	detachFarmer()
	detachFarmer()
	bus.PublishTabChange("market")

	assert.Equal(t, HomeTab, farmer.ActiveTab())
	assert.Equal(t, "market", buyer.ActiveTab())
	tabs, routes := bus.Subscribers()
	assert.Equal(t, 1, tabs)
	assert.Equal(t, 1, routes)
}
