package usecase

import (
	"context"
	"testing"
	"time"

	"farmops/internal/domain/model"
	repo "farmops/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogList_FiltersAndValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.item(t, "Apple", model.ItemCategoryTree, 10, 0)
	c := f.customer(t, "audit@example.com")

	_, err := f.inventory.AdjustStock(ctx, 7, a.ID, AdjustStockInput{EventType: model.InventoryEventReceived, QuantityChange: 1})
	require.NoError(t, err)
	id := placeOrder(t, f, c.ID, OrderLineInput{ItemID: a.ID, Quantity: 1})
	_, err = f.orders.UpdateOrderStatus(ctx, 8, id, UpdateOrderStatusInput{Status: "IN_PROCESS"})
	require.NoError(t, err)

	all, err := f.audit.List(ctx, repo.AuditLogFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	//新しい順
	assert.Equal(t, model.AuditActionUpdateOrderStatus, all[0].Action)
	assert.JSONEq(t, `{"status":"PLACED"}`, all[0].BeforeJSON)
	assert.JSONEq(t, `{"status":"IN_PROCESS"}`, all[0].AfterJSON)

	actor := int64(7)
	mine, err := f.audit.List(ctx, repo.AuditLogFilter{ActorUserID: &actor})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, model.AuditResourceItem, mine[0].ResourceType)

	res := model.AuditResourceSchedule
	none, err := f.audit.List(ctx, repo.AuditLogFilter{ResourceType: &res})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = f.audit.List(ctx, repo.AuditLogFilter{Limit: 500})
	requireCode(t, err, CodeValidation)
	_, err = f.audit.List(ctx, repo.AuditLogFilter{Offset: -1})
	requireCode(t, err, CodeValidation)
	from := testNow
	to := testNow.Add(-time.Hour)
	_, err = f.audit.List(ctx, repo.AuditLogFilter{CreatedFrom: &from, CreatedTo: &to})
	requireCode(t, err, CodeValidation)
}

func TestAuditLogList_RejectsUnknownEnums(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	action := model.AuditAction("DROP_TABLE")
	_, err := f.audit.List(ctx, repo.AuditLogFilter{Action: &action})
	requireCode(t, err, CodeValidation)

	res := model.AuditResourceType("customer")
	_, err = f.audit.List(ctx, repo.AuditLogFilter{ResourceType: &res})
	requireCode(t, err, CodeValidation)
}

func TestAuditLogTimeline_OldestFirstAndSurvivesDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.item(t, "Apple", model.ItemCategoryTree, 10, 0)
	c := f.customer(t, "timeline@example.com")
	id := placeOrder(t, f, c.ID, OrderLineInput{ItemID: a.ID, Quantity: 2})
	other := placeOrder(t, f, c.ID, OrderLineInput{ItemID: a.ID, Quantity: 1})

	_, err := f.orders.UpdateOrderStatus(ctx, 3, id, UpdateOrderStatusInput{Status: "IN_PROCESS"})
	require.NoError(t, err)
	_, err = f.orders.UpdateOrderStatus(ctx, 3, other, UpdateOrderStatusInput{Status: "IN_PROCESS"})
	require.NoError(t, err)
	_, err = f.orders.UpdateOrderStatus(ctx, 3, id, UpdateOrderStatusInput{Status: "CANCELLED"})
	require.NoError(t, err)
	require.NoError(t, f.orders.DeleteOrder(ctx, 1, id))

	logs, err := f.audit.Timeline(ctx, model.AuditResourceOrder, id)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, model.AuditActionUpdateOrderStatus, logs[0].Action)
	assert.JSONEq(t, `{"status":"IN_PROCESS"}`, logs[0].AfterJSON)
	assert.JSONEq(t, `{"status":"CANCELLED"}`, logs[1].AfterJSON)
	assert.Equal(t, model.AuditActionDeleteOrder, logs[2].Action)
	for _, l := range logs {
		assert.Equal(t, id, l.ResourceID)
	}

	none, err := f.audit.Timeline(ctx, model.AuditResourceSchedule, id)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = f.audit.Timeline(ctx, "order-ish", id)
	requireCode(t, err, CodeValidation)
	_, err = f.audit.Timeline(ctx, model.AuditResourceOrder, 0)
	requireCode(t, err, CodeValidation)
}
