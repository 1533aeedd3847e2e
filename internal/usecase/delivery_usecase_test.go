package usecase

import (
	"context"
	"testing"
	"time"

	"farmops/internal/domain/model"
	"farmops/internal/infra/memory"
	repo "farmops/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func scheduleDelivery(t *testing.T, f *fixture, itemID, customerID, qty int64) ScheduleDeliveryOutput {
	t.Helper()
	out, err := f.delivery.ScheduleDelivery(context.Background(), ScheduleDeliveryInput{
		DeliveryDate: testNow.Add(24 * time.Hour),
		Quantity:     qty,
		Destination:  "North field gate",
		ItemID:       itemID,
		CustomerID:   customerID,
	})
	require.NoError(t, err)
	return out
}

func TestScheduleDelivery_CreatesScheduleOrderAndReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.item(t, "Apple", model.ItemCategoryTree, 8, 2)
	c := f.customer(t, "d@example.com")

	out := scheduleDelivery(t, f, a.ID, c.ID, 6)
	assert.True(t, out.Success)
	assert.NotZero(t, out.ScheduleID)
	assert.NotZero(t, out.OrderID)

	got := f.stock(t, a.ID)
	assert.Equal(t, int64(2), got.StockLevel)
	assert.True(t, got.ReOrderNeed)

	s, err := f.schedules.GetSchedule(ctx, out.ScheduleID)
	require.NoError(t, err)
	assert.Equal(t, model.ScheduleTypeDelivery, s.Type)
	assert.Equal(t, model.ScheduleStatusPending, s.Status)
	assert.Equal(t, "North field gate", s.Destination)

	d, err := f.orders.GetOrder(ctx, out.OrderID)
	require.NoError(t, err)
	require.NotNil(t, d.ScheduledDelivery)
	assert.Equal(t, out.ScheduleID, d.ScheduledDelivery.ID)
	require.Len(t, d.Items, 1)
	assert.Equal(t, int64(6), d.Items[0].Quantity)
	f.requireLedger(t, a.ID)
}

func TestScheduleDelivery_InsufficientStockCreatesNothing(t *testing.T) {
	f := newFixture(t)
	a := f.item(t, "Apple", model.ItemCategoryTree, 3, 0)
	c := f.customer(t, "d@example.com")

	_, err := f.delivery.ScheduleDelivery(context.Background(), ScheduleDeliveryInput{
		DeliveryDate: testNow,
		Quantity:     4,
		Destination:  "Barn",
		ItemID:       a.ID,
		CustomerID:   c.ID,
	})
	ue := requireCode(t, err, CodeInsufficientStock)
	assert.Equal(t, []int64{a.ID}, ue.ItemIDs)

	_, err = f.delivery.ScheduleDelivery(context.Background(), ScheduleDeliveryInput{
		DeliveryDate: testNow,
		Quantity:     1,
		Destination:  "Barn",
		ItemID:       999,
		CustomerID:   c.ID,
	})
	requireCode(t, err, CodeInsufficientStock)

	assert.Equal(t, int64(3), f.stock(t, a.ID).StockLevel)
	orders, lines, schedules := f.counts(t)
	assert.Zero(t, orders)
	assert.Zero(t, lines)
	assert.Zero(t, schedules)
}

func TestScheduleDelivery_CustomerNotFound(t *testing.T) {
	f := newFixture(t)
	a := f.item(t, "Apple", model.ItemCategoryTree, 3, 0)

	_, err := f.delivery.ScheduleDelivery(context.Background(), ScheduleDeliveryInput{
		DeliveryDate: testNow,
		Quantity:     1,
		Destination:  "Barn",
		ItemID:       a.ID,
		CustomerID:   55,
	})
	requireCode(t, err, CodeCustomerNotFound)
	assert.Equal(t, int64(3), f.stock(t, a.ID).StockLevel)
	_, _, schedules := f.counts(t)
	assert.Zero(t, schedules)
}

func TestScheduleDelivery_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := ScheduleDeliveryInput{DeliveryDate: testNow, Quantity: 1, Destination: "Barn", ItemID: 1, CustomerID: 1}

	mutate := []func(in *ScheduleDeliveryInput){
		func(in *ScheduleDeliveryInput) { in.DeliveryDate = time.Time{} },
		func(in *ScheduleDeliveryInput) { in.Quantity = 0 },
		func(in *ScheduleDeliveryInput) { in.Destination = "  " },
		func(in *ScheduleDeliveryInput) { in.ItemID = 0 },
		func(in *ScheduleDeliveryInput) { in.CustomerID = -1 },
	}
	for _, m := range mutate {
		in := base
		m(&in)
		_, err := f.delivery.ScheduleDelivery(ctx, in)
		requireCode(t, err, CodeValidation)
	}
}

func TestScheduleDelivery_Idempotency(t *testing.T) {
	store := memory.NewStore(0)
	guard := new(GuardMock)
	f := newFixtureWithTx(t, store, store, guard)
	a := f.item(t, "Apple", model.ItemCategoryTree, 5, 0)
	c := f.customer(t, "d@example.com")

	guard.On("Acquire", mock.Anything, "delivery:abc").Return(true, nil).Once()
	guard.On("Acquire", mock.Anything, "delivery:abc").Return(false, nil).Once()

	in := ScheduleDeliveryInput{DeliveryDate: testNow, Quantity: 2, Destination: "Barn", ItemID: a.ID, CustomerID: c.ID, IdempotencyKey: "abc"}
	_, err := f.delivery.ScheduleDelivery(context.Background(), in)
	require.NoError(t, err)
	_, err = f.delivery.ScheduleDelivery(context.Background(), in)
	requireCode(t, err, CodeDuplicateRequest)

	assert.Equal(t, int64(3), f.stock(t, a.ID).StockLevel)
	guard.AssertExpectations(t)
}

// =====================
// Cancel / Complete
// =====================

func TestCancelDelivery_RestoresStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.item(t, "Apple", model.ItemCategoryTree, 8, 2)
	c := f.customer(t, "d@example.com")
	before := f.stock(t, a.ID)

	out := scheduleDelivery(t, f, a.ID, c.ID, 5)
	res, err := f.delivery.CancelDelivery(ctx, 3, out.ScheduleID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []int64{out.OrderID}, res.ReleasedOrders)

	after := f.stock(t, a.ID)
	assert.Equal(t, before.StockLevel, after.StockLevel)
	assert.Equal(t, before.ReOrderNeed, after.ReOrderNeed)
	f.requireLedger(t, a.ID)

	s, err := f.schedules.GetSchedule(ctx, out.ScheduleID)
	require.NoError(t, err)
	assert.Equal(t, model.ScheduleStatusCancelled, s.Status)
	d, err := f.orders.GetOrder(ctx, out.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, d.Status)

	_, err = f.delivery.CancelDelivery(ctx, 3, out.ScheduleID)
	ue := requireCode(t, err, CodeAlreadyFinalized)
	assert.Equal(t, KindInvalidState, ue.Kind)
	assert.Equal(t, before.StockLevel, f.stock(t, a.ID).StockLevel)

	action := model.AuditActionCancelDelivery
	logs, err := f.audit.List(ctx, repo.AuditLogFilter{Action: &action})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, int64(3), logs[0].ActorUserID)
	assert.Equal(t, out.ScheduleID, logs[0].ResourceID)
}

func TestCancelDelivery_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.delivery.CancelDelivery(ctx, 1, 404)
	requireCode(t, err, CodeScheduleNotFound)

	//配送以外の予定はキャンセル対象外
	s, err := f.schedules.CreateSchedule(ctx, CreateScheduleInput{Type: model.ScheduleTypeHarvest, ScheduledOn: testNow})
	require.NoError(t, err)
	_, err = f.delivery.CancelDelivery(ctx, 1, s.ID)
	requireCode(t, err, CodeScheduleNotFound)
}

func TestCancelDelivery_SkipsOrdersAlreadyCancelled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.item(t, "Apple", model.ItemCategoryTree, 8, 0)
	c := f.customer(t, "d@example.com")
	out := scheduleDelivery(t, f, a.ID, c.ID, 3)

	//注文を先にキャンセルすると予定も閉じる
	_, err := f.orders.UpdateOrderStatus(ctx, 1, out.OrderID, UpdateOrderStatusInput{Status: "CANCELLED"})
	require.NoError(t, err)
	s, err := f.schedules.GetSchedule(ctx, out.ScheduleID)
	require.NoError(t, err)
	assert.Equal(t, model.ScheduleStatusCancelled, s.Status)

	_, err = f.delivery.CancelDelivery(ctx, 1, out.ScheduleID)
	requireCode(t, err, CodeAlreadyFinalized)
	assert.Equal(t, int64(8), f.stock(t, a.ID).StockLevel)
	f.requireLedger(t, a.ID)
}

func TestCompleteDelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.item(t, "Apple", model.ItemCategoryTree, 8, 0)
	c := f.customer(t, "d@example.com")
	out := scheduleDelivery(t, f, a.ID, c.ID, 3)

	res, err := f.delivery.CompleteDelivery(ctx, 1, out.ScheduleID)
	require.NoError(t, err)
	assert.Equal(t, []int64{out.OrderID}, res.DeliveredOrders)
	assert.Equal(t, int64(5), f.stock(t, a.ID).StockLevel)

	d, err := f.orders.GetOrder(ctx, out.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusDelivered, d.Status)

	_, err = f.delivery.CancelDelivery(ctx, 1, out.ScheduleID)
	requireCode(t, err, CodeAlreadyFinalized)
	_, err = f.delivery.CompleteDelivery(ctx, 1, out.ScheduleID)
	requireCode(t, err, CodeAlreadyFinalized)
}

// =====================
// UpdateDelivery
// =====================

func TestUpdateDelivery_AppliesQuantityDeltas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.item(t, "Apple", model.ItemCategoryTree, 10, 0)
	c := f.customer(t, "d@example.com")
	out := scheduleDelivery(t, f, a.ID, c.ID, 4)
	assert.Equal(t, int64(6), f.stock(t, a.ID).StockLevel)

	newDate := testNow.Add(72 * time.Hour)
	res, err := f.delivery.UpdateDelivery(ctx, out.ScheduleID, UpdateDeliveryInput{
		NewDeliveryDate:   newDate,
		UpdatedQuantities: []ItemQuantity{{ItemID: a.ID, Quantity: 7}},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, out.ScheduleID, res.UpdatedDelivery.DeliveryID)
	assert.Equal(t, int64(3), f.stock(t, a.ID).StockLevel)

	s, err := f.schedules.GetSchedule(ctx, out.ScheduleID)
	require.NoError(t, err)
	assert.True(t, newDate.Equal(s.ScheduledOn))
	d, err := f.orders.GetOrder(ctx, out.OrderID)
	require.NoError(t, err)
	assert.True(t, newDate.Equal(d.DeliveryDate))
	assert.Equal(t, int64(7), d.Items[0].Quantity)

	_, err = f.delivery.UpdateDelivery(ctx, out.ScheduleID, UpdateDeliveryInput{
		NewDeliveryDate:   newDate,
		UpdatedQuantities: []ItemQuantity{{ItemID: a.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), f.stock(t, a.ID).StockLevel)

	_, err = f.delivery.UpdateDelivery(ctx, out.ScheduleID, UpdateDeliveryInput{
		NewDeliveryDate:   newDate,
		UpdatedQuantities: []ItemQuantity{{ItemID: a.ID, Quantity: 11}},
	})
	requireCode(t, err, CodeInsufficientStock)
	assert.Equal(t, int64(8), f.stock(t, a.ID).StockLevel)
	f.requireLedger(t, a.ID)
}

func TestUpdateDelivery_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.item(t, "Apple", model.ItemCategoryTree, 10, 0)
	b := f.item(t, "Pear", model.ItemCategoryTree, 10, 0)
	c := f.customer(t, "d@example.com")
	out := scheduleDelivery(t, f, a.ID, c.ID, 4)

	_, err := f.delivery.UpdateDelivery(ctx, out.ScheduleID, UpdateDeliveryInput{
		NewDeliveryDate:   testNow,
		UpdatedQuantities: []ItemQuantity{{ItemID: b.ID, Quantity: 1}},
	})
	requireCode(t, err, CodeValidation)

	_, err = f.delivery.UpdateDelivery(ctx, out.ScheduleID, UpdateDeliveryInput{
		NewDeliveryDate:   testNow,
		UpdatedQuantities: []ItemQuantity{{ItemID: a.ID, Quantity: 1}, {ItemID: a.ID, Quantity: 2}},
	})
	requireCode(t, err, CodeValidation)

	_, err = f.delivery.UpdateDelivery(ctx, 999, UpdateDeliveryInput{NewDeliveryDate: testNow})
	requireCode(t, err, CodeScheduleNotFound)

	_, err = f.delivery.CancelDelivery(ctx, 1, out.ScheduleID)
	require.NoError(t, err)
	_, err = f.delivery.UpdateDelivery(ctx, out.ScheduleID, UpdateDeliveryInput{NewDeliveryDate: testNow})
	requireCode(t, err, CodeAlreadyFinalized)

	assert.Equal(t, int64(10), f.stock(t, a.ID).StockLevel)
	assert.Equal(t, int64(10), f.stock(t, b.ID).StockLevel)
}

// =====================
// ListDeliveries
// =====================

func TestListDeliveries_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tree := f.item(t, "Apple", model.ItemCategoryTree, 10, 0)
	tool := f.item(t, "Shovel", model.ItemCategoryEquipment, 10, 0)
	c := f.customer(t, "d@example.com")
	d1 := scheduleDelivery(t, f, tree.ID, c.ID, 1)
	d2 := scheduleDelivery(t, f, tool.ID, c.ID, 2)
	_, err := f.delivery.CancelDelivery(ctx, 1, d2.ScheduleID)
	require.NoError(t, err)

	all, err := f.delivery.ListDeliveries(ctx, ListDeliveriesInput{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	cat := model.ItemCategoryTree
	trees, err := f.delivery.ListDeliveries(ctx, ListDeliveriesInput{Category: &cat})
	require.NoError(t, err)
	require.Len(t, trees, 1)
	assert.Equal(t, d1.ScheduleID, trees[0].ScheduleID)
	require.Len(t, trees[0].Orders, 1)
	assert.Equal(t, "Customer d@example.com", trees[0].Orders[0].CustomerName)
	assert.Equal(t, "Apple", trees[0].Orders[0].Items[0].Name)

	status := model.ScheduleStatusCancelled
	cancelled, err := f.delivery.ListDeliveries(ctx, ListDeliveriesInput{Status: &status})
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, d2.ScheduleID, cancelled[0].ScheduleID)

	start := testNow.Add(48 * time.Hour)
	none, err := f.delivery.ListDeliveries(ctx, ListDeliveriesInput{StartDate: &start})
	require.NoError(t, err)
	assert.Empty(t, none)

	end := testNow
	_, err = f.delivery.ListDeliveries(ctx, ListDeliveriesInput{StartDate: &start, EndDate: &end})
	requireCode(t, err, CodeValidation)
}
