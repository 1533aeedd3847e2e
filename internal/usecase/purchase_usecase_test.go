package usecase

import (
	"context"
	"testing"

	"farmops/internal/domain/model"
	"farmops/internal/infra/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddPurchase_ReceivesIntoSeedlingItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedling := f.item(t, SeedlingItemName, SeedlingItemCategory, 2, 10)

	p, err := f.purchases.AddPurchase(ctx, AddPurchaseInput{
		Supplier:     "Green Nursery",
		Quantity:     20,
		Cost:         decimal.RequireFromString("300.00"),
		PurchaseDate: testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, seedling.ID, p.ItemID)
	assert.Equal(t, int64(20), p.Quantity)

	got := f.stock(t, seedling.ID)
	assert.Equal(t, int64(22), got.StockLevel)
	assert.False(t, got.ReOrderNeed)
	f.requireLedger(t, seedling.ID)
}

func TestAddPurchase_MissingItem(t *testing.T) {
	f := newFixture(t)
	_, err := f.purchases.AddPurchase(context.Background(), AddPurchaseInput{
		Supplier:     "Green Nursery",
		Quantity:     1,
		PurchaseDate: testNow,
	})
	requireCode(t, err, CodeItemNotFound)
}

func TestAddPurchase_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.purchases.AddPurchase(ctx, AddPurchaseInput{Supplier: "", Quantity: 1, PurchaseDate: testNow})
	requireCode(t, err, CodeValidation)
	_, err = f.purchases.AddPurchase(ctx, AddPurchaseInput{Supplier: "X", Quantity: 0, PurchaseDate: testNow})
	requireCode(t, err, CodeValidation)
	_, err = f.purchases.AddPurchase(ctx, AddPurchaseInput{Supplier: "X", Quantity: 1, Cost: decimal.NewFromInt(-1), PurchaseDate: testNow})
	requireCode(t, err, CodeValidation)
	_, err = f.purchases.AddPurchase(ctx, AddPurchaseInput{Supplier: "X", Quantity: 1})
	requireCode(t, err, CodeValidation)
}

func TestDeletePurchase_ReversesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedling := f.item(t, SeedlingItemName, SeedlingItemCategory, 0, 5)

	p, err := f.purchases.AddPurchase(ctx, AddPurchaseInput{ItemID: seedling.ID, Supplier: "Nursery", Quantity: 7, PurchaseDate: testNow})
	require.NoError(t, err)
	assert.Equal(t, int64(7), f.stock(t, seedling.ID).StockLevel)

	require.NoError(t, f.purchases.DeletePurchase(ctx, p.ID))
	got := f.stock(t, seedling.ID)
	assert.Equal(t, int64(0), got.StockLevel)
	assert.True(t, got.ReOrderNeed)
	f.requireLedger(t, seedling.ID)

	_, err = f.purchases.GetPurchase(ctx, p.ID)
	requireCode(t, err, CodePurchaseNotFound)
	requireCode(t, f.purchases.DeletePurchase(ctx, p.ID), CodePurchaseNotFound)
}

// 仕入れた分がすでに出荷されていたら取り消せない
func TestDeletePurchase_AfterConsumptionIsNegativeStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedling := f.item(t, SeedlingItemName, SeedlingItemCategory, 0, 0)
	c := f.customer(t, "p@example.com")

	p, err := f.purchases.AddPurchase(ctx, AddPurchaseInput{Supplier: "Nursery", Quantity: 5, PurchaseDate: testNow})
	require.NoError(t, err)
	placeOrder(t, f, c.ID, OrderLineInput{ItemID: seedling.ID, Quantity: 3})

	err = f.purchases.DeletePurchase(ctx, p.ID)
	ue := requireCode(t, err, CodeNegativeStock)
	assert.Equal(t, KindStockShortage, ue.Kind)

	assert.Equal(t, int64(2), f.stock(t, seedling.ID).StockLevel)
	_, err = f.purchases.GetPurchase(ctx, p.ID)
	require.NoError(t, err)
	f.requireLedger(t, seedling.ID)
}

func TestUpdatePurchase_QuantityDelta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedling := f.item(t, SeedlingItemName, SeedlingItemCategory, 0, 0)
	p, err := f.purchases.AddPurchase(ctx, AddPurchaseInput{Supplier: "Nursery", Quantity: 5, PurchaseDate: testNow})
	require.NoError(t, err)

	qty := int64(8)
	supplier := "Other Nursery"
	got, err := f.purchases.UpdatePurchase(ctx, p.ID, UpdatePurchaseInput{Supplier: &supplier, Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, "Other Nursery", got.Supplier)
	assert.Equal(t, int64(8), f.stock(t, seedling.ID).StockLevel)

	qty = 1
	_, err = f.purchases.UpdatePurchase(ctx, p.ID, UpdatePurchaseInput{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.stock(t, seedling.ID).StockLevel)
	f.requireLedger(t, seedling.ID)

	_, err = f.purchases.UpdatePurchase(ctx, p.ID, UpdatePurchaseInput{})
	requireCode(t, err, CodeValidation)
}

func TestListSeedlings_OnlyReorderNeeded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	low := f.item(t, "Cherry sapling", model.ItemCategorySapling, 2, 5)
	f.item(t, "Plum sapling", model.ItemCategorySapling, 50, 5)
	f.item(t, "Apple tree", model.ItemCategoryTree, 0, 5)

	out, err := f.purchases.ListSeedlings(ctx, "")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, low.ID, out[0].ItemID)
	assert.True(t, out[0].ReOrderNeed)

	trees, err := f.purchases.ListSeedlings(ctx, model.ItemCategoryTree)
	require.NoError(t, err)
	assert.Len(t, trees, 1)

	_, err = f.purchases.ListSeedlings(ctx, "FRUIT")
	requireCode(t, err, CodeValidation)
}

func TestUpdateAndDeletePurchase_LockPurchaseRowFirst(t *testing.T) {
	store := memory.NewStore(0)
	spy := &readSpyTx{inner: store}
	f := newFixtureWithTx(t, store, spy, nil)
	ctx := context.Background()
	f.item(t, SeedlingItemName, SeedlingItemCategory, 0, 0)
	p, err := f.purchases.AddPurchase(ctx, AddPurchaseInput{Supplier: "Green Nursery", Quantity: 10, PurchaseDate: testNow})
	require.NoError(t, err)

	//差分は同じ購入記録への並行更新で二重に入らないよう、ロックした行から計算する
	spy.reads = nil
	q := int64(15)
	_, err = f.purchases.UpdatePurchase(ctx, p.ID, UpdatePurchaseInput{Quantity: &q})
	require.NoError(t, err)
	require.NotEmpty(t, spy.reads)
	assert.Equal(t, "Purchases.FindByIDForUpdate", spy.reads[0])

	spy.reads = nil
	require.NoError(t, f.purchases.DeletePurchase(ctx, p.ID))
	require.NotEmpty(t, spy.reads)
	assert.Equal(t, "Purchases.FindByIDForUpdate", spy.reads[0])
}
