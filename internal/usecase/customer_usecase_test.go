package usecase

import (
	"context"
	"testing"

	"farmops/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.customers.CreateCustomer(ctx, CreateCustomerInput{Name: "Hanako", Email: " Hanako@Example.com ", ContactNumber: "090-0000-0000"})
	require.NoError(t, err)
	assert.Equal(t, "hanako@example.com", c.Email)

	_, err = f.customers.CreateCustomer(ctx, CreateCustomerInput{Name: "Other", Email: "HANAKO@example.com"})
	ue := requireCode(t, err, CodeDuplicateEmail)
	assert.Equal(t, KindConflict, ue.Kind)

	_, err = f.customers.CreateCustomer(ctx, CreateCustomerInput{Name: "Bad", Email: "not-an-email"})
	requireCode(t, err, CodeValidation)
	_, err = f.customers.CreateCustomer(ctx, CreateCustomerInput{Name: "", Email: "x@example.com"})
	requireCode(t, err, CodeValidation)

	list, err := f.customers.ListCustomers(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)
}

func strPtr(s string) *string { return &s }

func TestUpdateCustomer_ReportsChangedFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.customers.CreateCustomer(ctx, CreateCustomerInput{Name: "Hanako", Email: "hanako@example.com", ContactNumber: "090-0000-0000"})
	require.NoError(t, err)

	//同じ名前は変更扱いにしない
	out, err := f.customers.UpdateCustomer(ctx, c.ID, UpdateCustomerInput{
		Name:          strPtr("Hanako"),
		Email:         strPtr(" HANAKO.Y@Example.com "),
		ContactNumber: strPtr("080-1111-2222"),
	})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, c.ID, out.CustomerID)
	assert.Equal(t, []string{"email", "contact_number"}, out.UpdatedFields)
	assert.Equal(t, "hanako.y@example.com", out.Customer.Email)
	assert.Equal(t, "080-1111-2222", out.Customer.ContactNumber)
	assert.Equal(t, "Hanako", out.Customer.Name)

	//何も変わらなければ空
	out, err = f.customers.UpdateCustomer(ctx, c.ID, UpdateCustomerInput{Name: strPtr("Hanako")})
	require.NoError(t, err)
	assert.Empty(t, out.UpdatedFields)
}

func TestUpdateCustomer_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.customer(t, "a@example.com")
	f.customer(t, "b@example.com")

	_, err := f.customers.UpdateCustomer(ctx, a.ID, UpdateCustomerInput{Email: strPtr("B@example.com")})
	ue := requireCode(t, err, CodeDuplicateEmail)
	assert.Equal(t, KindConflict, ue.Kind)

	_, err = f.customers.UpdateCustomer(ctx, 999, UpdateCustomerInput{Name: strPtr("X")})
	requireCode(t, err, CodeCustomerNotFound)

	_, err = f.customers.UpdateCustomer(ctx, a.ID, UpdateCustomerInput{Email: strPtr("nope")})
	requireCode(t, err, CodeValidation)
	_, err = f.customers.UpdateCustomer(ctx, a.ID, UpdateCustomerInput{Name: strPtr("  ")})
	requireCode(t, err, CodeValidation)

	//失敗したら元のまま
	got, err := f.customers.GetCustomer(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got.Email)
}

func TestDeleteCustomer_RefusedWithOpenOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.item(t, "Apple", model.ItemCategoryTree, 5, 0)
	c := f.customer(t, "c@example.com")
	id := placeOrder(t, f, c.ID, OrderLineInput{ItemID: a.ID, Quantity: 1})

	detail, err := f.customers.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), detail.OpenOrders)

	ue := requireCode(t, f.customers.DeleteCustomer(ctx, c.ID), CodeHasOpenOrders)
	assert.Equal(t, KindInvalidState, ue.Kind)

	_, err = f.orders.UpdateOrderStatus(ctx, 1, id, UpdateOrderStatusInput{Status: "CANCELLED"})
	require.NoError(t, err)
	require.NoError(t, f.customers.DeleteCustomer(ctx, c.ID))

	_, err = f.customers.GetCustomer(ctx, c.ID)
	requireCode(t, err, CodeCustomerNotFound)

	//顧客が消えても注文詳細は取れる
	d, err := f.orders.GetOrder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, c.ID, d.Customer.ID)
	assert.Empty(t, d.Customer.Email)
}
