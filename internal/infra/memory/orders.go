package memory

import (
	"context"
	"sort"
	"time"

	"farmops/internal/domain/model"
	repo "farmops/internal/repository"
)

type orderRepo struct{ *txRepos }

func (r *orderRepo) Create(ctx context.Context, order model.Order) (int64, error) {
	now := r.now()
	order.ID = r.t.nextID("orders")
	order.CreatedAt = now
	order.UpdatedAt = now
	r.t.orders[order.ID] = order
	return order.ID, nil
}

func (r *orderRepo) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	o, ok := r.t.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

// Txが直列なのでロックは不要
func (r *orderRepo) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	return r.FindByID(ctx, orderID)
}

func (r *orderRepo) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	page, limit := pageOf(f.Page, f.Limit, 50, 100)

	all := make([]model.Order, 0)
	for _, o := range r.t.orders {
		if f.Status != "" && string(o.Status) != f.Status {
			continue
		}
		if f.CustomerID != nil && o.CustomerID != *f.CustomerID {
			continue
		}
		if f.From != nil && o.DeliveryDate.Before(*f.From) {
			continue
		}
		if f.To != nil && o.DeliveryDate.After(*f.To) {
			continue
		}
		all = append(all, o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	return paginate(all, page, limit), int64(len(all)), nil
}

func (r *orderRepo) ListByScheduleID(ctx context.Context, scheduleID int64) ([]model.Order, error) {
	out := []model.Order{}
	for _, o := range r.t.orders {
		if o.ScheduleID != nil && *o.ScheduleID == scheduleID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *orderRepo) CountOpenByCustomerID(ctx context.Context, customerID int64) (int64, error) {
	var n int64
	for _, o := range r.t.orders {
		if o.CustomerID == customerID && !o.Status.IsTerminal() {
			n++
		}
	}
	return n, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	o, ok := r.t.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = r.now()
	r.t.orders[orderID] = o
	return nil
}

func (r *orderRepo) UpdateDelivery(ctx context.Context, orderID int64, deliveryDate time.Time, customerRequests string) error {
	o, ok := r.t.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.DeliveryDate = deliveryDate
	o.CustomerRequests = customerRequests
	o.UpdatedAt = r.now()
	r.t.orders[orderID] = o
	return nil
}

func (r *orderRepo) UpdateDeliveryDateBySchedule(ctx context.Context, scheduleID int64, deliveryDate time.Time) error {
	for id, o := range r.t.orders {
		if o.ScheduleID != nil && *o.ScheduleID == scheduleID {
			o.DeliveryDate = deliveryDate
			o.UpdatedAt = r.now()
			r.t.orders[id] = o
		}
	}
	return nil
}

func (r *orderRepo) ClearSchedule(ctx context.Context, scheduleID int64) error {
	for id, o := range r.t.orders {
		if o.ScheduleID != nil && *o.ScheduleID == scheduleID {
			o.ScheduleID = nil
			o.UpdatedAt = r.now()
			r.t.orders[id] = o
		}
	}
	return nil
}

func (r *orderRepo) Delete(ctx context.Context, orderID int64) error {
	if _, ok := r.t.orders[orderID]; !ok {
		return repo.ErrNotFound
	}
	delete(r.t.orders, orderID)
	return nil
}

type lineItemRepo struct{ *txRepos }

func (r *lineItemRepo) CreateBulk(ctx context.Context, orderID int64, items []model.LineItem) error {
	now := r.now()
	for _, li := range items {
		li.ID = r.t.nextID("line_items")
		li.OrderID = orderID
		li.CreatedAt = now
		li.UpdatedAt = now
		r.t.lineItems[li.ID] = li
	}
	return nil
}

func (r *lineItemRepo) ListByOrderID(ctx context.Context, orderID int64) ([]model.LineItem, error) {
	out := []model.LineItem{}
	for _, li := range r.t.lineItems {
		if li.OrderID == orderID {
			out = append(out, li)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *lineItemRepo) UpdateQuantity(ctx context.Context, lineItemID int64, qty int64) error {
	li, ok := r.t.lineItems[lineItemID]
	if !ok {
		return repo.ErrNotFound
	}
	li.Quantity = qty
	li.UpdatedAt = r.now()
	r.t.lineItems[lineItemID] = li
	return nil
}

func (r *lineItemRepo) DeleteByOrderID(ctx context.Context, orderID int64) error {
	for id, li := range r.t.lineItems {
		if li.OrderID == orderID {
			delete(r.t.lineItems, id)
		}
	}
	return nil
}
