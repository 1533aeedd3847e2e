package memory

import (
	"context"
	"sort"
	"strings"

	"farmops/internal/domain/model"
	repo "farmops/internal/repository"
)

type itemRepo struct{ *txRepos }

func (r *itemRepo) Create(ctx context.Context, item model.Item) (model.Item, error) {
	now := r.now()
	item.ID = r.t.nextID("items")
	item.ReOrderNeed = model.NeedsReorder(item.StockLevel, item.MinStockLevel)
	item.CreatedAt = now
	item.UpdatedAt = now
	r.t.items[item.ID] = item
	return item, nil
}

func (r *itemRepo) FindByID(ctx context.Context, id int64) (model.Item, error) {
	it, ok := r.t.items[id]
	if !ok {
		return model.Item{}, repo.ErrNotFound
	}
	return it, nil
}

func (r *itemRepo) FindByIDForUpdate(ctx context.Context, id int64) (model.Item, error) {
	return r.FindByID(ctx, id)
}

func (r *itemRepo) FindByNameAndCategory(ctx context.Context, name string, category model.ItemCategory) (model.Item, error) {
	var found *model.Item
	for _, it := range r.t.items {
		if it.Name == name && it.Category == category {
			if found == nil || it.ID < found.ID {
				cp := it
				found = &cp
			}
		}
	}
	if found == nil {
		return model.Item{}, repo.ErrNotFound
	}
	return *found, nil
}

func (r *itemRepo) List(ctx context.Context, q repo.ItemListQuery) ([]model.Item, int64, error) {
	page, limit := pageOf(q.Page, q.Limit, 20, 100)

	all := make([]model.Item, 0, len(r.t.items))
	for _, it := range r.t.items {
		if q.Category != nil && it.Category != *q.Category {
			continue
		}
		if q.MinStock != nil && it.StockLevel < *q.MinStock {
			continue
		}
		if q.ReOrderNeed != nil && it.ReOrderNeed != *q.ReOrderNeed {
			continue
		}
		all = append(all, it)
	}

	desc := strings.HasPrefix(q.Sort, "-")
	key := strings.TrimPrefix(q.Sort, "-")
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		switch key {
		case "name":
			if a.Name != b.Name {
				return (a.Name < b.Name) != desc
			}
		case "stock_level":
			if a.StockLevel != b.StockLevel {
				return (a.StockLevel < b.StockLevel) != desc
			}
		default:
			return a.ID < b.ID
		}
		return (a.ID < b.ID) != desc
	})

	return paginate(all, page, limit), int64(len(all)), nil
}

func (r *itemRepo) UpdateDetails(ctx context.Context, item model.Item) error {
	cur, ok := r.t.items[item.ID]
	if !ok {
		return repo.ErrNotFound
	}
	cur.Name = item.Name
	cur.MinStockLevel = item.MinStockLevel
	cur.UnitPrice = item.UnitPrice
	cur.ReOrderNeed = model.NeedsReorder(cur.StockLevel, cur.MinStockLevel)
	cur.UpdatedAt = r.now()
	r.t.items[item.ID] = cur
	return nil
}

func (r *itemRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.t.items[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.t.items, id)
	return nil
}

func (r *itemRepo) ApplyStockDelta(ctx context.Context, id int64, delta int64, allowNegative bool) (bool, error) {
	cur, ok := r.t.items[id]
	if !ok {
		return false, nil
	}
	next := cur.StockLevel + delta
	if !allowNegative && next < 0 {
		return false, nil
	}
	cur.StockLevel = next
	cur.ReOrderNeed = model.NeedsReorder(next, cur.MinStockLevel)
	cur.UpdatedAt = r.now()
	r.t.items[id] = cur
	return true, nil
}

type eventRepo struct{ *txRepos }

func (r *eventRepo) Create(ctx context.Context, ev model.InventoryEvent) (model.InventoryEvent, error) {
	ev.ID = r.t.nextID("inventory_events")
	ev.CreatedAt = r.now()
	r.t.events = append(r.t.events, ev)
	return ev, nil
}

// 新しい順
func (r *eventRepo) ListByItemID(ctx context.Context, itemID int64, limit int, offset int) ([]model.InventoryEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var out []model.InventoryEvent
	for i := len(r.t.events) - 1; i >= 0; i-- {
		if r.t.events[i].ItemID == itemID {
			out = append(out, r.t.events[i])
		}
	}
	if offset >= len(out) {
		return []model.InventoryEvent{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *eventRepo) CountByItemID(ctx context.Context, itemID int64) (int64, error) {
	var n int64
	for _, ev := range r.t.events {
		if ev.ItemID == itemID {
			n++
		}
	}
	return n, nil
}

func (r *eventRepo) SumByItemID(ctx context.Context, itemID int64) (int64, error) {
	var sum int64
	for _, ev := range r.t.events {
		if ev.ItemID == itemID {
			sum += ev.QuantityChange
		}
	}
	return sum, nil
}
