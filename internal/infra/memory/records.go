package memory

import (
	"context"
	"sort"
	"strings"

	"farmops/internal/domain/model"
	repo "farmops/internal/repository"
)

type customerRepo struct{ *txRepos }

func (r *customerRepo) Create(ctx context.Context, c model.Customer) (model.Customer, error) {
	for _, ex := range r.t.customers {
		if strings.EqualFold(ex.Email, c.Email) {
			return model.Customer{}, repo.ErrDuplicate
		}
	}
	now := r.now()
	c.ID = r.t.nextID("customers")
	c.CreatedAt = now
	c.UpdatedAt = now
	r.t.customers[c.ID] = c
	return c, nil
}

func (r *customerRepo) FindByID(ctx context.Context, id int64) (model.Customer, error) {
	c, ok := r.t.customers[id]
	if !ok {
		return model.Customer{}, repo.ErrNotFound
	}
	return c, nil
}

func (r *customerRepo) List(ctx context.Context, page int, limit int) ([]model.Customer, int64, error) {
	page, limit = pageOf(page, limit, 50, 100)
	all := make([]model.Customer, 0, len(r.t.customers))
	for _, c := range r.t.customers {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, page, limit), int64(len(all)), nil
}

func (r *customerRepo) Update(ctx context.Context, c model.Customer) error {
	cur, ok := r.t.customers[c.ID]
	if !ok {
		return repo.ErrNotFound
	}
	for _, ex := range r.t.customers {
		if ex.ID != c.ID && strings.EqualFold(ex.Email, c.Email) {
			return repo.ErrDuplicate
		}
	}
	cur.Name = c.Name
	cur.Email = c.Email
	cur.ContactNumber = c.ContactNumber
	cur.Preferences = c.Preferences
	cur.UpdatedAt = r.now()
	r.t.customers[c.ID] = cur
	return nil
}

func (r *customerRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.t.customers[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.t.customers, id)
	return nil
}

type purchaseRepo struct{ *txRepos }

func (r *purchaseRepo) Create(ctx context.Context, p model.Purchase) (model.Purchase, error) {
	now := r.now()
	p.ID = r.t.nextID("purchases")
	p.CreatedAt = now
	p.UpdatedAt = now
	r.t.purchases[p.ID] = p
	return p, nil
}

func (r *purchaseRepo) FindByID(ctx context.Context, id int64) (model.Purchase, error) {
	p, ok := r.t.purchases[id]
	if !ok {
		return model.Purchase{}, repo.ErrNotFound
	}
	return p, nil
}

func (r *purchaseRepo) FindByIDForUpdate(ctx context.Context, id int64) (model.Purchase, error) {
	return r.FindByID(ctx, id)
}

func (r *purchaseRepo) Update(ctx context.Context, p model.Purchase) error {
	cur, ok := r.t.purchases[p.ID]
	if !ok {
		return repo.ErrNotFound
	}
	cur.Supplier = p.Supplier
	cur.Quantity = p.Quantity
	cur.Cost = p.Cost
	cur.PurchaseDate = p.PurchaseDate
	cur.UpdatedAt = r.now()
	r.t.purchases[p.ID] = cur
	return nil
}

func (r *purchaseRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.t.purchases[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.t.purchases, id)
	return nil
}

type saleRepo struct{ *txRepos }

func (r *saleRepo) Create(ctx context.Context, s model.Sale) (model.Sale, error) {
	now := r.now()
	s.ID = r.t.nextID("sales")
	s.CreatedAt = now
	s.UpdatedAt = now
	r.t.sales[s.ID] = s
	return s, nil
}

func (r *saleRepo) FindByID(ctx context.Context, id int64) (model.Sale, error) {
	s, ok := r.t.sales[id]
	if !ok {
		return model.Sale{}, repo.ErrNotFound
	}
	return s, nil
}

func (r *saleRepo) List(ctx context.Context, f repo.SaleListFilter) ([]model.Sale, int64, error) {
	page, limit := pageOf(f.Page, f.Limit, 50, 100)
	all := []model.Sale{}
	for _, s := range r.t.sales {
		if f.OrderID != nil && s.OrderID != *f.OrderID {
			continue
		}
		if f.PaymentStatus != nil && s.PaymentStatus != *f.PaymentStatus {
			continue
		}
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].SaleDate.Equal(all[j].SaleDate) {
			return all[i].SaleDate.After(all[j].SaleDate)
		}
		return all[i].ID > all[j].ID
	})
	return paginate(all, page, limit), int64(len(all)), nil
}

func (r *saleRepo) Update(ctx context.Context, s model.Sale) error {
	cur, ok := r.t.sales[s.ID]
	if !ok {
		return repo.ErrNotFound
	}
	cur.Amount = s.Amount
	cur.SaleDate = s.SaleDate
	cur.PaymentStatus = s.PaymentStatus
	cur.UpdatedAt = r.now()
	r.t.sales[s.ID] = cur
	return nil
}

func (r *saleRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.t.sales[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.t.sales, id)
	return nil
}

type auditLogRepo struct{ *txRepos }

func (r *auditLogRepo) Append(ctx context.Context, entry model.AuditLog) error {
	entry.ID = r.t.nextID("audit_logs")
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now()
	}
	r.t.auditLogs = append(r.t.auditLogs, entry)
	return nil
}

// 新しい順（追記順の逆）
func (r *auditLogRepo) Search(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	out := []model.AuditLog{}
	for i := len(r.t.auditLogs) - 1; i >= 0; i-- {
		if l := r.t.auditLogs[i]; auditMatches(l, f) {
			out = append(out, l)
		}
	}
	if offset >= len(out) {
		return []model.AuditLog{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *auditLogRepo) Timeline(ctx context.Context, resourceType model.AuditResourceType, resourceID int64) ([]model.AuditLog, error) {
	out := []model.AuditLog{}
	for _, l := range r.t.auditLogs {
		if l.ResourceType == resourceType && l.ResourceID == resourceID {
			out = append(out, l)
		}
	}
	return out, nil
}

func auditMatches(l model.AuditLog, f repo.AuditLogFilter) bool {
	switch {
	case f.ActorUserID != nil && l.ActorUserID != *f.ActorUserID:
		return false
	case f.Action != nil && l.Action != *f.Action:
		return false
	case f.ResourceType != nil && l.ResourceType != *f.ResourceType:
		return false
	case f.ResourceID != nil && l.ResourceID != *f.ResourceID:
		return false
	case f.CreatedFrom != nil && l.CreatedAt.Before(*f.CreatedFrom):
		return false
	case f.CreatedTo != nil && l.CreatedAt.After(*f.CreatedTo):
		return false
	}
	return true
}
