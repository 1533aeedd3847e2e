package memory

import (
	"context"
	"sort"
	"time"

	"farmops/internal/domain/model"
	repo "farmops/internal/repository"
)

type scheduleRepo struct{ *txRepos }

func (r *scheduleRepo) Create(ctx context.Context, s model.Schedule) (model.Schedule, error) {
	now := r.now()
	s.ID = r.t.nextID("schedules")
	s.CreatedAt = now
	s.UpdatedAt = now
	r.t.schedules[s.ID] = s
	return s, nil
}

func (r *scheduleRepo) FindByID(ctx context.Context, id int64) (model.Schedule, error) {
	s, ok := r.t.schedules[id]
	if !ok {
		return model.Schedule{}, repo.ErrNotFound
	}
	return s, nil
}

func (r *scheduleRepo) FindByIDForUpdate(ctx context.Context, id int64) (model.Schedule, error) {
	return r.FindByID(ctx, id)
}

func (r *scheduleRepo) List(ctx context.Context, f repo.ScheduleListFilter) ([]model.Schedule, int64, error) {
	page, limit := pageOf(f.Page, f.Limit, 50, 100)

	all := []model.Schedule{}
	for _, s := range r.t.schedules {
		if f.Type != nil && s.Type != *f.Type {
			continue
		}
		if f.Status != nil && s.Status != *f.Status {
			continue
		}
		if f.UserID != nil && (s.UserID == nil || *s.UserID != *f.UserID) {
			continue
		}
		if f.From != nil && s.ScheduledOn.Before(*f.From) {
			continue
		}
		if f.To != nil && s.ScheduledOn.After(*f.To) {
			continue
		}
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].ScheduledOn.Equal(all[j].ScheduledOn) {
			return all[i].ScheduledOn.Before(all[j].ScheduledOn)
		}
		return all[i].ID < all[j].ID
	})

	return paginate(all, page, limit), int64(len(all)), nil
}

func (r *scheduleRepo) UpdateStatus(ctx context.Context, id int64, status model.ScheduleStatus) error {
	s, ok := r.t.schedules[id]
	if !ok {
		return repo.ErrNotFound
	}
	s.Status = status
	s.UpdatedAt = r.now()
	r.t.schedules[id] = s
	return nil
}

func (r *scheduleRepo) UpdateScheduledOn(ctx context.Context, id int64, scheduledOn time.Time) error {
	s, ok := r.t.schedules[id]
	if !ok {
		return repo.ErrNotFound
	}
	s.ScheduledOn = scheduledOn
	s.UpdatedAt = r.now()
	r.t.schedules[id] = s
	return nil
}

func (r *scheduleRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.t.schedules[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.t.schedules, id)
	return nil
}
