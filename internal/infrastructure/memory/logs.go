package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Integraciones-api/internal/domain"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
)

type integrationRepo struct{ s *Store }

func (r *integrationRepo) Upsert(ctx context.Context, in *entity.Integration) error {
	return r.s.do(false, func(st *state) error {
		if cur, ok := st.integrations[in.CompanyID]; ok {
			in.ID = cur.ID
			in.CreatedAt = cur.CreatedAt
			in.LastSyncAt = cur.LastSyncAt
		} else if in.ID == "" {
			in.ID = uuid.New().String()
		}
		st.integrations[in.CompanyID] = *in
		return nil
	})
}

func (r *integrationRepo) GetByCompany(ctx context.Context, companyID string) (*entity.Integration, error) {
	var out *entity.Integration
	err := r.s.do(false, func(st *state) error {
		if in, ok := st.integrations[companyID]; ok {
			out = &in
		}
		return nil
	})
	return out, err
}

func (r *integrationRepo) TouchLastSync(ctx context.Context, id string, at time.Time) error {
	return r.s.do(false, func(st *state) error {
		for k, in := range st.integrations {
			if in.ID == id {
				in.LastSyncAt = &at
				st.integrations[k] = in
				return nil
			}
		}
		return domain.ErrNotFound
	})
}

type eventRepo struct{ s *Store }

func (r *eventRepo) Create(ctx context.Context, e *entity.WebhookEvent) error {
	return r.s.do(false, func(st *state) error {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		st.events[e.ID] = *e
		st.eventOrder = append(st.eventOrder, e.ID)
		return nil
	})
}

func (r *eventRepo) UpdateStatus(ctx context.Context, e *entity.WebhookEvent) error {
	return r.s.do(false, func(st *state) error {
		cur, ok := st.events[e.ID]
		if !ok {
			return domain.ErrNotFound
		}
		if cur.IsTerminal() {
			return domain.ErrTerminalState
		}
		st.events[e.ID] = *e
		return nil
	})
}

func (r *eventRepo) GetByID(ctx context.Context, companyID, id string) (*entity.WebhookEvent, error) {
	var out *entity.WebhookEvent
	err := r.s.do(false, func(st *state) error {
		if e, ok := st.events[id]; ok && e.CompanyID == companyID {
			out = &e
		}
		return nil
	})
	return out, err
}

func (r *eventRepo) ListByCompany(ctx context.Context, companyID string, limit int) ([]*entity.WebhookEvent, error) {
	var out []*entity.WebhookEvent
	err := r.s.do(false, func(st *state) error {
		for i := len(st.eventOrder) - 1; i >= 0; i-- {
			e := st.events[st.eventOrder[i]]
			if e.CompanyID != companyID {
				continue
			}
			out = append(out, &e)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})
	return out, err
}

type syncRunRepo struct{ s *Store }

func (r *syncRunRepo) Create(ctx context.Context, run *entity.SyncRun) error {
	return r.s.do(false, func(st *state) error {
		if run.Status == entity.SyncStatusRunning {
			for _, other := range st.syncRuns {
				if other.CompanyID == run.CompanyID && other.SyncType == run.SyncType && other.Status == entity.SyncStatusRunning {
					return domain.ErrConflict
				}
			}
		}
		if run.ID == "" {
			run.ID = uuid.New().String()
		}
		st.syncRuns[run.ID] = *run
		st.runOrder = append(st.runOrder, run.ID)
		return nil
	})
}

func (r *syncRunRepo) Finish(ctx context.Context, run *entity.SyncRun) error {
	return r.s.do(false, func(st *state) error {
		cur, ok := st.syncRuns[run.ID]
		if !ok {
			return domain.ErrNotFound
		}
		if cur.IsTerminal() {
			return domain.ErrTerminalState
		}
		st.syncRuns[run.ID] = *run
		return nil
	})
}

func (r *syncRunRepo) Claim(ctx context.Context, id string, now, staleBefore time.Time) (bool, error) {
	claimed := false
	err := r.s.do(false, func(st *state) error {
		cur, ok := st.syncRuns[id]
		if !ok || cur.Status != entity.SyncStatusRunning {
			return nil
		}
		if cur.ClaimedAt != nil && !cur.ClaimedAt.Before(staleBefore) {
			return nil
		}
		at := now
		cur.ClaimedAt = &at
		st.syncRuns[id] = cur
		claimed = true
		return nil
	})
	return claimed, err
}

func (r *syncRunRepo) GetByID(ctx context.Context, id string) (*entity.SyncRun, error) {
	var out *entity.SyncRun
	err := r.s.do(false, func(st *state) error {
		if run, ok := st.syncRuns[id]; ok {
			out = &run
		}
		return nil
	})
	return out, err
}

func (r *syncRunRepo) newest(match func(entity.SyncRun) bool, limit int) []*entity.SyncRun {
	var out []*entity.SyncRun
	for i := len(r.s.st.runOrder) - 1; i >= 0; i-- {
		run := r.s.st.syncRuns[r.s.st.runOrder[i]]
		if !match(run) {
			continue
		}
		out = append(out, &run)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func (r *syncRunRepo) ListByCompany(ctx context.Context, companyID string, limit int) ([]*entity.SyncRun, error) {
	var out []*entity.SyncRun
	err := r.s.do(false, func(st *state) error {
		out = r.newest(func(run entity.SyncRun) bool { return run.CompanyID == companyID }, limit)
		return nil
	})
	return out, err
}

func (r *syncRunRepo) first(match func(entity.SyncRun) bool) (*entity.SyncRun, error) {
	var out *entity.SyncRun
	err := r.s.do(false, func(st *state) error {
		if runs := r.newest(match, 1); len(runs) > 0 {
			out = runs[0]
		}
		return nil
	})
	return out, err
}

func (r *syncRunRepo) GetRunning(ctx context.Context, companyID, syncType string) (*entity.SyncRun, error) {
	return r.first(func(run entity.SyncRun) bool {
		return run.CompanyID == companyID && run.SyncType == syncType && run.Status == entity.SyncStatusRunning
	})
}

func (r *syncRunRepo) LastCompleted(ctx context.Context, companyID, syncType string) (*entity.SyncRun, error) {
	return r.first(func(run entity.SyncRun) bool {
		return run.CompanyID == companyID && run.SyncType == syncType && run.Status == entity.SyncStatusCompleted
	})
}
