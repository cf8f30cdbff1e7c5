package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
)

type sequenceRepo struct {
	s      *Store
	locked bool
}

func seqKey(companyID, docType, fy string) string {
	return companyID + "|" + docType + "|" + fy
}

func (r *sequenceRepo) Next(ctx context.Context, companyID, docType, fy string) (*entity.DocumentSequence, int64, error) {
	var (
		out    *entity.DocumentSequence
		issued int64
	)
	err := r.s.do(r.locked, func(st *state) error {
		key := seqKey(companyID, docType, fy)
		seq, ok := st.sequences[key]
		if !ok {
			return nil
		}
		if err := r.s.fault("sequences.next", key); err != nil {
			return err
		}
		issued = seq.CurrentNumber
		seq.CurrentNumber++
		seq.UpdatedAt = time.Now()
		st.sequences[key] = seq
		out = &seq
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out, issued, nil
}

func (r *sequenceRepo) CreateIfAbsent(ctx context.Context, seq *entity.DocumentSequence) error {
	return r.s.do(r.locked, func(st *state) error {
		key := seqKey(seq.CompanyID, seq.DocumentType, seq.FinancialYear)
		if _, ok := st.sequences[key]; ok {
			return nil
		}
		if seq.ID == "" {
			seq.ID = uuid.New().String()
		}
		st.sequences[key] = *seq
		return nil
	})
}

func (r *sequenceRepo) Upsert(ctx context.Context, seq *entity.DocumentSequence) error {
	return r.s.do(r.locked, func(st *state) error {
		key := seqKey(seq.CompanyID, seq.DocumentType, seq.FinancialYear)
		cur, ok := st.sequences[key]
		if !ok {
			if seq.ID == "" {
				seq.ID = uuid.New().String()
			}
			st.sequences[key] = *seq
			return nil
		}
		cur.Prefix = seq.Prefix
		cur.Suffix = seq.Suffix
		cur.Padding = seq.Padding
		cur.ResetOnNewYear = seq.ResetOnNewYear
		if seq.CurrentNumber > cur.CurrentNumber {
			cur.CurrentNumber = seq.CurrentNumber
		}
		cur.UpdatedAt = seq.UpdatedAt
		st.sequences[key] = cur
		*seq = cur
		return nil
	})
}

func (r *sequenceRepo) Get(ctx context.Context, companyID, docType, fy string) (*entity.DocumentSequence, error) {
	var out *entity.DocumentSequence
	err := r.s.do(r.locked, func(st *state) error {
		if seq, ok := st.sequences[seqKey(companyID, docType, fy)]; ok {
			out = &seq
		}
		return nil
	})
	return out, err
}

func (r *sequenceRepo) Latest(ctx context.Context, companyID, docType string) (*entity.DocumentSequence, error) {
	var out *entity.DocumentSequence
	err := r.s.do(r.locked, func(st *state) error {
		for _, seq := range st.sequences {
			if seq.CompanyID != companyID || seq.DocumentType != docType {
				continue
			}
			if out == nil || seq.FinancialYear > out.FinancialYear {
				s := seq
				out = &s
			}
		}
		return nil
	})
	return out, err
}

func (r *sequenceRepo) ListByYear(ctx context.Context, companyID, fy string) ([]*entity.DocumentSequence, error) {
	var out []*entity.DocumentSequence
	err := r.s.do(r.locked, func(st *state) error {
		for _, seq := range st.sequences {
			if seq.CompanyID == companyID && seq.FinancialYear == fy {
				s := seq
				out = append(out, &s)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentType < out[j].DocumentType })
	return out, err
}
