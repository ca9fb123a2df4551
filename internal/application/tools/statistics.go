package tools

import (
	"context"

	"github.com/partdb/backend/internal/domain/shared"
)

// StatisticsRepository counts the stored data
type StatisticsRepository interface {
	CountElements(ctx context.Context, t shared.TargetType) (int64, error)
	// SumLotAmounts returns the summed amount of all lots with known stock
	SumLotAmounts(ctx context.Context) (float64, error)
	CountUploadedAttachments(ctx context.Context) (int64, error)
	CountLogEntries(ctx context.Context) (int64, error)
}

// Statistics summarizes the database contents
type Statistics struct {
	Counts              map[shared.TargetType]int64 `json:"counts"`
	TotalLots           int64                       `json:"total_lots"`
	TotalInstock        float64                     `json:"total_instock"`
	UploadedAttachments int64                       `json:"uploaded_attachments"`
	ExternalAttachments int64                       `json:"external_attachments"`
	LogEntries          int64                       `json:"log_entries"`
}

// StatisticsService collects Statistics
type StatisticsService struct {
	repo StatisticsRepository
}

// NewStatisticsService creates a new StatisticsService
func NewStatisticsService(repo StatisticsRepository) *StatisticsService {
	return &StatisticsService{repo: repo}
}

// Collect counts every element kind and the log size
func (s *StatisticsService) Collect(ctx context.Context) (*Statistics, error) {
	st := &Statistics{Counts: make(map[shared.TargetType]int64, len(shared.AllTargetTypes))}
	for _, t := range shared.AllTargetTypes {
		n, err := s.repo.CountElements(ctx, t)
		if err != nil {
			return nil, err
		}
		st.Counts[t] = n
	}
	st.TotalLots = st.Counts[shared.TargetPartLot]

	var err error
	if st.TotalInstock, err = s.repo.SumLotAmounts(ctx); err != nil {
		return nil, err
	}
	if st.UploadedAttachments, err = s.repo.CountUploadedAttachments(ctx); err != nil {
		return nil, err
	}
	st.ExternalAttachments = st.Counts[shared.TargetAttachment] - st.UploadedAttachments
	if st.LogEntries, err = s.repo.CountLogEntries(ctx); err != nil {
		return nil, err
	}
	return st, nil
}
