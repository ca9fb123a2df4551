package logsystem

import (
	"context"
	"strings"
	"time"

	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/shared"
)

// LogService lists and maintains log entries
type LogService struct {
	logs       logsystem.Repository
	timeTravel *TimeTravel
}

// NewLogService creates a LogService
func NewLogService(logs logsystem.Repository, timeTravel *TimeTravel) *LogService {
	return &LogService{logs: logs, timeTravel: timeTravel}
}

// List returns log entries matching the filter, newest first by default
func (s *LogService) List(ctx context.Context, f LogListFilter) ([]LogEntryResponse, int64, error) {
	filter, err := toDomainFilter(f)
	if err != nil {
		return nil, 0, err
	}
	entries, err := s.logs.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.logs.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]LogEntryResponse, len(entries))
	for i := range entries {
		out[i] = ToLogEntryResponse(&entries[i])
	}
	return out, total, nil
}

func toDomainFilter(f LogListFilter) (logsystem.Filter, error) {
	filter := logsystem.DefaultFilter()
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}
	if f.SortBy != "" {
		filter.OrderBy = f.SortBy
	}
	if f.SortDesc != nil && !*f.SortDesc {
		filter.OrderDir = "asc"
	}
	filter.Search = f.Search
	if f.MinLevel != "" {
		lvl, err := logsystem.ParseLevel(f.MinLevel)
		if err != nil {
			return filter, shared.NewDomainError("INVALID_INPUT", err.Error())
		}
		filter.MinLevel = &lvl
	}
	for _, raw := range f.Types {
		for _, name := range strings.Split(raw, ",") {
			t := logsystem.Type(strings.TrimSpace(name))
			if t == "" {
				continue
			}
			if !t.IsValid() {
				return filter, shared.NewDomainError("INVALID_INPUT", "Unknown log type "+string(t))
			}
			filter.Types = append(filter.Types, t)
		}
	}
	if f.TargetType != "" {
		t := shared.TargetType(f.TargetType)
		if !t.IsValid() {
			return filter, shared.NewDomainError("INVALID_INPUT", "Unknown target type "+f.TargetType)
		}
		filter.TargetType = t
	}
	filter.TargetID = f.TargetID
	filter.UserID = f.UserID
	filter.From = f.From
	filter.To = f.To
	return filter, nil
}

// Get returns a single entry
func (s *LogService) Get(ctx context.Context, id uint) (*LogEntryResponse, error) {
	e, err := s.logs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToLogEntryResponse(e)
	return &resp, nil
}

// Delete removes a single entry
func (s *LogService) Delete(ctx context.Context, id uint) error {
	return s.logs.Delete(ctx, id)
}

// History returns the entries of one element, newest first
func (s *LogService) History(ctx context.Context, t shared.TargetType, id uint, page, pageSize int) ([]LogEntryResponse, int64, error) {
	return s.List(ctx, LogListFilter{
		Page:       page,
		PageSize:   pageSize,
		TargetType: string(t),
		TargetID:   id,
	})
}

// LastEditor returns who last created or changed an element
func (s *LogService) LastEditor(ctx context.Context, t shared.TargetType, id uint) (*LogEntryResponse, error) {
	e, err := s.logs.FindLastEditor(ctx, t, id)
	if err != nil {
		return nil, err
	}
	resp := ToLogEntryResponse(e)
	return &resp, nil
}

// ElementAt returns the reconstructed state of an element at a point in time
func (s *LogService) ElementAt(ctx context.Context, t shared.TargetType, id uint, at time.Time) (*ElementStateResponse, error) {
	if !t.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Unknown target type "+string(t))
	}
	element, err := s.timeTravel.ElementAt(ctx, t, id, at)
	if err != nil {
		return nil, err
	}
	data, err := shared.TakeSnapshot(element)
	if err != nil {
		return nil, err
	}
	return &ElementStateResponse{TargetType: string(t), TargetID: id, At: at, Data: data}, nil
}
