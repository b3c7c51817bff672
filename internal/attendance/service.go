// Package attendance proxies the labour attendance endpoints and rebuilds
// the presence set the payout pipeline filters on.
package attendance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agrilink-erp/agrilink/internal/datekey"
	"github.com/agrilink-erp/agrilink/internal/upstream"
)

// Upstream captures the attendance surface of the office API.
type Upstream interface {
	AttendanceOverview(ctx context.Context, q upstream.OverviewQuery) (upstream.Overview, error)
	ListAttendance(ctx context.Context, entityID string) ([]upstream.AttendanceRecord, error)
	MarkPresent(ctx context.Context, id string) (upstream.AttendanceRecord, error)
	MarkAbsent(ctx context.Context, id string) (upstream.AttendanceRecord, error)
	CheckIn(ctx context.Context, id string) (upstream.AttendanceRecord, error)
	CheckOut(ctx context.Context, id string) (upstream.AttendanceRecord, error)
}

// Service wraps attendance lookups with the presence-window fallback.
type Service struct {
	up             Upstream
	logger         *slog.Logger
	windowDays     int
	overviewFanout int
	now            func() time.Time
}

// ServiceConfig collects Service dependencies.
type ServiceConfig struct {
	Upstream   Upstream
	Logger     *slog.Logger
	WindowDays int
	Now        func() time.Time
}

// NewService wires the attendance service.
func NewService(cfg ServiceConfig) *Service {
	days := cfg.WindowDays
	if days <= 0 {
		days = 60
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		up:             cfg.Upstream,
		logger:         logger,
		windowDays:     days,
		overviewFanout: 6,
		now:            now,
	}
}

// Overview fetches one day's attendance overview.
func (s *Service) Overview(ctx context.Context, q upstream.OverviewQuery) (upstream.Overview, error) {
	return s.up.AttendanceOverview(ctx, q)
}

// MarkPresent records a labourer present.
func (s *Service) MarkPresent(ctx context.Context, id string) (upstream.AttendanceRecord, error) {
	return s.up.MarkPresent(ctx, id)
}

// MarkAbsent records a labourer absent.
func (s *Service) MarkAbsent(ctx context.Context, id string) (upstream.AttendanceRecord, error) {
	return s.up.MarkAbsent(ctx, id)
}

// CheckIn stamps the check-in time.
func (s *Service) CheckIn(ctx context.Context, id string) (upstream.AttendanceRecord, error) {
	return s.up.CheckIn(ctx, id)
}

// CheckOut stamps the check-out time.
func (s *Service) CheckOut(ctx context.Context, id string) (upstream.AttendanceRecord, error) {
	return s.up.CheckOut(ctx, id)
}

// Presence rebuilds the (date, date_entity) presence key set for one
// entity. When the attendance history endpoint returns nothing, a bounded
// window of per-day overview queries reconstructs it; only if that too
// yields nothing does the second result report the absence of attendance
// data, which disables the payout row filter entirely.
func (s *Service) Presence(ctx context.Context, typ upstream.EntityType, entityID string) (map[string]bool, bool, error) {
	records, err := s.up.ListAttendance(ctx, entityID)
	if err != nil {
		s.logger.Warn("attendance history fetch", slog.Any("error", err))
	}
	if len(records) > 0 {
		return presenceKeys(records, entityID), true, nil
	}
	return s.reconstructWindow(ctx, entityID)
}

func (s *Service) reconstructWindow(ctx context.Context, entityID string) (map[string]bool, bool, error) {
	var (
		mu  sync.Mutex
		all []upstream.AttendanceRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.overviewFanout)

	today := s.now()
	for i := 0; i < s.windowDays; i++ {
		date := today.AddDate(0, 0, -i).Format(datekey.Layout)
		g.Go(func() error {
			ov, err := s.up.AttendanceOverview(gctx, upstream.OverviewQuery{Date: date})
			if err != nil {
				// One failed day is absent data, not a failed window.
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			for _, rec := range ov.Labours {
				if entityID == "" || rec.EntityID == entityID {
					all = append(all, rec)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	// Attendance kept for other workers says nothing about this entity.
	// Only records scoped to it count as data, otherwise the row filter
	// would run against an empty set and blank the whole listing.
	if len(all) == 0 {
		return nil, false, nil
	}
	return presenceKeys(all, entityID), true, nil
}

func presenceKeys(records []upstream.AttendanceRecord, entityID string) map[string]bool {
	set := make(map[string]bool)
	for _, rec := range records {
		if !rec.Present() {
			continue
		}
		set[rec.Date] = true
		id := rec.EntityID
		if id == "" {
			id = entityID
		}
		if id != "" {
			set[datekey.Join(rec.Date, id)] = true
		}
	}
	return set
}
