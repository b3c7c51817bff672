package payout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/agrilink-erp/agrilink/internal/observability"
	"github.com/agrilink-erp/agrilink/internal/upstream"
)

// Upstream captures the office API surface the payout service consumes.
type Upstream interface {
	ListOrders(ctx context.Context) ([]upstream.Order, error)
	OrderAssignments(ctx context.Context, order upstream.Order) ([]upstream.Assignment, error)
	ListEntities(ctx context.Context, typ upstream.EntityType) ([]upstream.Entity, error)
	ListRates(ctx context.Context) ([]upstream.RateCard, error)
	ListFuelExpenses(ctx context.Context) ([]upstream.Expense, error)
	ListAdvances(ctx context.Context) ([]upstream.Expense, error)
	ListExcessKM(ctx context.Context) ([]upstream.ExcessKM, error)
	ListPayouts(ctx context.Context, ledger upstream.Ledger, typ upstream.EntityType, entityID string) ([]upstream.PaidRecord, error)
	PaidRecords(ctx context.Context, ledger upstream.Ledger, typ upstream.EntityType) ([]upstream.PaidRecord, error)
	MarkPaid(ctx context.Context, ledger upstream.Ledger, typ upstream.EntityType, req upstream.MarkPaidRequest) error
}

// PresenceSource reconstructs the attendance presence set for one entity.
// The second result reports whether any attendance data exists at all.
type PresenceSource interface {
	Presence(ctx context.Context, typ upstream.EntityType, entityID string) (map[string]bool, bool, error)
}

// Policy names the mark-paid behavior on upstream failure. With
// OptimisticNoRollback set (the default), a failed upstream confirmation
// still reports the row Paid: the fallback mark is already durable and the
// office never re-exposes a Pay action the operator has confirmed.
type Policy struct {
	OptimisticNoRollback bool
}

// Service builds reconciled payout row sets.
type Service struct {
	up       Upstream
	presence PresenceSource
	marks    MarkStore
	cache    *Cache
	logger   *slog.Logger
	metrics  *observability.Metrics
	policy   Policy

	// assignmentLimit bounds the per-order fan-out width.
	assignmentLimit int

	group singleflight.Group
}

// ServiceConfig collects Service dependencies.
type ServiceConfig struct {
	Upstream        Upstream
	Presence        PresenceSource
	Marks           MarkStore
	Cache           *Cache
	Logger          *slog.Logger
	Metrics         *observability.Metrics
	Policy          Policy
	AssignmentLimit int
}

// NewService wires the payout service.
func NewService(cfg ServiceConfig) *Service {
	limit := cfg.AssignmentLimit
	if limit <= 0 {
		limit = 8
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		up:              cfg.Upstream,
		presence:        cfg.Presence,
		marks:           cfg.Marks,
		cache:           cfg.Cache,
		logger:          logger,
		metrics:         cfg.Metrics,
		policy:          cfg.Policy,
		assignmentLimit: limit,
	}
}

// Rows returns the reconciled payout rows for one ledger type, deduplicating
// concurrent builds and serving from the versioned cache when possible.
func (s *Service) Rows(ctx context.Context, ledger upstream.Ledger, typ upstream.EntityType, entityID string) (Result, error) {
	if !typ.Valid() {
		return Result{}, fmt.Errorf("payout: unknown entity type %q", typ)
	}
	flightKey := string(ledger) + ":" + string(typ) + ":" + entityID
	value, err, _ := s.singleflightBuild(ctx, flightKey, func(ctx context.Context) (interface{}, error) {
		cacheKey, err := s.cache.BuildKey(ctx, "payout", "rows", string(ledger), string(typ), entityID)
		if err != nil {
			// A cache outage degrades to a direct build.
			s.logger.Warn("payout cache key", slog.Any("error", err))
			return s.build(ctx, ledger, typ, entityID), nil
		}
		var res Result
		err = s.cache.FetchJSON(ctx, cacheKey, &res, func(ctx context.Context) (interface{}, error) {
			return s.build(ctx, ledger, typ, entityID), nil
		})
		if err != nil {
			s.logger.Warn("payout cache fetch", slog.Any("error", err))
			return s.build(ctx, ledger, typ, entityID), nil
		}
		return res, nil
	})
	if err != nil {
		return Result{}, err
	}
	res, ok := value.(Result)
	if !ok {
		return Result{}, fmt.Errorf("payout: unexpected build result type %T", value)
	}
	return res, nil
}

func (s *Service) singleflightBuild(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error, bool) {
	resultChan := s.group.DoChan(key, func() (interface{}, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		return res.Val, res.Err, res.Shared
	}
}

// build fans out every source fetch, degrades each failure to an empty
// collection and folds the rest. It never returns an error: the worst case
// is an empty row set.
func (s *Service) build(ctx context.Context, ledger upstream.Ledger, typ upstream.EntityType, entityID string) Result {
	src := Sources{Type: typ}
	var (
		serverPaid   []upstream.PaidRecord
		presenceSet  map[string]bool
		hasAttend    bool
		wageBearing  = typ == upstream.EntityDriver || typ == upstream.EntityLabour
		fetchFailure = func(source string, err error) {
			s.logger.Warn("payout source degraded",
				slog.String("source", source),
				slog.String("type", string(typ)),
				slog.Any("error", err))
			s.metrics.ObserveUpstreamFailure(source)
		}
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		entities, err := s.up.ListEntities(gctx, typ)
		if err != nil {
			fetchFailure("entities", err)
			return nil
		}
		src.Entities = entities
		return nil
	})

	g.Go(func() error {
		entries, err := s.up.ListPayouts(gctx, ledger, typ, entityID)
		if err != nil {
			fetchFailure("ledger", err)
			return nil
		}
		src.LedgerEntries = entries
		return nil
	})

	g.Go(func() error {
		paid, err := s.up.PaidRecords(gctx, ledger, typ)
		if err != nil {
			fetchFailure("paid", err)
			return nil
		}
		serverPaid = paid
		return nil
	})

	if wageBearing {
		g.Go(func() error {
			src.Assignments = s.fetchAssignments(gctx, fetchFailure)
			return nil
		})
		g.Go(func() error {
			rates, err := s.up.ListRates(gctx)
			if err != nil {
				fetchFailure("rates", err)
				return nil
			}
			src.Rates = rates
			return nil
		})
		g.Go(func() error {
			fuel, err := s.up.ListFuelExpenses(gctx)
			if err != nil {
				fetchFailure("fuel", err)
				return nil
			}
			src.Fuel = fuel
			return nil
		})
		g.Go(func() error {
			advances, err := s.up.ListAdvances(gctx)
			if err != nil {
				fetchFailure("advances", err)
				return nil
			}
			src.Advances = advances
			return nil
		})
		g.Go(func() error {
			km, err := s.up.ListExcessKM(gctx)
			if err != nil {
				fetchFailure("excess_km", err)
				return nil
			}
			src.ExcessKM = km
			return nil
		})
		if s.presence != nil {
			g.Go(func() error {
				set, has, err := s.presence.Presence(gctx, typ, entityID)
				if err != nil {
					fetchFailure("attendance", err)
					return nil
				}
				presenceSet, hasAttend = set, has
				return nil
			})
		}
	}

	// Closures above swallow every error, so Wait only propagates context
	// cancellation; a cancelled build still returns what it has.
	_ = g.Wait()

	src.Presence = presenceSet
	src.HasAttendance = hasAttend

	result := BuildRows(src)
	if result.Unresolved > 0 {
		s.logger.Warn("payout entity references unresolved",
			slog.String("type", string(typ)),
			slog.Int("count", result.Unresolved))
		s.metrics.ObserveUnresolved(string(typ), result.Unresolved)
	}

	paidKeys := make(map[string]bool, len(serverPaid))
	for _, p := range serverPaid {
		paidKeys[p.Key] = true
	}
	fallback, err := s.marks.Keys(ctx, typ, entityID)
	if err != nil {
		s.logger.Warn("payout fallback marks", slog.Any("error", err))
		fallback = nil
	}
	rows, fallbackOnly := Reconcile(result.Rows, paidKeys, fallback)
	result.Rows = rows
	s.metrics.ObserveFallbackHit(string(typ), fallbackOnly)
	return result
}

// fetchAssignments fans out the per-order assignment lookups, the only
// place where request width scales with data volume.
func (s *Service) fetchAssignments(ctx context.Context, fetchFailure func(string, error)) []upstream.Assignment {
	orders, err := s.up.ListOrders(ctx)
	if err != nil {
		fetchFailure("orders", err)
		return nil
	}
	var (
		mu  sync.Mutex
		out []upstream.Assignment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.assignmentLimit)
	for _, order := range orders {
		g.Go(func() error {
			assignments, err := s.up.OrderAssignments(gctx, order)
			if err != nil {
				fetchFailure("assignments", err)
				return nil
			}
			mu.Lock()
			out = append(out, assignments...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// MarkPaid confirms one payout row. The fallback mark is written before the
// upstream call so a confirmed Pay survives any later failure; under
// OptimisticNoRollback the upstream error is absorbed after logging.
func (s *Service) MarkPaid(ctx context.Context, ledger upstream.Ledger, typ upstream.EntityType, req upstream.MarkPaidRequest) error {
	if !typ.Valid() {
		return fmt.Errorf("payout: unknown entity type %q", typ)
	}
	if req.Key == "" {
		return fmt.Errorf("payout: mark key required")
	}
	if err := s.marks.Add(ctx, typ, req.EntityID, req.Key); err != nil {
		// The fallback store is defensive; a write failure must not block
		// the upstream confirmation.
		s.logger.Warn("payout fallback mark write", slog.Any("error", err))
	}

	err := s.up.MarkPaid(ctx, ledger, typ, req)
	if bumpErr := s.cache.Bump(ctx); bumpErr != nil {
		s.logger.Warn("payout cache bump", slog.Any("error", bumpErr))
	}
	if err != nil {
		if s.policy.OptimisticNoRollback {
			s.logger.Warn("payout mark-paid upstream failed, keeping local mark",
				slog.String("key", req.Key),
				slog.Any("error", err))
			return nil
		}
		return fmt.Errorf("payout: mark paid: %w", err)
	}
	return nil
}
