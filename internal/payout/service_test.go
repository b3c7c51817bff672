package payout

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/agrilink-erp/agrilink/internal/observability"
	"github.com/agrilink-erp/agrilink/internal/upstream"
)

type fakeUpstream struct {
	entities    []upstream.Entity
	orders      []upstream.Order
	assignments map[string][]upstream.Assignment
	rates       []upstream.RateCard
	fuel        []upstream.Expense
	advances    []upstream.Expense
	excess      []upstream.ExcessKM
	ledger      []upstream.PaidRecord
	paid        []upstream.PaidRecord

	fuelErr     error
	ordersErr   error
	markPaidErr error

	listCalls     atomic.Int64
	markPaidCalls atomic.Int64
}

func (f *fakeUpstream) ListOrders(ctx context.Context) ([]upstream.Order, error) {
	f.listCalls.Add(1)
	return f.orders, f.ordersErr
}

func (f *fakeUpstream) OrderAssignments(ctx context.Context, order upstream.Order) ([]upstream.Assignment, error) {
	return f.assignments[order.ID], nil
}

func (f *fakeUpstream) ListEntities(ctx context.Context, typ upstream.EntityType) ([]upstream.Entity, error) {
	return f.entities, nil
}

func (f *fakeUpstream) ListRates(ctx context.Context) ([]upstream.RateCard, error) {
	return f.rates, nil
}

func (f *fakeUpstream) ListFuelExpenses(ctx context.Context) ([]upstream.Expense, error) {
	return f.fuel, f.fuelErr
}

func (f *fakeUpstream) ListAdvances(ctx context.Context) ([]upstream.Expense, error) {
	return f.advances, nil
}

func (f *fakeUpstream) ListExcessKM(ctx context.Context) ([]upstream.ExcessKM, error) {
	return f.excess, nil
}

func (f *fakeUpstream) ListPayouts(ctx context.Context, ledger upstream.Ledger, typ upstream.EntityType, entityID string) ([]upstream.PaidRecord, error) {
	return f.ledger, nil
}

func (f *fakeUpstream) PaidRecords(ctx context.Context, ledger upstream.Ledger, typ upstream.EntityType) ([]upstream.PaidRecord, error) {
	return f.paid, nil
}

func (f *fakeUpstream) MarkPaid(ctx context.Context, ledger upstream.Ledger, typ upstream.EntityType, req upstream.MarkPaidRequest) error {
	f.markPaidCalls.Add(1)
	return f.markPaidErr
}

type presenceFunc func(ctx context.Context, typ upstream.EntityType, entityID string) (map[string]bool, bool, error)

func (f presenceFunc) Presence(ctx context.Context, typ upstream.EntityType, entityID string) (map[string]bool, bool, error) {
	return f(ctx, typ, entityID)
}

func newDriverFake() *fakeUpstream {
	return &fakeUpstream{
		entities: []upstream.Entity{{ID: "D1", Name: "Ravi Kumar"}},
		orders:   []upstream.Order{{ID: "O1", Date: "2024-04-01"}},
		assignments: map[string][]upstream.Assignment{
			"O1": {{OrderID: "O1", Date: "2024-04-01", EntityRef: "Ravi Kumar", Wage: 500}},
		},
		fuel: []upstream.Expense{{Date: "2024-04-01", EntityRef: "D1", Amount: 100}},
	}
}

func newTestService(t *testing.T, up Upstream, presence PresenceSource, policy Policy) (*Service, *MemoryMarkStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	marks := NewMemoryMarkStore()
	svc := NewService(ServiceConfig{
		Upstream: up,
		Presence: presence,
		Marks:    marks,
		Cache:    NewCache(client, time.Minute),
		Logger:   slog.New(slog.DiscardHandler),
		Metrics:  observability.NewMetrics(),
		Policy:   policy,
	})
	return svc, marks
}

func TestRowsScenario(t *testing.T) {
	svc, _ := newTestService(t, newDriverFake(), nil, Policy{OptimisticNoRollback: true})

	result, err := svc.Rows(context.Background(), upstream.LedgerDaily, upstream.EntityDriver, "")
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	row := result.Rows[0]
	require.Equal(t, "2024-04-01_D1", row.Key)
	require.Equal(t, 400.0, row.TotalPayout)
	require.Equal(t, StatusPending, row.Status)
}

func TestRowsPartialSourceFailure(t *testing.T) {
	fake := newDriverFake()
	fake.fuelErr = errors.New("fuel service down")
	svc, _ := newTestService(t, fake, nil, Policy{OptimisticNoRollback: true})

	result, err := svc.Rows(context.Background(), upstream.LedgerDaily, upstream.EntityDriver, "")
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	// Fuel degraded to zero; the wage still comes through.
	require.Equal(t, 500.0, result.Rows[0].TotalPayout)
}

func TestRowsAllSourcesFailing(t *testing.T) {
	fake := &fakeUpstream{ordersErr: errors.New("down"), fuelErr: errors.New("down")}
	svc, _ := newTestService(t, fake, nil, Policy{OptimisticNoRollback: true})

	result, err := svc.Rows(context.Background(), upstream.LedgerDaily, upstream.EntityDriver, "")
	require.NoError(t, err)
	require.Empty(t, result.Rows)
}

func TestRowsRejectsUnknownType(t *testing.T) {
	svc, _ := newTestService(t, newDriverFake(), nil, Policy{})
	_, err := svc.Rows(context.Background(), upstream.LedgerDaily, "chauffeur", "")
	require.Error(t, err)
}

func TestRowsServedFromCacheUntilBump(t *testing.T) {
	fake := newDriverFake()
	svc, _ := newTestService(t, fake, nil, Policy{OptimisticNoRollback: true})
	ctx := context.Background()

	_, err := svc.Rows(ctx, upstream.LedgerDaily, upstream.EntityDriver, "")
	require.NoError(t, err)
	_, err = svc.Rows(ctx, upstream.LedgerDaily, upstream.EntityDriver, "")
	require.NoError(t, err)
	require.Equal(t, int64(1), fake.listCalls.Load(), "second read must hit the cache")

	err = svc.MarkPaid(ctx, upstream.LedgerDaily, upstream.EntityDriver, upstream.MarkPaidRequest{Key: "2024-04-01_D1", EntityID: "D1"})
	require.NoError(t, err)

	_, err = svc.Rows(ctx, upstream.LedgerDaily, upstream.EntityDriver, "")
	require.NoError(t, err)
	require.Equal(t, int64(2), fake.listCalls.Load(), "mark-paid must invalidate the cache")
}

func TestMarkPaidOptimisticNoRollback(t *testing.T) {
	fake := newDriverFake()
	fake.markPaidErr = errors.New("ledger write refused")
	svc, marks := newTestService(t, fake, nil, Policy{OptimisticNoRollback: true})
	ctx := context.Background()

	req := upstream.MarkPaidRequest{Key: "2024-04-01_D1", Date: "2024-04-01", EntityID: "D1", Amount: 400}
	require.NoError(t, svc.MarkPaid(ctx, upstream.LedgerDaily, upstream.EntityDriver, req))
	require.Equal(t, int64(1), fake.markPaidCalls.Load())

	// The fallback mark survives the upstream failure...
	keys, err := marks.Keys(ctx, upstream.EntityDriver, "D1")
	require.NoError(t, err)
	require.True(t, keys["2024-04-01_D1"])

	// ...and the next build reports the row Paid without server confirmation.
	result, err := svc.Rows(ctx, upstream.LedgerDaily, upstream.EntityDriver, "")
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	require.Equal(t, StatusPaid, result.Rows[0].Status)
}

func TestMarkPaidStrictPolicySurfacesError(t *testing.T) {
	fake := newDriverFake()
	fake.markPaidErr = errors.New("ledger write refused")
	svc, marks := newTestService(t, fake, nil, Policy{OptimisticNoRollback: false})
	ctx := context.Background()

	req := upstream.MarkPaidRequest{Key: "2024-04-01_D1", EntityID: "D1"}
	require.Error(t, svc.MarkPaid(ctx, upstream.LedgerDaily, upstream.EntityDriver, req))

	// Even the strict policy keeps the fallback mark: it records what the
	// operator confirmed, not what the server accepted.
	keys, err := marks.Keys(ctx, upstream.EntityDriver, "D1")
	require.NoError(t, err)
	require.True(t, keys["2024-04-01_D1"])
}

func TestMarkPaidRequiresKey(t *testing.T) {
	svc, _ := newTestService(t, newDriverFake(), nil, Policy{OptimisticNoRollback: true})
	err := svc.MarkPaid(context.Background(), upstream.LedgerDaily, upstream.EntityDriver, upstream.MarkPaidRequest{})
	require.Error(t, err)
}

func TestRowsAppliesPresenceFilter(t *testing.T) {
	fake := newDriverFake()
	fake.orders = append(fake.orders, upstream.Order{ID: "O2", Date: "2024-04-02"})
	fake.assignments["O2"] = []upstream.Assignment{
		{OrderID: "O2", Date: "2024-04-02", EntityRef: "Ravi Kumar", Wage: 500},
	}
	presence := presenceFunc(func(ctx context.Context, typ upstream.EntityType, entityID string) (map[string]bool, bool, error) {
		return map[string]bool{"2024-04-01_D1": true}, true, nil
	})
	svc, _ := newTestService(t, fake, presence, Policy{OptimisticNoRollback: true})

	result, err := svc.Rows(context.Background(), upstream.LedgerDaily, upstream.EntityDriver, "")
	require.NoError(t, err)
	require.True(t, result.AttendanceFiltered)
	require.Len(t, result.Rows, 1)
	require.Equal(t, "2024-04-01", result.Rows[0].Date)
}

func TestRowsServerPaidRecordsApply(t *testing.T) {
	fake := newDriverFake()
	fake.paid = []upstream.PaidRecord{{Key: "2024-04-01_D1", Date: "2024-04-01", EntityID: "D1"}}
	svc, _ := newTestService(t, fake, nil, Policy{OptimisticNoRollback: true})

	result, err := svc.Rows(context.Background(), upstream.LedgerDaily, upstream.EntityDriver, "")
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	require.Equal(t, StatusPaid, result.Rows[0].Status)
}
