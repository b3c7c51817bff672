package payout

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agrilink-erp/agrilink/internal/upstream"
)

func driverEntities() []upstream.Entity {
	return []upstream.Entity{
		{ID: "D1", Name: "Ravi Kumar", Code: "KA-01"},
		{ID: "D2", Name: "Suresh", Code: "KA-02"},
	}
}

func TestBuildRowsEndToEnd(t *testing.T) {
	src := Sources{
		Type:     upstream.EntityDriver,
		Entities: driverEntities(),
		Assignments: []upstream.Assignment{
			{OrderID: "O1", Date: "2024-04-01", EntityRef: "Ravi Kumar", Wage: 500},
		},
		Fuel: []upstream.Expense{
			{Date: "2024-04-01", EntityRef: "D1", Amount: 100},
		},
	}

	result := BuildRows(src)
	require.Len(t, result.Rows, 1)
	row := result.Rows[0]
	require.Equal(t, "2024-04-01_D1", row.Key)
	require.Equal(t, 500.0, row.BaseAmount)
	require.Equal(t, 400.0, row.TotalPayout)
	require.Equal(t, StatusPending, row.Status)
	require.Zero(t, result.Unresolved)
	require.False(t, result.AttendanceFiltered)
}

func TestBuildRowsOrderIndependent(t *testing.T) {
	assignments := []upstream.Assignment{
		{Date: "2024-04-01", EntityRef: "D1", Wage: 500},
		{Date: "2024-04-01", EntityRef: "Ravi Kumar", Wage: 250},
		{Date: "2024-04-02", EntityRef: "D1", Wage: 300},
		{Date: "2024-04-01", EntityRef: "Suresh", Wage: 700},
	}
	fuel := []upstream.Expense{
		{Date: "2024-04-01", EntityRef: "D1", Amount: 60},
		{Date: "2024-04-01", EntityRef: "D1", Amount: 40},
		{Date: "2024-04-02", EntityRef: "D1", Amount: 10},
	}

	baseline := BuildRows(Sources{Type: upstream.EntityDriver, Entities: driverEntities(), Assignments: assignments, Fuel: fuel})

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 25; i++ {
		shuffledA := append([]upstream.Assignment(nil), assignments...)
		rng.Shuffle(len(shuffledA), func(x, y int) { shuffledA[x], shuffledA[y] = shuffledA[y], shuffledA[x] })
		shuffledF := append([]upstream.Expense(nil), fuel...)
		rng.Shuffle(len(shuffledF), func(x, y int) { shuffledF[x], shuffledF[y] = shuffledF[y], shuffledF[x] })

		got := BuildRows(Sources{Type: upstream.EntityDriver, Entities: driverEntities(), Assignments: shuffledA, Fuel: shuffledF})
		require.Equal(t, baseline, got, "permutation %d", i)
	}

	totals := map[string]float64{}
	for _, row := range baseline.Rows {
		totals[row.Key] = row.TotalPayout
	}
	require.Equal(t, 650.0, totals["2024-04-01_D1"]) // 500+250-60-40
	require.Equal(t, 290.0, totals["2024-04-02_D1"]) // 300-10
	require.Equal(t, 700.0, totals["2024-04-01_D2"])
}

func TestBuildRowsSortedNewestFirst(t *testing.T) {
	result := BuildRows(Sources{
		Type:     upstream.EntityDriver,
		Entities: driverEntities(),
		Assignments: []upstream.Assignment{
			{Date: "2024-03-30", EntityRef: "D1", Wage: 1},
			{Date: "2024-04-02", EntityRef: "D1", Wage: 1},
			{Date: "2024-04-01", EntityRef: "D1", Wage: 1},
		},
	})
	require.Len(t, result.Rows, 3)
	require.Equal(t, "2024-04-02", result.Rows[0].Date)
	require.Equal(t, "2024-04-01", result.Rows[1].Date)
	require.Equal(t, "2024-03-30", result.Rows[2].Date)
}

func TestBuildRowsUnresolvedSkippedAndCounted(t *testing.T) {
	result := BuildRows(Sources{
		Type:     upstream.EntityDriver,
		Entities: driverEntities(),
		Assignments: []upstream.Assignment{
			{Date: "2024-04-01", EntityRef: "D1", Wage: 500},
			{Date: "2024-04-01", EntityRef: "somebody unknown", Wage: 999},
		},
		Fuel: []upstream.Expense{
			{Date: "2024-04-01", EntityRef: "another stranger", Amount: 50},
		},
	})
	require.Len(t, result.Rows, 1)
	require.Equal(t, 500.0, result.Rows[0].TotalPayout)
	require.Equal(t, 2, result.Unresolved)
}

func TestBuildRowsAttendanceFilter(t *testing.T) {
	src := Sources{
		Type:     upstream.EntityLabour,
		Entities: []upstream.Entity{{ID: "L1", Name: "Meena"}},
		Assignments: []upstream.Assignment{
			{Date: "2024-04-01", EntityRef: "L1", Wage: 350},
			{Date: "2024-04-02", EntityRef: "L1", Wage: 350},
		},
	}

	// Attendance known: only confirmed days survive.
	src.HasAttendance = true
	src.Presence = map[string]bool{"2024-04-01_L1": true}
	result := BuildRows(src)
	require.True(t, result.AttendanceFiltered)
	require.Len(t, result.Rows, 1)
	require.Equal(t, "2024-04-01", result.Rows[0].Date)

	// No attendance data at all: the filter disables itself.
	src.HasAttendance = false
	src.Presence = nil
	result = BuildRows(src)
	require.False(t, result.AttendanceFiltered)
	require.Len(t, result.Rows, 2)
}

func TestBuildRowsPresenceMatchesPlainDateKeys(t *testing.T) {
	result := BuildRows(Sources{
		Type:          upstream.EntityLabour,
		Entities:      []upstream.Entity{{ID: "L1", Name: "Meena"}},
		Assignments:   []upstream.Assignment{{Date: "2024-04-01", EntityRef: "L1", Wage: 350}},
		HasAttendance: true,
		Presence:      map[string]bool{"2024-04-01": true},
	})
	require.Len(t, result.Rows, 1)
}

func TestBuildRowsExcessAddsAndRatesApply(t *testing.T) {
	result := BuildRows(Sources{
		Type:     upstream.EntityDriver,
		Entities: driverEntities(),
		Rates:    []upstream.RateCard{{EntityID: "D1", KMLimit: 50, UnitPrice: 90}},
		Assignments: []upstream.Assignment{
			{Date: "2024-04-01", EntityRef: "D1", Wage: 500},
		},
		ExcessKM: []upstream.ExcessKM{
			{Date: "2024-04-01", EntityRef: "D1", StartKM: 100, EndKM: 180},
		},
	})
	require.Len(t, result.Rows, 1)
	// travelled 80, limit 50 => 30 excess at 90 = 2700 added.
	require.Equal(t, 3200.0, result.Rows[0].TotalPayout)
}

func TestBuildRowsLedgerEntriesMaterialize(t *testing.T) {
	result := BuildRows(Sources{
		Type:     upstream.EntityFarmer,
		Entities: []upstream.Entity{{ID: "F1", Name: "Gowda"}},
		LedgerEntries: []upstream.PaidRecord{
			{Key: "2024-04-01_F1", Date: "2024-04-01", EntityID: "F1", Amount: 1500},
			{Key: "2024-04-01_F9", Date: "2024-04-01", EntityID: "F9", Amount: 200},
		},
	})
	require.Len(t, result.Rows, 2)
	totals := map[string]float64{}
	for _, row := range result.Rows {
		totals[row.Key] = row.TotalPayout
	}
	// Unknown ledger ids still materialize; the ledger is id-keyed.
	require.Equal(t, 1500.0, totals["2024-04-01_F1"])
	require.Equal(t, 200.0, totals["2024-04-01_F9"])
	require.Zero(t, result.Unresolved)
}
