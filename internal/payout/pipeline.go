package payout

import (
	"sort"

	"github.com/agrilink-erp/agrilink/internal/datekey"
	"github.com/agrilink-erp/agrilink/internal/upstream"
)

type accumulator struct {
	date       string
	entityID   string
	entityName string
	base       float64
	fuel       float64
	advance    float64
	excess     float64
}

// BuildRows folds the fetched collections into one row per (date, entity)
// key. Pure function of its inputs: per-key amounts accumulate by addition,
// so the outcome is independent of input ordering. Records whose entity
// reference cannot be resolved are skipped and counted.
func BuildRows(src Sources) Result {
	resolve := newResolver(src.Entities)
	rates := make(map[string]upstream.RateCard, len(src.Rates))
	for _, rc := range src.Rates {
		rates[rc.EntityID] = rc
	}

	acc := make(map[string]*accumulator)
	var unresolved int

	at := func(date string, e upstream.Entity) *accumulator {
		key := datekey.Join(date, e.ID)
		a, ok := acc[key]
		if !ok {
			a = &accumulator{date: date, entityID: e.ID, entityName: e.Name}
			acc[key] = a
		}
		return a
	}

	for _, asg := range src.Assignments {
		e, ok := resolve.resolve(asg.EntityRef)
		if !ok {
			unresolved++
			continue
		}
		at(asg.Date, e).base += asg.Wage
	}

	for _, entry := range src.LedgerEntries {
		if entry.Date == "" || entry.EntityID == "" {
			continue
		}
		e, ok := resolve.resolve(entry.EntityID)
		if !ok {
			// Ledger entries reference entities by id; an unknown id still
			// yields a row so the ledger total is not undercounted.
			e = upstream.Entity{ID: entry.EntityID}
		}
		at(entry.Date, e).base += entry.Amount
	}

	for _, exp := range src.Fuel {
		e, ok := resolve.resolve(exp.EntityRef)
		if !ok {
			unresolved++
			continue
		}
		at(exp.Date, e).fuel += exp.Amount
	}

	for _, adv := range src.Advances {
		e, ok := resolve.resolve(adv.EntityRef)
		if !ok {
			unresolved++
			continue
		}
		at(adv.Date, e).advance += adv.Amount
	}

	for _, km := range src.ExcessKM {
		e, ok := resolve.resolve(km.EntityRef)
		if !ok {
			unresolved++
			continue
		}
		at(km.Date, e).excess += ExcessCost(km, rates[e.ID])
	}

	filtered := src.HasAttendance
	rows := make([]Row, 0, len(acc))
	for key, a := range acc {
		if filtered && !src.Presence[key] && !src.Presence[a.date] {
			continue
		}
		row := Row{
			Key:        key,
			Date:       a.date,
			EntityID:   a.entityID,
			EntityName: a.entityName,
			BaseAmount: a.base,
			Status:     StatusPending,
		}
		if a.fuel != 0 {
			row.Deductions = append(row.Deductions, a.fuel)
		}
		if a.advance != 0 {
			row.Deductions = append(row.Deductions, a.advance)
		}
		if a.excess != 0 {
			row.Additions = append(row.Additions, a.excess)
		}
		row.TotalPayout = row.Total()
		rows = append(rows, row)
	}

	// Canonical YYYY-MM-DD compares lexicographically, so a plain string
	// sort gives newest-first ordering.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date > rows[j].Date
		}
		return rows[i].Key < rows[j].Key
	})

	return Result{Rows: rows, Unresolved: unresolved, AttendanceFiltered: filtered}
}
