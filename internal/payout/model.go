// Package payout derives per-day, per-entity payout rows from independently
// fetched office API collections and reconciles their paid status against
// the durable fallback mark store.
package payout

import (
	"github.com/agrilink-erp/agrilink/internal/upstream"
)

// Status is the reconciled payment state of a row.
type Status string

// Row payment states.
const (
	StatusPaid    Status = "Paid"
	StatusPending Status = "Pending"
)

// Row is one computed payout line. Rows are rebuilt from source collections
// on every request; only the Key survives across builds, so it must be
// reproducible from date and entity id alone.
type Row struct {
	Key         string    `json:"key"`
	Date        string    `json:"date"`
	EntityID    string    `json:"entity_id"`
	EntityName  string    `json:"entity_name"`
	BaseAmount  float64   `json:"base_amount"`
	Deductions  []float64 `json:"deductions,omitempty"`
	Additions   []float64 `json:"additions,omitempty"`
	TotalPayout float64   `json:"total_payout"`
	Status      Status    `json:"status"`
}

// Sources holds everything one build consumes. Each collection may be empty
// when its fetch degraded; the pipeline treats that as a zero contribution.
type Sources struct {
	Type          upstream.EntityType
	Entities      []upstream.Entity
	Assignments   []upstream.Assignment
	LedgerEntries []upstream.PaidRecord
	Rates         []upstream.RateCard
	Fuel          []upstream.Expense
	Advances      []upstream.Expense
	ExcessKM      []upstream.ExcessKM

	// Presence keys (date or date_entity) with confirmed attendance.
	// HasAttendance distinguishes "nobody was present" from "no attendance
	// data exists at all"; the filter only applies in the former case.
	Presence      map[string]bool
	HasAttendance bool
}

// Result is the outcome of one pipeline build.
type Result struct {
	Rows []Row `json:"rows"`
	// Unresolved counts wage-bearing records skipped because their entity
	// reference matched nothing.
	Unresolved int `json:"unresolved"`
	// AttendanceFiltered reports whether the presence filter was applied.
	AttendanceFiltered bool `json:"attendance_filtered"`
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// Total recomputes base - deductions + additions. Never stored as
// authoritative; every build derives it fresh.
func (r Row) Total() float64 {
	return r.BaseAmount - sum(r.Deductions) + sum(r.Additions)
}
