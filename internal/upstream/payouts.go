package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Ledger distinguishes the periodic payout ledger from the per-day one.
type Ledger string

// Ledgers exposed by the office API.
const (
	LedgerPeriodic Ledger = "payout"
	LedgerDaily    Ledger = "daily-payouts"
)

// DefaultLedger maps an entity type to the ledger its payouts normally live
// in. Drivers and labourers are settled per day, everyone else periodically.
func DefaultLedger(t EntityType) Ledger {
	if t == EntityDriver || t == EntityLabour {
		return LedgerDaily
	}
	return LedgerPeriodic
}

func (l Ledger) basePath() (string, error) {
	switch l {
	case LedgerPeriodic:
		return "/payout", nil
	case LedgerDaily:
		return "/daily-payouts", nil
	}
	return "", fmt.Errorf("upstream: unknown ledger %q", l)
}

// ListPayouts fetches the raw payout ledger entries, optionally filtered by
// entity.
func (c *Client) ListPayouts(ctx context.Context, ledger Ledger, typ EntityType, entityID string) ([]PaidRecord, error) {
	base, err := ledger.basePath()
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("type", string(typ))
	if entityID != "" {
		q.Set("entity_id", entityID)
	}
	var raw []record
	if err := c.get(ctx, base+"/list", q, &raw); err != nil {
		return nil, err
	}
	return normalizePaidList(raw), nil
}

// PaidRecords fetches the server-confirmed paid marks for one ledger type.
func (c *Client) PaidRecords(ctx context.Context, ledger Ledger, typ EntityType) ([]PaidRecord, error) {
	base, err := ledger.basePath()
	if err != nil {
		return nil, err
	}
	var raw []record
	if err := c.get(ctx, base+"/"+string(typ)+"/paid", nil, &raw); err != nil {
		return nil, err
	}
	return normalizePaidList(raw), nil
}

// MarkPaidRequest confirms one payout row as paid.
type MarkPaidRequest struct {
	Key      string  `json:"key"`
	Date     string  `json:"date"`
	EntityID string  `json:"entity_id"`
	Amount   float64 `json:"amount"`
}

// MarkPaid records a payout confirmation on the server ledger.
func (c *Client) MarkPaid(ctx context.Context, ledger Ledger, typ EntityType, req MarkPaidRequest) error {
	base, err := ledger.basePath()
	if err != nil {
		return err
	}
	return c.send(ctx, http.MethodPost, base+"/"+string(typ)+"/mark-paid", req, nil)
}

func normalizePaidList(raw []record) []PaidRecord {
	out := make([]PaidRecord, 0, len(raw))
	for _, r := range raw {
		if p, ok := normalizePaid(r); ok {
			out = append(out, p)
		}
	}
	return out
}
