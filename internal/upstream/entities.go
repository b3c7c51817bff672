package upstream

import (
	"context"
	"fmt"
)

var entityPaths = map[EntityType]string{
	EntityFarmer:     "/farmer/list",
	EntitySupplier:   "/supplier/list",
	EntityThirdParty: "/third-party/list",
	EntityLabour:     "/labour/list",
	EntityDriver:     "/driver/list",
}

// ListEntities fetches the authoritative party list for one ledger type.
func (c *Client) ListEntities(ctx context.Context, typ EntityType) ([]Entity, error) {
	path, ok := entityPaths[typ]
	if !ok {
		return nil, fmt.Errorf("upstream: unknown entity type %q", typ)
	}
	var raw []record
	if err := c.get(ctx, path, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]Entity, 0, len(raw))
	for _, r := range raw {
		if e, ok := normalizeEntity(r); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListRates fetches per-driver distance limits and unit prices.
func (c *Client) ListRates(ctx context.Context) ([]RateCard, error) {
	var raw []record
	if err := c.get(ctx, "/driver-rate/list", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]RateCard, 0, len(raw))
	for _, r := range raw {
		if rc, ok := normalizeRate(r); ok {
			out = append(out, rc)
		}
	}
	return out, nil
}
