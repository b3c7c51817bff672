package upstream

import (
	"context"
	"fmt"
	"net/url"
)

// ListOrders fetches all order headers.
func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	var raw []record
	if err := c.get(ctx, "/order/list", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]Order, 0, len(raw))
	for _, r := range raw {
		if o, ok := normalizeOrder(r); ok {
			out = append(out, o)
		}
	}
	return out, nil
}

// OrderAssignments fetches the wage-bearing assignments of a single order.
func (c *Client) OrderAssignments(ctx context.Context, order Order) ([]Assignment, error) {
	if order.ID == "" {
		return nil, fmt.Errorf("upstream: order id required")
	}
	var raw []record
	if err := c.get(ctx, "/order/"+url.PathEscape(order.ID)+"/assignments", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]Assignment, 0, len(raw))
	for _, r := range raw {
		if a, ok := normalizeAssignment(order.ID, order.Date, r); ok {
			out = append(out, a)
		}
	}
	return out, nil
}
