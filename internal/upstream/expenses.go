package upstream

import "context"

func (c *Client) listExpenses(ctx context.Context, path string) ([]Expense, error) {
	var raw []record
	if err := c.get(ctx, path, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]Expense, 0, len(raw))
	for _, r := range raw {
		if e, ok := normalizeExpense(r); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListFuelExpenses fetches dated fuel purchases referencing a driver.
func (c *Client) ListFuelExpenses(ctx context.Context) ([]Expense, error) {
	return c.listExpenses(ctx, "/fuel-expense/list")
}

// ListAdvances fetches salary advances.
func (c *Client) ListAdvances(ctx context.Context) ([]Expense, error) {
	return c.listExpenses(ctx, "/advance/list")
}

// ListExcessKM fetches odometer records with optional manual overrides.
func (c *Client) ListExcessKM(ctx context.Context) ([]ExcessKM, error) {
	var raw []record
	if err := c.get(ctx, "/excess-km/list", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]ExcessKM, 0, len(raw))
	for _, r := range raw {
		if e, ok := normalizeExcessKM(r); ok {
			out = append(out, e)
		}
	}
	return out, nil
}
