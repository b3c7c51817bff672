package payout

// Reconcile assigns each row's status from the union of server-confirmed and
// fallback paid keys. The fallback set is a lower bound: it can promote a
// row to Paid but never demote one, so a key once paid stays paid for every
// later build regardless of which source still reports it. The second return
// value counts rows paid by the fallback set alone.
func Reconcile(rows []Row, serverPaid, fallback map[string]bool) ([]Row, int) {
	var fallbackOnly int
	out := make([]Row, len(rows))
	for i, row := range rows {
		switch {
		case serverPaid[row.Key]:
			row.Status = StatusPaid
		case fallback[row.Key]:
			row.Status = StatusPaid
			fallbackOnly++
		default:
			row.Status = StatusPending
		}
		out[i] = row
	}
	return out, fallbackOnly
}
