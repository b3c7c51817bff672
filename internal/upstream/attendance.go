package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// OverviewQuery filters the daily attendance overview.
type OverviewQuery struct {
	Date       string
	Status     string
	Department string
	Search     string
}

// AttendanceOverview fetches one day's labour attendance overview.
func (c *Client) AttendanceOverview(ctx context.Context, q OverviewQuery) (Overview, error) {
	params := url.Values{}
	if q.Date != "" {
		params.Set("date", q.Date)
	}
	if q.Status != "" {
		params.Set("status", q.Status)
	}
	if q.Department != "" {
		params.Set("department", q.Department)
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	var payload struct {
		Labours []record      `json:"labours"`
		Stats   OverviewStats `json:"stats"`
	}
	if err := c.get(ctx, "/labour-attendance/overview", params, &payload); err != nil {
		return Overview{}, err
	}
	ov := Overview{Stats: payload.Stats}
	for _, r := range payload.Labours {
		if a, ok := normalizeAttendance(r); ok {
			ov.Labours = append(ov.Labours, a)
		}
	}
	return ov, nil
}

// ListAttendance fetches the attendance history for one entity.
func (c *Client) ListAttendance(ctx context.Context, entityID string) ([]AttendanceRecord, error) {
	q := url.Values{}
	if entityID != "" {
		q.Set("entity_id", entityID)
	}
	var raw []record
	if err := c.get(ctx, "/labour-attendance/list", q, &raw); err != nil {
		return nil, err
	}
	out := make([]AttendanceRecord, 0, len(raw))
	for _, r := range raw {
		if a, ok := normalizeAttendance(r); ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (c *Client) attendanceAction(ctx context.Context, method, id, action string) (AttendanceRecord, error) {
	if id == "" {
		return AttendanceRecord{}, fmt.Errorf("upstream: attendance id required")
	}
	var raw record
	err := c.send(ctx, method, "/labour-attendance/"+url.PathEscape(id)+"/"+action, nil, &raw)
	if err != nil {
		return AttendanceRecord{}, err
	}
	rec, _ := normalizeAttendance(raw)
	return rec, nil
}

// MarkPresent records a labourer as present for the day.
func (c *Client) MarkPresent(ctx context.Context, id string) (AttendanceRecord, error) {
	return c.attendanceAction(ctx, http.MethodPost, id, "mark-present")
}

// MarkAbsent records a labourer as absent for the day.
func (c *Client) MarkAbsent(ctx context.Context, id string) (AttendanceRecord, error) {
	return c.attendanceAction(ctx, http.MethodPost, id, "mark-absent")
}

// CheckIn sets the check-in time on an attendance record.
func (c *Client) CheckIn(ctx context.Context, id string) (AttendanceRecord, error) {
	return c.attendanceAction(ctx, http.MethodPatch, id, "check-in")
}

// CheckOut sets the check-out time on an attendance record.
func (c *Client) CheckOut(ctx context.Context, id string) (AttendanceRecord, error) {
	return c.attendanceAction(ctx, http.MethodPatch, id, "check-out")
}
