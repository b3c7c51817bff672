package upstream

import (
	"encoding/json"
	"strings"

	"github.com/agrilink-erp/agrilink/internal/datekey"
)

// EntityType identifies which worker/vendor ledger a payout belongs to.
type EntityType string

// Ledger entity types recognised by the office API.
const (
	EntityFarmer     EntityType = "farmer"
	EntitySupplier   EntityType = "supplier"
	EntityThirdParty EntityType = "third_party"
	EntityLabour     EntityType = "labour"
	EntityDriver     EntityType = "driver"
)

// EntityTypes lists every payable entity kind in presentation order.
var EntityTypes = []EntityType{EntityFarmer, EntitySupplier, EntityThirdParty, EntityLabour, EntityDriver}

// Valid reports whether the type names a known ledger.
func (t EntityType) Valid() bool {
	switch t {
	case EntityFarmer, EntitySupplier, EntityThirdParty, EntityLabour, EntityDriver:
		return true
	}
	return false
}

// Entity is a payable party: driver, labourer, farmer, supplier or
// third-party vendor.
type Entity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Code  string `json:"code,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Order is a logistics order header.
type Order struct {
	ID     string
	Date   string
	Farmer string
}

// Assignment is one wage-bearing work assignment inside an order. EntityRef
// holds whatever the office staff typed: an id, a plain name, or the
// compound "Name - CODE" form.
type Assignment struct {
	OrderID   string
	Date      string
	EntityRef string
	Wage      float64
	Stages    []Stage
}

// Stage is one step of the serialized assignment stage blob. Display only.
type Stage struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	At     string `json:"at,omitempty"`
}

// RateCard carries per-driver distance limits and unit prices.
type RateCard struct {
	EntityID  string
	KMLimit   float64
	UnitPrice float64
}

// Expense is a dated, entity-referenced amount: fuel, advance or similar.
type Expense struct {
	Date      string
	EntityRef string
	Amount    float64
}

// ExcessKM is one trip's odometer record plus the optional manual override.
type ExcessKM struct {
	Date         string
	EntityRef    string
	StartKM      float64
	EndKM        float64
	ManualAmount float64
}

// PaidRecord is a server-confirmed payout mark.
type PaidRecord struct {
	Key      string
	Date     string
	EntityID string
	Amount   float64
}

// AttendanceRecord is one labour attendance row.
type AttendanceRecord struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	EntityID string `json:"entity_id"`
	Status   string `json:"status"`
	CheckIn  string `json:"check_in,omitempty"`
	CheckOut string `json:"check_out,omitempty"`
}

// Present reports whether the record counts as a worked day.
func (a AttendanceRecord) Present() bool {
	switch strings.ToLower(a.Status) {
	case "present", "checked-in", "checked_in", "checked-out", "checked_out", "half-day", "half_day":
		return true
	}
	return false
}

// OverviewStats summarises one day of attendance.
type OverviewStats struct {
	Total   int `json:"total"`
	Present int `json:"present"`
	Absent  int `json:"absent"`
}

// Overview is the daily attendance overview payload.
type Overview struct {
	Labours []AttendanceRecord `json:"labours"`
	Stats   OverviewStats      `json:"stats"`
}

// Notification is an office console notification with its read-state flag
// already resolved from the upstream field variants.
type Notification struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
	Read      bool   `json:"read"`
}

func normalizeEntity(r record) (Entity, bool) {
	e := Entity{
		ID:    r.str("id", "_id", "entity_id"),
		Name:  r.str("name", "full_name", "fullName"),
		Code:  r.str("code", "entity_code", "vehicle_number"),
		Phone: r.str("phone", "mobile", "phone_number"),
	}
	if e.ID == "" {
		return Entity{}, false
	}
	return e, true
}

func normalizeOrder(r record) (Order, bool) {
	date, ok := datekey.Normalize(r["date"])
	if !ok {
		if date, ok = datekey.Normalize(r["order_date"]); !ok {
			if date, ok = datekey.Normalize(r["created_at"]); !ok {
				return Order{}, false
			}
		}
	}
	o := Order{
		ID:     r.str("id", "_id", "order_id"),
		Date:   date,
		Farmer: r.str("farmer", "farmer_name", "farmer_id"),
	}
	if o.ID == "" {
		return Order{}, false
	}
	return o, true
}

func normalizeAssignment(orderID, orderDate string, r record) (Assignment, bool) {
	date := orderDate
	if d, ok := datekey.Normalize(r["date"]); ok {
		date = d
	}
	if date == "" {
		return Assignment{}, false
	}
	a := Assignment{
		OrderID:   orderID,
		Date:      date,
		EntityRef: r.str("driver", "driver_name", "driver_id", "labour", "labour_name", "labour_id", "entity"),
		Wage:      r.num("wage", "amount", "daily_wage", "dailyWage"),
		Stages:    parseStages(r["stage_data"], r["stages"]),
	}
	if a.EntityRef == "" {
		return Assignment{}, false
	}
	return a, true
}

// parseStages decodes the server-serialized stage blob. Malformed payloads
// are treated as absent data.
func parseStages(values ...any) []Stage {
	for _, v := range values {
		switch val := v.(type) {
		case string:
			if val == "" {
				continue
			}
			var stages []Stage
			if err := json.Unmarshal([]byte(val), &stages); err == nil {
				return stages
			}
		case []any:
			raw, err := json.Marshal(val)
			if err != nil {
				continue
			}
			var stages []Stage
			if err := json.Unmarshal(raw, &stages); err == nil {
				return stages
			}
		}
	}
	return nil
}

func normalizeRate(r record) (RateCard, bool) {
	rc := RateCard{
		EntityID:  r.str("entity_id", "driver_id", "id"),
		KMLimit:   r.num("km_limit", "kmLimit", "limit"),
		UnitPrice: r.num("unit_price", "unitPrice", "per_km", "perKm", "rate"),
	}
	if rc.EntityID == "" {
		return RateCard{}, false
	}
	return rc, true
}

func normalizeExpense(r record) (Expense, bool) {
	date, ok := datekey.Normalize(r["date"])
	if !ok {
		return Expense{}, false
	}
	e := Expense{
		Date:      date,
		EntityRef: r.str("entity", "entity_id", "driver", "driver_id", "driver_name", "labour", "labour_id", "name"),
		Amount:    r.num("amount", "cost", "value"),
	}
	if e.EntityRef == "" {
		return Expense{}, false
	}
	return e, true
}

func normalizeExcessKM(r record) (ExcessKM, bool) {
	date, ok := datekey.Normalize(r["date"])
	if !ok {
		return ExcessKM{}, false
	}
	e := ExcessKM{
		Date:         date,
		EntityRef:    r.str("entity", "entity_id", "driver", "driver_id", "driver_name"),
		StartKM:      r.num("start_km", "startKm"),
		EndKM:        r.num("end_km", "endKm"),
		ManualAmount: r.num("manual_amount", "manualAmount", "excess_amount"),
	}
	if e.EntityRef == "" {
		return ExcessKM{}, false
	}
	return e, true
}

func normalizePaid(r record) (PaidRecord, bool) {
	p := PaidRecord{
		Key:      r.str("key", "payout_key"),
		EntityID: r.str("entity_id", "entityId", "driver_id", "labour_id"),
		Amount:   r.num("amount", "total", "total_payout"),
	}
	if d, ok := datekey.Normalize(r["date"]); ok {
		p.Date = d
	}
	if p.Key == "" {
		if p.Date == "" {
			return PaidRecord{}, false
		}
		if p.EntityID != "" {
			p.Key = datekey.Join(p.Date, p.EntityID)
		} else {
			p.Key = p.Date
		}
	}
	if p.Date == "" {
		p.Date, p.EntityID = datekey.Split(p.Key)
	}
	return p, true
}

func normalizeAttendance(r record) (AttendanceRecord, bool) {
	date, ok := datekey.Normalize(r["date"])
	if !ok {
		if date, ok = datekey.Normalize(r["attendance_date"]); !ok {
			return AttendanceRecord{}, false
		}
	}
	a := AttendanceRecord{
		ID:       r.str("id", "_id"),
		Date:     date,
		EntityID: r.str("entity_id", "labour_id", "labourId", "driver_id"),
		Status:   r.str("status", "attendance_status"),
		CheckIn:  r.str("check_in", "checkIn", "check_in_time"),
		CheckOut: r.str("check_out", "checkOut", "check_out_time"),
	}
	if a.Status == "" && r.boolish("present", "is_present") {
		a.Status = "present"
	}
	return a, true
}

func normalizeNotification(r record) (Notification, bool) {
	n := Notification{
		ID:        r.str("id", "_id"),
		Title:     r.str("title", "subject"),
		Body:      r.str("body", "message", "text"),
		CreatedAt: r.str("created_at", "createdAt"),
		Read:      r.boolish("is_read", "read", "status"),
	}
	if n.ID == "" {
		return Notification{}, false
	}
	return n, true
}
