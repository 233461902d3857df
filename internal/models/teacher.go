package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Availability is a sparse day -> slot -> available map. Missing keys mean
// available; only an explicit false blocks a slot.
type Availability map[string]map[string]bool

// Blocks reports whether the teacher explicitly marked the slot unavailable.
func (a Availability) Blocks(day, slot string) bool {
	slots, ok := a[day]
	if !ok {
		return false
	}
	available, ok := slots[slot]
	return ok && !available
}

// Merge overlays the update onto a copy of the availability.
func (a Availability) Merge(update Availability) Availability {
	merged := make(Availability, len(a)+len(update))
	for day, slots := range a {
		merged[day] = make(map[string]bool, len(slots))
		for slot, ok := range slots {
			merged[day][slot] = ok
		}
	}
	for day, slots := range update {
		if merged[day] == nil {
			merged[day] = make(map[string]bool, len(slots))
		}
		for slot, ok := range slots {
			merged[day][slot] = ok
		}
	}
	return merged
}

// Value implements driver.Valuer for JSONB storage.
func (a Availability) Value() (driver.Value, error) {
	if a == nil {
		return []byte(`{}`), nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner for JSONB storage.
func (a *Availability) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*a = Availability{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported availability type %T", src)
	}
	if len(raw) == 0 {
		*a = Availability{}
		return nil
	}
	return json.Unmarshal(raw, a)
}

// Teacher represents an instructor record with scheduling eligibility fields.
type Teacher struct {
	ID             string        `db:"id" json:"id"`
	Name           string        `db:"name" json:"name"`
	Email          string        `db:"email" json:"email"`
	Department     string        `db:"department" json:"department"`
	TeachableYears pq.Int64Array `db:"teachable_years" json:"teachableYears"`
	Availability   Availability  `db:"availability" json:"availability"`
	CreatedAt      time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updatedAt"`
}

// CanTeachYear reports whether the teacher is cleared for the year; an empty list clears all years.
func (t Teacher) CanTeachYear(year int) bool {
	if len(t.TeachableYears) == 0 {
		return true
	}
	for _, y := range t.TeachableYears {
		if int(y) == year {
			return true
		}
	}
	return false
}
