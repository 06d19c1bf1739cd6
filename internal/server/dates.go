package server

import (
	"strings"
	"time"
)

// dateOnly marshals time values as YYYY-MM-DD, the diary's wire format
// for calendar dates.
type dateOnly struct {
	time.Time
}

func (d dateOnly) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

func (d *dateOnly) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		return nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}
