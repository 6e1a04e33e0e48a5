package models

import "time"

const DayLayout = "2006-01-02"

// UsageRecord is the contact count of one identity on one calendar day.
type UsageRecord struct {
	Identity string `json:"identity"`
	Day      string `json:"day"`
	Count    int    `json:"count"`
}

type Outcome string

const (
	Allowed Outcome = "allowed"
	Denied  Outcome = "denied"
	Flagged Outcome = "flagged"
)

const (
	ReasonDailyLimit = "daily limit reached"
	ReasonSuspicious = "suspicious activity"
)

type Decision struct {
	Outcome   Outcome   `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
	Count     int       `json:"count"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

func (d Decision) Allowed() bool {
	return d.Outcome == Allowed
}
