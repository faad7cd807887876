package dto

import "time"

type EventSearchRequest struct {
	Action    string // Event action label, e.g. "Process Create"
	Code      string // Sysmon event code; takes precedence over Action
	StartTime time.Time
	EndTime   time.Time
	ProcessID string
	User      string
	AgentID   string // Substring match
	Offset    int
	Limit     int
}

// Event is one stored record. Hashes, when present, is split on commas.
type Event struct {
	Key    string         `json:"key"`
	Fields map[string]any `json:"fields"`
	Hashes []string       `json:"hashes,omitempty"`
}

type EventSearchResponse struct {
	Action     string  `json:"eventAction"`
	Events     []Event `json:"events"`
	TotalCount int     `json:"totalCount"`
	Offset     int     `json:"offset"`
	Limit      int     `json:"limit"`
}
