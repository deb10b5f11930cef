package domain

import "time"

// LookupRecord is one successful lookup served by the backend.
type LookupRecord struct {
	ID          int64     `json:"id"`
	Query       string    `json:"query"`
	UserID      int64     `json:"userId"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	LookedUpAt  time.Time `json:"lookedUpAt"`
}
