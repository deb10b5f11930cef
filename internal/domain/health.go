package domain

// ComponentStatus is the live state of an optional backing store.
type ComponentStatus string

const (
	StatusDisabled ComponentStatus = "disabled"
	StatusUp       ComponentStatus = "up"
	StatusDown     ComponentStatus = "down"
)

// Health reports the backing stores a profile backend was built with.
type Health struct {
	Cache   ComponentStatus `json:"cache"`
	History ComponentStatus `json:"history"`
}

// Healthy is false when any configured store is unreachable. Disabled stores
// never count against it.
func (h Health) Healthy() bool {
	return h.Cache != StatusDown && h.History != StatusDown
}
