package model

// EventType distinguishes the two punch directions.
type EventType string

const (
	ClockIn  EventType = "clock_in"
	ClockOut EventType = "clock_out"
)

// Valid reports whether t is one of the two enumerated punch types.
func (t EventType) Valid() bool {
	return t == ClockIn || t == ClockOut
}

// ClockEvent is one recorded punch. Address starts as a coordinate
// placeholder and is overwritten asynchronously once reverse geocoding
// completes; it may remain a placeholder if the lookup fails.
type ClockEvent struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Type      EventType `json:"type"`
	Timestamp Timestamp `json:"timestamp"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Address   string    `json:"address"`
	PONumber  string    `json:"po_number"`
}

// ClockEventWithUser is the admin listing row, a punch joined with its owner.
type ClockEventWithUser struct {
	ClockEvent
	UserEmail     string `json:"user_email"`
	UserFirstName string `json:"user_first_name"`
	UserLastName  string `json:"user_last_name"`
}
