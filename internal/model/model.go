package model

import "time"

type Event struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Date        time.Time `db:"date" json:"date"`
	Location    string    `db:"location" json:"location"`
	PointsValue int       `db:"points_value" json:"pointsValue"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// EventPatch carries the fields of a partial event update. Nil fields keep
// their stored value.
type EventPatch struct {
	Name        *string
	Description *string
	Date        *time.Time
	Location    *string
	PointsValue *int
}

// Apply merges the patch into e.
func (p EventPatch) Apply(e *Event) {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.PointsValue != nil {
		e.PointsValue = *p.PointsValue
	}
}

type Attendee struct {
	ID             string    `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	FullName       string    `db:"full_name" json:"fullName"`
	TotalPoints    int       `db:"total_points" json:"totalPoints"`
	EventsAttended int       `db:"events_attended" json:"eventsAttended"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

type AttendanceRecord struct {
	ID            string    `db:"id" json:"id"`
	EventID       string    `db:"event_id" json:"eventId"`
	AttendeeID    string    `db:"attendee_id" json:"attendeeId"`
	CheckedInAt   time.Time `db:"checked_in_at" json:"checkedInAt"`
	PointsAwarded int       `db:"points_awarded" json:"pointsAwarded"`
}

// CheckIn is the input of a ledger write.
type CheckIn struct {
	EventID  string
	Email    string
	FullName string
	At       time.Time
}

// CheckInResult is what a successful ledger write produced.
type CheckInResult struct {
	Record   AttendanceRecord
	Attendee Attendee
	Event    Event
}

type SyncSettings struct {
	APIKey      string `db:"api_key" json:"apiKey"`
	DatabaseID  string `db:"database_id" json:"databaseId"`
	IsConnected bool   `db:"is_connected" json:"isConnected"`
}

type Stats struct {
	TotalEvents        int `json:"totalEvents"`
	TotalAttendees     int `json:"totalAttendees"`
	TotalCheckIns      int `json:"totalCheckIns"`
	TotalPointsAwarded int `json:"totalPointsAwarded"`
}
