package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"checkinBoard/internal/model"
)

// Points accepts a JSON number or a numeric string and truncates it to an
// integer.
type Points int

func (p *Points) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*p = 0
			return nil
		}
		b = []byte(s)
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("pointsValue must be a number")
	}
	*p = Points(int(f))
	return nil
}

type CreateEventRequest struct {
	Name        string `json:"name" validate:"required,notblank"`
	Description string `json:"description"`
	Date        string `json:"date" validate:"required,timestamp"`
	Location    string `json:"location"`
	PointsValue Points `json:"pointsValue" validate:"required,positive"`
}

// UpdateEventRequest is a shallow patch; absent fields stay untouched.
type UpdateEventRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	Location    *string `json:"location"`
	PointsValue *Points `json:"pointsValue"`
}

type CheckInRequest struct {
	EventID  string `json:"eventId" validate:"required"`
	Email    string `json:"email" validate:"required,notblank"`
	FullName string `json:"fullName" validate:"required,notblank,max=255"`
}

type CheckInResponse struct {
	Success       bool   `json:"success"`
	PointsAwarded int    `json:"pointsAwarded"`
	TotalPoints   int    `json:"totalPoints"`
	Message       string `json:"message"`
}

type AttendanceResponse struct {
	model.AttendanceRecord
	EventName     string `json:"eventName"`
	AttendeeName  string `json:"attendeeName"`
	AttendeeEmail string `json:"attendeeEmail"`
}

type SaveSyncSettingsRequest struct {
	APIKey     string `json:"apiKey" validate:"required,notblank"`
	DatabaseID string `json:"databaseId" validate:"required,notblank"`
}

type SyncSettingsResponse struct {
	IsConnected bool   `json:"isConnected"`
	DatabaseID  string `json:"databaseId,omitempty"`
	HasAPIKey   *bool  `json:"hasApiKey,omitempty"`
}

type TestSyncResponse struct {
	Success      bool   `json:"success"`
	Name         string `json:"name"`
	DatabaseName string `json:"databaseName"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Success   bool       `json:"success"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// SyncTask is the queue message forwarded to the external sync worker.
type SyncTask struct {
	RecordID      string    `json:"record_id"`
	EventID       string    `json:"event_id"`
	EventName     string    `json:"event_name"`
	AttendeeName  string    `json:"attendee_name"`
	AttendeeEmail string    `json:"attendee_email"`
	PointsAwarded int       `json:"points_awarded"`
	CheckedInAt   time.Time `json:"checked_in_at"`
}
