package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"checkinBoard/internal/model"
)

func (s *service) ListAttendees(ctx context.Context) ([]model.Attendee, error) {
	return s.repo.GetAllAttendees(ctx)
}

func (s *service) GetAttendee(ctx context.Context, id string) (*model.Attendee, error) {
	return s.repo.GetAttendeeByID(ctx, id)
}

func (s *service) GetAttendeeByEmail(ctx context.Context, email string) (*model.Attendee, error) {
	return s.repo.GetAttendeeByEmail(ctx, email)
}

// GetOrCreateAttendee never renames an existing attendee.
func (s *service) GetOrCreateAttendee(ctx context.Context, email, fullName string) (*model.Attendee, error) {
	return s.repo.GetOrCreateAttendee(ctx, email, fullName)
}

const csvDateLayout = "2006-01-02"

var csvHeader = []string{"Name", "Email", "Events Attended", "Total Points", "Joined Date"}

func (s *service) ExportAttendeesCSV(ctx context.Context, w io.Writer) (string, error) {
	attendees, err := s.repo.GetAllAttendees(ctx)
	if err != nil {
		return "", err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for _, a := range attendees {
		if err := cw.Write([]string{
			a.FullName,
			a.Email,
			strconv.Itoa(a.EventsAttended),
			strconv.Itoa(a.TotalPoints),
			a.CreatedAt.Format(csvDateLayout),
		}); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return fmt.Sprintf("attendees-%s.csv", s.clk.Now().Format(csvDateLayout)), nil
}
