package service

import (
	"context"
	"fmt"
	"strings"

	"checkinBoard/internal/dto"
	"checkinBoard/internal/model"
	"checkinBoard/pkg/validator"
)

func (s *service) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.repo.GetAllEvents(ctx)
}

func (s *service) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return s.repo.GetEventByID(ctx, id)
}

func (s *service) CreateEvent(ctx context.Context, req dto.CreateEventRequest) (*model.Event, error) {
	if verr := validator.Validate(ctx, req); verr != nil {
		return nil, validationError(verr.Error())
	}
	date, err := validator.ParseTimestamp(req.Date)
	if err != nil {
		return nil, validationError(validator.ErrInvalidTimestamp + ": date")
	}

	event := &model.Event{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Date:        date,
		Location:    req.Location,
		PointsValue: int(req.PointsValue),
		CreatedAt:   s.clk.Now(),
	}
	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.log.Info().Str("event_id", event.ID).Int("points_value", event.PointsValue).Msg("event created successfully")
	return event, nil
}

func (s *service) UpdateEvent(ctx context.Context, id string, req dto.UpdateEventRequest) (*model.Event, error) {
	var patch model.EventPatch
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, validationError(validator.ErrFieldBlank + ": name")
		}
		patch.Name = &name
	}
	if req.Date != nil {
		date, err := validator.ParseTimestamp(*req.Date)
		if err != nil {
			return nil, validationError(validator.ErrInvalidTimestamp + ": date")
		}
		patch.Date = &date
	}
	if req.PointsValue != nil {
		points := int(*req.PointsValue)
		if points <= 0 {
			return nil, validationError(validator.ErrNotPositive + ": pointsValue")
		}
		patch.PointsValue = &points
	}
	patch.Description = req.Description
	patch.Location = req.Location

	event, err := s.repo.UpdateEventTx(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("event_id", id).Msg("event updated")
	return event, nil
}

func (s *service) DeleteEvent(ctx context.Context, id string) error {
	if err := s.repo.DeleteEventTx(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("event_id", id).Msg("event deleted with its attendance records")
	return nil
}
