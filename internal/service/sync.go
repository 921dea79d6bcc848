package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"checkinBoard/internal/dto"
	"checkinBoard/internal/model"
	"checkinBoard/internal/repo"
	"checkinBoard/pkg/validator"
)

const msgSyncFieldsRequired = "API key and database ID are required"

// GetSyncSettings never returns the API key itself.
func (s *service) GetSyncSettings(ctx context.Context) (dto.SyncSettingsResponse, error) {
	settings, err := s.repo.GetSyncSettings(ctx)
	if errors.Is(err, repo.ErrSyncSettingsNotFound) {
		return dto.SyncSettingsResponse{IsConnected: false}, nil
	}
	if err != nil {
		return dto.SyncSettingsResponse{}, err
	}

	hasKey := settings.APIKey != ""
	return dto.SyncSettingsResponse{
		IsConnected: settings.IsConnected,
		DatabaseID:  settings.DatabaseID,
		HasAPIKey:   &hasKey,
	}, nil
}

func (s *service) SaveSyncSettings(ctx context.Context, req dto.SaveSyncSettingsRequest) error {
	if validator.Validate(ctx, req) != nil {
		return validationError(msgSyncFieldsRequired)
	}
	err := s.repo.SaveSyncSettings(ctx, model.SyncSettings{
		APIKey:      strings.TrimSpace(req.APIKey),
		DatabaseID:  strings.TrimSpace(req.DatabaseID),
		IsConnected: true,
	})
	if err != nil {
		return fmt.Errorf("save sync settings: %w", err)
	}
	s.log.Info().Str("database_id", req.DatabaseID).Msg("external sync configured")
	return nil
}

func (s *service) ClearSyncSettings(ctx context.Context) error {
	if err := s.repo.ClearSyncSettings(ctx); err != nil {
		return fmt.Errorf("clear sync settings: %w", err)
	}
	s.log.Info().Msg("external sync disconnected")
	return nil
}

// TestSyncConnection returns the name of the target database.
func (s *service) TestSyncConnection(ctx context.Context, req dto.SaveSyncSettingsRequest) (string, error) {
	if validator.Validate(ctx, req) != nil {
		return "", validationError(msgSyncFieldsRequired)
	}
	if s.inspector == nil {
		return "", ErrSyncConnection
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.SyncTimeout)
	defer cancel()
	name, err := s.inspector.RetrieveDatabaseTitle(callCtx, strings.TrimSpace(req.APIKey), strings.TrimSpace(req.DatabaseID))
	if err != nil {
		s.log.Warn().Err(err).Str("database_id", req.DatabaseID).Msg("external sync connection test failed")
		return "", fmt.Errorf("%w: %v", ErrSyncConnection, err)
	}
	return name, nil
}
