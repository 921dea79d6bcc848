package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/wb-go/wbf/ginext"

	"checkinBoard/internal/dto"
	"checkinBoard/internal/repo"
	"checkinBoard/internal/service"
	"checkinBoard/pkg/validator"
)

// fail maps a service error onto the HTTP error body.
func (r *Routers) fail(c *ginext.Context, err error, op string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		if strings.HasPrefix(verr.Message, validator.ErrFieldRequired) {
			dto.BadResponseError(c, dto.FieldMissing, dto.MsgMissingFields)
			return
		}
		dto.FieldIncorrectError(c, verr.Message)
	case errors.Is(err, repo.ErrEventNotFound):
		dto.EventNotFoundError(c)
	case errors.Is(err, repo.ErrDuplicateCheckIn):
		dto.DuplicateCheckInError(c)
	case errors.Is(err, service.ErrInvalidEmail):
		dto.InvalidEmailError(c, dto.MsgInvalidEmail)
	case errors.Is(err, service.ErrSyncConnection):
		dto.BadResponseError(c, dto.SyncFailed, "Failed to connect to Notion. Check your API key and database ID.")
	case errors.Is(err, service.ErrInvalidCredentials):
		dto.LoginFailedError(c)
	default:
		r.Log.Error().Err(err).Str("op", op).Msg("request failed")
		dto.InternalServerError(c)
	}
}

func (r *Routers) listEvents(c *ginext.Context) {
	events, err := r.Service.ListEvents(c.Request.Context())
	if err != nil {
		r.fail(c, err, "list events")
		return
	}
	dto.SuccessResponse(c, events)
}

func (r *Routers) getEvent(c *ginext.Context) {
	event, err := r.Service.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		r.fail(c, err, "get event")
		return
	}
	dto.SuccessResponse(c, event)
}

func (r *Routers) createEvent(c *ginext.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.FieldIncorrectError(c, dto.MsgInvalidJSON)
		return
	}
	event, err := r.Service.CreateEvent(c.Request.Context(), req)
	if err != nil {
		r.fail(c, err, "create event")
		return
	}
	dto.SuccessCreatedResponse(c, event)
}

func (r *Routers) updateEvent(c *ginext.Context) {
	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.FieldIncorrectError(c, dto.MsgInvalidJSON)
		return
	}
	event, err := r.Service.UpdateEvent(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		r.fail(c, err, "update event")
		return
	}
	dto.SuccessResponse(c, event)
}

func (r *Routers) deleteEvent(c *ginext.Context) {
	if err := r.Service.DeleteEvent(c.Request.Context(), c.Param("id")); err != nil {
		r.fail(c, err, "delete event")
		return
	}
	dto.SuccessResponse(c, dto.SuccessFlag{Success: true})
}

func (r *Routers) listEventAttendance(c *ginext.Context) {
	records, err := r.Service.ListEventAttendance(c.Request.Context(), c.Param("id"))
	if err != nil {
		r.fail(c, err, "list event attendance")
		return
	}
	dto.SuccessResponse(c, records)
}

func (r *Routers) listAttendees(c *ginext.Context) {
	ctx := c.Request.Context()
	if c.Query("leaderboard") == "true" {
		limit, _ := strconv.Atoi(c.Query("limit"))
		top, err := r.Service.Leaderboard(ctx, limit)
		if err != nil {
			r.fail(c, err, "leaderboard")
			return
		}
		dto.SuccessResponse(c, top)
		return
	}

	attendees, err := r.Service.ListAttendees(ctx)
	if err != nil {
		r.fail(c, err, "list attendees")
		return
	}
	dto.SuccessResponse(c, attendees)
}

func (r *Routers) exportAttendees(c *ginext.Context) {
	var buf bytes.Buffer
	filename, err := r.Service.ExportAttendeesCSV(c.Request.Context(), &buf)
	if err != nil {
		r.fail(c, err, "export attendees")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (r *Routers) checkIn(c *ginext.Context) {
	var req dto.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.FieldIncorrectError(c, dto.MsgInvalidJSON)
		return
	}
	res, err := r.Service.CheckIn(c.Request.Context(), req)
	if err != nil {
		r.fail(c, err, "check in")
		return
	}
	dto.SuccessResponse(c, dto.CheckInResponse{
		Success:       true,
		PointsAwarded: res.Record.PointsAwarded,
		TotalPoints:   res.Attendee.TotalPoints,
		Message:       fmt.Sprintf("Successfully checked in! You earned %d points.", res.Record.PointsAwarded),
	})
}

func (r *Routers) listAttendance(c *ginext.Context) {
	records, err := r.Service.ListAttendance(c.Request.Context())
	if err != nil {
		r.fail(c, err, "list attendance")
		return
	}
	dto.SuccessResponse(c, records)
}

func (r *Routers) stats(c *ginext.Context) {
	stats, err := r.Service.Stats(c.Request.Context())
	if err != nil {
		r.fail(c, err, "stats")
		return
	}
	dto.SuccessResponse(c, stats)
}

func (r *Routers) getSyncSettings(c *ginext.Context) {
	view, err := r.Service.GetSyncSettings(c.Request.Context())
	if err != nil {
		r.fail(c, err, "get sync settings")
		return
	}
	dto.SuccessResponse(c, view)
}

func (r *Routers) saveSyncSettings(c *ginext.Context) {
	var req dto.SaveSyncSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.FieldIncorrectError(c, dto.MsgInvalidJSON)
		return
	}
	if err := r.Service.SaveSyncSettings(c.Request.Context(), req); err != nil {
		r.fail(c, err, "save sync settings")
		return
	}
	dto.SuccessResponse(c, dto.SuccessFlag{Success: true})
}

func (r *Routers) clearSyncSettings(c *ginext.Context) {
	if err := r.Service.ClearSyncSettings(c.Request.Context()); err != nil {
		r.fail(c, err, "clear sync settings")
		return
	}
	dto.SuccessResponse(c, dto.SuccessFlag{Success: true})
}

func (r *Routers) testSyncSettings(c *ginext.Context) {
	var req dto.SaveSyncSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.FieldIncorrectError(c, dto.MsgInvalidJSON)
		return
	}
	name, err := r.Service.TestSyncConnection(c.Request.Context(), req)
	if err != nil {
		r.fail(c, err, "test sync settings")
		return
	}
	dto.SuccessResponse(c, dto.TestSyncResponse{Success: true, Name: name, DatabaseName: name})
}

func (r *Routers) login(c *ginext.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.FieldIncorrectError(c, dto.MsgInvalidJSON)
		return
	}
	resp, err := r.Service.Login(c.Request.Context(), req)
	if err != nil {
		r.fail(c, err, "login")
		return
	}
	dto.SuccessResponse(c, resp)
}
