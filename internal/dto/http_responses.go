package dto

import (
	"net/http"

	"github.com/wb-go/wbf/ginext"
)

const (
	FieldIncorrect     = "FIELD_INCORRECT"
	FieldMissing       = "FIELD_MISSING"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Internal server error"

	EventNotFound     = "EVENT_NOT_FOUND"
	InvalidEmail      = "INVALID_EMAIL"
	DuplicateCheckIn  = "DUPLICATE_CHECKIN"
	SyncFailed        = "SYNC_FAILED"
	Unauthorized      = "UNAUTHORIZED"
	TooManyRequests   = "TOO_MANY_REQUESTS"
	RouteNotFound     = "ROUTE_NOT_FOUND"
	MsgDuplicate      = "You have already checked in to this event"
	MsgInvalidEmail   = "Please use your Caltech email address"
	MsgEventNotFound  = "Event not found"
	MsgMissingFields  = "Missing required fields"
	MsgInvalidJSON    = "Invalid JSON format"
	MsgBadCredentials = "Invalid username or password"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type SuccessFlag struct {
	Success bool `json:"success"`
}

func errorResponse(c *ginext.Context, status int, code, desc string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: desc, Code: code})
}

func BadResponseError(c *ginext.Context, code, desc string) {
	errorResponse(c, http.StatusBadRequest, code, desc)
}

func NotFoundError(c *ginext.Context, code, desc string) {
	errorResponse(c, http.StatusNotFound, code, desc)
}

func UnauthorizedError(c *ginext.Context, desc string) {
	errorResponse(c, http.StatusUnauthorized, Unauthorized, desc)
}

func TooManyRequestsError(c *ginext.Context) {
	errorResponse(c, http.StatusTooManyRequests, TooManyRequests, "Too many requests")
}

func InternalServerError(c *ginext.Context) {
	errorResponse(c, http.StatusInternalServerError, ServiceUnavailable, InternalError)
}

func FieldIncorrectError(c *ginext.Context, desc string) {
	BadResponseError(c, FieldIncorrect, desc)
}

func EventNotFoundError(c *ginext.Context) {
	NotFoundError(c, EventNotFound, MsgEventNotFound)
}

func DuplicateCheckInError(c *ginext.Context) {
	BadResponseError(c, DuplicateCheckIn, MsgDuplicate)
}

func InvalidEmailError(c *ginext.Context, desc string) {
	BadResponseError(c, InvalidEmail, desc)
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

type LoginFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func LoginFailedError(c *ginext.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, LoginFailure{Error: MsgBadCredentials, Code: Unauthorized})
}

type HealthResponse struct {
	Status string `json:"status"`
}
