package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind groups errors by what went wrong, not by where.
type Kind string

const (
	KindAuthorization Kind = "authorization"
	KindStateConflict Kind = "state_conflict"
	KindLookup        Kind = "lookup"
	KindScope         Kind = "scope"
	KindValidation    Kind = "validation"
)

// Error is a coded error returned synchronously to the caller of one operation.
type Error struct {
	Code    string `json:"code"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func New(kind Kind, code, message string) *Error {
	return &Error{Code: code, Kind: kind, Message: message}
}

var (
	ErrNotLeader = New(KindAuthorization, "NOT_LEADER", "only the leader can do that")

	ErrTurnAlreadyActive = New(KindStateConflict, "TURN_ALREADY_ACTIVE", "another participant holds the active turn")
	ErrInvalidTurnTarget = New(KindStateConflict, "INVALID_TURN_TARGET", "participant cannot receive the turn")
	ErrNotYourTurn       = New(KindStateConflict, "NOT_YOUR_TURN", "not your turn")
	ErrNoActiveTurn      = New(KindStateConflict, "NO_ACTIVE_TURN", "no turn is active")
	ErrCombatActive      = New(KindStateConflict, "COMBAT_ACTIVE", "combat already in progress")
	ErrNotInCombat       = New(KindStateConflict, "NOT_IN_COMBAT", "session is not in combat")
	ErrRoomClosed        = New(KindStateConflict, "ROOM_CLOSED", "room is closed")

	ErrRoomFull           = New(KindLookup, "ROOM_FULL", "room full")
	ErrRoomNotFound       = New(KindLookup, "ROOM_NOT_FOUND", "room not found")
	ErrUnknownParticipant = New(KindLookup, "UNKNOWN_PARTICIPANT", "participant is not in the room")
	ErrUnknownChannel     = New(KindLookup, "UNKNOWN_CHANNEL", "channel not found")
	ErrEmptyScope         = New(KindLookup, "EMPTY_SCOPE", "a restricted channel needs at least two participants")
	ErrLeaderExists       = New(KindLookup, "LEADER_EXISTS", "room already has a leader")
	ErrNameTaken          = New(KindLookup, "NAME_TAKEN", "display name already in use")

	ErrSenderNotInScope  = New(KindScope, "SENDER_NOT_IN_SCOPE", "sender is not a member of this channel")
	ErrChannelNotVisible = New(KindScope, "CHANNEL_NOT_VISIBLE", "channel is not visible to this participant")

	ErrEmptyName        = New(KindValidation, "EMPTY_NAME", "display name is required")
	ErrInvalidRole      = New(KindValidation, "INVALID_ROLE", "role must be leader or player")
	ErrEmptyMessage     = New(KindValidation, "EMPTY_MESSAGE", "message text is required")
	ErrUnsupportedCmd   = New(KindValidation, "UNSUPPORTED_COMMAND", "unsupported command")
	ErrCannotKickLeader = New(KindValidation, "CANNOT_KICK_LEADER", "the leader cannot be kicked")
	ErrBadRequest       = New(KindValidation, "BAD_REQUEST", "malformed request")
	ErrRateLimited      = New(KindValidation, "RATE_LIMITED", "too many messages, slow down")
)

// As extracts the coded error from err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Code returns the error code of err, or INTERNAL for uncoded errors.
func Code(err error) string {
	if e, ok := As(err); ok {
		return e.Code
	}
	return "INTERNAL"
}

// HTTPStatus maps err to the status used when it is reported over HTTP.
func HTTPStatus(err error) int {
	e, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch {
	case e == ErrRoomNotFound || e == ErrUnknownParticipant || e == ErrUnknownChannel:
		return http.StatusNotFound
	case e.Kind == KindAuthorization || e.Kind == KindScope:
		return http.StatusForbidden
	case e == ErrRateLimited:
		return http.StatusTooManyRequests
	case e.Kind == KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusConflict
	}
}
