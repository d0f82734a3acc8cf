package game

import (
	httperrors "github.com/rankparty/rankparty/pkg/http/errors"
)

// Error is a client-protocol error carrying a stable code for the wire. Room
// state is never mutated when one of these is returned.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrRoomNotFound     = &Error{Code: httperrors.ErrCodeRoomNotFound, Message: "room not found"}
	ErrDuplicateName    = &Error{Code: httperrors.ErrCodeDuplicateName, Message: "name already taken in this room"}
	ErrInvalidName      = &Error{Code: httperrors.ErrCodeInvalidRequest, Message: "player name must not be empty"}
	ErrNotInRoom        = &Error{Code: httperrors.ErrCodeNotInRoom, Message: "player is not in this room"}
	ErrWrongPhase       = &Error{Code: httperrors.ErrCodeWrongPhase, Message: "action not allowed in the current phase"}
	ErrNotOwner         = &Error{Code: httperrors.ErrCodeNotOwner, Message: "only the room owner may do that"}
	ErrGuessOutOfRange  = &Error{Code: httperrors.ErrCodeGuessOutOfRange, Message: "guess position is out of range"}
	ErrMalformedRanking = &Error{Code: httperrors.ErrCodeMalformedRanking, Message: "ranking must contain every player exactly once"}
	ErrAlreadySubmitted = &Error{Code: httperrors.ErrCodeAlreadySubmitted, Message: "already submitted for this phase"}
	ErrRankerCannotGuess = &Error{Code: httperrors.ErrCodeRankerCannotGuess, Message: "the ranker cannot guess on their own question"}
)
