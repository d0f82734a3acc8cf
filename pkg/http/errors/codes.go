package errors

// Error codes for standardized error responses
const (
	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeInvalidPayload   = "invalid_payload"
	ErrCodeMissingField     = "missing_field"
	ErrCodeUnknownMessageType = "unknown_message_type"

	// Room errors
	ErrCodeRoomNotFound  = "room_not_found"
	ErrCodeDuplicateName = "duplicate_name"
	ErrCodeNotInRoom     = "not_in_room"
	ErrCodeAlreadyInRoom = "already_in_room"

	// Game flow errors
	ErrCodeWrongPhase       = "wrong_phase"
	ErrCodeNotOwner         = "not_owner"
	ErrCodeGuessOutOfRange  = "guess_out_of_range"
	ErrCodeMalformedRanking = "malformed_ranking"
	ErrCodeAlreadySubmitted = "already_submitted"
	ErrCodeRankerCannotGuess = "ranker_cannot_guess"

	// Server errors
	ErrCodeInternalError = "internal_error"
)
