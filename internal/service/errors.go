package service

import "errors"

// Domain error taxonomy. Handlers map these onto HTTP statuses; none of them
// is ever swallowed silently.
var (
	// ErrSessionNotFound indicates the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStatusNotFound indicates the requested status does not exist.
	ErrStatusNotFound = errors.New("status not found")
	// ErrFeedbackNotFound indicates the requested feedback entry does not exist.
	ErrFeedbackNotFound = errors.New("feedback entry not found")
	// ErrCredentialNotFound indicates no credential matches the supplied token.
	ErrCredentialNotFound = errors.New("checkin credential not found")
	// ErrInvalidWindow rejects opening a checkin window on a session that is
	// already past, or while another window is still open.
	ErrInvalidWindow = errors.New("checkin window cannot be opened")
	// ErrWindowClosed rejects checkin operations outside the open window.
	ErrWindowClosed = errors.New("checkin window is closed")
	// ErrAlreadyIssued rejects issuing a second live credential for a pair.
	ErrAlreadyIssued = errors.New("a live checkin credential already exists")
	// ErrCredentialConsumed rejects replaying a spent credential.
	ErrCredentialConsumed = errors.New("checkin credential already consumed")
	// ErrStatusSetMismatch rejects statuses outside the session's status set.
	ErrStatusSetMismatch = errors.New("status does not belong to the session's status set")
	// ErrOutsideSessionWindow rejects self-marking outside the session window.
	ErrOutsideSessionWindow = errors.New("session is not open for self-marking")
	// ErrDuplicateAcronym rejects a visible acronym already used in the set.
	ErrDuplicateAcronym = errors.New("acronym already used in this status set")
	// ErrAcronymTooLong rejects acronyms longer than two characters; no
	// fallback is guessed on the caller's behalf.
	ErrAcronymTooLong = errors.New("acronym must be at most two characters")
	// ErrStatusInUse protects statuses referenced by ledger history from
	// deletion; hiding remains possible.
	ErrStatusInUse = errors.New("status is referenced by attendance records")
	// ErrVerificationFailed covers collaborator timeouts and malformed
	// responses; the credential is still consumed to prevent replay.
	ErrVerificationFailed = errors.New("face verification failed")
	// ErrInvalidImage rejects captures that do not decode to an image.
	ErrInvalidImage = errors.New("captured image is not a valid image")
	// ErrConflict is an optimistic-lock collision on concurrent writes after
	// the internal retry was exhausted.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrPermissionDenied indicates the actor lacks the required capability.
	ErrPermissionDenied = errors.New("actor lacks the required capability")
	// ErrNoSelfCheckinStatus indicates the current status set has no status
	// flagged for online checkin.
	ErrNoSelfCheckinStatus = errors.New("status set has no self-checkin status")
	// ErrStatusSetNotEmpty rejects seeding defaults over existing statuses.
	ErrStatusSetNotEmpty = errors.New("activity already has statuses")
)
