package apperr

import "github.com/tuanvumaihuynh/product-selection-sync/pkg/zerror"

const (
	MalformedMessageCode       = "MALFORMED_MESSAGE"
	SelectionNotFoundCode      = "SELECTION_NOT_FOUND"
	VersionConflictCode        = "VERSION_CONFLICT"
	UpdateRejectedCode         = "UPDATE_REJECTED"
	PlatformUnavailableCode    = "PLATFORM_UNAVAILABLE"
	UnsupportedEventFormatCode = "UNSUPPORTED_EVENT_FORMAT"
	DeadLetterUnavailableCode  = "DEAD_LETTER_UNAVAILABLE"
)

var (
	MalformedMessageErr    = zerror.NewBadRequest(MalformedMessageCode, "malformed product message")
	SelectionNotFoundErr   = zerror.NewNotFound(SelectionNotFoundCode, "product selection not found")
	VersionConflictErr     = zerror.NewConflict(VersionConflictCode, "product selection version conflict")
	UpdateRejectedErr      = zerror.NewUnprocessableEntity(UpdateRejectedCode, "product selection update rejected")
	PlatformUnavailableErr = zerror.NewBadGateway(PlatformUnavailableCode, "commerce platform unavailable")
	UnsupportedEventErr    = zerror.NewBadRequest(UnsupportedEventFormatCode, "unsupported event format")

	DeadLetterUnavailableErr = zerror.NewZError(nil, zerror.StatusServiceUnavailable, DeadLetterUnavailableCode, "dead letter topic unavailable")
)
