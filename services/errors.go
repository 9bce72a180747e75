package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки регистрации участников
	ErrRegistrationNotOpen  = errors.New("tournament is not open for registration")
	ErrDuplicateParticipant = errors.New("user is already registered for this tournament")

	// Ошибки генерации сетки
	ErrInsufficientParticipants = errors.New("not enough confirmed participants to generate a bracket")
	ErrUnsupportedBracketType   = errors.New("bracket type is not supported")

	// Ошибки фиксации результата матча
	ErrResultReportForbidden = errors.New("reporter must be an admin or a participant of the match")
	ErrTournamentNotActive   = errors.New("tournament is not in progress")
	ErrMatchNotFound         = errors.New("match not found in this tournament")
	ErrMatchAlreadyFinalized = errors.New("match result has already been finalized")
	ErrMatchAlreadyStarted   = errors.New("match has already been started")
	ErrMatchIncomplete       = errors.New("match does not have both participants assigned")
	ErrInvalidWinner         = errors.New("winner must be one of the match participants")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed                  = errors.New("validation failed")
	ErrTournamentNameRequired            = errors.New("tournament name is required")
	ErrTournamentDatesRequired           = errors.New("tournament dates are required")
	ErrTournamentInvalidRegWindow        = errors.New("registration window must close before the tournament starts")
	ErrTournamentInvalidDateRange        = errors.New("tournament end date must be after start date")
	ErrTournamentInvalidCapacity         = errors.New("tournament participant limits must be positive and min <= max")
	ErrTournamentInvalidEntryFee         = errors.New("tournament entry fee cannot be negative")
	ErrTournamentInvalidStatus           = errors.New("invalid tournament status provided")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
	ErrTournamentAlreadyStarted          = errors.New("tournament has already started")
	ErrPrizeInvalidPosition              = errors.New("prize positions must be unique and 1-based")

	// Ошибки аутентификации и авторизации
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")

	// Ошибки, специфичные для сущностей
	ErrUserNotFound        = errors.New("user not found")
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrParticipantNotFound = errors.New("participant registration not found")
)
