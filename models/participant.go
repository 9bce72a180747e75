package models

import "time"

// ParticipantStatus - статус заявки участника.
type ParticipantStatus string

const (
	ParticipantPending    ParticipantStatus = "pending"
	ParticipantConfirmed  ParticipantStatus = "confirmed"
	ParticipantDeclined   ParticipantStatus = "declined"
	ParticipantEliminated ParticipantStatus = "eliminated"
)

// PaymentStatus - статус оплаты вступительного взноса.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentRefunded  PaymentStatus = "refunded"
)

type Participant struct {
	ID            int               `json:"id" db:"id"`
	TournamentID  int               `json:"tournament_id" db:"tournament_id"`
	UserID        int               `json:"user_id" db:"user_id"`
	TeamID        *int              `json:"team_id,omitempty" db:"team_id"`
	Status        ParticipantStatus `json:"status" db:"status"`
	PaymentStatus PaymentStatus     `json:"payment_status" db:"payment_status"`
	Seed          *int              `json:"seed,omitempty" db:"seed"`
	RegisteredAt  time.Time         `json:"registered_at" db:"registered_at"`

	User *User `json:"user,omitempty" db:"-"`
}
