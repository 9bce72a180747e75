package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled  MatchStatus = "scheduled"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
	MatchStatusCancelled  MatchStatus = "cancelled"
)

// IsTerminal сообщает, финализирован ли матч.
func (s MatchStatus) IsTerminal() bool {
	return s == MatchStatusCompleted || s == MatchStatusCancelled
}

// Match - один слот турнирной сетки. BracketPosition - строковая метка вида
// "WR2M1" (winners round 2, match 1); NextMatchUID/NextLoseMatchUID ссылаются
// на BracketPosition матча, куда продвигается победитель/проигравший.
type Match struct {
	ID                  int         `json:"id" db:"id"`
	TournamentID        int         `json:"tournament_id" db:"tournament_id"`
	Round               int         `json:"round" db:"round"`
	MatchNumber         int         `json:"match_number" db:"match_number"`
	BracketPosition     string      `json:"bracket_position" db:"bracket_position"`
	Participant1ID      *int        `json:"participant1_id,omitempty" db:"participant1_id"`
	Participant2ID      *int        `json:"participant2_id,omitempty" db:"participant2_id"`
	Score1              *int        `json:"score1,omitempty" db:"score1"`
	Score2              *int        `json:"score2,omitempty" db:"score2"`
	WinnerParticipantID *int        `json:"winner_id,omitempty" db:"winner_participant_id"`
	LoserParticipantID  *int        `json:"loser_id,omitempty" db:"loser_participant_id"`
	Status              MatchStatus `json:"status" db:"status"`
	StartTime           *time.Time  `json:"start_time,omitempty" db:"start_time"`
	EndTime             *time.Time  `json:"end_time,omitempty" db:"end_time"`
	NextMatchUID        *string     `json:"next_match_id,omitempty" db:"next_match_uid"`
	NextLoseMatchUID    *string     `json:"next_lose_match_id,omitempty" db:"next_lose_match_uid"`
	RoomID              *string     `json:"room_id,omitempty" db:"room_id"`
	RoomPassword        *string     `json:"room_password,omitempty" db:"room_password"`
	CreatedAt           time.Time   `json:"created_at" db:"created_at"`
}

// HasBothParticipants - заполнены ли оба слота матча.
func (m *Match) HasBothParticipants() bool {
	return m.Participant1ID != nil && m.Participant2ID != nil
}
