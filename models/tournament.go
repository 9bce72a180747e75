package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	StatusDraft        TournamentStatus = "draft"
	StatusPublished    TournamentStatus = "published"
	StatusRegistration TournamentStatus = "registration"
	StatusInProgress   TournamentStatus = "in_progress"
	StatusCompleted    TournamentStatus = "completed"
	StatusCancelled    TournamentStatus = "cancelled"
)

// TournamentFormat определяет состав участников.
type TournamentFormat string

const (
	FormatSolo   TournamentFormat = "solo"
	FormatDuo    TournamentFormat = "duo"
	FormatSquad  TournamentFormat = "squad"
	FormatCustom TournamentFormat = "custom"
)

// BracketType определяет схему сетки. Генерация реализована только для
// single_elimination, остальные типы объявлены и отклоняются сервисом.
type BracketType string

const (
	BracketSingleElimination BracketType = "single_elimination"
	BracketDoubleElimination BracketType = "double_elimination"
	BracketRoundRobin        BracketType = "round_robin"
	BracketSwiss             BracketType = "swiss"
)

// Tournament представляет турнир.
type Tournament struct {
	ID                  int              `json:"id" db:"id"`
	Name                string           `json:"name" db:"name"`
	Description         *string          `json:"description,omitempty" db:"description"`
	OrganizerID         int              `json:"organizer_id" db:"organizer_id"`
	Format              TournamentFormat `json:"format" db:"format"`
	BracketType         BracketType      `json:"bracket_type" db:"bracket_type"`
	Status              TournamentStatus `json:"status" db:"status"`
	EntryFee            float64          `json:"entry_fee" db:"entry_fee"`
	PrizePool           float64          `json:"prize_pool" db:"prize_pool"`
	MinParticipants     int              `json:"min_participants" db:"min_participants"`
	MaxParticipants     int              `json:"max_participants" db:"max_participants"`
	CurrentParticipants int              `json:"current_participants" db:"current_participants"`
	RegistrationStart   time.Time        `json:"registration_start" db:"registration_start"`
	RegistrationEnd     time.Time        `json:"registration_end" db:"registration_end"`
	StartDate           time.Time        `json:"start_date" db:"start_date"`
	EndDate             time.Time        `json:"end_date" db:"end_date"`
	CreatedAt           time.Time        `json:"created_at" db:"created_at"`
	BannerKey           *string          `json:"-" db:"banner_key"`
	BannerURL           *string          `json:"banner_url,omitempty" db:"-"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Organizer    *User         `json:"organizer,omitempty" db:"-"`
	Participants []Participant `json:"participants,omitempty" db:"-"`
	Matches      []Match       `json:"matches,omitempty" db:"-"`
	Prizes       []Prize       `json:"prizes,omitempty" db:"-"`
}

// IsTerminal сообщает, достиг ли турнир конечного статуса.
func (s TournamentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}
