package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/rpx-gg/tournament-service/models"
)

var (
	ErrMatchNotFound = errors.New("match not found")
	// ErrMatchFinalizedConflict возвращается условным обновлением, когда матч
	// уже финализирован другим запросом (compare-and-swap по статусу).
	ErrMatchFinalizedConflict       = errors.New("match is already finalized")
	ErrMatchInvalidParticipant      = errors.New("match participant conflict or invalid")
	ErrMatchBracketPositionConflict = errors.New("bracket position already exists in this tournament")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	GetByBracketPosition(ctx context.Context, exec SQLExecutor, tournamentID int, bracketPosition string) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.Match, error)
	// FinalizeResult записывает счёт, победителя и проигравшего одним условным
	// обновлением: проходит только пока матч ещё scheduled/in_progress.
	// Повторная или конкурирующая запись даёт ErrMatchFinalizedConflict.
	FinalizeResult(ctx context.Context, exec SQLExecutor, matchID int, score1, score2 int, winnerID, loserID int, endTime time.Time) error
	// SetParticipantSlot помещает участника в слот 1 или 2 и возвращает
	// обновлённый матч.
	SetParticipantSlot(ctx context.Context, exec SQLExecutor, matchID int, slot int, participantID int) (*models.Match, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, matchID int, status models.MatchStatus) error
	UpdateRoomCredentials(ctx context.Context, matchID int, roomID, roomPassword *string) error
	// CountUnfinished считает матчи турнира, ещё не достигшие терминального
	// статуса (completed/cancelled).
	CountUnfinished(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, tournament_id, round, match_number, bracket_position,
	participant1_id, participant2_id, score1, score2,
	winner_participant_id, loser_participant_id, status,
	start_time, end_time, next_match_uid, next_lose_match_uid,
	room_id, room_password, created_at`

func scanMatch(row interface{ Scan(...interface{}) error }, m *models.Match) error {
	return row.Scan(
		&m.ID, &m.TournamentID, &m.Round, &m.MatchNumber, &m.BracketPosition,
		&m.Participant1ID, &m.Participant2ID, &m.Score1, &m.Score2,
		&m.WinnerParticipantID, &m.LoserParticipantID, &m.Status,
		&m.StartTime, &m.EndTime, &m.NextMatchUID, &m.NextLoseMatchUID,
		&m.RoomID, &m.RoomPassword, &m.CreatedAt,
	)
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO matches (
			tournament_id, round, match_number, bracket_position,
			participant1_id, participant2_id, status, start_time,
			next_match_uid, next_lose_match_uid
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		m.TournamentID, m.Round, m.MatchNumber, m.BracketPosition,
		m.Participant1ID, m.Participant2ID, m.Status, m.StartTime,
		m.NextMatchUID, m.NextLoseMatchUID,
	).Scan(&m.ID, &m.CreatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1`

	m := &models.Match{}
	err := scanMatch(r.db.QueryRowContext(ctx, query, id), m)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) GetByBracketPosition(ctx context.Context, exec SQLExecutor, tournamentID int, bracketPosition string) (*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + matchColumns + ` FROM matches WHERE tournament_id = $1 AND bracket_position = $2`

	m := &models.Match{}
	err := scanMatch(executor.QueryRowContext(ctx, query, tournamentID, bracketPosition), m)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %q in tournament %d: %w", bracketPosition, tournamentID, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int, roundFilter *int, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT` + matchColumns + ` FROM matches WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	placeholderIndex := 2

	if roundFilter != nil {
		queryBuilder.WriteString(" AND round = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *roundFilter)
		placeholderIndex++
	}
	if statusFilter != nil {
		queryBuilder.WriteString(" AND status = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *statusFilter)
		placeholderIndex++
	}
	queryBuilder.WriteString(" ORDER BY round ASC, match_number ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m := &models.Match{}
		if scanErr := scanMatch(rows, m); scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *postgresMatchRepository) FinalizeResult(ctx context.Context, exec SQLExecutor, matchID int, score1, score2 int, winnerID, loserID int, endTime time.Time) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE matches SET
			score1 = $1,
			score2 = $2,
			winner_participant_id = $3,
			loser_participant_id = $4,
			status = $5,
			end_time = $6
		WHERE id = $7 AND status IN ($8, $9)`

	result, err := executor.ExecContext(ctx, query,
		score1, score2, winnerID, loserID,
		models.MatchStatusCompleted, endTime,
		matchID, models.MatchStatusScheduled, models.MatchStatusInProgress,
	)
	if err != nil {
		return r.handleMatchError(err)
	}
	// 0 затронутых строк: либо матча нет, либо он уже финализирован.
	// Вызывающая сторона уже проверила существование, поэтому конфликт.
	return checkAffectedRows(result, ErrMatchFinalizedConflict)
}

func (r *postgresMatchRepository) SetParticipantSlot(ctx context.Context, exec SQLExecutor, matchID int, slot int, participantID int) (*models.Match, error) {
	executor := r.getExecutor(exec)

	column := "participant1_id"
	if slot == 2 {
		column = "participant2_id"
	} else if slot != 1 {
		return nil, fmt.Errorf("invalid participant slot %d (must be 1 or 2)", slot)
	}

	query := `UPDATE matches SET ` + column + ` = $1 WHERE id = $2 RETURNING` + matchColumns

	m := &models.Match{}
	err := scanMatch(executor.QueryRowContext(ctx, query, participantID, matchID), m)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, r.handleMatchError(err)
	}
	return m, nil
}

func (r *postgresMatchRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, matchID int, status models.MatchStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE matches SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, matchID)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateRoomCredentials(ctx context.Context, matchID int, roomID, roomPassword *string) error {
	query := `UPDATE matches SET room_id = $1, room_password = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, roomID, roomPassword, matchID)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) CountUnfinished(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := r.getExecutor(exec)
	query := `SELECT COUNT(*) FROM matches WHERE tournament_id = $1 AND status NOT IN ($2, $3)`

	var count int
	err := executor.QueryRowContext(ctx, query,
		tournamentID, models.MatchStatusCompleted, models.MatchStatusCancelled,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unfinished matches for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM matches WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to delete matches for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "matches_tournament_id_bracket_position_key" {
				return ErrMatchBracketPositionConflict
			}
		case "23503":
			return ErrMatchInvalidParticipant
		}
	}
	return err
}
