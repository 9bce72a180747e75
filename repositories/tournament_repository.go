package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rpx-gg/tournament-service/models"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name conflict for this organizer")
	ErrTournamentInUse        = errors.New("tournament is in use (participants/matches exist)")
	ErrTournamentInvalidOrg   = errors.New("invalid organizer reference")
)

type ListTournamentsFilter struct {
	OrganizerID *int
	Status      *models.TournamentStatus
	Format      *models.TournamentFormat
	BracketType *models.BracketType
	Limit       int
	Offset      int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, tournament *models.Tournament) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	Delete(ctx context.Context, id int) error
	UpdateBannerKey(ctx context.Context, tournamentID int, bannerKey *string) error
	// RefreshParticipantCount пересчитывает current_participants из таблицы
	// participants и возвращает новое значение.
	RefreshParticipantCount(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	GetTournamentsForAutoStatusUpdate(ctx context.Context, exec SQLExecutor, currentTime time.Time) ([]*models.Tournament, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, description, organizer_id, format, bracket_type, status,
	entry_fee, prize_pool, min_participants, max_participants, current_participants,
	registration_start, registration_end, start_date, end_date, created_at, banner_key`

func scanTournament(row interface{ Scan(...interface{}) error }, t *models.Tournament) error {
	return row.Scan(
		&t.ID, &t.Name, &t.Description, &t.OrganizerID, &t.Format, &t.BracketType, &t.Status,
		&t.EntryFee, &t.PrizePool, &t.MinParticipants, &t.MaxParticipants, &t.CurrentParticipants,
		&t.RegistrationStart, &t.RegistrationEnd, &t.StartDate, &t.EndDate, &t.CreatedAt, &t.BannerKey,
	)
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	executor := r.getExecutor(nil)
	query := `
		INSERT INTO tournaments (
			name, description, organizer_id, format, bracket_type, status,
			entry_fee, prize_pool, min_participants, max_participants,
			registration_start, registration_end, start_date, end_date, banner_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, current_participants, created_at`

	err := executor.QueryRowContext(ctx, query,
		t.Name, t.Description, t.OrganizerID, t.Format, t.BracketType, t.Status,
		t.EntryFee, t.PrizePool, t.MinParticipants, t.MaxParticipants,
		t.RegistrationStart, t.RegistrationEnd, t.StartDate, t.EndDate, t.BannerKey,
	).Scan(&t.ID, &t.CurrentParticipants, &t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	executor := r.getExecutor(nil)
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t := &models.Tournament{}
	err := scanTournament(executor.QueryRowContext(ctx, query, id), t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	executor := r.getExecutor(nil)
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.OrganizerID != nil {
		query += fmt.Sprintf(" AND organizer_id = $%d", argID)
		args = append(args, *filter.OrganizerID)
		argID++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if filter.Format != nil {
		query += fmt.Sprintf(" AND format = $%d", argID)
		args = append(args, *filter.Format)
		argID++
	}
	if filter.BracketType != nil {
		query += fmt.Sprintf(" AND bracket_type = $%d", argID)
		args = append(args, *filter.BracketType)
		argID++
	}

	query += " ORDER BY start_date DESC, created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if scanErr := scanTournament(rows, &t); scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, t)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return tournaments, nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	executor := r.getExecutor(nil)
	// status, current_participants и banner_key обновляются своими методами
	query := `
		UPDATE tournaments SET
			name = $1,
			description = $2,
			format = $3,
			bracket_type = $4,
			entry_fee = $5,
			prize_pool = $6,
			min_participants = $7,
			max_participants = $8,
			registration_start = $9,
			registration_end = $10,
			start_date = $11,
			end_date = $12
		WHERE id = $13`

	result, err := executor.ExecContext(ctx, query,
		t.Name, t.Description, t.Format, t.BracketType,
		t.EntryFee, t.PrizePool, t.MinParticipants, t.MaxParticipants,
		t.RegistrationStart, t.RegistrationEnd, t.StartDate, t.EndDate,
		t.ID,
	)

	if err != nil {
		return r.handleTournamentError(err)
	}

	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateBannerKey(ctx context.Context, tournamentID int, bannerKey *string) error {
	executor := r.getExecutor(nil)
	query := `UPDATE tournaments SET banner_key = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, bannerKey, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to update tournament banner key: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) RefreshParticipantCount(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := r.getExecutor(exec)
	// Инвариант: current_participants == числу строк в participants.
	query := `
		UPDATE tournaments
		SET current_participants = (
			SELECT COUNT(*) FROM participants WHERE tournament_id = $1
		)
		WHERE id = $1
		RETURNING current_participants`

	var count int
	err := executor.QueryRowContext(ctx, query, tournamentID).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrTournamentNotFound
		}
		return 0, fmt.Errorf("failed to refresh participant count for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	executor := r.getExecutor(nil)
	query := `DELETE FROM tournaments WHERE id = $1`
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) GetTournamentsForAutoStatusUpdate(ctx context.Context, exec SQLExecutor, currentTime time.Time) ([]*models.Tournament, error) {
	executor := r.getExecutor(exec)
	// Планировщик двигает только опубликованные турниры, чьё окно регистрации
	// уже открылось. Переходы registration -> in_progress и далее делаются
	// генерацией сетки и процессором результатов, не по датам.
	query := `SELECT` + tournamentColumns + `
		FROM tournaments
		WHERE status = $1 AND registration_start <= $2`

	rows, err := executor.QueryContext(ctx, query, models.StatusPublished, currentTime)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments for auto status update: %w", err)
	}
	defer rows.Close()

	var tournaments []*models.Tournament
	for rows.Next() {
		var t models.Tournament
		if scanErr := scanTournament(rows, &t); scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament for auto status update: %w", scanErr)
		}
		tournaments = append(tournaments, &t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration for auto status update: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "tournaments_organizer_id_name_key" {
				return ErrTournamentNameConflict
			}
		case "23503":
			switch pqErr.Constraint {
			case "tournaments_organizer_id_fkey":
				return ErrTournamentInvalidOrg
			default:
				// FK из participants/matches/prizes на tournaments: турнир
				// нельзя удалить, пока на него есть ссылки.
				return ErrTournamentInUse
			}
		}
	}
	return err
}
