package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/rpx-gg/tournament-service/models"
)

var (
	ErrParticipantNotFound          = errors.New("participant registration not found")
	ErrParticipantConflict          = errors.New("user is already registered for this tournament")
	ErrParticipantInvalidUser       = errors.New("invalid user reference")
	ErrParticipantInvalidTournament = errors.New("invalid tournament reference")
)

type ParticipantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, participant *models.Participant) error
	FindByID(ctx context.Context, id int) (*models.Participant, error)
	FindByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Participant, error)
	// ListByTournament возвращает участников в порядке посева (seed NULLS LAST),
	// затем в порядке регистрации. withUsers подгружает данные пользователей.
	ListByTournament(ctx context.Context, tournamentID int, status *models.ParticipantStatus, withUsers bool) ([]*models.Participant, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.ParticipantStatus) error
	UpdateSeed(ctx context.Context, id int, seed *int) error
	Delete(ctx context.Context, id int) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresParticipantRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO participants (tournament_id, user_id, team_id, status, payment_status, seed)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, registered_at`

	err := executor.QueryRowContext(ctx, query,
		p.TournamentID, p.UserID, p.TeamID, p.Status, p.PaymentStatus, p.Seed,
	).Scan(&p.ID, &p.RegisteredAt)

	return r.handleParticipantError(err)
}

func (r *postgresParticipantRepository) FindByID(ctx context.Context, id int) (*models.Participant, error) {
	query := `
		SELECT id, tournament_id, user_id, team_id, status, payment_status, seed, registered_at
		FROM participants
		WHERE id = $1`

	p := &models.Participant{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.TournamentID, &p.UserID, &p.TeamID, &p.Status, &p.PaymentStatus, &p.Seed, &p.RegisteredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to scan participant by id %d: %w", id, err)
	}
	return p, nil
}

func (r *postgresParticipantRepository) FindByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Participant, error) {
	query := `
		SELECT id, tournament_id, user_id, team_id, status, payment_status, seed, registered_at
		FROM participants
		WHERE user_id = $1 AND tournament_id = $2`

	p := &models.Participant{}
	err := r.db.QueryRowContext(ctx, query, userID, tournamentID).Scan(
		&p.ID, &p.TournamentID, &p.UserID, &p.TeamID, &p.Status, &p.PaymentStatus, &p.Seed, &p.RegisteredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // отсутствие записи - не ошибка для этого запроса
		}
		return nil, fmt.Errorf("failed to scan participant for user %d in tournament %d: %w", userID, tournamentID, err)
	}
	return p, nil
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.ParticipantStatus, withUsers bool) ([]*models.Participant, error) {
	var queryBuilder strings.Builder
	if withUsers {
		queryBuilder.WriteString(`
		SELECT p.id, p.tournament_id, p.user_id, p.team_id, p.status, p.payment_status, p.seed, p.registered_at,
		       u.id, u.nickname, u.email, u.role, u.created_at
		FROM participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.tournament_id = $1`)
	} else {
		queryBuilder.WriteString(`
		SELECT p.id, p.tournament_id, p.user_id, p.team_id, p.status, p.payment_status, p.seed, p.registered_at
		FROM participants p
		WHERE p.tournament_id = $1`)
	}

	args := []interface{}{tournamentID}
	if statusFilter != nil {
		queryBuilder.WriteString(" AND p.status = $")
		queryBuilder.WriteString(strconv.Itoa(len(args) + 1))
		args = append(args, *statusFilter)
	}
	queryBuilder.WriteString(" ORDER BY p.seed ASC NULLS LAST, p.registered_at ASC, p.id ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		p := &models.Participant{}
		if withUsers {
			u := &models.User{}
			if scanErr := rows.Scan(
				&p.ID, &p.TournamentID, &p.UserID, &p.TeamID, &p.Status, &p.PaymentStatus, &p.Seed, &p.RegisteredAt,
				&u.ID, &u.Nickname, &u.Email, &u.Role, &u.CreatedAt,
			); scanErr != nil {
				return nil, scanErr
			}
			p.User = u
		} else {
			if scanErr := rows.Scan(
				&p.ID, &p.TournamentID, &p.UserID, &p.TeamID, &p.Status, &p.PaymentStatus, &p.Seed, &p.RegisteredAt,
			); scanErr != nil {
				return nil, scanErr
			}
		}
		participants = append(participants, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *postgresParticipantRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.ParticipantStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE participants SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return r.handleParticipantError(err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) UpdateSeed(ctx context.Context, id int, seed *int) error {
	query := `UPDATE participants SET seed = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, seed, id)
	if err != nil {
		return r.handleParticipantError(err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM participants WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return r.handleParticipantError(err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) handleParticipantError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "participants_tournament_id_user_id_key" {
				return ErrParticipantConflict
			}
		case "23503":
			switch pqErr.Constraint {
			case "participants_user_id_fkey":
				return ErrParticipantInvalidUser
			case "participants_tournament_id_fkey":
				return ErrParticipantInvalidTournament
			}
		}
	}
	return err
}
