package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/rpx-gg/tournament-service/models"
)

var (
	ErrPrizeNotFound         = errors.New("prize not found")
	ErrPrizePositionConflict = errors.New("prize position already exists for this tournament")
)

type PrizeRepository interface {
	// ReplaceForTournament атомарно заменяет призовую таблицу турнира.
	ReplaceForTournament(ctx context.Context, exec SQLExecutor, tournamentID int, prizes []models.Prize) ([]models.Prize, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]models.Prize, error)
}

type postgresPrizeRepository struct {
	db *sql.DB
}

func NewPostgresPrizeRepository(db *sql.DB) PrizeRepository {
	return &postgresPrizeRepository{db: db}
}

func (r *postgresPrizeRepository) ReplaceForTournament(ctx context.Context, exec SQLExecutor, tournamentID int, prizes []models.Prize) ([]models.Prize, error) {
	// Без внешней транзакции DELETE и INSERT-ы заворачиваются в свою:
	// частичная замена призовой таблицы недопустима.
	if exec == nil {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to begin prize transaction: %w", err)
		}
		saved, err := r.replaceForTournament(ctx, tx, tournamentID, prizes)
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit prizes for tournament %d: %w", tournamentID, err)
		}
		return saved, nil
	}
	return r.replaceForTournament(ctx, exec, tournamentID, prizes)
}

func (r *postgresPrizeRepository) replaceForTournament(ctx context.Context, executor SQLExecutor, tournamentID int, prizes []models.Prize) ([]models.Prize, error) {
	if _, err := executor.ExecContext(ctx, `DELETE FROM prizes WHERE tournament_id = $1`, tournamentID); err != nil {
		return nil, fmt.Errorf("failed to clear prizes for tournament %d: %w", tournamentID, err)
	}

	query := `
		INSERT INTO prizes (tournament_id, position, description, cash_amount, coins_amount, items_json)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	saved := make([]models.Prize, 0, len(prizes))
	for _, p := range prizes {
		p.TournamentID = tournamentID
		if err := p.EncodeItems(); err != nil {
			return nil, fmt.Errorf("failed to encode prize items for position %d: %w", p.Position, err)
		}
		err := executor.QueryRowContext(ctx, query,
			p.TournamentID, p.Position, p.Description, p.CashAmount, p.CoinsAmount, p.ItemsJSON,
		).Scan(&p.ID)
		if err != nil {
			return nil, r.handlePrizeError(err)
		}
		saved = append(saved, p)
	}
	return saved, nil
}

func (r *postgresPrizeRepository) ListByTournament(ctx context.Context, tournamentID int) ([]models.Prize, error) {
	query := `
		SELECT id, tournament_id, position, description, cash_amount, coins_amount, items_json
		FROM prizes
		WHERE tournament_id = $1
		ORDER BY position ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prizes for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	prizes := make([]models.Prize, 0)
	for rows.Next() {
		var p models.Prize
		if scanErr := rows.Scan(
			&p.ID, &p.TournamentID, &p.Position, &p.Description, &p.CashAmount, &p.CoinsAmount, &p.ItemsJSON,
		); scanErr != nil {
			return nil, scanErr
		}
		if decodeErr := p.DecodeItems(); decodeErr != nil {
			return nil, fmt.Errorf("failed to decode items for prize %d: %w", p.ID, decodeErr)
		}
		prizes = append(prizes, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return prizes, nil
}

func (r *postgresPrizeRepository) handlePrizeError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23505" && pqErr.Constraint == "prizes_tournament_id_position_key" {
			return ErrPrizePositionConflict
		}
	}
	return err
}
