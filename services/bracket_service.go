package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpx-gg/tournament-service/brackets"
	"github.com/rpx-gg/tournament-service/models"
	"github.com/rpx-gg/tournament-service/repositories"
	"golang.org/x/sync/errgroup"
)

// BracketNotifier рассылает события сетки подписчикам комнаты турнира.
type BracketNotifier interface {
	BroadcastToRoom(roomID string, message interface{})
}

type BracketService interface {
	// GenerateAndActivate строит сетку по подтверждённым участникам,
	// сохраняет матчи и переводит турнир в in_progress.
	GenerateAndActivate(ctx context.Context, tournamentID, requesterID int) (*models.Tournament, error)
	GetFullTournamentData(ctx context.Context, tournamentID int) (*models.Tournament, error)
}

type bracketService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	prizeRepo       repositories.PrizeRepository
	userRepo        repositories.UserRepository
	hub             BracketNotifier
	logger          *slog.Logger
}

func NewBracketService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	prizeRepo repositories.PrizeRepository,
	userRepo repositories.UserRepository,
	hub BracketNotifier,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		prizeRepo:       prizeRepo,
		userRepo:        userRepo,
		hub:             hub,
		logger:          logger,
	}
}

func (s *bracketService) GenerateAndActivate(ctx context.Context, tournamentID, requesterID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}

	requester, err := s.userRepo.GetByID(ctx, requesterID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrForbiddenOperation
		}
		return nil, err
	}
	if requester.Role != models.RoleAdmin && tournament.OrganizerID != requesterID {
		return nil, ErrForbiddenOperation
	}

	if tournament.Status != models.StatusRegistration {
		return nil, fmt.Errorf("%w: bracket can only be generated from status %q, got %q",
			ErrTournamentInvalidStatusTransition, models.StatusRegistration, tournament.Status)
	}

	confirmedStatus := models.ParticipantConfirmed
	confirmed, err := s.participantRepo.ListByTournament(ctx, tournamentID, &confirmedStatus, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmed participants for tournament %d: %w", tournamentID, err)
	}

	minRequired := tournament.MinParticipants
	if minRequired < 2 {
		minRequired = 2
	}
	if len(confirmed) < minRequired {
		return nil, fmt.Errorf("%w: need at least %d, have %d",
			ErrInsufficientParticipants, minRequired, len(confirmed))
	}

	var generator brackets.BracketGenerator
	switch tournament.BracketType {
	case models.BracketSingleElimination:
		generator = brackets.NewSingleEliminationGenerator()
	case models.BracketDoubleElimination, models.BracketRoundRobin, models.BracketSwiss:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBracketType, tournament.BracketType)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrUnsupportedBracketType, tournament.BracketType)
	}

	s.logger.InfoContext(ctx, "generating bracket",
		slog.Int("tournament_id", tournamentID),
		slog.String("generator", generator.GetName()),
		slog.Int("confirmed_participants", len(confirmed)))

	generated, genErr := generator.GenerateBracket(ctx, brackets.GenerateBracketParams{
		Tournament:   tournament,
		Participants: confirmed,
	})
	if genErr != nil {
		return nil, fmt.Errorf("failed to generate bracket structure for tournament %d: %w", tournamentID, genErr)
	}
	if len(generated) == 0 {
		return nil, fmt.Errorf("bracket generation resulted in no matches for %d participants", len(confirmed))
	}

	defaultMatchTime := tournament.StartDate
	if time.Now().After(defaultMatchTime) {
		defaultMatchTime = time.Now().Add(15 * time.Minute)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	var txErr error
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("rollback failed", slog.Any("error", rbErr), slog.Any("original_error", txErr))
			}
		}
	}()

	// Метки позиций детерминированы, поэтому матчи пишутся одним проходом:
	// next_match_uid известен до того, как целевой матч попадёт в БД.
	for _, bm := range generated {
		match := &models.Match{
			TournamentID:     tournamentID,
			Round:            bm.Round,
			MatchNumber:      bm.OrderInRound,
			BracketPosition:  bm.UID,
			Participant1ID:   bm.Participant1ID,
			Participant2ID:   bm.Participant2ID,
			Status:           models.MatchStatusScheduled,
			StartTime:        &defaultMatchTime,
			NextMatchUID:     bm.NextMatchUID,
			NextLoseMatchUID: bm.NextLoseMatchUID,
		}
		if txErr = s.matchRepo.Create(ctx, tx, match); txErr != nil {
			return nil, fmt.Errorf("failed to create match %s: %w", bm.UID, txErr)
		}
	}

	if txErr = s.tournamentRepo.UpdateStatus(ctx, tx, tournamentID, models.StatusInProgress); txErr != nil {
		return nil, fmt.Errorf("failed to activate tournament %d: %w", tournamentID, txErr)
	}

	if txErr = tx.Commit(); txErr != nil {
		return nil, fmt.Errorf("failed to commit bracket for tournament %d: %w", tournamentID, txErr)
	}

	s.logger.InfoContext(ctx, "bracket generated",
		slog.Int("tournament_id", tournamentID),
		slog.Int("matches", len(generated)))

	full, fetchErr := s.GetFullTournamentData(ctx, tournamentID)
	if fetchErr != nil {
		s.logger.Warn("bracket saved but failed to fetch full tournament data",
			slog.Int("tournament_id", tournamentID), slog.Any("error", fetchErr))
		tournament.Status = models.StatusInProgress
		return tournament, nil
	}

	if s.hub != nil {
		s.hub.BroadcastToRoom(brackets.TournamentRoom(tournamentID), brackets.Event{
			Type:    brackets.EventBracketGenerated,
			Payload: full,
			RoomID:  brackets.TournamentRoom(tournamentID),
		})
	}

	return full, nil
}

// GetFullTournamentData загружает турнир вместе с участниками, матчами и
// призовой таблицей. Связанные коллекции читаются параллельно.
func (s *bracketService) GetFullTournamentData(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		participants, err := s.participantRepo.ListByTournament(gCtx, tournamentID, nil, true)
		if err != nil {
			return fmt.Errorf("failed to fetch participants: %w", err)
		}
		for _, p := range participants {
			if p.User != nil {
				p.User.PasswordHash = ""
			}
		}
		tournament.Participants = ParticipantsToValues(participants)
		return nil
	})

	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gCtx, tournamentID, nil, nil)
		if err != nil {
			return fmt.Errorf("failed to fetch matches: %w", err)
		}
		tournament.Matches = MatchesToValues(matches)
		return nil
	})

	g.Go(func() error {
		prizes, err := s.prizeRepo.ListByTournament(gCtx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to fetch prizes: %w", err)
		}
		tournament.Prizes = prizes
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load full data for tournament %d: %w", tournamentID, err)
	}
	return tournament, nil
}
