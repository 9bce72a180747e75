package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpx-gg/tournament-service/brackets"
	"github.com/rpx-gg/tournament-service/models"
	"github.com/rpx-gg/tournament-service/repositories"
)

// ReportResultInput - заявка на фиксацию результата матча.
type ReportResultInput struct {
	TournamentID        int
	MatchID             int
	ReporterID          int
	Score1              int
	Score2              int
	WinnerParticipantID int
}

// ReportResultOutput - итог фиксации: финализированный матч и актуальный
// статус турнира (completed, если закрыт последний матч).
type ReportResultOutput struct {
	Match            *models.Match           `json:"match"`
	TournamentStatus models.TournamentStatus `json:"tournament_status"`
}

type MatchService interface {
	ListByTournament(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.Match, error)
	// ReportResult валидирует и фиксирует результат матча, продвигает
	// победителя (и проигравшего для double elimination) по сетке и
	// завершает турнир, когда терминальны все матчи.
	ReportResult(ctx context.Context, input ReportResultInput) (*ReportResultOutput, error)
	StartMatch(ctx context.Context, requesterID, tournamentID, matchID int) (*models.Match, error)
	SetRoomCredentials(ctx context.Context, requesterID, tournamentID, matchID int, roomID, roomPassword *string) error
}

type matchService struct {
	matchRepo       repositories.MatchRepository
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	userRepo        repositories.UserRepository
	hub             BracketNotifier
	logger          *slog.Logger
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	userRepo repositories.UserRepository,
	hub BracketNotifier,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		matchRepo:       matchRepo,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		userRepo:        userRepo,
		hub:             hub,
		logger:          logger,
	}
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID, round, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for tournament %d: %w", tournamentID, err)
	}
	return matches, nil
}

func (s *matchService) ReportResult(ctx context.Context, input ReportResultInput) (*ReportResultOutput, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, input.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", input.TournamentID, err)
	}
	if tournament.Status != models.StatusInProgress {
		return nil, ErrTournamentNotActive
	}

	match, err := s.matchRepo.GetByID(ctx, input.MatchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to load match %d: %w", input.MatchID, err)
	}
	if match.TournamentID != input.TournamentID {
		return nil, ErrMatchNotFound
	}

	if err := s.authorizeReporter(ctx, input.ReporterID, match); err != nil {
		return nil, err
	}

	if match.Status.IsTerminal() {
		return nil, ErrMatchAlreadyFinalized
	}
	if !match.HasBothParticipants() {
		return nil, ErrMatchIncomplete
	}

	winnerID := input.WinnerParticipantID
	var loserID int
	switch winnerID {
	case *match.Participant1ID:
		loserID = *match.Participant2ID
	case *match.Participant2ID:
		loserID = *match.Participant1ID
	default:
		return nil, ErrInvalidWinner
	}

	now := time.Now()
	// Условное обновление по статусу: конкурирующая фиксация того же матча
	// проигрывает гонку и получает ErrMatchAlreadyFinalized вместо
	// молчаливой перезаписи результата.
	err = s.matchRepo.FinalizeResult(ctx, nil, match.ID, input.Score1, input.Score2, winnerID, loserID, now)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchFinalizedConflict) {
			return nil, ErrMatchAlreadyFinalized
		}
		return nil, fmt.Errorf("failed to finalize match %d: %w", match.ID, err)
	}

	match.Score1 = &input.Score1
	match.Score2 = &input.Score2
	match.WinnerParticipantID = &winnerID
	match.LoserParticipantID = &loserID
	match.Status = models.MatchStatusCompleted
	match.EndTime = &now

	if err := s.advance(ctx, match, winnerID, loserID); err != nil {
		return nil, err
	}

	// Проигравший однораундового выбывания исключается из турнира, если его
	// не ждёт нижняя сетка.
	if match.NextLoseMatchUID == nil {
		if err := s.participantRepo.UpdateStatus(ctx, nil, loserID, models.ParticipantEliminated); err != nil {
			s.logger.Warn("failed to mark participant eliminated",
				slog.Int("participant_id", loserID), slog.Any("error", err))
		}
	}

	tournamentStatus := tournament.Status
	remaining, err := s.matchRepo.CountUnfinished(ctx, nil, input.TournamentID)
	if err != nil {
		return nil, err
	}
	if remaining == 0 {
		if err := s.tournamentRepo.UpdateStatus(ctx, nil, input.TournamentID, models.StatusCompleted); err != nil {
			return nil, fmt.Errorf("failed to complete tournament %d: %w", input.TournamentID, err)
		}
		tournamentStatus = models.StatusCompleted
		s.logger.InfoContext(ctx, "tournament completed",
			slog.Int("tournament_id", input.TournamentID),
			slog.Int("final_match_id", match.ID))
	}

	if s.hub != nil {
		room := brackets.TournamentRoom(input.TournamentID)
		s.hub.BroadcastToRoom(room, brackets.Event{
			Type:    brackets.EventMatchResult,
			Payload: match,
			RoomID:  room,
		})
		if tournamentStatus == models.StatusCompleted {
			s.hub.BroadcastToRoom(room, brackets.Event{
				Type:    brackets.EventTournamentCompleted,
				Payload: map[string]interface{}{"tournament_id": input.TournamentID, "winner_participant_id": winnerID},
				RoomID:  room,
			})
		}
	}

	return &ReportResultOutput{Match: match, TournamentStatus: tournamentStatus}, nil
}

// advance помещает победителя (и проигравшего при наличии нижней сетки) в
// следующие матчи по меткам next_match_uid/next_lose_match_uid.
func (s *matchService) advance(ctx context.Context, match *models.Match, winnerID, loserID int) error {
	if match.NextMatchUID != nil {
		if err := s.placeIntoMatch(ctx, match.TournamentID, *match.NextMatchUID, match.MatchNumber, winnerID); err != nil {
			return fmt.Errorf("failed to advance winner from %s: %w", match.BracketPosition, err)
		}
	}
	if match.NextLoseMatchUID != nil {
		if err := s.placeIntoMatch(ctx, match.TournamentID, *match.NextLoseMatchUID, match.MatchNumber, loserID); err != nil {
			return fmt.Errorf("failed to advance loser from %s: %w", match.BracketPosition, err)
		}
	}
	return nil
}

func (s *matchService) placeIntoMatch(ctx context.Context, tournamentID int, targetUID string, sourceMatchNumber, participantID int) error {
	target, err := s.matchRepo.GetByBracketPosition(ctx, nil, tournamentID, targetUID)
	if err != nil {
		return err
	}

	slot := winnerSlotFor(sourceMatchNumber)
	if _, err := s.matchRepo.SetParticipantSlot(ctx, nil, target.ID, slot, participantID); err != nil {
		return err
	}
	return nil
}

// authorizeReporter: результат может фиксировать администратор либо
// пользователь, стоящий за одним из участников матча.
func (s *matchService) authorizeReporter(ctx context.Context, reporterID int, match *models.Match) error {
	reporter, err := s.userRepo.GetByID(ctx, reporterID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrResultReportForbidden
		}
		return err
	}
	if reporter.Role == models.RoleAdmin {
		return nil
	}

	for _, pid := range []*int{match.Participant1ID, match.Participant2ID} {
		if pid == nil {
			continue
		}
		participant, err := s.participantRepo.FindByID(ctx, *pid)
		if err != nil {
			if errors.Is(err, repositories.ErrParticipantNotFound) {
				continue
			}
			return err
		}
		if participant.UserID == reporterID {
			return nil
		}
	}
	return ErrResultReportForbidden
}

// requireOrganizerOrAdmin: административные действия над матчем доступны
// только администратору или организатору турнира.
func (s *matchService) requireOrganizerOrAdmin(ctx context.Context, requesterID int, tournament *models.Tournament) error {
	requester, err := s.userRepo.GetByID(ctx, requesterID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrForbiddenOperation
		}
		return err
	}
	if requester.Role != models.RoleAdmin && tournament.OrganizerID != requesterID {
		return ErrForbiddenOperation
	}
	return nil
}

func (s *matchService) StartMatch(ctx context.Context, requesterID, tournamentID, matchID int) (*models.Match, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.Status != models.StatusInProgress {
		return nil, ErrTournamentNotActive
	}

	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	if match.TournamentID != tournamentID {
		return nil, ErrMatchNotFound
	}

	if err := s.requireOrganizerOrAdmin(ctx, requesterID, tournament); err != nil {
		return nil, err
	}

	if match.Status == models.MatchStatusInProgress {
		return nil, ErrMatchAlreadyStarted
	}
	if match.Status != models.MatchStatusScheduled {
		return nil, ErrMatchAlreadyFinalized
	}
	if !match.HasBothParticipants() {
		return nil, ErrMatchIncomplete
	}

	if err := s.matchRepo.UpdateStatus(ctx, nil, matchID, models.MatchStatusInProgress); err != nil {
		return nil, err
	}
	match.Status = models.MatchStatusInProgress
	return match, nil
}

func (s *matchService) SetRoomCredentials(ctx context.Context, requesterID, tournamentID, matchID int, roomID, roomPassword *string) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}

	if err := s.requireOrganizerOrAdmin(ctx, requesterID, tournament); err != nil {
		return err
	}

	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return err
	}
	if match.TournamentID != tournamentID {
		return ErrMatchNotFound
	}
	if match.Status.IsTerminal() {
		return ErrMatchAlreadyFinalized
	}

	return s.matchRepo.UpdateRoomCredentials(ctx, matchID, roomID, roomPassword)
}
