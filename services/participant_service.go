package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rpx-gg/tournament-service/models"
	"github.com/rpx-gg/tournament-service/repositories"
)

// ParticipantService инкапсулирует бизнес-логику заявок на участие в турнире.
type ParticipantService interface {
	Enroll(ctx context.Context, tournamentID, userID int, teamID *int) (*models.Participant, error)
	ChangeStatus(ctx context.Context, requesterID, participantID int, status models.ParticipantStatus) (*models.Participant, error)
	SetSeed(ctx context.Context, requesterID, participantID int, seed *int) error
	Withdraw(ctx context.Context, requesterID, participantID int) error
	ListByTournament(ctx context.Context, tournamentID int, status *models.ParticipantStatus) ([]*models.Participant, error)
}

type participantService struct {
	participantRepo repositories.ParticipantRepository
	tournamentRepo  repositories.TournamentRepository
	userRepo        repositories.UserRepository
}

func NewParticipantService(
	participantRepo repositories.ParticipantRepository,
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
) ParticipantService {
	return &participantService{
		participantRepo: participantRepo,
		tournamentRepo:  tournamentRepo,
		userRepo:        userRepo,
	}
}

// Enroll добавляет пользователя в турнир на фазе регистрации.
// Статус заявки всегда pending; оплата взноса считается завершённой сразу,
// только если турнир бесплатный.
func (s *participantService) Enroll(ctx context.Context, tournamentID, userID int, teamID *int) (*models.Participant, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to check user %d: %w", userID, err)
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}

	// Регистрация возможна только в статусе registration и пока есть места.
	if tournament.Status != models.StatusRegistration {
		return nil, ErrRegistrationNotOpen
	}
	if tournament.CurrentParticipants >= tournament.MaxParticipants {
		return nil, fmt.Errorf("%w: tournament is full (%d/%d)",
			ErrRegistrationNotOpen, tournament.CurrentParticipants, tournament.MaxParticipants)
	}

	existing, err := s.participantRepo.FindByUserAndTournament(ctx, userID, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing registration: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateParticipant
	}

	paymentStatus := models.PaymentPending
	if tournament.EntryFee == 0 {
		paymentStatus = models.PaymentCompleted
	}

	participant := &models.Participant{
		TournamentID:  tournamentID,
		UserID:        userID,
		TeamID:        teamID,
		Status:        models.ParticipantPending,
		PaymentStatus: paymentStatus,
	}

	if err := s.participantRepo.Create(ctx, nil, participant); err != nil {
		// Уникальный индекс (tournament_id, user_id) закрывает гонку между
		// проверкой выше и вставкой.
		if errors.Is(err, repositories.ErrParticipantConflict) {
			return nil, ErrDuplicateParticipant
		}
		return nil, fmt.Errorf("failed to create participant: %w", err)
	}

	// Инвариант: current_participants всегда равен числу заявок.
	if _, err := s.tournamentRepo.RefreshParticipantCount(ctx, nil, tournamentID); err != nil {
		return nil, fmt.Errorf("failed to refresh participant count for tournament %d: %w", tournamentID, err)
	}

	return participant, nil
}

// ChangeStatus меняет статус заявки (confirm/decline). Доступно организатору
// турнира и администратору.
func (s *participantService) ChangeStatus(ctx context.Context, requesterID, participantID int, status models.ParticipantStatus) (*models.Participant, error) {
	switch status {
	case models.ParticipantConfirmed, models.ParticipantDeclined:
	default:
		return nil, fmt.Errorf("%w: status must be confirmed or declined", ErrValidationFailed)
	}

	participant, err := s.participantRepo.FindByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}

	if err := s.requireOrganizerOrAdmin(ctx, requesterID, participant.TournamentID); err != nil {
		return nil, err
	}

	if err := s.participantRepo.UpdateStatus(ctx, nil, participantID, status); err != nil {
		return nil, err
	}
	participant.Status = status
	return participant, nil
}

// SetSeed назначает или снимает посев участника.
func (s *participantService) SetSeed(ctx context.Context, requesterID, participantID int, seed *int) error {
	if seed != nil && *seed < 1 {
		return fmt.Errorf("%w: seed must be positive", ErrValidationFailed)
	}

	participant, err := s.participantRepo.FindByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return ErrParticipantNotFound
		}
		return err
	}

	if err := s.requireOrganizerOrAdmin(ctx, requesterID, participant.TournamentID); err != nil {
		return err
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, participant.TournamentID)
	if err != nil {
		return err
	}
	if tournament.Status != models.StatusRegistration && tournament.Status != models.StatusPublished {
		return ErrTournamentAlreadyStarted
	}

	return s.participantRepo.UpdateSeed(ctx, participantID, seed)
}

// Withdraw удаляет заявку. Разрешено самому участнику до старта турнира,
// а также организатору/администратору.
func (s *participantService) Withdraw(ctx context.Context, requesterID, participantID int) error {
	participant, err := s.participantRepo.FindByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return ErrParticipantNotFound
		}
		return err
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, participant.TournamentID)
	if err != nil {
		return err
	}

	if participant.UserID != requesterID {
		if err := s.requireOrganizerOrAdmin(ctx, requesterID, participant.TournamentID); err != nil {
			return err
		}
	}
	if tournament.Status == models.StatusInProgress || tournament.Status.IsTerminal() {
		return ErrTournamentAlreadyStarted
	}

	if err := s.participantRepo.Delete(ctx, participantID); err != nil {
		return err
	}

	if _, err := s.tournamentRepo.RefreshParticipantCount(ctx, nil, participant.TournamentID); err != nil {
		return fmt.Errorf("failed to refresh participant count for tournament %d: %w", participant.TournamentID, err)
	}
	return nil
}

func (s *participantService) ListByTournament(ctx context.Context, tournamentID int, status *models.ParticipantStatus) ([]*models.Participant, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	participants, err := s.participantRepo.ListByTournament(ctx, tournamentID, status, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants for tournament %d: %w", tournamentID, err)
	}
	for _, p := range participants {
		if p.User != nil {
			p.User.PasswordHash = ""
		}
	}
	return participants, nil
}

func (s *participantService) requireOrganizerOrAdmin(ctx context.Context, requesterID, tournamentID int) error {
	requester, err := s.userRepo.GetByID(ctx, requesterID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrForbiddenOperation
		}
		return err
	}
	if requester.Role == models.RoleAdmin {
		return nil
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return err
	}
	if tournament.OrganizerID != requesterID {
		return ErrForbiddenOperation
	}
	return nil
}
