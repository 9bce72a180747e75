package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rpx-gg/tournament-service/brackets"
	"github.com/rpx-gg/tournament-service/models"
	"github.com/rpx-gg/tournament-service/repositories"
	"github.com/rpx-gg/tournament-service/storage"
)

type CreateTournamentInput struct {
	Name              string                  `json:"name"`
	Description       *string                 `json:"description"`
	Format            models.TournamentFormat `json:"format"`
	BracketType       models.BracketType      `json:"bracket_type"`
	EntryFee          float64                 `json:"entry_fee"`
	PrizePool         float64                 `json:"prize_pool"`
	MinParticipants   int                     `json:"min_participants"`
	MaxParticipants   int                     `json:"max_participants"`
	RegistrationStart time.Time               `json:"registration_start"`
	RegistrationEnd   time.Time               `json:"registration_end"`
	StartDate         time.Time               `json:"start_date"`
	EndDate           time.Time               `json:"end_date"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error)
	// GetTournamentByID возвращает турнир с участниками, матчами и призами.
	GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	UpdateTournament(ctx context.Context, requesterID, id int, input CreateTournamentInput) (*models.Tournament, error)
	// ChangeStatus выполняет ручные переходы жизненного цикла
	// (draft -> published -> registration, отмена). Переходы in_progress и
	// completed делаются генерацией сетки и процессором результатов.
	ChangeStatus(ctx context.Context, requesterID, id int, status models.TournamentStatus) (*models.Tournament, error)
	SetPrizes(ctx context.Context, requesterID, id int, prizes []models.Prize) ([]models.Prize, error)
	UploadBanner(ctx context.Context, requesterID, id int, contentType string, reader io.Reader) (*models.Tournament, error)
	DeleteTournament(ctx context.Context, requesterID, id int) error
	// AutoUpdateTournamentStatusesByDates - проход планировщика: открывает
	// регистрацию опубликованным турнирам, чьё окно уже наступило.
	AutoUpdateTournamentStatusesByDates(ctx context.Context) error
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	prizeRepo      repositories.PrizeRepository
	userRepo       repositories.UserRepository
	bracketService BracketService
	uploader       storage.FileUploader
	hub            BracketNotifier
	logger         *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	prizeRepo repositories.PrizeRepository,
	userRepo repositories.UserRepository,
	bracketService BracketService,
	uploader storage.FileUploader,
	hub BracketNotifier,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		prizeRepo:      prizeRepo,
		userRepo:       userRepo,
		bracketService: bracketService,
		uploader:       uploader,
		hub:            hub,
		logger:         logger,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error) {
	if err := validateTournamentInput(input); err != nil {
		return nil, err
	}

	organizer, err := s.userRepo.GetByID(ctx, organizerID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if organizer.Role != models.RoleOrganizer && organizer.Role != models.RoleAdmin {
		return nil, ErrForbiddenOperation
	}

	tournament := &models.Tournament{
		Name:              strings.TrimSpace(input.Name),
		Description:       input.Description,
		OrganizerID:       organizerID,
		Format:            input.Format,
		BracketType:       input.BracketType,
		Status:            models.StatusDraft,
		EntryFee:          input.EntryFee,
		PrizePool:         input.PrizePool,
		MinParticipants:   input.MinParticipants,
		MaxParticipants:   input.MaxParticipants,
		RegistrationStart: input.RegistrationStart,
		RegistrationEnd:   input.RegistrationEnd,
		StartDate:         input.StartDate,
		EndDate:           input.EndDate,
	}

	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return tournament, nil
}

func (s *tournamentService) GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.bracketService.GetFullTournamentData(ctx, id)
	if err != nil {
		return nil, err
	}
	populateTournamentBannerURL(tournament, s.uploader)
	return tournament, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	for i := range tournaments {
		populateTournamentBannerURL(&tournaments[i], s.uploader)
	}
	return tournaments, nil
}

func (s *tournamentService) UpdateTournament(ctx context.Context, requesterID, id int, input CreateTournamentInput) (*models.Tournament, error) {
	tournament, err := s.loadOwned(ctx, requesterID, id)
	if err != nil {
		return nil, err
	}
	if tournament.Status == models.StatusInProgress || tournament.Status.IsTerminal() {
		return nil, ErrTournamentAlreadyStarted
	}
	if err := validateTournamentInput(input); err != nil {
		return nil, err
	}
	if input.MaxParticipants < tournament.CurrentParticipants {
		return nil, fmt.Errorf("%w: max participants (%d) below current registrations (%d)",
			ErrTournamentInvalidCapacity, input.MaxParticipants, tournament.CurrentParticipants)
	}

	tournament.Name = strings.TrimSpace(input.Name)
	tournament.Description = input.Description
	tournament.Format = input.Format
	tournament.BracketType = input.BracketType
	tournament.EntryFee = input.EntryFee
	tournament.PrizePool = input.PrizePool
	tournament.MinParticipants = input.MinParticipants
	tournament.MaxParticipants = input.MaxParticipants
	tournament.RegistrationStart = input.RegistrationStart
	tournament.RegistrationEnd = input.RegistrationEnd
	tournament.StartDate = input.StartDate
	tournament.EndDate = input.EndDate

	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		return nil, fmt.Errorf("failed to update tournament %d: %w", id, err)
	}
	return tournament, nil
}

func (s *tournamentService) ChangeStatus(ctx context.Context, requesterID, id int, status models.TournamentStatus) (*models.Tournament, error) {
	if !isValidTournamentStatus(status) {
		return nil, ErrTournamentInvalidStatus
	}
	// Эти переходы принадлежат генератору сетки и процессору результатов.
	if status == models.StatusInProgress || status == models.StatusCompleted {
		return nil, fmt.Errorf("%w: status %q cannot be set manually", ErrTournamentInvalidStatusTransition, status)
	}

	tournament, err := s.loadOwned(ctx, requesterID, id)
	if err != nil {
		return nil, err
	}
	if !isValidStatusTransition(tournament.Status, status) {
		return nil, fmt.Errorf("%w: %q -> %q", ErrTournamentInvalidStatusTransition, tournament.Status, status)
	}

	if err := s.tournamentRepo.UpdateStatus(ctx, nil, id, status); err != nil {
		return nil, err
	}
	tournament.Status = status

	if s.hub != nil {
		room := brackets.TournamentRoom(id)
		s.hub.BroadcastToRoom(room, brackets.Event{
			Type:    brackets.EventTournamentStatus,
			Payload: map[string]interface{}{"tournament_id": id, "status": status},
			RoomID:  room,
		})
	}
	return tournament, nil
}

func (s *tournamentService) SetPrizes(ctx context.Context, requesterID, id int, prizes []models.Prize) ([]models.Prize, error) {
	tournament, err := s.loadOwned(ctx, requesterID, id)
	if err != nil {
		return nil, err
	}
	if tournament.Status == models.StatusInProgress || tournament.Status.IsTerminal() {
		return nil, ErrTournamentAlreadyStarted
	}

	seen := make(map[int]bool, len(prizes))
	for _, p := range prizes {
		if p.Position < 1 || seen[p.Position] {
			return nil, ErrPrizeInvalidPosition
		}
		seen[p.Position] = true
		for _, item := range p.Items {
			if item.Quantity < 1 {
				return nil, fmt.Errorf("%w: item quantity must be at least 1", ErrValidationFailed)
			}
		}
	}

	saved, err := s.prizeRepo.ReplaceForTournament(ctx, nil, id, prizes)
	if err != nil {
		return nil, fmt.Errorf("failed to save prizes for tournament %d: %w", id, err)
	}
	return saved, nil
}

func (s *tournamentService) UploadBanner(ctx context.Context, requesterID, id int, contentType string, reader io.Reader) (*models.Tournament, error) {
	tournament, err := s.loadOwned(ctx, requesterID, id)
	if err != nil {
		return nil, err
	}

	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	oldKey := tournament.BannerKey
	key := fmt.Sprintf("tournaments/%d/banner_%d%s", id, time.Now().UnixNano(), ext)

	if _, err := s.uploader.Upload(ctx, key, contentType, reader); err != nil {
		return nil, fmt.Errorf("failed to upload banner for tournament %d: %w", id, err)
	}
	if err := s.tournamentRepo.UpdateBannerKey(ctx, id, &key); err != nil {
		return nil, err
	}

	if oldKey != nil && *oldKey != "" {
		if delErr := s.uploader.Delete(ctx, *oldKey); delErr != nil {
			s.logger.Warn("failed to delete previous banner",
				slog.String("key", *oldKey), slog.Any("error", delErr))
		}
	}

	tournament.BannerKey = &key
	populateTournamentBannerURL(tournament, s.uploader)
	return tournament, nil
}

func (s *tournamentService) DeleteTournament(ctx context.Context, requesterID, id int) error {
	if _, err := s.loadOwned(ctx, requesterID, id); err != nil {
		return err
	}
	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrTournamentInUse) {
			return fmt.Errorf("%w: tournament has participants or matches", ErrTournamentAlreadyStarted)
		}
		return err
	}
	return nil
}

func (s *tournamentService) AutoUpdateTournamentStatusesByDates(ctx context.Context) error {
	due, err := s.tournamentRepo.GetTournamentsForAutoStatusUpdate(ctx, nil, time.Now())
	if err != nil {
		return fmt.Errorf("failed to fetch tournaments for auto status update: %w", err)
	}

	for _, t := range due {
		if err := s.tournamentRepo.UpdateStatus(ctx, nil, t.ID, models.StatusRegistration); err != nil {
			s.logger.Error("failed to open registration",
				slog.Int("tournament_id", t.ID), slog.Any("error", err))
			continue
		}
		s.logger.InfoContext(ctx, "registration opened by scheduler", slog.Int("tournament_id", t.ID))

		if s.hub != nil {
			room := brackets.TournamentRoom(t.ID)
			s.hub.BroadcastToRoom(room, brackets.Event{
				Type:    brackets.EventTournamentStatus,
				Payload: map[string]interface{}{"tournament_id": t.ID, "status": models.StatusRegistration},
				RoomID:  room,
			})
		}
	}
	return nil
}

func (s *tournamentService) loadOwned(ctx context.Context, requesterID, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
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
	return tournament, nil
}

func validateTournamentInput(input CreateTournamentInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return ErrTournamentNameRequired
	}
	switch input.Format {
	case models.FormatSolo, models.FormatDuo, models.FormatSquad, models.FormatCustom:
	default:
		return fmt.Errorf("%w: unknown format %q", ErrValidationFailed, input.Format)
	}
	switch input.BracketType {
	case models.BracketSingleElimination, models.BracketDoubleElimination,
		models.BracketRoundRobin, models.BracketSwiss:
	default:
		return fmt.Errorf("%w: unknown bracket type %q", ErrValidationFailed, input.BracketType)
	}
	if input.EntryFee < 0 || input.PrizePool < 0 {
		return ErrTournamentInvalidEntryFee
	}
	if input.MinParticipants < 2 || input.MaxParticipants < input.MinParticipants {
		return ErrTournamentInvalidCapacity
	}
	return validateTournamentDates(input.RegistrationStart, input.RegistrationEnd, input.StartDate, input.EndDate)
}

// GetExtensionFromContentType подбирает расширение файла по content type
// загружаемого изображения.
func GetExtensionFromContentType(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	default:
		parts := strings.Split(contentType, "/")
		if len(parts) == 2 && strings.HasPrefix(parts[0], "image") && parts[1] != "" {
			// Отбрасываем суффиксы вида "+xml" (например, "image/svg+xml")
			return "." + strings.Split(parts[1], "+")[0], nil
		}
		return "", fmt.Errorf("could not determine file extension from content type: %q", contentType)
	}
}
