package services

import (
	"fmt"
	"time"

	"github.com/rpx-gg/tournament-service/models"
	"github.com/rpx-gg/tournament-service/storage"
)

// --- Общие хелперы ---

func validateTournamentDates(regStart, regEnd, start, end time.Time) error {
	if regStart.IsZero() || regEnd.IsZero() || start.IsZero() || end.IsZero() {
		return ErrTournamentDatesRequired
	}
	if !regStart.Before(regEnd) {
		return fmt.Errorf("%w: registration start (%s) must be before registration end (%s)",
			ErrTournamentInvalidRegWindow, regStart.Format(time.RFC3339), regEnd.Format(time.RFC3339))
	}
	if regEnd.After(start) {
		return fmt.Errorf("%w: registration end (%s) cannot be after tournament start (%s)",
			ErrTournamentInvalidRegWindow, regEnd.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	if !start.Before(end) {
		return fmt.Errorf("%w: start date (%s) must be before end date (%s)",
			ErrTournamentInvalidDateRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return nil
}

// isValidStatusTransition описывает монотонный жизненный цикл турнира:
// draft -> published -> registration -> in_progress -> completed, отмена
// возможна из любого нетерминального статуса, откаты запрещены.
func isValidStatusTransition(current, next models.TournamentStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.TournamentStatus][]models.TournamentStatus{
		models.StatusDraft:        {models.StatusPublished, models.StatusCancelled},
		models.StatusPublished:    {models.StatusRegistration, models.StatusCancelled},
		models.StatusRegistration: {models.StatusInProgress, models.StatusCancelled},
		models.StatusInProgress:   {models.StatusCompleted, models.StatusCancelled},
		models.StatusCompleted:    {},
		models.StatusCancelled:    {},
	}
	for _, allowedNextStatus := range allowedTransitions[current] {
		if next == allowedNextStatus {
			return true
		}
	}
	return false
}

func isValidTournamentStatus(status models.TournamentStatus) bool {
	switch status {
	case models.StatusDraft, models.StatusPublished, models.StatusRegistration,
		models.StatusInProgress, models.StatusCompleted, models.StatusCancelled:
		return true
	}
	return false
}

// winnerSlotFor определяет слот следующего матча для победителя: нечётный
// номер исходного матча кладёт победителя в слот 1, чётный - в слот 2.
func winnerSlotFor(sourceMatchNumber int) int {
	if sourceMatchNumber%2 == 1 {
		return 1
	}
	return 2
}

// --- Хелперы для преобразования моделей ---

func ParticipantsToValues(slice []*models.Participant) []models.Participant {
	if slice == nil {
		return []models.Participant{}
	}
	result := make([]models.Participant, len(slice))
	for i, ptr := range slice {
		if ptr != nil {
			result[i] = *ptr
		}
	}
	return result
}

func MatchesToValues(slice []*models.Match) []models.Match {
	if slice == nil {
		return []models.Match{}
	}
	result := make([]models.Match, len(slice))
	for i, ptr := range slice {
		if ptr != nil {
			result[i] = *ptr
		}
	}
	return result
}

// --- Хелперы для заполнения URL баннеров ---

func populateTournamentBannerURL(tournament *models.Tournament, uploader storage.FileUploader) {
	if tournament != nil && tournament.BannerKey != nil && *tournament.BannerKey != "" && uploader != nil {
		url := uploader.GetPublicURL(*tournament.BannerKey)
		if url != "" {
			tournament.BannerURL = &url
		}
	}
}
