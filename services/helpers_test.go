package services

import (
	"errors"
	"testing"
	"time"

	"github.com/rpx-gg/tournament-service/models"
)

func TestIsValidStatusTransition(t *testing.T) {
	tests := []struct {
		current models.TournamentStatus
		next    models.TournamentStatus
		want    bool
	}{
		{models.StatusDraft, models.StatusPublished, true},
		{models.StatusPublished, models.StatusRegistration, true},
		{models.StatusRegistration, models.StatusInProgress, true},
		{models.StatusInProgress, models.StatusCompleted, true},

		// Отмена возможна из любого нетерминального статуса
		{models.StatusDraft, models.StatusCancelled, true},
		{models.StatusPublished, models.StatusCancelled, true},
		{models.StatusRegistration, models.StatusCancelled, true},
		{models.StatusInProgress, models.StatusCancelled, true},

		// Откаты запрещены
		{models.StatusPublished, models.StatusDraft, false},
		{models.StatusRegistration, models.StatusPublished, false},
		{models.StatusInProgress, models.StatusRegistration, false},

		// Перескоки запрещены
		{models.StatusDraft, models.StatusRegistration, false},
		{models.StatusPublished, models.StatusInProgress, false},
		{models.StatusDraft, models.StatusCompleted, false},

		// Терминальные статусы финальны
		{models.StatusCompleted, models.StatusCancelled, false},
		{models.StatusCancelled, models.StatusDraft, false},
		{models.StatusCompleted, models.StatusInProgress, false},

		// Переход в себя - no-op, разрешён
		{models.StatusDraft, models.StatusDraft, true},
	}

	for _, tt := range tests {
		got := isValidStatusTransition(tt.current, tt.next)
		if got != tt.want {
			t.Errorf("isValidStatusTransition(%s, %s) = %v, want %v", tt.current, tt.next, got, tt.want)
		}
	}
}

func TestWinnerSlotFor(t *testing.T) {
	tests := []struct {
		sourceMatchNumber int
		want              int
	}{
		{1, 1},
		{2, 2},
		{3, 1},
		{4, 2},
		{7, 1},
		{8, 2},
	}

	for _, tt := range tests {
		if got := winnerSlotFor(tt.sourceMatchNumber); got != tt.want {
			t.Errorf("winnerSlotFor(%d) = %d, want %d", tt.sourceMatchNumber, got, tt.want)
		}
	}
}

func TestValidateTournamentDates(t *testing.T) {
	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		name     string
		regStart time.Time
		regEnd   time.Time
		start    time.Time
		end      time.Time
		wantErr  error
	}{
		{
			name:     "valid window",
			regStart: base, regEnd: base.Add(day), start: base.Add(2 * day), end: base.Add(3 * day),
		},
		{
			name:     "registration ends at start",
			regStart: base, regEnd: base.Add(2 * day), start: base.Add(2 * day), end: base.Add(3 * day),
		},
		{
			name:    "missing dates",
			wantErr: ErrTournamentDatesRequired,
		},
		{
			name:     "registration window inverted",
			regStart: base.Add(day), regEnd: base, start: base.Add(2 * day), end: base.Add(3 * day),
			wantErr: ErrTournamentInvalidRegWindow,
		},
		{
			name:     "registration ends after start",
			regStart: base, regEnd: base.Add(3 * day), start: base.Add(2 * day), end: base.Add(4 * day),
			wantErr: ErrTournamentInvalidRegWindow,
		},
		{
			name:     "end before start",
			regStart: base, regEnd: base.Add(day), start: base.Add(3 * day), end: base.Add(2 * day),
			wantErr: ErrTournamentInvalidDateRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTournamentDates(tt.regStart, tt.regEnd, tt.start, tt.end)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetExtensionFromContentType(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
		wantErr     bool
	}{
		{"image/jpeg", ".jpg", false},
		{"image/png", ".png", false},
		{"image/webp", ".webp", false},
		{"image/svg+xml", ".svg", false},
		{"application/pdf", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := GetExtensionFromContentType(tt.contentType)
		if tt.wantErr {
			if err == nil {
				t.Errorf("GetExtensionFromContentType(%q) expected error, got %q", tt.contentType, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("GetExtensionFromContentType(%q): %v", tt.contentType, err)
			continue
		}
		if got != tt.want {
			t.Errorf("GetExtensionFromContentType(%q) = %q, want %q", tt.contentType, got, tt.want)
		}
	}
}
