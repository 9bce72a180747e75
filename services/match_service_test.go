package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/rpx-gg/tournament-service/models"
)

func intPtr(v int) *int { return &v }

func strPtr(s string) *string { return &s }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fourPlayerBracket собирает турнир in_progress с сеткой на 4 участников:
// WR1M1 (p1 vs p2), WR1M2 (p3 vs p4) -> WR2M1.
type bracketFixture struct {
	svc          MatchService
	tournaments  *fakeTournamentRepo
	participants *fakeParticipantRepo
	matches      *fakeMatchRepo
	users        *fakeUserRepo
	hub          *fakeHub
}

func fourPlayerBracket(t *testing.T) *bracketFixture {
	t.Helper()

	users := newFakeUserRepo(
		&models.User{ID: 1, Role: models.RoleAdmin},
		&models.User{ID: 2, Role: models.RoleOrganizer},
		&models.User{ID: 101, Role: models.RolePlayer},
		&models.User{ID: 102, Role: models.RolePlayer},
		&models.User{ID: 103, Role: models.RolePlayer},
		&models.User{ID: 104, Role: models.RolePlayer},
	)
	participants := newFakeParticipantRepo(
		&models.Participant{ID: 11, TournamentID: 1, UserID: 101, Status: models.ParticipantConfirmed},
		&models.Participant{ID: 12, TournamentID: 1, UserID: 102, Status: models.ParticipantConfirmed},
		&models.Participant{ID: 13, TournamentID: 1, UserID: 103, Status: models.ParticipantConfirmed},
		&models.Participant{ID: 14, TournamentID: 1, UserID: 104, Status: models.ParticipantConfirmed},
	)
	tournaments := newFakeTournamentRepo(&models.Tournament{
		ID:          1,
		OrganizerID: 2,
		Status:      models.StatusInProgress,
		BracketType: models.BracketSingleElimination,
	})
	tournaments.participants = participants

	matches := newFakeMatchRepo(
		&models.Match{
			ID: 1, TournamentID: 1, Round: 1, MatchNumber: 1, BracketPosition: "WR1M1",
			Participant1ID: intPtr(11), Participant2ID: intPtr(12),
			Status: models.MatchStatusScheduled, NextMatchUID: strPtr("WR2M1"),
		},
		&models.Match{
			ID: 2, TournamentID: 1, Round: 1, MatchNumber: 2, BracketPosition: "WR1M2",
			Participant1ID: intPtr(13), Participant2ID: intPtr(14),
			Status: models.MatchStatusScheduled, NextMatchUID: strPtr("WR2M1"),
		},
		&models.Match{
			ID: 3, TournamentID: 1, Round: 2, MatchNumber: 1, BracketPosition: "WR2M1",
			Status: models.MatchStatusScheduled,
		},
	)

	hub := &fakeHub{}
	svc := NewMatchService(matches, tournaments, participants, users, hub, discardLogger())

	return &bracketFixture{
		svc:          svc,
		tournaments:  tournaments,
		participants: participants,
		matches:      matches,
		users:        users,
		hub:          hub,
	}
}

func TestReportResultAdvancesWinner(t *testing.T) {
	f := fourPlayerBracket(t)
	ctx := context.Background()

	out, err := f.svc.ReportResult(ctx, ReportResultInput{
		TournamentID: 1, MatchID: 1, ReporterID: 1,
		Score1: 2, Score2: 0, WinnerParticipantID: 11,
	})
	if err != nil {
		t.Fatalf("ReportResult: %v", err)
	}

	if out.Match.Status != models.MatchStatusCompleted {
		t.Errorf("match status = %s, want completed", out.Match.Status)
	}
	if out.Match.WinnerParticipantID == nil || *out.Match.WinnerParticipantID != 11 {
		t.Errorf("winner = %v, want 11", out.Match.WinnerParticipantID)
	}
	if out.TournamentStatus != models.StatusInProgress {
		t.Errorf("tournament status = %s, want in_progress", out.TournamentStatus)
	}

	// Победитель WR1M1 (нечётный номер) занимает слот 1 финала.
	final, _ := f.matches.GetByID(ctx, 3)
	if final.Participant1ID == nil || *final.Participant1ID != 11 {
		t.Errorf("final slot1 = %v, want 11", final.Participant1ID)
	}
	if final.Participant2ID != nil {
		t.Errorf("final slot2 = %v, want empty", final.Participant2ID)
	}

	// Проигравший выбывает: нижней сетки у single elimination нет.
	loser, _ := f.participants.FindByID(ctx, 12)
	if loser.Status != models.ParticipantEliminated {
		t.Errorf("loser status = %s, want eliminated", loser.Status)
	}
}

func TestReportResultEvenMatchFillsSlotTwo(t *testing.T) {
	f := fourPlayerBracket(t)
	ctx := context.Background()

	if _, err := f.svc.ReportResult(ctx, ReportResultInput{
		TournamentID: 1, MatchID: 2, ReporterID: 1,
		Score1: 0, Score2: 2, WinnerParticipantID: 14,
	}); err != nil {
		t.Fatalf("ReportResult: %v", err)
	}

	final, _ := f.matches.GetByID(ctx, 3)
	if final.Participant2ID == nil || *final.Participant2ID != 14 {
		t.Errorf("final slot2 = %v, want 14", final.Participant2ID)
	}
	if final.Participant1ID != nil {
		t.Errorf("final slot1 = %v, want empty", final.Participant1ID)
	}
}

func TestReportResultCompletesTournament(t *testing.T) {
	f := fourPlayerBracket(t)
	ctx := context.Background()

	reports := []ReportResultInput{
		{TournamentID: 1, MatchID: 1, ReporterID: 1, Score1: 2, Score2: 1, WinnerParticipantID: 11},
		{TournamentID: 1, MatchID: 2, ReporterID: 1, Score1: 1, Score2: 2, WinnerParticipantID: 14},
		{TournamentID: 1, MatchID: 3, ReporterID: 1, Score1: 3, Score2: 2, WinnerParticipantID: 11},
	}

	var last *ReportResultOutput
	for _, input := range reports {
		out, err := f.svc.ReportResult(ctx, input)
		if err != nil {
			t.Fatalf("ReportResult(%s): %v", "match", err)
		}
		last = out
	}

	if last.TournamentStatus != models.StatusCompleted {
		t.Errorf("tournament status after final = %s, want completed", last.TournamentStatus)
	}
	tournament, _ := f.tournaments.GetByID(ctx, 1)
	if tournament.Status != models.StatusCompleted {
		t.Errorf("stored tournament status = %s, want completed", tournament.Status)
	}
}

func TestReportResultFailureModes(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(f *bracketFixture)
		input   ReportResultInput
		wantErr error
	}{
		{
			name: "tournament not active",
			prepare: func(f *bracketFixture) {
				_ = f.tournaments.UpdateStatus(context.Background(), nil, 1, models.StatusRegistration)
			},
			input:   ReportResultInput{TournamentID: 1, MatchID: 1, ReporterID: 1, WinnerParticipantID: 11},
			wantErr: ErrTournamentNotActive,
		},
		{
			name:    "match not found",
			input:   ReportResultInput{TournamentID: 1, MatchID: 99, ReporterID: 1, WinnerParticipantID: 11},
			wantErr: ErrMatchNotFound,
		},
		{
			name:    "match from another tournament",
			prepare: func(f *bracketFixture) {
				f.tournaments.tournaments[2] = &models.Tournament{ID: 2, Status: models.StatusInProgress}
			},
			input:   ReportResultInput{TournamentID: 2, MatchID: 1, ReporterID: 1, WinnerParticipantID: 11},
			wantErr: ErrMatchNotFound,
		},
		{
			name:    "reporter is unrelated player",
			input:   ReportResultInput{TournamentID: 1, MatchID: 1, ReporterID: 103, WinnerParticipantID: 11},
			wantErr: ErrResultReportForbidden,
		},
		{
			name: "match already finalized",
			prepare: func(f *bracketFixture) {
				_, err := f.svc.ReportResult(context.Background(), ReportResultInput{
					TournamentID: 1, MatchID: 1, ReporterID: 1, Score1: 1, Score2: 0, WinnerParticipantID: 11,
				})
				if err != nil {
					panic(err)
				}
			},
			input:   ReportResultInput{TournamentID: 1, MatchID: 1, ReporterID: 1, WinnerParticipantID: 12},
			wantErr: ErrMatchAlreadyFinalized,
		},
		{
			name:    "match missing participant",
			input:   ReportResultInput{TournamentID: 1, MatchID: 3, ReporterID: 1, WinnerParticipantID: 11},
			wantErr: ErrMatchIncomplete,
		},
		{
			name:    "winner not in match",
			input:   ReportResultInput{TournamentID: 1, MatchID: 1, ReporterID: 1, WinnerParticipantID: 13},
			wantErr: ErrInvalidWinner,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fourPlayerBracket(t)
			if tt.prepare != nil {
				tt.prepare(f)
			}

			_, err := f.svc.ReportResult(context.Background(), tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ReportResult error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestReportResultInvalidWinnerLeavesMatchUntouched(t *testing.T) {
	f := fourPlayerBracket(t)
	ctx := context.Background()

	_, err := f.svc.ReportResult(ctx, ReportResultInput{
		TournamentID: 1, MatchID: 1, ReporterID: 1,
		Score1: 2, Score2: 0, WinnerParticipantID: 999,
	})
	if !errors.Is(err, ErrInvalidWinner) {
		t.Fatalf("error = %v, want ErrInvalidWinner", err)
	}

	match, _ := f.matches.GetByID(ctx, 1)
	if match.Status != models.MatchStatusScheduled {
		t.Errorf("match status = %s, want scheduled", match.Status)
	}
	if match.WinnerParticipantID != nil || match.Score1 != nil {
		t.Errorf("match was modified despite invalid winner: winner=%v score1=%v",
			match.WinnerParticipantID, match.Score1)
	}
}

func TestReportResultByMatchParticipant(t *testing.T) {
	f := fourPlayerBracket(t)

	// Пользователь 102 стоит за участником 12 матча WR1M1.
	out, err := f.svc.ReportResult(context.Background(), ReportResultInput{
		TournamentID: 1, MatchID: 1, ReporterID: 102,
		Score1: 0, Score2: 2, WinnerParticipantID: 12,
	})
	if err != nil {
		t.Fatalf("ReportResult by participant: %v", err)
	}
	if *out.Match.WinnerParticipantID != 12 {
		t.Errorf("winner = %d, want 12", *out.Match.WinnerParticipantID)
	}
}

func TestStartMatch(t *testing.T) {
	f := fourPlayerBracket(t)
	ctx := context.Background()

	// Организатор турнира запускает матч.
	match, err := f.svc.StartMatch(ctx, 2, 1, 1)
	if err != nil {
		t.Fatalf("StartMatch: %v", err)
	}
	if match.Status != models.MatchStatusInProgress {
		t.Errorf("match status = %s, want in_progress", match.Status)
	}

	// Повторный запуск того же матча - конфликт.
	if _, err := f.svc.StartMatch(ctx, 2, 1, 1); !errors.Is(err, ErrMatchAlreadyStarted) {
		t.Errorf("repeated StartMatch error = %v, want ErrMatchAlreadyStarted", err)
	}

	// Финал без участников стартовать нельзя.
	if _, err := f.svc.StartMatch(ctx, 1, 1, 3); !errors.Is(err, ErrMatchIncomplete) {
		t.Errorf("StartMatch on empty final error = %v, want ErrMatchIncomplete", err)
	}
}

func TestStartMatchByPlayerForbidden(t *testing.T) {
	f := fourPlayerBracket(t)

	// Пользователь 101 - участник матча WR1M1, но запускать матчи
	// могут только админ и организатор.
	if _, err := f.svc.StartMatch(context.Background(), 101, 1, 1); !errors.Is(err, ErrForbiddenOperation) {
		t.Errorf("StartMatch by participant error = %v, want ErrForbiddenOperation", err)
	}
}

func TestSetRoomCredentials(t *testing.T) {
	f := fourPlayerBracket(t)
	ctx := context.Background()

	roomID := strPtr("lobby-42")
	password := strPtr("secret")

	if err := f.svc.SetRoomCredentials(ctx, 2, 1, 1, roomID, password); err != nil {
		t.Fatalf("SetRoomCredentials by organizer: %v", err)
	}

	match, _ := f.matches.GetByID(ctx, 1)
	if match.RoomID == nil || *match.RoomID != "lobby-42" {
		t.Errorf("room id = %v, want lobby-42", match.RoomID)
	}

	// Обычному игроку менять реквизиты комнаты нельзя.
	if err := f.svc.SetRoomCredentials(ctx, 101, 1, 1, roomID, password); !errors.Is(err, ErrForbiddenOperation) {
		t.Errorf("SetRoomCredentials by player error = %v, want ErrForbiddenOperation", err)
	}
}
