package services

import (
	"context"
	"errors"
	"testing"

	"github.com/rpx-gg/tournament-service/models"
)

type enrollFixture struct {
	svc          ParticipantService
	tournaments  *fakeTournamentRepo
	participants *fakeParticipantRepo
}

func newEnrollFixture(t *testing.T, tournament *models.Tournament) *enrollFixture {
	t.Helper()

	users := newFakeUserRepo(
		&models.User{ID: 1, Role: models.RoleAdmin},
		&models.User{ID: 2, Role: models.RoleOrganizer},
		&models.User{ID: 101, Role: models.RolePlayer},
		&models.User{ID: 102, Role: models.RolePlayer},
	)
	participants := newFakeParticipantRepo()
	tournaments := newFakeTournamentRepo(tournament)
	tournaments.participants = participants

	return &enrollFixture{
		svc:          NewParticipantService(participants, tournaments, users),
		tournaments:  tournaments,
		participants: participants,
	}
}

func openTournament() *models.Tournament {
	return &models.Tournament{
		ID:              1,
		OrganizerID:     2,
		Status:          models.StatusRegistration,
		EntryFee:        0,
		MinParticipants: 2,
		MaxParticipants: 4,
	}
}

func TestEnroll(t *testing.T) {
	f := newEnrollFixture(t, openTournament())
	ctx := context.Background()

	participant, err := f.svc.Enroll(ctx, 1, 101, nil)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	if participant.Status != models.ParticipantPending {
		t.Errorf("status = %s, want pending", participant.Status)
	}
	// Бесплатный турнир: взнос считается оплаченным сразу.
	if participant.PaymentStatus != models.PaymentCompleted {
		t.Errorf("payment status = %s, want completed", participant.PaymentStatus)
	}

	tournament, _ := f.tournaments.GetByID(ctx, 1)
	if tournament.CurrentParticipants != 1 {
		t.Errorf("current participants = %d, want 1", tournament.CurrentParticipants)
	}
}

func TestEnrollPaidTournamentKeepsPaymentPending(t *testing.T) {
	tournament := openTournament()
	tournament.EntryFee = 50
	f := newEnrollFixture(t, tournament)

	participant, err := f.svc.Enroll(context.Background(), 1, 101, nil)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if participant.PaymentStatus != models.PaymentPending {
		t.Errorf("payment status = %s, want pending", participant.PaymentStatus)
	}
}

func TestEnrollDuplicate(t *testing.T) {
	f := newEnrollFixture(t, openTournament())
	ctx := context.Background()

	if _, err := f.svc.Enroll(ctx, 1, 101, nil); err != nil {
		t.Fatalf("first Enroll: %v", err)
	}
	if _, err := f.svc.Enroll(ctx, 1, 101, nil); !errors.Is(err, ErrDuplicateParticipant) {
		t.Fatalf("second Enroll error = %v, want ErrDuplicateParticipant", err)
	}

	tournament, _ := f.tournaments.GetByID(ctx, 1)
	if tournament.CurrentParticipants != 1 {
		t.Errorf("current participants = %d, want 1", tournament.CurrentParticipants)
	}
}

func TestEnrollClosedStatuses(t *testing.T) {
	closed := []models.TournamentStatus{
		models.StatusDraft,
		models.StatusPublished,
		models.StatusInProgress,
		models.StatusCompleted,
		models.StatusCancelled,
	}

	for _, status := range closed {
		t.Run(string(status), func(t *testing.T) {
			tournament := openTournament()
			tournament.Status = status
			f := newEnrollFixture(t, tournament)

			if _, err := f.svc.Enroll(context.Background(), 1, 101, nil); !errors.Is(err, ErrRegistrationNotOpen) {
				t.Errorf("Enroll error = %v, want ErrRegistrationNotOpen", err)
			}
		})
	}
}

func TestEnrollFullTournament(t *testing.T) {
	tournament := openTournament()
	tournament.MaxParticipants = 1
	f := newEnrollFixture(t, tournament)
	ctx := context.Background()

	if _, err := f.svc.Enroll(ctx, 1, 101, nil); err != nil {
		t.Fatalf("first Enroll: %v", err)
	}
	if _, err := f.svc.Enroll(ctx, 1, 102, nil); !errors.Is(err, ErrRegistrationNotOpen) {
		t.Fatalf("Enroll into full tournament error = %v, want ErrRegistrationNotOpen", err)
	}
}

func TestEnrollUnknownUserAndTournament(t *testing.T) {
	f := newEnrollFixture(t, openTournament())
	ctx := context.Background()

	if _, err := f.svc.Enroll(ctx, 1, 999, nil); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user error = %v, want ErrUserNotFound", err)
	}
	if _, err := f.svc.Enroll(ctx, 99, 101, nil); !errors.Is(err, ErrTournamentNotFound) {
		t.Errorf("unknown tournament error = %v, want ErrTournamentNotFound", err)
	}
}

func TestChangeStatus(t *testing.T) {
	f := newEnrollFixture(t, openTournament())
	ctx := context.Background()

	participant, err := f.svc.Enroll(ctx, 1, 101, nil)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	// Организатор подтверждает заявку.
	updated, err := f.svc.ChangeStatus(ctx, 2, participant.ID, models.ParticipantConfirmed)
	if err != nil {
		t.Fatalf("ChangeStatus by organizer: %v", err)
	}
	if updated.Status != models.ParticipantConfirmed {
		t.Errorf("status = %s, want confirmed", updated.Status)
	}

	// Обычный игрок подтверждать заявки не может.
	if _, err := f.svc.ChangeStatus(ctx, 102, participant.ID, models.ParticipantDeclined); !errors.Is(err, ErrForbiddenOperation) {
		t.Errorf("ChangeStatus by player error = %v, want ErrForbiddenOperation", err)
	}

	// eliminated выставляет только процессор результатов.
	if _, err := f.svc.ChangeStatus(ctx, 2, participant.ID, models.ParticipantEliminated); !errors.Is(err, ErrValidationFailed) {
		t.Errorf("ChangeStatus to eliminated error = %v, want ErrValidationFailed", err)
	}
}

func TestWithdraw(t *testing.T) {
	f := newEnrollFixture(t, openTournament())
	ctx := context.Background()

	participant, err := f.svc.Enroll(ctx, 1, 101, nil)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	// Чужую заявку снять нельзя.
	if err := f.svc.Withdraw(ctx, 102, participant.ID); !errors.Is(err, ErrForbiddenOperation) {
		t.Errorf("Withdraw by stranger error = %v, want ErrForbiddenOperation", err)
	}

	if err := f.svc.Withdraw(ctx, 101, participant.ID); err != nil {
		t.Fatalf("Withdraw by owner: %v", err)
	}

	tournament, _ := f.tournaments.GetByID(ctx, 1)
	if tournament.CurrentParticipants != 0 {
		t.Errorf("current participants = %d, want 0", tournament.CurrentParticipants)
	}
}

func TestWithdrawAfterStart(t *testing.T) {
	f := newEnrollFixture(t, openTournament())
	ctx := context.Background()

	participant, err := f.svc.Enroll(ctx, 1, 101, nil)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	_ = f.tournaments.UpdateStatus(ctx, nil, 1, models.StatusInProgress)

	if err := f.svc.Withdraw(ctx, 101, participant.ID); !errors.Is(err, ErrTournamentAlreadyStarted) {
		t.Errorf("Withdraw after start error = %v, want ErrTournamentAlreadyStarted", err)
	}
}

func TestSetSeed(t *testing.T) {
	f := newEnrollFixture(t, openTournament())
	ctx := context.Background()

	participant, err := f.svc.Enroll(ctx, 1, 101, nil)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	if err := f.svc.SetSeed(ctx, 2, participant.ID, intPtr(1)); err != nil {
		t.Fatalf("SetSeed: %v", err)
	}
	stored, _ := f.participants.FindByID(ctx, participant.ID)
	if stored.Seed == nil || *stored.Seed != 1 {
		t.Errorf("seed = %v, want 1", stored.Seed)
	}

	if err := f.svc.SetSeed(ctx, 2, participant.ID, intPtr(0)); !errors.Is(err, ErrValidationFailed) {
		t.Errorf("SetSeed(0) error = %v, want ErrValidationFailed", err)
	}
}

func TestListByTournamentOrder(t *testing.T) {
	f := newEnrollFixture(t, openTournament())
	ctx := context.Background()

	p1, _ := f.svc.Enroll(ctx, 1, 101, nil)
	p2, _ := f.svc.Enroll(ctx, 1, 102, nil)

	// Посеянный участник идёт первым независимо от порядка регистрации.
	if err := f.svc.SetSeed(ctx, 2, p2.ID, intPtr(1)); err != nil {
		t.Fatalf("SetSeed: %v", err)
	}

	list, err := f.svc.ListByTournament(ctx, 1, nil)
	if err != nil {
		t.Fatalf("ListByTournament: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].ID != p2.ID || list[1].ID != p1.ID {
		t.Errorf("order = [%d %d], want [%d %d]", list[0].ID, list[1].ID, p2.ID, p1.ID)
	}

}
