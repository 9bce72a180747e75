package services

import (
	"context"
	"sort"
	"time"

	"github.com/rpx-gg/tournament-service/models"
	"github.com/rpx-gg/tournament-service/repositories"
)

// In-memory реализации репозиториев для тестов сервисного слоя.

type fakeUserRepo struct {
	users map[int]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[int]*models.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = len(r.users) + 1
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return repositories.ErrUserNotFound
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

type fakeTournamentRepo struct {
	tournaments  map[int]*models.Tournament
	participants *fakeParticipantRepo
}

func newFakeTournamentRepo(tournaments ...*models.Tournament) *fakeTournamentRepo {
	r := &fakeTournamentRepo{tournaments: make(map[int]*models.Tournament)}
	for _, t := range tournaments {
		r.tournaments[t.ID] = t
	}
	return r
}

func (r *fakeTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	t.ID = len(r.tournaments) + 1
	r.tournaments[t.ID] = t
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	out := make([]models.Tournament, 0, len(r.tournaments))
	for _, t := range r.tournaments {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTournamentRepo) Update(ctx context.Context, t *models.Tournament) error {
	if _, ok := r.tournaments[t.ID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	cp := *t
	r.tournaments[t.ID] = &cp
	return nil
}

func (r *fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (r *fakeTournamentRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.tournaments, id)
	return nil
}

func (r *fakeTournamentRepo) UpdateBannerKey(ctx context.Context, tournamentID int, bannerKey *string) error {
	t, ok := r.tournaments[tournamentID]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.BannerKey = bannerKey
	return nil
}

func (r *fakeTournamentRepo) RefreshParticipantCount(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	t, ok := r.tournaments[tournamentID]
	if !ok {
		return 0, repositories.ErrTournamentNotFound
	}
	count := 0
	if r.participants != nil {
		for _, p := range r.participants.participants {
			if p.TournamentID == tournamentID {
				count++
			}
		}
	}
	t.CurrentParticipants = count
	return count, nil
}

func (r *fakeTournamentRepo) GetTournamentsForAutoStatusUpdate(ctx context.Context, exec repositories.SQLExecutor, currentTime time.Time) ([]*models.Tournament, error) {
	var out []*models.Tournament
	for _, t := range r.tournaments {
		if t.Status == models.StatusPublished && !t.RegistrationStart.After(currentTime) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeParticipantRepo struct {
	participants map[int]*models.Participant
	nextID       int
}

func newFakeParticipantRepo(participants ...*models.Participant) *fakeParticipantRepo {
	r := &fakeParticipantRepo{participants: make(map[int]*models.Participant), nextID: 1}
	for _, p := range participants {
		r.participants[p.ID] = p
		if p.ID >= r.nextID {
			r.nextID = p.ID + 1
		}
	}
	return r
}

func (r *fakeParticipantRepo) Create(ctx context.Context, exec repositories.SQLExecutor, p *models.Participant) error {
	for _, existing := range r.participants {
		if existing.TournamentID == p.TournamentID && existing.UserID == p.UserID {
			return repositories.ErrParticipantConflict
		}
	}
	p.ID = r.nextID
	r.nextID++
	p.RegisteredAt = time.Now()
	r.participants[p.ID] = p
	return nil
}

func (r *fakeParticipantRepo) FindByID(ctx context.Context, id int) (*models.Participant, error) {
	p, ok := r.participants[id]
	if !ok {
		return nil, repositories.ErrParticipantNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeParticipantRepo) FindByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Participant, error) {
	for _, p := range r.participants {
		if p.UserID == userID && p.TournamentID == tournamentID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeParticipantRepo) ListByTournament(ctx context.Context, tournamentID int, status *models.ParticipantStatus, withUsers bool) ([]*models.Participant, error) {
	var out []*models.Participant
	for _, p := range r.participants {
		if p.TournamentID != tournamentID {
			continue
		}
		if status != nil && p.Status != *status {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := out[i].Seed, out[j].Seed
		switch {
		case si != nil && sj != nil && *si != *sj:
			return *si < *sj
		case si != nil && sj == nil:
			return true
		case si == nil && sj != nil:
			return false
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeParticipantRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.ParticipantStatus) error {
	p, ok := r.participants[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.Status = status
	return nil
}

func (r *fakeParticipantRepo) UpdateSeed(ctx context.Context, id int, seed *int) error {
	p, ok := r.participants[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.Seed = seed
	return nil
}

func (r *fakeParticipantRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.participants[id]; !ok {
		return repositories.ErrParticipantNotFound
	}
	delete(r.participants, id)
	return nil
}

type fakeMatchRepo struct {
	matches map[int]*models.Match
	nextID  int
}

func newFakeMatchRepo(matches ...*models.Match) *fakeMatchRepo {
	r := &fakeMatchRepo{matches: make(map[int]*models.Match), nextID: 1}
	for _, m := range matches {
		r.matches[m.ID] = m
		if m.ID >= r.nextID {
			r.nextID = m.ID + 1
		}
	}
	return r
}

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	m.ID = r.nextID
	r.nextID++
	r.matches[m.ID] = m
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMatchRepo) GetByBracketPosition(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, bracketPosition string) (*models.Match, error) {
	for _, m := range r.matches {
		if m.TournamentID == tournamentID && m.BracketPosition == bracketPosition {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	var out []*models.Match
	for _, m := range r.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		if round != nil && m.Round != *round {
			continue
		}
		if status != nil && m.Status != *status {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].MatchNumber < out[j].MatchNumber
	})
	return out, nil
}

func (r *fakeMatchRepo) FinalizeResult(ctx context.Context, exec repositories.SQLExecutor, matchID int, score1, score2 int, winnerID, loserID int, endTime time.Time) error {
	m, ok := r.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if m.Status.IsTerminal() {
		return repositories.ErrMatchFinalizedConflict
	}
	m.Score1 = &score1
	m.Score2 = &score2
	m.WinnerParticipantID = &winnerID
	m.LoserParticipantID = &loserID
	m.Status = models.MatchStatusCompleted
	m.EndTime = &endTime
	return nil
}

func (r *fakeMatchRepo) SetParticipantSlot(ctx context.Context, exec repositories.SQLExecutor, matchID int, slot int, participantID int) (*models.Match, error) {
	m, ok := r.matches[matchID]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	if slot == 1 {
		m.Participant1ID = &participantID
	} else {
		m.Participant2ID = &participantID
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMatchRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, matchID int, status models.MatchStatus) error {
	m, ok := r.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Status = status
	return nil
}

func (r *fakeMatchRepo) UpdateRoomCredentials(ctx context.Context, matchID int, roomID, roomPassword *string) error {
	m, ok := r.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.RoomID = roomID
	m.RoomPassword = roomPassword
	return nil
}

func (r *fakeMatchRepo) CountUnfinished(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	count := 0
	for _, m := range r.matches {
		if m.TournamentID == tournamentID && !m.Status.IsTerminal() {
			count++
		}
	}
	return count, nil
}

func (r *fakeMatchRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	for id, m := range r.matches {
		if m.TournamentID == tournamentID {
			delete(r.matches, id)
		}
	}
	return nil
}

// fakePrizeRepo заменяет призовую таблицу целиком, как постгресовая
// реализация делает это внутри транзакции.
type fakePrizeRepo struct {
	nextID       int
	byTournament map[int][]models.Prize
}

func newFakePrizeRepo() *fakePrizeRepo {
	return &fakePrizeRepo{nextID: 1, byTournament: make(map[int][]models.Prize)}
}

func (r *fakePrizeRepo) ReplaceForTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, prizes []models.Prize) ([]models.Prize, error) {
	saved := make([]models.Prize, 0, len(prizes))
	for _, p := range prizes {
		p.ID = r.nextID
		r.nextID++
		p.TournamentID = tournamentID
		saved = append(saved, p)
	}
	r.byTournament[tournamentID] = saved
	return saved, nil
}

func (r *fakePrizeRepo) ListByTournament(ctx context.Context, tournamentID int) ([]models.Prize, error) {
	return append([]models.Prize(nil), r.byTournament[tournamentID]...), nil
}

type fakeHub struct {
	events []interface{}
}

func (h *fakeHub) BroadcastToRoom(roomID string, message interface{}) {
	h.events = append(h.events, message)
}
