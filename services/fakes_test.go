package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/bgmi-arena/models"
	"github.com/Dosada05/bgmi-arena/repositories"
	"github.com/Dosada05/bgmi-arena/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory stand-in for the Postgres schema. It enforces the
// same unique and check constraints the migrations declare.
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	clock time.Time

	users         map[uuid.UUID]models.User
	tournaments   map[uuid.UUID]models.Tournament
	teams         map[uuid.UUID]models.Team
	members       map[uuid.UUID]models.TeamMember
	invitations   map[uuid.UUID]models.TeamInvitation
	registrations map[uuid.UUID]models.Registration
	matches       map[uuid.UUID]models.Match
	results       map[uuid.UUID]models.MatchResult
	chat          []models.ChatMessage
	replays       []models.MatchReplay
}

func newMemStore() *memStore {
	return &memStore{
		clock:         time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		users:         map[uuid.UUID]models.User{},
		tournaments:   map[uuid.UUID]models.Tournament{},
		teams:         map[uuid.UUID]models.Team{},
		members:       map[uuid.UUID]models.TeamMember{},
		invitations:   map[uuid.UUID]models.TeamInvitation{},
		registrations: map[uuid.UUID]models.Registration{},
		matches:       map[uuid.UUID]models.Match{},
		results:       map[uuid.UUID]models.MatchResult{},
	}
}

// tick returns a strictly increasing timestamp so insertion order is stable.
func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

type memSnapshot struct {
	users         map[uuid.UUID]models.User
	tournaments   map[uuid.UUID]models.Tournament
	teams         map[uuid.UUID]models.Team
	members       map[uuid.UUID]models.TeamMember
	invitations   map[uuid.UUID]models.TeamInvitation
	registrations map[uuid.UUID]models.Registration
	matches       map[uuid.UUID]models.Match
	results       map[uuid.UUID]models.MatchResult
	chat          []models.ChatMessage
	replays       []models.MatchReplay
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		users:         maps.Clone(s.users),
		tournaments:   maps.Clone(s.tournaments),
		teams:         maps.Clone(s.teams),
		members:       maps.Clone(s.members),
		invitations:   maps.Clone(s.invitations),
		registrations: maps.Clone(s.registrations),
		matches:       maps.Clone(s.matches),
		results:       maps.Clone(s.results),
		chat:          append([]models.ChatMessage(nil), s.chat...),
		replays:       append([]models.MatchReplay(nil), s.replays...),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.tournaments = snap.tournaments
	s.teams = snap.teams
	s.members = snap.members
	s.invitations = snap.invitations
	s.registrations = snap.registrations
	s.matches = snap.matches
	s.results = snap.results
	s.chat = snap.chat
	s.replays = snap.replays
}

// memTransactor serializes transactions, which models the row locks the
// Postgres repositories take, and rolls the store back when fn fails.
type memTransactor struct {
	s *memStore
}

func (t *memTransactor) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	snap := t.s.snapshot()
	if err := fn(nil); err != nil {
		t.s.restore(snap)
		return err
	}
	return nil
}

// --- users ---

type memUserRepo struct{ s *memStore }

func (r *memUserRepo) Upsert(ctx context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u.Email != nil {
		for id, other := range r.s.users {
			if id != u.ID && other.Email != nil && *other.Email == *u.Email {
				return repositories.ErrUserEmailConflict
			}
		}
	}
	now := r.s.tick()
	if existing, ok := r.s.users[u.ID]; ok {
		u.IsAdmin = existing.IsAdmin
		u.TotalPoints = existing.TotalPoints
		u.TournamentsWon = existing.TournamentsWon
		u.TotalKills = existing.TotalKills
		u.CreatedAt = existing.CreatedAt
	} else {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	r.s.users[u.ID] = *u
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &u, nil
}

func (r *memUserRepo) ListTopPlayers(ctx context.Context, limit int) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	users := make([]models.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].TotalPoints != users[j].TotalPoints {
			return users[i].TotalPoints > users[j].TotalPoints
		}
		if users[i].TournamentsWon != users[j].TournamentsWon {
			return users[i].TournamentsWon > users[j].TournamentsWon
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (r *memUserRepo) AddMatchStats(ctx context.Context, exec repositories.SQLExecutor, userIDs []uuid.UUID, points, kills int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range userIDs {
		u, ok := r.s.users[id]
		if !ok {
			continue
		}
		u.TotalPoints += points
		u.TotalKills += kills
		r.s.users[id] = u
	}
	return nil
}

func (r *memUserRepo) IncrementTournamentsWon(ctx context.Context, exec repositories.SQLExecutor, userIDs []uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range userIDs {
		u, ok := r.s.users[id]
		if !ok {
			continue
		}
		u.TournamentsWon++
		r.s.users[id] = u
	}
	return nil
}

// --- tournaments ---

type memTournamentRepo struct{ s *memStore }

func (r *memTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[t.CreatedBy]; !ok {
		return repositories.ErrTournamentInvalidCreator
	}
	t.ID = uuid.New()
	t.CreatedAt = r.s.tick()
	t.UpdatedAt = t.CreatedAt
	stored := *t
	stored.Registrations, stored.Matches, stored.BannerURL = nil, nil, nil
	r.s.tournaments[t.ID] = stored
	return nil
}

func (r *memTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return &t, nil
}

func (r *memTournamentRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *memTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := make([]models.Tournament, 0)
	for _, t := range r.s.tournaments {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.CreatedBy != nil && t.CreatedBy != *filter.CreatedBy {
			continue
		}
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].StartDate.Before(list[j].StartDate) })
	if filter.Offset > 0 {
		list = list[min(filter.Offset, len(list)):]
	}
	if filter.Limit > 0 && len(list) > filter.Limit {
		list = list[:filter.Limit]
	}
	return list, nil
}

func (r *memTournamentRepo) Update(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.tournaments[t.ID]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if t.MaxTeams < existing.CurrentTeams {
		return repositories.ErrTournamentCapacity
	}
	t.CurrentTeams = existing.CurrentTeams
	t.UpdatedAt = r.s.tick()
	stored := *t
	stored.Registrations, stored.Matches, stored.BannerURL = nil, nil, nil
	r.s.tournaments[t.ID] = stored
	return nil
}

func (r *memTournamentRepo) UpdateBannerKey(ctx context.Context, id uuid.UUID, bannerKey *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.BannerKey = bannerKey
	r.s.tournaments[id] = t
	return nil
}

func (r *memTournamentRepo) AdjustCurrentTeams(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID, delta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	next := t.CurrentTeams + delta
	if next < 0 || next > t.MaxTeams {
		return repositories.ErrTournamentCapacity
	}
	t.CurrentTeams = next
	r.s.tournaments[id] = t
	return nil
}

func (r *memTournamentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.s.tournaments, id)
	for rid, reg := range r.s.registrations {
		if reg.TournamentID == id {
			delete(r.s.registrations, rid)
		}
	}
	for mid, m := range r.s.matches {
		if m.TournamentID == id {
			delete(r.s.matches, mid)
			maps.DeleteFunc(r.s.results, func(_ uuid.UUID, res models.MatchResult) bool { return res.MatchID == mid })
		}
	}
	return nil
}

func (r *memTournamentRepo) CountByStatus(ctx context.Context, statuses []models.TournamentStatus) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, t := range r.s.tournaments {
		for _, st := range statuses {
			if t.Status == st {
				n++
			}
		}
	}
	return n, nil
}

func (r *memTournamentRepo) SumPrizePoolByStatus(ctx context.Context, statuses []models.TournamentStatus) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sum := decimal.Zero
	for _, t := range r.s.tournaments {
		for _, st := range statuses {
			if t.Status == st {
				sum = sum.Add(t.PrizePool)
			}
		}
	}
	return sum, nil
}

// --- teams ---

type memTeamRepo struct{ s *memStore }

func (r *memTeamRepo) Create(ctx context.Context, exec repositories.SQLExecutor, t *models.Team) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[t.CaptainID]; !ok {
		return repositories.ErrTeamCaptainInvalid
	}
	t.ID = uuid.New()
	t.CreatedAt = r.s.tick()
	t.UpdatedAt = t.CreatedAt
	t.TotalEarnings = decimal.Zero
	stored := *t
	stored.Members, stored.LogoURL = nil, nil
	r.s.teams[t.ID] = stored
	return nil
}

func (r *memTeamRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID) (*models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	return &t, nil
}

func (r *memTeamRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID) (*models.Team, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *memTeamRepo) GetByMember(ctx context.Context, userID uuid.UUID) (*models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var first *models.TeamMember
	for _, m := range r.s.members {
		if m.UserID == userID && (first == nil || m.JoinedAt.Before(first.JoinedAt)) {
			m := m
			first = &m
		}
	}
	if first == nil {
		return nil, repositories.ErrTeamNotFound
	}
	t := r.s.teams[first.TeamID]
	return &t, nil
}

func (r *memTeamRepo) sorted(less func(a, b models.Team) bool) []models.Team {
	teams := make([]models.Team, 0, len(r.s.teams))
	for _, t := range r.s.teams {
		teams = append(teams, t)
	}
	sort.Slice(teams, func(i, j int) bool { return less(teams[i], teams[j]) })
	return teams
}

func (r *memTeamRepo) List(ctx context.Context, limit, offset int) ([]models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	teams := r.sorted(func(a, b models.Team) bool {
		if a.TotalWins != b.TotalWins {
			return a.TotalWins > b.TotalWins
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	teams = teams[min(offset, len(teams)):]
	if limit > 0 && len(teams) > limit {
		teams = teams[:limit]
	}
	return teams, nil
}

func (r *memTeamRepo) ListTopTeams(ctx context.Context, limit int) ([]models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	teams := r.sorted(func(a, b models.Team) bool {
		if a.TotalWins != b.TotalWins {
			return a.TotalWins > b.TotalWins
		}
		if !a.TotalEarnings.Equal(b.TotalEarnings) {
			return a.TotalEarnings.GreaterThan(b.TotalEarnings)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	if len(teams) > limit {
		teams = teams[:limit]
	}
	return teams, nil
}

func (r *memTeamRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	teams := make([]models.Team, 0, len(ids))
	for _, id := range ids {
		if t, ok := r.s.teams[id]; ok {
			teams = append(teams, t)
		}
	}
	return teams, nil
}

func (r *memTeamRepo) UpdateLogoKey(ctx context.Context, id uuid.UUID, logoKey *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.teams[id]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	t.LogoKey = logoKey
	r.s.teams[id] = t
	return nil
}

// Delete mirrors the ON DELETE CASCADE foreign keys that reference teams.
func (r *memTeamRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.teams[id]; !ok {
		return repositories.ErrTeamNotFound
	}
	delete(r.s.teams, id)
	maps.DeleteFunc(r.s.members, func(_ uuid.UUID, m models.TeamMember) bool { return m.TeamID == id })
	maps.DeleteFunc(r.s.invitations, func(_ uuid.UUID, inv models.TeamInvitation) bool { return inv.TeamID == id })
	maps.DeleteFunc(r.s.registrations, func(_ uuid.UUID, reg models.Registration) bool { return reg.TeamID == id })
	maps.DeleteFunc(r.s.results, func(_ uuid.UUID, res models.MatchResult) bool { return res.TeamID == id })
	return nil
}

func (r *memTeamRepo) Count(ctx context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.teams), nil
}

func (r *memTeamRepo) IncrementWins(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.teams[id]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	t.TotalWins++
	r.s.teams[id] = t
	return nil
}

func (r *memTeamRepo) AddEarnings(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID, amount decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.teams[id]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	t.TotalEarnings = t.TotalEarnings.Add(amount)
	r.s.teams[id] = t
	return nil
}

// --- team members ---

type memMemberRepo struct{ s *memStore }

func (r *memMemberRepo) Add(ctx context.Context, exec repositories.SQLExecutor, m *models.TeamMember) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.teams[m.TeamID]; !ok {
		return false, repositories.ErrTeamMemberInvalidRef
	}
	if _, ok := r.s.users[m.UserID]; !ok {
		return false, repositories.ErrTeamMemberInvalidRef
	}
	for _, other := range r.s.members {
		if other.TeamID != m.TeamID {
			continue
		}
		if other.UserID == m.UserID {
			return false, nil
		}
		if m.Role == models.TeamRoleCaptain && other.Role == models.TeamRoleCaptain {
			return false, repositories.ErrTeamCaptainDuplicated
		}
	}
	m.ID = uuid.New()
	m.JoinedAt = r.s.tick()
	stored := *m
	stored.User = nil
	r.s.members[m.ID] = stored
	return true, nil
}

func (r *memMemberRepo) Get(ctx context.Context, exec repositories.SQLExecutor, teamID, userID uuid.UUID) (*models.TeamMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.members {
		if m.TeamID == teamID && m.UserID == userID {
			return &m, nil
		}
	}
	return nil, repositories.ErrTeamMemberNotFound
}

func (r *memMemberRepo) ListByTeam(ctx context.Context, exec repositories.SQLExecutor, teamID uuid.UUID) ([]models.TeamMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	members := make([]models.TeamMember, 0)
	for _, m := range r.s.members {
		if m.TeamID == teamID {
			u := r.s.users[m.UserID]
			m.User = &u
			members = append(members, m)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].Role != members[j].Role {
			return members[i].Role == models.TeamRoleCaptain
		}
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members, nil
}

func (r *memMemberRepo) ListUserIDsByTeams(ctx context.Context, exec repositories.SQLExecutor, teamIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(teamIDs))
	for _, id := range teamIDs {
		want[id] = true
	}
	out := make(map[uuid.UUID][]uuid.UUID)
	for _, m := range r.s.members {
		if want[m.TeamID] {
			out[m.TeamID] = append(out[m.TeamID], m.UserID)
		}
	}
	return out, nil
}

func (r *memMemberRepo) Count(ctx context.Context, exec repositories.SQLExecutor, teamID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, m := range r.s.members {
		if m.TeamID == teamID {
			n++
		}
	}
	return n, nil
}

func (r *memMemberRepo) Remove(ctx context.Context, teamID, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, m := range r.s.members {
		if m.TeamID == teamID && m.UserID == userID {
			delete(r.s.members, id)
			return nil
		}
	}
	return repositories.ErrTeamMemberNotFound
}

// --- invitations ---

type memInvitationRepo struct{ s *memStore }

func (r *memInvitationRepo) Create(ctx context.Context, inv *models.TeamInvitation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.teams[inv.TeamID]; !ok {
		return repositories.ErrInvitationInvalidRef
	}
	if _, ok := r.s.users[inv.UserID]; !ok {
		return repositories.ErrInvitationInvalidRef
	}
	if inv.Status == models.InvitationPending {
		for _, other := range r.s.invitations {
			if other.TeamID == inv.TeamID && other.UserID == inv.UserID && other.Status == models.InvitationPending {
				return repositories.ErrInvitationConflict
			}
		}
	}
	inv.ID = uuid.New()
	inv.CreatedAt = r.s.tick()
	inv.UpdatedAt = inv.CreatedAt
	stored := *inv
	stored.Team = nil
	r.s.invitations[inv.ID] = stored
	return nil
}

func (r *memInvitationRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID) (*models.TeamInvitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invitations[id]
	if !ok {
		return nil, repositories.ErrInvitationNotFound
	}
	return &inv, nil
}

func (r *memInvitationRepo) ListPendingByUser(ctx context.Context, userID uuid.UUID) ([]models.TeamInvitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := make([]models.TeamInvitation, 0)
	for _, inv := range r.s.invitations {
		if inv.UserID == userID && inv.Status == models.InvitationPending {
			t := r.s.teams[inv.TeamID]
			inv.Team = &t
			list = append(list, inv)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (r *memInvitationRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID, from, to models.InvitationStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invitations[id]
	if !ok || inv.Status != from {
		return repositories.ErrInvitationStatusConflict
	}
	inv.Status = to
	inv.UpdatedAt = r.s.tick()
	r.s.invitations[id] = inv
	return nil
}

// --- registrations ---

type memRegistrationRepo struct{ s *memStore }

func (r *memRegistrationRepo) Create(ctx context.Context, exec repositories.SQLExecutor, reg *models.Registration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tournaments[reg.TournamentID]; !ok {
		return repositories.ErrRegistrationTournamentInvalid
	}
	if _, ok := r.s.teams[reg.TeamID]; !ok {
		return repositories.ErrRegistrationTeamInvalid
	}
	for _, other := range r.s.registrations {
		if other.TournamentID == reg.TournamentID && other.TeamID == reg.TeamID {
			return repositories.ErrRegistrationConflict
		}
	}
	reg.ID = uuid.New()
	reg.RegisteredAt = r.s.tick()
	stored := *reg
	stored.Team = nil
	r.s.registrations[reg.ID] = stored
	return nil
}

func (r *memRegistrationRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, tournamentID, teamID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, reg := range r.s.registrations {
		if reg.TournamentID == tournamentID && reg.TeamID == teamID {
			delete(r.s.registrations, id)
			return nil
		}
	}
	return repositories.ErrRegistrationNotFound
}

func (r *memRegistrationRepo) Exists(ctx context.Context, exec repositories.SQLExecutor, tournamentID, teamID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, reg := range r.s.registrations {
		if reg.TournamentID == tournamentID && reg.TeamID == teamID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRegistrationRepo) CountByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, reg := range r.s.registrations {
		if reg.TournamentID == tournamentID {
			n++
		}
	}
	return n, nil
}

func (r *memRegistrationRepo) ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]models.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := make([]models.Registration, 0)
	for _, reg := range r.s.registrations {
		if reg.TournamentID == tournamentID {
			t := r.s.teams[reg.TeamID]
			reg.Team = &t
			list = append(list, reg)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].RegisteredAt.Before(list[j].RegisteredAt) })
	return list, nil
}

func (r *memRegistrationRepo) ListTournamentIDsByTeam(ctx context.Context, exec repositories.SQLExecutor, teamID uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := make([]uuid.UUID, 0)
	for _, reg := range r.s.registrations {
		if reg.TeamID == teamID {
			ids = append(ids, reg.TournamentID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

// --- matches ---

type memMatchRepo struct{ s *memStore }

func (r *memMatchRepo) Create(ctx context.Context, m *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tournaments[m.TournamentID]; !ok {
		return repositories.ErrMatchTournamentInvalid
	}
	m.ID = uuid.New()
	m.CreatedAt = r.s.tick()
	m.UpdatedAt = m.CreatedAt
	r.s.matches[m.ID] = *m
	return nil
}

func (r *memMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return &m, nil
}

func (r *memMatchRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID) (*models.Match, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *memMatchRepo) List(ctx context.Context, filter repositories.ListMatchesFilter) ([]models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := make([]models.Match, 0)
	for _, m := range r.s.matches {
		if filter.TournamentID != nil && m.TournamentID != *filter.TournamentID {
			continue
		}
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (r *memMatchRepo) Update(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.matches[m.ID]; !ok {
		return repositories.ErrMatchNotFound
	}
	if m.CurrentZone < 1 || m.PlayersAlive < 0 {
		return repositories.ErrMatchInvalid
	}
	m.UpdatedAt = r.s.tick()
	r.s.matches[m.ID] = *m
	return nil
}

func (r *memMatchRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.matches[id]; !ok {
		return repositories.ErrMatchNotFound
	}
	delete(r.s.matches, id)
	for rid, res := range r.s.results {
		if res.MatchID == id {
			delete(r.s.results, rid)
		}
	}
	return nil
}

func (r *memMatchRepo) CountByStatus(ctx context.Context, exec repositories.SQLExecutor, tournamentID *uuid.UUID, status models.MatchStatus) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, m := range r.s.matches {
		if m.Status != status {
			continue
		}
		if tournamentID != nil && m.TournamentID != *tournamentID {
			continue
		}
		n++
	}
	return n, nil
}

// --- match results ---

type memResultRepo struct{ s *memStore }

func (r *memResultRepo) Create(ctx context.Context, exec repositories.SQLExecutor, res *models.MatchResult) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.matches[res.MatchID]; !ok {
		return repositories.ErrMatchResultInvalidRef
	}
	if _, ok := r.s.teams[res.TeamID]; !ok {
		return repositories.ErrMatchResultInvalidRef
	}
	for _, other := range r.s.results {
		if other.MatchID == res.MatchID && other.TeamID == res.TeamID {
			return repositories.ErrMatchResultConflict
		}
	}
	res.ID = uuid.New()
	res.CreatedAt = r.s.tick()
	res.UpdatedAt = res.CreatedAt
	stored := *res
	stored.Team = nil
	r.s.results[res.ID] = stored
	return nil
}

func (r *memResultRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID) (*models.MatchResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	res, ok := r.s.results[id]
	if !ok {
		return nil, repositories.ErrMatchResultNotFound
	}
	return &res, nil
}

func (r *memResultRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID) (*models.MatchResult, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *memResultRepo) ListByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID uuid.UUID) ([]models.MatchResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := make([]models.MatchResult, 0)
	for _, res := range r.s.results {
		if res.MatchID == matchID {
			t := r.s.teams[res.TeamID]
			res.Team = &t
			list = append(list, res)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (r *memResultRepo) CountByTeam(ctx context.Context, exec repositories.SQLExecutor, teamID uuid.UUID, statuses []models.MatchStatus) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, res := range r.s.results {
		if res.TeamID == teamID && slices.Contains(statuses, r.s.matches[res.MatchID].Status) {
			n++
		}
	}
	return n, nil
}

func (r *memResultRepo) Update(ctx context.Context, exec repositories.SQLExecutor, res *models.MatchResult) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.results[res.ID]; !ok {
		return repositories.ErrMatchResultNotFound
	}
	if res.Kills < 0 || (res.Position != nil && *res.Position < 1) ||
		(res.Status == models.ResultEliminated && res.EliminatedAt == nil) {
		return repositories.ErrMatchResultInvalid
	}
	if res.Position != nil {
		for id, other := range r.s.results {
			if id != res.ID && other.MatchID == res.MatchID && other.Position != nil && *other.Position == *res.Position {
				return repositories.ErrMatchResultPositionTaken
			}
		}
	}
	res.UpdatedAt = r.s.tick()
	stored := *res
	stored.Team = nil
	r.s.results[res.ID] = stored
	return nil
}

func (r *memResultRepo) TournamentStandings(ctx context.Context, exec repositories.SQLExecutor, tournamentID uuid.UUID) ([]models.TeamStanding, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byTeam := make(map[uuid.UUID]*models.TeamStanding)
	for _, res := range r.s.results {
		m := r.s.matches[res.MatchID]
		if m.TournamentID != tournamentID || m.Status != models.MatchStatusCompleted {
			continue
		}
		st, ok := byTeam[res.TeamID]
		if !ok {
			st = &models.TeamStanding{TeamID: res.TeamID}
			byTeam[res.TeamID] = st
		}
		st.Points += res.Points
		st.Kills += res.Kills
		st.MatchesPlayed++
		if res.Position != nil && *res.Position == 1 {
			st.Wins++
		}
	}
	list := make([]models.TeamStanding, 0, len(byTeam))
	for _, st := range byTeam {
		list = append(list, *st)
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.Kills != b.Kills {
			return a.Kills > b.Kills
		}
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		return a.TeamID.String() < b.TeamID.String()
	})
	return list, nil
}

// --- chat and replays ---

type memChatRepo struct{ s *memStore }

func (r *memChatRepo) Create(ctx context.Context, exec repositories.SQLExecutor, msg *models.ChatMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.matches[msg.MatchID]; !ok {
		return repositories.ErrChatMatchInvalid
	}
	msg.ID = uuid.New()
	msg.CreatedAt = r.s.tick()
	stored := *msg
	stored.User = nil
	r.s.chat = append(r.s.chat, stored)
	return nil
}

func (r *memChatRepo) ListByMatch(ctx context.Context, matchID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := make([]models.ChatMessage, 0)
	for _, msg := range r.s.chat {
		if msg.MatchID == matchID {
			list = append(list, msg)
		}
	}
	if len(list) > limit {
		list = list[len(list)-limit:]
	}
	return list, nil
}

type memReplayRepo struct{ s *memStore }

func (r *memReplayRepo) Create(ctx context.Context, replay *models.MatchReplay) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.matches[replay.MatchID]; !ok {
		return repositories.ErrReplayMatchInvalid
	}
	replay.ID = uuid.New()
	replay.CreatedAt = r.s.tick()
	r.s.replays = append(r.s.replays, *replay)
	return nil
}

func (r *memReplayRepo) List(ctx context.Context, matchID *uuid.UUID, limit int) ([]models.MatchReplay, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := make([]models.MatchReplay, 0)
	for i := len(r.s.replays) - 1; i >= 0 && len(list) < limit; i-- {
		if matchID == nil || r.s.replays[i].MatchID == *matchID {
			list = append(list, r.s.replays[i])
		}
	}
	return list, nil
}

// --- uploads ---

type memUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemUploader() *memUploader {
	return &memUploader{objects: map[string][]byte{}}
}

func (u *memUploader) Upload(ctx context.Context, key, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = buf.Bytes()
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *memUploader) Delete(ctx context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *memUploader) GetPublicURL(key string) string {
	return "https://cdn.example.test/" + strings.TrimPrefix(key, "/")
}

// --- test environment ---

type testEnv struct {
	store    *memStore
	uploader *memUploader
	now      time.Time

	users         *memUserRepo
	tournaments   *memTournamentRepo
	teams         *memTeamRepo
	members       *memMemberRepo
	invitations   *memInvitationRepo
	registrations *memRegistrationRepo
	matches       *memMatchRepo
	results       *memResultRepo
	chat          *memChatRepo
	replays       *memReplayRepo

	userService         UserService
	registrationService RegistrationService
	tournamentService   TournamentService
	teamService         TeamService
	invitationService   InvitationService
	matchService        MatchService
	chatService         ChatService
	replayService       ReplayService
	rankingService      RankingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s := newMemStore()
	env := &testEnv{
		store:         s,
		uploader:      newMemUploader(),
		now:           time.Date(2024, 6, 1, 18, 30, 0, 0, time.UTC),
		users:         &memUserRepo{s},
		tournaments:   &memTournamentRepo{s},
		teams:         &memTeamRepo{s},
		members:       &memMemberRepo{s},
		invitations:   &memInvitationRepo{s},
		registrations: &memRegistrationRepo{s},
		matches:       &memMatchRepo{s},
		results:       &memResultRepo{s},
		chat:          &memChatRepo{s},
		replays:       &memReplayRepo{s},
	}

	tx := &memTransactor{s}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := func() time.Time { return env.now }

	env.userService = NewUserService(env.users)
	env.registrationService = NewRegistrationService(tx, env.tournaments, env.teams, env.registrations, env.uploader, logger)

	ts := NewTournamentService(tx, env.tournaments, env.registrations, env.matches, env.results,
		env.teams, env.members, env.users, env.uploader, logger)
	ts.(*tournamentService).now = clock
	env.tournamentService = ts

	teamSvc := NewTeamService(tx, env.teams, env.members, env.registrations, env.tournaments, env.results, env.uploader, logger)
	teamSvc.(*teamService).now = clock
	env.teamService = teamSvc

	env.invitationService = NewInvitationService(tx, env.invitations, env.teams, env.members, env.users, env.uploader, logger)

	ms := NewMatchService(tx, env.matches, env.results, env.tournaments, env.teams, env.members,
		env.users, env.registrations, env.chat, env.uploader, logger)
	ms.(*matchService).now = clock
	env.matchService = ms

	env.chatService = NewChatService(env.chat, env.matches)
	env.replayService = NewReplayService(env.replays, env.matches, env.tournaments)
	env.rankingService = NewRankingService(env.users, env.teams, env.tournaments, env.matches, env.results, env.uploader)
	return env
}

func (e *testEnv) addUser(t *testing.T, name string, admin bool) *models.User {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	u := models.User{ID: uuid.New(), Username: &name, IsAdmin: admin, CreatedAt: e.store.tick()}
	e.store.users[u.ID] = u
	return &u
}

func (e *testEnv) reloadUser(t *testing.T, id uuid.UUID) models.User {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	u, ok := e.store.users[id]
	require.True(t, ok, "user %s not found", id)
	return u
}

func (e *testEnv) addTournament(t *testing.T, creator *models.User, maxTeams int, status models.TournamentStatus, prize int64) *models.Tournament {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	tr := models.Tournament{
		ID:        uuid.New(),
		Name:      "Weekend Cup",
		Mode:      models.ModeSquad,
		Type:      models.TypeFree,
		Status:    status,
		EntryFee:  decimal.Zero,
		PrizePool: decimal.NewFromInt(prize),
		MaxTeams:  maxTeams,
		StartDate: e.store.tick(),
		CreatedBy: creator.ID,
	}
	tr.CreatedAt = tr.StartDate
	e.store.tournaments[tr.ID] = tr
	return &tr
}

func (e *testEnv) reloadTournament(t *testing.T, id uuid.UUID) models.Tournament {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	tr, ok := e.store.tournaments[id]
	require.True(t, ok, "tournament %s not found", id)
	return tr
}

// addTeam creates a team captained by captain with the given extra members.
func (e *testEnv) addTeam(t *testing.T, name string, captain *models.User, members ...*models.User) *models.Team {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	team := models.Team{ID: uuid.New(), Name: name, Tag: strings.ToUpper(name[:min(3, len(name))]), CaptainID: captain.ID, TotalEarnings: decimal.Zero, CreatedAt: e.store.tick()}
	e.store.teams[team.ID] = team
	e.store.members[uuid.New()] = models.TeamMember{TeamID: team.ID, UserID: captain.ID, Role: models.TeamRoleCaptain, JoinedAt: e.store.tick()}
	for _, m := range members {
		e.store.members[uuid.New()] = models.TeamMember{TeamID: team.ID, UserID: m.ID, Role: models.TeamRoleMember, JoinedAt: e.store.tick()}
	}
	return &team
}

func (e *testEnv) reloadTeam(t *testing.T, id uuid.UUID) models.Team {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	team, ok := e.store.teams[id]
	require.True(t, ok, "team %s not found", id)
	return team
}

func (e *testEnv) register(t *testing.T, tournamentID, teamID uuid.UUID) {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	e.store.registrations[uuid.New()] = models.Registration{TournamentID: tournamentID, TeamID: teamID, RegisteredAt: e.store.tick()}
	tr := e.store.tournaments[tournamentID]
	tr.CurrentTeams++
	e.store.tournaments[tournamentID] = tr
}

func (e *testEnv) addMatch(t *testing.T, tournamentID uuid.UUID, status models.MatchStatus) *models.Match {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	m := models.Match{ID: uuid.New(), TournamentID: tournamentID, Name: "Erangel #1", Round: models.RoundQualifier, Status: status, CurrentZone: 1, CreatedAt: e.store.tick()}
	e.store.matches[m.ID] = m
	return &m
}

func (e *testEnv) reloadMatch(t *testing.T, id uuid.UUID) models.Match {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	m, ok := e.store.matches[id]
	require.True(t, ok, "match %s not found", id)
	return m
}

func (e *testEnv) addResult(t *testing.T, matchID, teamID uuid.UUID, kills int) *models.MatchResult {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	res := models.MatchResult{ID: uuid.New(), MatchID: matchID, TeamID: teamID, Kills: kills, Status: models.ResultAlive, CreatedAt: e.store.tick()}
	e.store.results[res.ID] = res
	return &res
}

func (e *testEnv) reloadResult(t *testing.T, id uuid.UUID) models.MatchResult {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	res, ok := e.store.results[id]
	require.True(t, ok, "result %s not found", id)
	return res
}

func (e *testEnv) countRegistrations(tournamentID uuid.UUID) int {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	n := 0
	for _, reg := range e.store.registrations {
		if reg.TournamentID == tournamentID {
			n++
		}
	}
	return n
}

func (e *testEnv) countMembers(teamID, userID uuid.UUID) int {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	n := 0
	for _, m := range e.store.members {
		if m.TeamID == teamID && (userID == uuid.Nil || m.UserID == userID) {
			n++
		}
	}
	return n
}

func (e *testEnv) chatFor(matchID uuid.UUID) []models.ChatMessage {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	var out []models.ChatMessage
	for _, msg := range e.store.chat {
		if msg.MatchID == matchID {
			out = append(out, msg)
		}
	}
	return out
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }
