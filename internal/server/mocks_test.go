package server

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Amund-Fremming/tero.platform/internal/auth"
	"github.com/Amund-Fremming/tero.platform/internal/db/models"
	"github.com/Amund-Fremming/tero.platform/internal/games"
	"github.com/Amund-Fremming/tero.platform/internal/repository"
)

type inlineJobs struct{}

func (inlineJobs) Submit(name string, fn func(ctx context.Context) error) bool {
	_ = fn(context.Background())
	return true
}

type mockAuditWriter struct {
	mu      sync.Mutex
	entries []*models.SystemLog
}

func (m *mockAuditWriter) Create(ctx context.Context, entry *models.SystemLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditWriter) find(function string, severity models.LogSeverity) []*models.SystemLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.SystemLog
	for _, e := range m.entries {
		if e.Function == function && e.Severity == severity {
			out = append(out, e)
		}
	}
	return out
}

type mockUsers struct {
	mu         sync.Mutex
	pseudo     map[uuid.UUID]time.Time
	base       map[uuid.UUID]*models.BaseUser
	byAuth0    map[string]uuid.UUID
	registerFn func(u *models.BaseUser) error
}

func newMockUsers() *mockUsers {
	return &mockUsers{
		pseudo:  map[uuid.UUID]time.Time{},
		base:    map[uuid.UUID]*models.BaseUser{},
		byAuth0: map[string]uuid.UUID{},
	}
}

func (m *mockUsers) addBaseUser(auth0ID string) *models.BaseUser {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	u := &models.BaseUser{ID: id, Username: "user-" + id.String()[:6], Auth0ID: &auth0ID, Gender: models.GenderUnknown}
	m.base[id] = u
	m.byAuth0[auth0ID] = id
	m.pseudo[id] = time.Time{}
	return u
}

func (m *mockUsers) EnsurePseudoUser(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pseudo[id]
	m.pseudo[id] = now
	return !ok, nil
}

func (m *mockUsers) PseudoUserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pseudo[id]
	return ok, nil
}

func (m *mockUsers) CreatePseudoUser(ctx context.Context, id uuid.UUID, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pseudo[id]; ok {
		return repository.ErrConflict
	}
	m.pseudo[id] = now
	return nil
}

func (m *mockUsers) TouchPseudoUser(ctx context.Context, id uuid.UUID, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pseudo[id]; !ok {
		return repository.ErrNotFound
	}
	m.pseudo[id] = now
	return nil
}

func (m *mockUsers) GetBaseUser(ctx context.Context, id uuid.UUID) (*models.BaseUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.base[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (m *mockUsers) GetBaseUserByAuth0ID(ctx context.Context, auth0ID string) (*models.BaseUser, error) {
	m.mu.Lock()
	id, ok := m.byAuth0[auth0ID]
	m.mu.Unlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return m.GetBaseUser(ctx, id)
}

func (m *mockUsers) RegisterUser(ctx context.Context, user *models.BaseUser) error {
	if m.registerFn != nil {
		if err := m.registerFn(user); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.base[user.ID]; ok {
		return repository.ErrConflict
	}
	m.base[user.ID] = user
	m.pseudo[user.ID] = user.CreatedAt
	if user.Auth0ID != nil {
		m.byAuth0[*user.Auth0ID] = user.ID
	}
	return nil
}

func (m *mockUsers) PatchBaseUser(ctx context.Context, id uuid.UUID, patch models.UserPatch, now time.Time) (*models.BaseUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.base[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	if patch.Username != nil {
		cp.Username = *patch.Username
	}
	if patch.GivenName != nil {
		cp.GivenName = *patch.GivenName
	}
	cp.UpdatedAt = now
	m.base[id] = &cp
	return &cp, nil
}

func (m *mockUsers) ListBaseUsers(ctx context.Context, pageNum, pageSize int) (repository.Page[models.BaseUser], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]models.BaseUser, 0, len(m.base))
	for _, u := range m.base {
		items = append(items, *u)
	}
	return repository.Page[models.BaseUser]{Items: items, PageNum: pageNum}, nil
}

func (m *mockUsers) ActivityStats(ctx context.Context, now time.Time) (*models.ActivityStats, error) {
	return &models.ActivityStats{TotalUserCount: len(m.base)}, nil
}

type persistCall struct {
	Kind   games.Kind
	ID     uuid.UUID
	Rounds []string
}

type mockGames struct {
	mu        sync.Mutex
	listCalls atomic.Int32
	bases     map[uuid.UUID]*models.GameBase
	rounds    map[uuid.UUID][]string
	saved     map[[2]uuid.UUID]bool
	persisted []persistCall
	played    map[uuid.UUID]int
	purgeErr  error
	purged    []time.Time
}

func newMockGames() *mockGames {
	return &mockGames{
		bases:  map[uuid.UUID]*models.GameBase{},
		rounds: map[uuid.UUID][]string{},
		saved:  map[[2]uuid.UUID]bool{},
		played: map[uuid.UUID]int{},
	}
}

func (m *mockGames) addGame(kind games.Kind, rounds ...string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.bases[id] = &models.GameBase{ID: id, Name: "stored", Kind: kind, Category: games.Casual, Synced: true}
	m.rounds[id] = rounds
	return id
}

func (m *mockGames) ListGames(ctx context.Context, q repository.GameQuery, pageSize int) (repository.Page[models.GameBase], error) {
	m.listCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []models.GameBase{}
	for _, g := range m.bases {
		if g.Kind == q.Kind && g.Synced && (q.Category.IsZero() || g.Category == q.Category) {
			items = append(items, *g)
		}
	}
	return repository.Page[models.GameBase]{Items: items, PageNum: q.PageNum, HasPrev: q.PageNum > 0}, nil
}

func (m *mockGames) CreateGameBase(ctx context.Context, game *models.GameBase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *game
	m.bases[game.ID] = &cp
	return nil
}

func (m *mockGames) GetGameBase(ctx context.Context, id uuid.UUID) (*models.GameBase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.bases[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return g, nil
}

func (m *mockGames) DeleteGame(ctx context.Context, id uuid.UUID) (games.Kind, games.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.bases[id]
	if !ok {
		return "", "", repository.ErrNotFound
	}
	delete(m.bases, id)
	return g.Kind, g.Category, nil
}

func (m *mockGames) GetRounds(ctx context.Context, kind games.Kind, id uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rounds[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r, nil
}

func (m *mockGames) PersistRounds(ctx context.Context, kind games.Kind, id uuid.UUID, rounds []string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.bases[id]
	if !ok {
		return repository.ErrNotFound
	}
	g.Synced = true
	g.TimesPlayed++
	g.Iterations = len(rounds)
	m.rounds[id] = rounds
	m.persisted = append(m.persisted, persistCall{Kind: kind, ID: id, Rounds: rounds})
	return nil
}

func (m *mockGames) IncrementTimesPlayed(ctx context.Context, id uuid.UUID, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bases[id]; !ok {
		return repository.ErrNotFound
	}
	m.played[id]++
	return nil
}

func (m *mockGames) PurgeInactive(ctx context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purged = append(m.purged, before)
	if m.purgeErr != nil {
		return 0, m.purgeErr
	}
	return 3, nil
}

func (m *mockGames) SaveGame(ctx context.Context, userID, gameID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[[2]uuid.UUID{userID, gameID}] = true
	return nil
}

func (m *mockGames) UnsaveGame(ctx context.Context, userID, gameID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := [2]uuid.UUID{userID, gameID}
	if !m.saved[k] {
		return repository.ErrNotFound
	}
	delete(m.saved, k)
	return nil
}

func (m *mockGames) ListSavedGames(ctx context.Context, userID uuid.UUID, q repository.GameQuery, pageSize int) (repository.Page[models.GameBase], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []models.GameBase{}
	for k := range m.saved {
		if k[0] == userID {
			if g, ok := m.bases[k[1]]; ok && (q.Kind == "" || g.Kind == q.Kind) {
				items = append(items, *g)
			}
		}
	}
	return repository.Page[models.GameBase]{Items: items, PageNum: q.PageNum}, nil
}

type initiation struct {
	Kind  games.Kind
	Key   string
	Value json.RawMessage
}

type mockSessions struct {
	mu        sync.Mutex
	calls     []initiation
	initErr   error
	unhealthy bool
}

func (m *mockSessions) InitiateSession(ctx context.Context, kind games.Kind, key string, value json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initErr != nil {
		return m.initErr
	}
	m.calls = append(m.calls, initiation{Kind: kind, Key: key, Value: value})
	return nil
}

func (m *mockSessions) Health(ctx context.Context) bool { return !m.unhealthy }

// mockVerifier treats the raw token as a lookup key.
type mockVerifier struct {
	tokens map[string]*auth.Claims
}

func (m *mockVerifier) Verify(raw string) (*auth.Claims, error) {
	c, ok := m.tokens[raw]
	if !ok {
		return nil, &auth.VerificationError{Err: auth.ErrUnknownKeyID}
	}
	return c, nil
}
