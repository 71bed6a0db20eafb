package authcore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mkarel/authcore/password"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

// testConfig uses the cheapest argon2 parameters the hasher accepts so
// the suite stays fast.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.AccessSecret = []byte("test-access-secret-test-access-0")
	cfg.Token.RefreshSecret = []byte("test-refresh-secret-test-refresh")
	cfg.Password = password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
	return cfg
}

type testEnv struct {
	engine   *Engine
	mr       *miniredis.Miniredis
	provider *mockProvider
	mailer   *recordingMailer
}

func newTestEngine(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()

	mr, client := newTestRedis(t)
	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	provider := newMockProvider()
	mailer := &recordingMailer{}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserProvider(provider).
		WithMailer(mailer).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, mr: mr, provider: provider, mailer: mailer}
}

// recordingMailer captures verification links instead of sending them.
type recordingMailer struct {
	mu    sync.Mutex
	links []string
	fail  error
}

func (m *recordingMailer) SendVerification(_ context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.links = append(m.links, link)
	return nil
}

// lastLink returns the most recently mailed verification link. With an
// empty BaseURL the link is the raw ticket token.
func (m *recordingMailer) lastLink(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.links) == 0 {
		t.Fatal("no verification link was mailed")
	}
	return m.links[len(m.links)-1]
}

func (m *recordingMailer) sent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.links)
}

// mockProvider is an in-memory UserProvider. failMarkVerified, when
// set, makes the next MarkEmailVerified call fail once.
type mockProvider struct {
	mu               sync.Mutex
	nextID           int
	byID             map[string]*UserRecord
	byEmail          map[string]string
	links            map[string]string
	failMarkVerified error
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		byID:    map[string]*UserRecord{},
		byEmail: map[string]string{},
		links:   map[string]string{},
	}
}

func (p *mockProvider) GetByEmail(_ context.Context, email string) (*UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	user := *p.byID[id]
	return &user, nil
}

func (p *mockProvider) GetByID(_ context.Context, id string) (*UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	user, ok := p.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (p *mockProvider) Create(_ context.Context, input CreateUserInput) (*UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := strings.ToLower(input.Email)
	if _, exists := p.byEmail[key]; exists {
		return nil, ErrEmailTaken
	}
	p.nextID++
	now := time.Now()
	user := &UserRecord{
		ID:            fmt.Sprintf("user-%d", p.nextID),
		Email:         input.Email,
		PasswordHash:  input.PasswordHash,
		DisplayName:   input.DisplayName,
		EmailVerified: input.EmailVerified,
		Roles:         append([]string(nil), input.Roles...),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	p.byID[user.ID] = user
	p.byEmail[key] = user.ID
	copied := *user
	return &copied, nil
}

func (p *mockProvider) MarkEmailVerified(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failMarkVerified != nil {
		err := p.failMarkVerified
		p.failMarkVerified = nil
		return err
	}
	user, ok := p.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	user.EmailVerified = true
	user.UpdatedAt = time.Now()
	return nil
}

func (p *mockProvider) AppendRole(_ context.Context, id, role string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	user, ok := p.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	user.Roles = append(user.Roles, role)
	return nil
}

func (p *mockProvider) FindSocialLink(_ context.Context, provider, subjectID string) (*SocialLink, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	accountID, ok := p.links[provider+"|"+subjectID]
	if !ok {
		return nil, ErrSocialLinkNotFound
	}
	return &SocialLink{Provider: provider, SubjectID: subjectID, AccountID: accountID}, nil
}

func (p *mockProvider) CreateSocialLink(_ context.Context, link SocialLink) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.links[link.Provider+"|"+link.SubjectID] = link.AccountID
	return nil
}

func mustRegister(t *testing.T, env *testEnv, email, pass string) *AuthResult {
	t.Helper()
	result, err := env.engine.Register(context.Background(), RegisterRequest{
		Email:    email,
		Password: pass,
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return result
}

func mustVerify(t *testing.T, env *testEnv) {
	t.Helper()
	if err := env.engine.VerifyEmail(context.Background(), env.mailer.lastLink(t)); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
}
