package authcore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/platformid/authcore/password"
)

// testConfig returns a fully populated configuration with cheap argon2
// parameters so issuance-heavy tests stay fast.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Issuer = "authcore-test"
	cfg.Session.Secret = []byte("session-secret-0123456789abcdef")
	cfg.PasswordReset.Secret = []byte("reset-secret-0123456789abcdef00")
	cfg.PasswordReset.CallbackURL = "https://app.example.com/reset-password"
	cfg.EmailVerification.Secret = []byte("verify-secret-0123456789abcdef0")
	cfg.EmailVerification.CallbackURL = "https://app.example.com/verify-email"
	cfg.Email = EmailConfig{
		From:           "noreply@example.com",
		AppName:        "PlatformID",
		SupportContact: "support@example.com",
	}
	cfg.Password = password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
	return cfg
}

func newTestEngine(t *testing.T, mutate func(*Config)) (*Engine, *miniredis.Miniredis, *memUserStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	users := newMemUserStore()
	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserStore(users).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, mr, users
}

// memUserStore is an in-memory UserStore for exercising the reset and
// verification completion flows.
type memUserStore struct {
	mu    sync.Mutex
	users map[string]UserRecord
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]UserRecord)}
}

func (s *memUserStore) add(user UserRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.UserID] = user
}

func (s *memUserStore) get(userID string) (UserRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	return user, ok
}

func (s *memUserStore) FindUserByID(_ context.Context, userID string) (UserRecord, error) {
	if user, ok := s.get(userID); ok {
		return user, nil
	}
	return UserRecord{}, ErrUserNotFound
}

func (s *memUserStore) FindUserByEmail(_ context.Context, email string) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return UserRecord{}, ErrUserNotFound
}

func (s *memUserStore) FindUserByUsername(_ context.Context, username string) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return UserRecord{}, ErrUserNotFound
}

func (s *memUserStore) SetPasswordHash(_ context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	s.users[userID] = user
	return nil
}

func (s *memUserStore) SetEmailVerified(_ context.Context, userID string, verified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.EmailVerified = verified
	s.users[userID] = user
	return nil
}

// captureMailer records delivered messages and signals each send.
type captureMailer struct {
	mu        sync.Mutex
	delivered []Message
	sends     chan Message
}

func newCaptureMailer() *captureMailer {
	return &captureMailer{sends: make(chan Message, 16)}
}

func (m *captureMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	m.delivered = append(m.delivered, msg)
	m.mu.Unlock()
	m.sends <- msg
	return nil
}

func TestBuildRequiresRedis(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).Build(); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration without redis, got %v", err)
	}
}

func TestBuildRequiresSecrets(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := testConfig()
	cfg.Session.Secret = nil

	if _, err := New().WithConfig(cfg).WithRedis(client).Build(); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for missing secret, got %v", err)
	}

	cfg = testConfig()
	cfg.PasswordReset.Lifetime = 0
	if _, err := New().WithConfig(cfg).WithRedis(client).Build(); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for missing lifetime, got %v", err)
	}
}

func TestStartEmailWorkersRequiresMailer(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)

	if err := engine.StartEmailWorkers(context.Background()); !errors.Is(err, ErrNoMailer) {
		t.Fatalf("expected ErrNoMailer, got %v", err)
	}
}

func TestStartEmailWorkersConcurrent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	engine, err := New().
		WithConfig(testConfig()).
		WithRedis(client).
		WithMailer(newCaptureMailer()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := engine.StartEmailWorkers(context.Background()); err != nil {
				t.Errorf("StartEmailWorkers failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if engine.pool == nil {
		t.Fatal("pool was never constructed")
	}
}

func TestPing(t *testing.T) {
	engine, mr, _ := newTestEngine(t, nil)

	if err := engine.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	mr.SetError("backend down")
	if err := engine.Ping(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestAuditEventsReachSink(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sink := NewChannelSink(16)
	engine, err := New().
		WithConfig(testConfig()).
		WithRedis(client).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	if _, err := engine.IssueSession(context.Background(), "u1", "203.0.113.7", "test-agent"); err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	select {
	case event := <-sink.Events():
		if event.EventType != "session.issue" {
			t.Fatalf("event type = %q, want session.issue", event.EventType)
		}
		if event.UserID != "u1" || event.TokenID == "" || !event.Success {
			t.Fatalf("incomplete audit event: %+v", event)
		}
		if event.Timestamp.IsZero() {
			t.Fatal("audit event must carry a timestamp")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no audit event arrived")
	}
}
