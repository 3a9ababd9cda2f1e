package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/catalog/internal/model"
	"github.com/hitoshi/catalog/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByUsernameFn func(ctx context.Context, username string) (*model.User, error)
	createFn         func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

// memorySessionRepo はテスト用のインメモリセッションリポジトリ。
type memorySessionRepo struct {
	mu       sync.Mutex
	sessions map[string]model.Session
	deleted  []string
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{sessions: make(map[string]model.Session)}
}

func (m *memorySessionRepo) Create(_ context.Context, session *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = *session
	return nil
}

func (m *memorySessionRepo) FindByID(_ context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memorySessionRepo) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memorySessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

type mockSessionRepo struct {
	createFn     func(ctx context.Context, session *model.Session) error
	findByIDFn   func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn func(ctx context.Context, id string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

type mockLoginRecorder struct {
	results []string
}

func (m *mockLoginRecorder) RecordLoginAttempt(result string) {
	m.results = append(m.results, result)
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.SessionRepository = (*memorySessionRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)
var _ LoginRecorder = (*mockLoginRecorder)(nil)

// userRepoWith は指定ユーザーだけが存在するモックを返す。
func userRepoWith(t *testing.T, username, password string) *mockUserRepo {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	return &mockUserRepo{
		findByUsernameFn: func(_ context.Context, name string) (*model.User, error) {
			if name != username {
				return nil, nil
			}
			return &model.User{Username: username, PasswordHash: hash}, nil
		},
	}
}

// --- テスト ---

func TestLogin_CorrectCredentials_Authenticates(t *testing.T) {
	ctx := context.Background()
	sessions := newMemorySessionRepo()
	rec := &mockLoginRecorder{}
	gate := NewGate(userRepoWith(t, "alice", "s3cret"), sessions, rec, GateConfig{SessionMaxAge: 3600})

	session, err := gate.Login(ctx, "alice", "s3cret", "")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if session.Username != "alice" {
		t.Errorf("session.Username = %q, want %q", session.Username, "alice")
	}
	if len(session.ID) != 64 {
		t.Errorf("session ID length = %d, want 64", len(session.ID))
	}
	if got := session.ExpiresAt.Sub(session.CreatedAt); got != time.Hour {
		t.Errorf("session lifetime = %v, want 1h", got)
	}

	ok, err := gate.IsAuthenticated(ctx, session.ID)
	if err != nil {
		t.Fatalf("IsAuthenticated() error = %v", err)
	}
	if !ok {
		t.Error("expected authenticated after login")
	}
	if len(rec.results) != 1 || rec.results[0] != "ok" {
		t.Errorf("recorded results = %v, want [ok]", rec.results)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
	}{
		{"パスワード誤り", "bob", "wrong"},
		{"存在しないユーザー", "nobody", "secret"},
		{"空のパスワード", "bob", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			sessions := newMemorySessionRepo()
			rec := &mockLoginRecorder{}
			gate := NewGate(userRepoWith(t, "bob", "secret"), sessions, rec, GateConfig{SessionMaxAge: 3600})

			session, err := gate.Login(ctx, tt.username, tt.password, "")
			if session != nil {
				t.Errorf("expected nil session, got %+v", session)
			}
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Code != model.ErrCodeInvalidCredentials {
				t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidCredentials)
			}
			if apiErr.Message != "Invalid Credentials" {
				t.Errorf("Message = %q, want %q", apiErr.Message, "Invalid Credentials")
			}
			if len(sessions.sessions) != 0 {
				t.Errorf("no session should be created, got %d", len(sessions.sessions))
			}
			if len(rec.results) != 1 || rec.results[0] != "invalid" {
				t.Errorf("recorded results = %v, want [invalid]", rec.results)
			}
		})
	}
}

func TestLogin_AgainWithExistingSession_ReplacesSession(t *testing.T) {
	ctx := context.Background()
	sessions := newMemorySessionRepo()
	gate := NewGate(userRepoWith(t, "alice", "s3cret"), sessions, nil, GateConfig{SessionMaxAge: 3600})

	first, err := gate.Login(ctx, "alice", "s3cret", "")
	if err != nil {
		t.Fatalf("first Login() error = %v", err)
	}
	second, err := gate.Login(ctx, "alice", "s3cret", first.ID)
	if err != nil {
		t.Fatalf("second Login() error = %v", err)
	}

	if first.ID == second.ID {
		t.Error("expected a new session ID on re-login")
	}
	if ok, _ := gate.IsAuthenticated(ctx, first.ID); ok {
		t.Error("previous session should be invalidated")
	}
	if ok, _ := gate.IsAuthenticated(ctx, second.ID); !ok {
		t.Error("new session should be authenticated")
	}
}

func TestLogin_FailureKeepsExistingSession(t *testing.T) {
	ctx := context.Background()
	sessions := newMemorySessionRepo()
	gate := NewGate(userRepoWith(t, "alice", "s3cret"), sessions, nil, GateConfig{SessionMaxAge: 3600})

	session, err := gate.Login(ctx, "alice", "s3cret", "")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if _, err := gate.Login(ctx, "alice", "wrong", session.ID); err == nil {
		t.Fatal("expected error for wrong password")
	}
	if ok, _ := gate.IsAuthenticated(ctx, session.ID); !ok {
		t.Error("failed login should not touch the existing session")
	}
}

func TestLogin_UserRepoError_ReturnsWrappedError(t *testing.T) {
	dbErr := errors.New("connection refused")
	userRepo := &mockUserRepo{
		findByUsernameFn: func(_ context.Context, _ string) (*model.User, error) {
			return nil, dbErr
		},
	}
	gate := NewGate(userRepo, newMemorySessionRepo(), nil, GateConfig{SessionMaxAge: 3600})

	_, err := gate.Login(context.Background(), "alice", "x", "")
	if !errors.Is(err, dbErr) {
		t.Errorf("Login() error = %v, want wrapped %v", err, dbErr)
	}
}

func TestLogin_SessionCreateError_ReturnsError(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		createFn: func(_ context.Context, _ *model.Session) error {
			return errors.New("insert failed")
		},
	}
	gate := NewGate(userRepoWith(t, "alice", "s3cret"), sessionRepo, nil, GateConfig{SessionMaxAge: 3600})

	session, err := gate.Login(context.Background(), "alice", "s3cret", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if session != nil {
		t.Errorf("expected nil session, got %+v", session)
	}
	if model.HasCode(err, model.ErrCodeInvalidCredentials) {
		t.Error("storage failure should not be reported as invalid credentials")
	}
}

func TestLogout(t *testing.T) {
	t.Run("ログイン後のログアウトで匿名に戻る", func(t *testing.T) {
		ctx := context.Background()
		sessions := newMemorySessionRepo()
		gate := NewGate(userRepoWith(t, "alice", "s3cret"), sessions, nil, GateConfig{SessionMaxAge: 3600})

		session, err := gate.Login(ctx, "alice", "s3cret", "")
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if err := gate.Logout(ctx, session.ID); err != nil {
			t.Fatalf("Logout() error = %v", err)
		}

		if ok, _ := gate.IsAuthenticated(ctx, session.ID); ok {
			t.Error("expected anonymous after logout")
		}
		_, err = gate.RequireAuthenticated(ctx, session.ID)
		if !model.HasCode(err, model.ErrCodeUnauthenticated) {
			t.Errorf("RequireAuthenticated() error = %v, want UNAUTHENTICATED", err)
		}
	})

	t.Run("セッションが無い場合は何もしない", func(t *testing.T) {
		called := false
		sessionRepo := &mockSessionRepo{
			deleteByIDFn: func(_ context.Context, _ string) error {
				called = true
				return nil
			},
		}
		gate := NewGate(&mockUserRepo{}, sessionRepo, nil, GateConfig{SessionMaxAge: 3600})

		if err := gate.Logout(context.Background(), ""); err != nil {
			t.Fatalf("Logout() error = %v", err)
		}
		if called {
			t.Error("DeleteByID should not be called without a session")
		}
	})

	t.Run("削除エラーはラップして返す", func(t *testing.T) {
		sessionRepo := &mockSessionRepo{
			deleteByIDFn: func(_ context.Context, _ string) error {
				return errors.New("db down")
			},
		}
		gate := NewGate(&mockUserRepo{}, sessionRepo, nil, GateConfig{SessionMaxAge: 3600})

		if err := gate.Logout(context.Background(), "abc"); err == nil {
			t.Error("expected error")
		}
	})
}

func TestCurrent_ExpiredSession_ReturnsNil(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(_ context.Context, id string) (*model.Session, error) {
			return &model.Session{ID: id, Username: "alice", ExpiresAt: now}, nil
		},
	}
	gate := NewGate(&mockUserRepo{}, sessionRepo, nil, GateConfig{SessionMaxAge: 3600})
	gate.now = func() time.Time { return now }

	session, err := gate.Current(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if session != nil {
		t.Errorf("expected nil for expired session, got %+v", session)
	}

	gate.now = func() time.Time { return now.Add(-time.Second) }
	session, err = gate.Current(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if session == nil || session.Username != "alice" {
		t.Errorf("expected alice session before expiry, got %+v", session)
	}
}

func TestRequireAuthenticated_NoSession_ReturnsUnauthenticated(t *testing.T) {
	gate := NewGate(&mockUserRepo{}, newMemorySessionRepo(), nil, GateConfig{SessionMaxAge: 3600})

	for _, id := range []string{"", "unknown"} {
		_, err := gate.RequireAuthenticated(context.Background(), id)
		if !model.HasCode(err, model.ErrCodeUnauthenticated) {
			t.Errorf("RequireAuthenticated(%q) error = %v, want UNAUTHENTICATED", id, err)
		}
	}
}

func TestCreateUser(t *testing.T) {
	t.Run("ハッシュ化したパスワードで登録する", func(t *testing.T) {
		var saved *model.User
		userRepo := &mockUserRepo{
			createFn: func(_ context.Context, user *model.User) error {
				saved = user
				return nil
			},
		}
		gate := NewGate(userRepo, newMemorySessionRepo(), nil, GateConfig{})

		if _, err := gate.CreateUser(context.Background(), "carol", "pw", "carol@example.com"); err != nil {
			t.Fatalf("CreateUser() error = %v", err)
		}
		if saved == nil {
			t.Fatal("expected user to be saved")
		}
		if saved.PasswordHash == "pw" {
			t.Error("password must not be stored in plain text")
		}
		if !CheckPassword(saved.PasswordHash, "pw") {
			t.Error("stored hash should match the password")
		}
		if saved.Email != "carol@example.com" {
			t.Errorf("Email = %q", saved.Email)
		}
	})

	t.Run("重複ユーザーはErrAlreadyExistsをラップする", func(t *testing.T) {
		userRepo := &mockUserRepo{
			createFn: func(_ context.Context, _ *model.User) error {
				return repository.ErrAlreadyExists
			},
		}
		gate := NewGate(userRepo, newMemorySessionRepo(), nil, GateConfig{})

		_, err := gate.CreateUser(context.Background(), "carol", "pw", "")
		if !errors.Is(err, repository.ErrAlreadyExists) {
			t.Errorf("CreateUser() error = %v, want ErrAlreadyExists", err)
		}
	})

	t.Run("空のユーザー名はINVALID_INPUT", func(t *testing.T) {
		gate := NewGate(&mockUserRepo{}, newMemorySessionRepo(), nil, GateConfig{})

		_, err := gate.CreateUser(context.Background(), "", "pw", "")
		if !model.HasCode(err, model.ErrCodeInvalidInput) {
			t.Errorf("CreateUser() error = %v, want INVALID_INPUT", err)
		}
	})
}

func TestGenerateSessionID_IsUniqueHex(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := generateSessionID()
		if err != nil {
			t.Fatalf("generateSessionID() error = %v", err)
		}
		if len(id) != 64 {
			t.Fatalf("len(id) = %d, want 64", len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate session ID: %s", id)
		}
		seen[id] = true
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if !CheckPassword(hash, "correct horse") {
		t.Error("expected match for correct password")
	}
	if CheckPassword(hash, "battery staple") {
		t.Error("expected mismatch for wrong password")
	}
	if CheckPassword("not-a-hash", "correct horse") {
		t.Error("expected mismatch for malformed hash")
	}
}
