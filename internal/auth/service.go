// Package auth はパスワード認証とセッション管理を提供する。
// 1セッションに束縛されるユーザーは高々1人で、状態は
// 匿名 → ログイン済み → 匿名 の間を遷移する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/catalog/internal/model"
	"github.com/hitoshi/catalog/internal/repository"
)

// LoginRecorder はログイン試行の結果を記録するインターフェース。
type LoginRecorder interface {
	RecordLoginAttempt(result string)
}

// GateConfig はセッションゲートの設定。
type GateConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Gate はログイン・ログアウト・認証確認を行う。
type Gate struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	recorder    LoginRecorder
	config      GateConfig
	now         func() time.Time
}

// NewGate はGateを生成する。recorderはnilでもよい。
func NewGate(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	recorder LoginRecorder,
	config GateConfig,
) *Gate {
	return &Gate{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		recorder:    recorder,
		config:      config,
		now:         time.Now,
	}
}

// Login はユーザー名とパスワードを検証し、新しいセッションを発行する。
// ユーザー不在とパスワード誤りはどちらもINVALID_CREDENTIALSを返す。
// currentSessionIDが空でない場合、成功時にそのセッションを破棄する。
func (g *Gate) Login(ctx context.Context, username, password, currentSessionID string) (*model.Session, error) {
	user, err := g.userRepo.FindByUsername(ctx, username)
	if err != nil {
		g.record("error")
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	hash := dummyHash
	if user != nil {
		hash = user.PasswordHash
	}
	// ユーザー不在でも比較は必ず1回行う
	matched := CheckPassword(hash, password)
	if user == nil || !matched {
		g.record("invalid")
		slog.Info("login failed", slog.String("username", username))
		return nil, model.NewInvalidCredentialsError()
	}

	session, err := g.createSession(ctx, user.Username)
	if err != nil {
		g.record("error")
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if currentSessionID != "" {
		if err := g.sessionRepo.DeleteByID(ctx, currentSessionID); err != nil {
			slog.Warn("failed to delete previous session",
				slog.String("error", err.Error()),
			)
		}
	}

	g.record("ok")
	slog.Info("user logged in", slog.String("username", user.Username))
	return session, nil
}

// Logout はセッションを破棄する。セッションが無い場合は何もしない。
func (g *Gate) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := g.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out")
	return nil
}

// Current はセッションIDに対応する有効なセッションを返す。
// 存在しない、または期限切れの場合はnilを返す。
func (g *Gate) Current(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := g.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil || session.Expired(g.now()) {
		return nil, nil
	}
	return session, nil
}

// IsAuthenticated はセッションにユーザーが束縛されているかどうかを返す。
// ユーザーレコードの再検証は行わない。
func (g *Gate) IsAuthenticated(ctx context.Context, sessionID string) (bool, error) {
	session, err := g.Current(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return session != nil, nil
}

// RequireAuthenticated はログイン済みセッションを返す。
// 未ログインの場合はUNAUTHENTICATEDを返す。
func (g *Gate) RequireAuthenticated(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := g.Current(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, model.NewUnauthenticatedError()
	}
	return session, nil
}

// CreateUser はパスワードをハッシュ化してユーザーを登録する。
func (g *Gate) CreateUser(ctx context.Context, username, password, email string) (*model.User, error) {
	if username == "" || password == "" {
		return nil, model.NewInvalidInputError("username/password", "空にはできません")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     username,
		PasswordHash: hash,
		Email:        email,
		CreatedAt:    g.now(),
	}
	if err := g.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user created", slog.String("username", username))
	return user, nil
}

// createSession はセッションを作成し永続化する。
func (g *Gate) createSession(ctx context.Context, username string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := g.now()
	session := &model.Session{
		ID:        sessionID,
		Username:  username,
		ExpiresAt: now.Add(time.Duration(g.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := g.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

func (g *Gate) record(result string) {
	if g.recorder != nil {
		g.recorder.RecordLoginAttempt(result)
	}
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
