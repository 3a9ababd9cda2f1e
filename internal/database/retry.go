package database

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

const (
	// initialBackoff は接続リトライの初回待機時間。
	initialBackoff = 500 * time.Millisecond
	// maxBackoff は接続リトライの最大待機時間。
	maxBackoff = 8 * time.Second
)

// CalculateBackoff は失敗回数に基づいて指数バックオフの待機時間を計算する。
// 初回500ms、2倍ずつ増加、最大8秒。
func CalculateBackoff(failures int) time.Duration {
	delay := initialBackoff
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// PingWithRetry は最大attempts回Pingを試み、失敗の間は指数バックオフで待機する。
// docker compose等でDBより先にアプリが起動した場合に備える。
func PingWithRetry(ctx context.Context, db *sql.DB, attempts int) error {
	return retry(ctx, attempts, time.After, func() error {
		return Ping(ctx, db)
	})
}

func retry(ctx context.Context, attempts int, after func(time.Duration) <-chan time.Time, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		delay := CalculateBackoff(i)
		slog.Warn("database not ready, retrying",
			slog.Int("attempt", i+1),
			slog.Duration("backoff", delay),
			slog.String("error", err.Error()),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-after(delay):
		}
	}
	return err
}
