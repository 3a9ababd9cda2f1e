package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/catalog/internal/auth"
	"github.com/hitoshi/catalog/internal/catalog"
	"github.com/hitoshi/catalog/internal/config"
	"github.com/hitoshi/catalog/internal/database"
	"github.com/hitoshi/catalog/internal/importer"
	"github.com/hitoshi/catalog/internal/metrics"
	"github.com/hitoshi/catalog/internal/repository"
	"github.com/hitoshi/catalog/internal/security"
)

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return nil, err
	}
	if err := database.PingWithRetry(ctx, db, cfg.DBConnectRetries); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// openSessionRepo はSESSION_STOREに応じたセッションリポジトリを返す。
// 戻り値の関数で外部接続を閉じる。
func openSessionRepo(ctx context.Context, cfg *config.Config, db *sql.DB) (repository.SessionRepository, func(), error) {
	if cfg.SessionStore != config.SessionStoreRedis {
		return repository.NewPostgresSessionRepo(db), func() {}, nil
	}

	client, err := database.OpenRedis(ctx, database.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, nil, err
	}

	slog.Info("redis session store connected", slog.String("addr", cfg.RedisAddr))
	return repository.NewRedisSessionRepo(client), func() { client.Close() }, nil
}

// runImport はCSVファイルから商品を取り込む。
// 引数はローカルパスまたは s3://bucket/key。
// 不正な行はスキップし、件数と行番号をログに出力する。
func runImport(cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: catalog import <path|s3://bucket/key>")
	}
	source := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var s3client importer.S3Getter
	if strings.HasPrefix(source, "s3://") {
		client, err := importer.NewS3Client(cfg.AWSRegion)
		if err != nil {
			return err
		}
		s3client = client
	}

	r, err := importer.OpenSource(ctx, source, s3client)
	if err != nil {
		return err
	}
	defer r.Close()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	collector := metrics.NewCollector(prometheus.NewRegistry())
	service := catalog.NewService(repository.NewPostgresProductRepo(db), security.NewTextSanitizer(), collector)
	im := importer.NewImporter(service, collector)

	summary, err := im.Import(ctx, r, source)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	for _, rowErr := range summary.Errors {
		slog.Warn("row skipped", slog.String("error", rowErr.Error()))
	}
	return nil
}

// runCreateUser はログインユーザーを作成する。
// 引数は <username> <password> <email>。
func runCreateUser(cfg *config.Config, args []string) error {
	if len(args) != 3 {
		return errors.New("usage: catalog createuser <username> <password> <email>")
	}

	ctx := context.Background()
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	gate := auth.NewGate(repository.NewPostgresUserRepo(db), repository.NewPostgresSessionRepo(db), nil, auth.GateConfig{
		SessionMaxAge: cfg.SessionMaxAge,
	})

	if _, err := gate.CreateUser(ctx, args[0], args[1], args[2]); err != nil {
		return fmt.Errorf("createuser: %w", err)
	}
	return nil
}
