// Command catalog-lambda はS3へのCSVアップロードを契機に商品を取り込むLambda関数。
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/hitoshi/catalog/internal/app"
	"github.com/hitoshi/catalog/internal/catalog"
	"github.com/hitoshi/catalog/internal/database"
	"github.com/hitoshi/catalog/internal/importer"
	"github.com/hitoshi/catalog/internal/repository"
	"github.com/hitoshi/catalog/internal/security"
)

func main() {
	cfg, err := app.Init(os.Stdout)
	if err != nil {
		slog.Error("initialization failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Lambdaは同時実行ごとに1接続で足りる
	db, err := database.Open(cfg.DatabaseURL, database.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		slog.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := database.PingWithRetry(context.Background(), db, cfg.DBConnectRetries); err != nil {
		slog.Error("database unavailable", slog.String("error", err.Error()))
		os.Exit(1)
	}

	s3client, err := importer.NewS3Client(cfg.AWSRegion)
	if err != nil {
		slog.Error("failed to create s3 client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	service := catalog.NewService(repository.NewPostgresProductRepo(db), security.NewTextSanitizer(), nil)
	handler := importer.NewS3EventHandler(importer.NewImporter(service, nil), s3client)

	lambda.Start(handler)
}
