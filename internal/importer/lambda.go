package importer

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/aws/aws-lambda-go/events"
)

// S3EventHandler はS3のオブジェクト作成イベントを受けてCSVを取り込むLambdaハンドラー。
type S3EventHandler func(ctx context.Context, event events.S3Event) error

// NewS3EventHandler はS3EventHandlerを生成する。
// 不正な行はスキップしてログに残し、再試行の対象にしない。
// オブジェクトの取得失敗やストレージ障害はエラーを返してLambdaに再試行させる。
func NewS3EventHandler(im *Importer, s3client S3Getter) S3EventHandler {
	return func(ctx context.Context, event events.S3Event) error {
		for _, record := range event.Records {
			bucket := record.S3.Bucket.Name
			// イベント中のキーはURLエンコードされている
			key, err := url.QueryUnescape(record.S3.Object.Key)
			if err != nil {
				return fmt.Errorf("invalid object key %q: %w", record.S3.Object.Key, err)
			}

			body, err := getObject(ctx, s3client, bucket, key)
			if err != nil {
				return err
			}

			summary, err := im.Import(ctx, body, s3Scheme+bucket+"/"+key)
			body.Close()
			if err != nil {
				return fmt.Errorf("failed to import s3://%s/%s: %w", bucket, key, err)
			}
			if summary.Skipped > 0 {
				slog.Warn("csv import skipped rows",
					slog.String("run_id", summary.RunID),
					slog.Int("skipped", summary.Skipped),
					slog.String("errors", summary.Err().Error()),
				)
			}
		}
		return nil
	}
}
