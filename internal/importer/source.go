package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

const s3Scheme = "s3://"

// S3Getter はS3オブジェクトの取得インターフェース。*s3.S3が実装する。
type S3Getter interface {
	GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
}

// NewS3Client は指定リージョンのS3クライアントを生成する。
// 認証情報は環境変数・共有設定ファイル・IAMロールから解決される。
func NewS3Client(region string) (*s3.S3, error) {
	sess, err := session.NewSession(aws.NewConfig().WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return s3.New(sess), nil
}

// ParseS3URI は s3://bucket/key 形式のURIをバケットとキーに分解する。
func ParseS3URI(uri string) (bucket, key string, err error) {
	if !strings.HasPrefix(uri, s3Scheme) {
		return "", "", fmt.Errorf("not an s3 uri: %s", uri)
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(uri, s3Scheme), "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 uri must be s3://bucket/key: %s", uri)
	}
	return bucket, key, nil
}

// OpenSource はインポート元を開く。s3:// で始まる場合はS3から、それ以外はローカルファイルから読む。
// s3clientはS3を使わない場合nilでもよい。
func OpenSource(ctx context.Context, uri string, s3client S3Getter) (io.ReadCloser, error) {
	if !strings.HasPrefix(uri, s3Scheme) {
		f, err := os.Open(uri)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", uri, err)
		}
		return f, nil
	}

	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}
	if s3client == nil {
		return nil, fmt.Errorf("s3 client is not configured")
	}
	return getObject(ctx, s3client, bucket, key)
}

func getObject(ctx context.Context, s3client S3Getter, bucket, key string) (io.ReadCloser, error) {
	out, err := s3client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s from bucket %s: %w", key, bucket, err)
	}
	return out.Body, nil
}
