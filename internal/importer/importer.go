// Package importer は商品カタログのCSVインポート・エクスポートを提供する。
// インポート元はローカルファイルまたはS3オブジェクトで、行ごとにアップサートする。
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/hitoshi/catalog/internal/model"
)

// Row はCSVの1行を表す。型変換はカタログサービスに委ねるため全て文字列で受ける。
type Row struct {
	ID       string `csv:"id"`
	Name     string `csv:"name"`
	Price    string `csv:"price"`
	Category string `csv:"category"`
}

// Upserter は商品を作成、既存なら上書きするインターフェース。catalog.Serviceが実装する。
type Upserter interface {
	Upsert(ctx context.Context, in model.ProductInput) (*model.Product, error)
}

// Lister は全商品を返すインターフェース。
type Lister interface {
	List(ctx context.Context) ([]model.Product, error)
}

// RowRecorder はインポート行数を記録するインターフェース。
type RowRecorder interface {
	RecordRowsImported(count int)
}

// Summary はインポート結果。
type Summary struct {
	RunID    string
	Imported int
	Skipped  int
	Errors   []error // スキップした行の理由
}

// Err はスキップした行の理由をまとめて返す。全行成功ならnil。
func (s Summary) Err() error {
	return errors.Join(s.Errors...)
}

// Importer はCSVを読み込み、行ごとに商品をアップサートする。
type Importer struct {
	upserter Upserter
	recorder RowRecorder
}

// NewImporter はImporterを生成する。recorderはnilでもよい。
func NewImporter(upserter Upserter, recorder RowRecorder) *Importer {
	return &Importer{upserter: upserter, recorder: recorder}
}

// Import はrからCSVを読み込んで取り込む。
// 不正な行はスキップしてSummaryに記録し、処理を継続する。
// CSV自体が解析できない場合とコンテキストのキャンセルのみエラーを返す。
func (im *Importer) Import(ctx context.Context, r io.Reader, source string) (Summary, error) {
	summary := Summary{RunID: uuid.NewString()}
	logger := slog.With(
		slog.String("run_id", summary.RunID),
		slog.String("source", source),
	)

	var rows []*Row
	if err := gocsv.Unmarshal(r, &rows); err != nil && !errors.Is(err, gocsv.ErrEmptyCSVFile) {
		return summary, fmt.Errorf("failed to parse CSV: %w", err)
	}

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		// ヘッダーを1行目として数える
		line := i + 2
		_, err := im.upserter.Upsert(ctx, model.ProductInput{
			ID:       row.ID,
			Name:     row.Name,
			Price:    row.Price,
			Category: row.Category,
		})
		if err != nil {
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				// ストレージ障害は行の問題ではないため中断する
				return summary, fmt.Errorf("line %d: %w", line, err)
			}
			summary.Skipped++
			summary.Errors = append(summary.Errors, fmt.Errorf("line %d: %w", line, err))
			logger.Warn("csv row skipped",
				slog.Int("line", line),
				slog.String("product_id", row.ID),
				slog.String("reason", apiErr.Message),
			)
			continue
		}
		summary.Imported++
	}

	if im.recorder != nil {
		im.recorder.RecordRowsImported(summary.Imported)
	}
	logger.Info("csv import completed",
		slog.Int("imported", summary.Imported),
		slog.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

// Export は全商品をCSVとしてwに書き込む。価格は小数点以下2桁で出力する。
func Export(ctx context.Context, lister Lister, w io.Writer) error {
	products, err := lister.List(ctx)
	if err != nil {
		return err
	}

	rows := make([]*Row, 0, len(products))
	for _, p := range products {
		rows = append(rows, &Row{
			ID:       fmt.Sprintf("%d", p.ID),
			Name:     p.Name,
			Price:    p.Price.StringFixed(2),
			Category: p.Category,
		})
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}
