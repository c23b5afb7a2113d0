// Package cleanup は期限切れセッションの定期削除ジョブを提供する。
// PostgreSQLのsessionsテーブルとインメモリのセッションストアの両方に対応する。
// Redisはキーの有効期限で自動削除されるため対象外。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Sweeper は期限切れセッションを削除し、削除件数を返す。
type Sweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Recorder は削除件数をメトリクスに記録する。
type Recorder interface {
	RecordSessionsCleaned(count int64)
}

type noopRecorder struct{}

func (noopRecorder) RecordSessionsCleaned(int64) {}

// SQLSweeper はsessionsテーブルの期限切れ行を削除する。
type SQLSweeper struct {
	db Executor
}

// NewSQLSweeper はSQLSweeperを生成する。
func NewSQLSweeper(db Executor) *SQLSweeper {
	return &SQLSweeper{db: db}
}

// DeleteExpired はexpires_atが現在時刻を過ぎたセッションを削除する。
// 冪等: 削除対象がない場合は0を返す。
func (s *SQLSweeper) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read deleted session count: %w", err)
	}
	return n, nil
}

// CleanupJob は期限切れセッションの削除ジョブ。
type CleanupJob struct {
	sweeper  Sweeper
	logger   *slog.Logger
	recorder Recorder
	name     string
}

// NewCleanupJob は新しいCleanupJobを生成する。
// nameはログに出力するストア名（"postgres"、"memory"など）。recorderはnil可。
func NewCleanupJob(name string, sweeper Sweeper, logger *slog.Logger, recorder Recorder) *CleanupJob {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &CleanupJob{
		sweeper:  sweeper,
		logger:   logger,
		recorder: recorder,
		name:     name,
	}
}

// Run は期限切れセッションを1回削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deleted, err := j.sweeper.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("store", j.name),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	j.recorder.RecordSessionsCleaned(deleted)

	j.logger.Info("セッションクリーンアップジョブが完了しました",
		slog.String("store", j.name),
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start は起動直後に1回、その後interval間隔でRunを実行する。
// コンテキストがキャンセルされるまでブロックする。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("セッションクリーンアップを開始しました",
		slog.String("store", j.name),
		slog.Duration("interval", interval),
	)

	// Runは失敗をログ出力済みのため、ここでは継続するだけ
	_ = j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("セッションクリーンアップを停止しました", slog.String("store", j.name))
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
