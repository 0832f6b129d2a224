package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/time/rate"

	"github.com/shouni/go-promo-kit/pkg/adapters"
	"github.com/shouni/go-promo-kit/pkg/domain"
	"github.com/shouni/go-promo-kit/pkg/prompts"
	"github.com/shouni/go-promo-kit/pkg/remotecall"
)

// ExtractRunner は、1 枚のストーリーボードから 9 枚のシーン画像を取り出す
// 逐次スケジューラなのだ。セル 0..8 を厳密に順番どおり処理する。並列化は
// しない — プロバイダのレート制限を守るための方針であって、最適化で
// 消してよい実装詳細ではないのだ。
type ExtractRunner struct {
	exec    *remotecall.Executor
	images  adapters.ImageGateway
	builder *prompts.ScenePromptBuilder
	pacing  time.Duration // セル間の固定ペーシング間隔
}

// NewExtractRunner は ExtractRunner の新しいインスタンスを生成して返すのだ。
func NewExtractRunner(
	exec *remotecall.Executor,
	images adapters.ImageGateway,
	builder *prompts.ScenePromptBuilder,
	pacing time.Duration,
) *ExtractRunner {
	return &ExtractRunner{
		exec:    exec,
		images:  images,
		builder: builder,
		pacing:  pacing,
	}
}

// Run はストーリーボードの全セルを順に抽出するのだ。
// 継続方針はベストエフォート: あるセルがリトライ上限まで失敗しても、そのセルの
// エラーを記録して次のインデックスへ進み、最後に errors.Join で返すのだ。
// 失敗したセルのビジーフラグは下ろし、完了済みシーンの画像には触らない。
func (r *ExtractRunner) Run(ctx context.Context, sess *domain.Session) error {
	grid := sess.StoryboardGrid()
	if grid == nil {
		return fmt.Errorf("抽出にはストーリーボードが必要なのだ: %w", domain.ErrMissingInput)
	}

	sess.ResetExtractionProgress()

	// burst 1 のリミッターは、先頭セルは即時、以降のセルはペーシング間隔の
	// 経過を待ってから処理する。セル間の固定ポーズそのものなのだ。
	limiter := rate.NewLimiter(rate.Every(r.pacing), 1)
	slog.Info("シーン抽出を開始するのだ", "cells", domain.SceneCount, "pacing", r.pacing)

	var errs []error
	for i := 0; i < domain.SceneCount; i++ {
		if err := limiter.Wait(ctx); err != nil {
			errs = append(errs, err)
			break
		}

		if err := sess.BeginExtract(i); err != nil {
			errs = append(errs, err)
			continue
		}

		position := domain.CellPositions[i]
		art, err := r.exec.DoImage(ctx, func(ctx context.Context) (*domain.Artifact, error) {
			return r.images.GenerateImage(ctx, domain.StageRequest{
				Kind:         domain.OpExtractCell,
				Inputs:       []*domain.Artifact{grid},
				Prompt:       r.builder.BuildExtract(position),
				AspectRatio:  "16:9",
				CellPosition: position,
			})
		})
		if err != nil {
			sess.FailExtract(i)
			slog.Error("セルの抽出に失敗したのだ。次のセルへ進むのだ",
				"cell", i, "position", position, "error", err)
			errs = append(errs, fmt.Errorf("セル %d (%s): %w", i, position, err))
			continue
		}

		sess.FinishExtract(i, art)
		sess.SetExtractionProgress(progressFor(i))
		slog.Info("セルの抽出に成功したのだ",
			"cell", i, "position", position, "progress", sess.ExtractionProgress())
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	slog.Info("すべてのシーンが抽出できたのだ", "total", domain.SceneCount)
	return nil
}

// progressFor はセル i 完了後の進捗率 round((i+1)/9*100) を返すのだ。
func progressFor(i int) int {
	return int(math.Round(float64(i+1) / float64(domain.SceneCount) * 100))
}
