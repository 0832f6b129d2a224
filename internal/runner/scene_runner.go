package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shouni/go-promo-kit/pkg/adapters"
	"github.com/shouni/go-promo-kit/pkg/domain"
	"github.com/shouni/go-promo-kit/pkg/prompts"
	"github.com/shouni/go-promo-kit/pkg/remotecall"
)

// SceneRunner はシーン単位のオンデマンド操作（動画生成・アップスケール）を
// 実行するのだ。シーンごとのビジーフラグだけを頼りに、別シーンのタスクや
// メインパイプラインと並行して動ける独立した作業単位なのだ。
type SceneRunner struct {
	exec    *remotecall.Executor
	images  adapters.ImageGateway
	videos  adapters.VideoGateway
	builder *prompts.ScenePromptBuilder

	pollInterval time.Duration
	maxPolls     int
	sleep        remotecall.Sleeper // テスト用に差し替え可能
}

// NewSceneRunner は SceneRunner の新しいインスタンスを生成して返すのだ。
func NewSceneRunner(
	exec *remotecall.Executor,
	images adapters.ImageGateway,
	videos adapters.VideoGateway,
	builder *prompts.ScenePromptBuilder,
	pollInterval time.Duration,
	maxPolls int,
) *SceneRunner {
	return &SceneRunner{
		exec:         exec,
		images:       images,
		videos:       videos,
		builder:      builder,
		pollInterval: pollInterval,
		maxPolls:     maxPolls,
		sleep:        sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// GenerateVideo はシーン画像を開始フレームとして動画を生成するのだ。
// ジョブの投入は Executor 経由（レート制限に当たり得る）、その後は
// 完了シグナルが返るまで一定間隔でポーリングする。無限ループにならないよう
// maxPolls を上限とし、超えたらシーンスコープのエラーになるのだ。
// 失敗してもオーケストレータのステージや他のシーンには影響しない。
func (r *SceneRunner) GenerateVideo(ctx context.Context, sess *domain.Session, sceneID int, motionPrompt string) (string, error) {
	if err := sess.BeginVideo(sceneID); err != nil {
		return "", err
	}

	scene, err := sess.Scene(sceneID)
	if err != nil {
		sess.FailVideo(sceneID)
		return "", err
	}

	handle, err := remotecall.Do(ctx, r.exec, func(ctx context.Context) (domain.OperationHandle, error) {
		return r.videos.StartVideo(ctx, domain.StageRequest{
			Kind:        domain.OpGenerateVideo,
			Inputs:      []*domain.Artifact{scene.Image},
			Prompt:      r.builder.BuildMotion(motionPrompt),
			AspectRatio: "16:9",
		})
	})
	if err != nil {
		sess.FailVideo(sceneID)
		return "", fmt.Errorf("シーン %d: 動画ジョブの投入に失敗したのだ: %w", sceneID, err)
	}

	for n := 0; n < r.maxPolls; n++ {
		if err := r.sleep(ctx, r.pollInterval); err != nil {
			sess.FailVideo(sceneID)
			return "", err
		}

		status, err := r.videos.PollVideo(ctx, handle)
		if err != nil {
			sess.FailVideo(sceneID)
			return "", fmt.Errorf("シーン %d: 動画生成のポーリングに失敗したのだ: %w", sceneID, err)
		}
		if !status.Done {
			slog.Debug("動画生成はまだ進行中なのだ", "scene", sceneID, "poll", n+1)
			continue
		}

		// 完了していても参照先 URI を持たない応答は成功として記録しないのだ。
		if status.Video == nil || status.Video.URI == "" {
			sess.FailVideo(sceneID)
			return "", fmt.Errorf("シーン %d: 完了応答に動画 URI がないのだ: %w", sceneID, domain.ErrMissingArtifact)
		}

		url := status.Video.URI
		sess.FinishVideo(sceneID, url)
		slog.Info("シーン動画が完成したのだ", "scene", sceneID, "url", url)
		return url, nil
	}

	sess.FailVideo(sceneID)
	return "", fmt.Errorf("シーン %d: 動画生成が %d 回のポーリング内に完了しなかったのだ", sceneID, r.maxPolls)
}

// Upscale はシーン画像を高解像度版で置き換えるのだ。
// 成功時はシーンの画像がアップスケール結果で更新され、失敗時は元の画像が残る。
func (r *SceneRunner) Upscale(ctx context.Context, sess *domain.Session, sceneID int) error {
	if err := sess.BeginUpscale(sceneID); err != nil {
		return err
	}

	scene, err := sess.Scene(sceneID)
	if err != nil {
		sess.FailUpscale(sceneID)
		return err
	}

	art, err := r.exec.DoImage(ctx, func(ctx context.Context) (*domain.Artifact, error) {
		return r.images.GenerateImage(ctx, domain.StageRequest{
			Kind:        domain.OpUpscale,
			Inputs:      []*domain.Artifact{scene.Image},
			Prompt:      r.builder.BuildUpscale(),
			AspectRatio: "16:9",
		})
	})
	if err != nil {
		sess.FailUpscale(sceneID)
		return fmt.Errorf("シーン %d: アップスケールに失敗したのだ: %w", sceneID, err)
	}

	sess.FinishUpscale(sceneID, art)
	slog.Info("シーンをアップスケールしたのだ", "scene", sceneID)
	return nil
}

// GenerateAllVideos は画像を持つ全シーンの動画を並列に生成するのだ。
// シーンタスク同士は独立なので同時に走らせてよい。あるシーンの失敗が
// 他シーンを巻き込まないよう、共有のキャンセルは張らずに各シーンを
// 最後まで走らせ、シーンごとのエラーを最後にまとめて返すのだ。
func (r *SceneRunner) GenerateAllVideos(ctx context.Context, sess *domain.Session, motionPrompt string) error {
	var wg sync.WaitGroup
	errs := make([]error, domain.SceneCount)

	for _, scene := range sess.Scenes() {
		if scene.Image == nil {
			continue
		}
		id := scene.ID
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.GenerateVideo(ctx, sess, id, motionPrompt); err != nil {
				errs[id] = err
			}
		}()
	}

	wg.Wait()
	return errors.Join(errs...)
}
