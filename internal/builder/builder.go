package builder

import (
	"context"
	"fmt"

	"github.com/shouni/go-promo-kit/internal/runner"

	"github.com/shouni/go-promo-kit/pkg/adapters"
	"github.com/shouni/go-promo-kit/pkg/progress"
	"github.com/shouni/go-promo-kit/pkg/workflow"
)

// InitializeGateway は Gemini ゲートウェイ（画像・動画の両能力）を初期化します。
func InitializeGateway(ctx context.Context, appCfgAPIKey, imageModel, videoModel string) (*adapters.GeminiGateway, error) {
	gw, err := adapters.NewGeminiGateway(ctx, appCfgAPIKey, imageModel, videoModel)
	if err != nil {
		return nil, fmt.Errorf("ゲートウェイの初期化に失敗したのだ: %w", err)
	}
	return gw, nil
}

// BuildOrchestrator はステージ状態機械を構築します。
// 進捗表示は見かけ上のものなので、パイプラインの正しさには関与しません。
func BuildOrchestrator(appCtx *AppContext) *workflow.Orchestrator {
	return workflow.NewOrchestrator(
		appCtx.Session,
		appCtx.executor,
		appCtx.gateway,
		appCtx.creds,
		appCtx.prompts,
		progress.New(),
	)
}

// BuildExtractRunner はストーリーボードからの逐次セル抽出を担当する Runner を構築します。
func BuildExtractRunner(appCtx *AppContext) *runner.ExtractRunner {
	return runner.NewExtractRunner(
		appCtx.executor,
		appCtx.gateway,
		appCtx.prompts,
		appCtx.Options.PacingDelay,
	)
}

// BuildSceneRunner はシーン単位の動画生成・アップスケールを担当する Runner を構築します。
func BuildSceneRunner(appCtx *AppContext) *runner.SceneRunner {
	return runner.NewSceneRunner(
		appCtx.executor,
		appCtx.gateway,
		appCtx.gateway,
		appCtx.prompts,
		appCtx.Options.VideoPollInterval,
		appCtx.Options.MaxVideoPolls,
	)
}
