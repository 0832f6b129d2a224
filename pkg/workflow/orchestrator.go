// Package workflow は、セッションを Upload → Refine → Storyboard → Results と
// 進めるステージ状態機械を提供します。各ステージは前段の成果物が存在する
// 場合にのみ到達可能で、失敗してもステージが後退したり格納済みの成果物が
// 失われたりすることはありません。
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shouni/go-promo-kit/pkg/adapters"
	"github.com/shouni/go-promo-kit/pkg/domain"
	"github.com/shouni/go-promo-kit/pkg/progress"
	"github.com/shouni/go-promo-kit/pkg/prompts"
	"github.com/shouni/go-promo-kit/pkg/remotecall"
)

// Stage はトップレベルパイプラインの段階です。
type Stage int

const (
	StageUpload Stage = iota
	StageRefine
	StageStoryboard
	StageResults
)

// String は Stage の表示名を返します。
func (s Stage) String() string {
	switch s {
	case StageUpload:
		return "upload"
	case StageRefine:
		return "refine"
	case StageStoryboard:
		return "storyboard"
	case StageResults:
		return "results"
	default:
		return "unknown"
	}
}

// 各操作のアスペクト比。合成は正方形のヒーローショット、
// ストーリーボード以降は動画と揃えて 16:9 です。
const (
	CombineAspectRatio    = "1:1"
	StoryboardAspectRatio = "16:9"
)

// Extractor は Results ステージ入場時に走る抽出処理です。
// internal/runner の ExtractRunner が実装します。
type Extractor interface {
	Run(ctx context.Context, sess *domain.Session) error
}

// Orchestrator はステージ遷移と各ステージのリモート呼び出しを管理します。
// ステージレベルの呼び出しは一度に 1 つずつ発行され、重なりません。
type Orchestrator struct {
	mu    sync.Mutex
	stage Stage

	session   *domain.Session
	exec      *remotecall.Executor
	images    adapters.ImageGateway
	creds     adapters.CredentialStore
	builder   *prompts.ScenePromptBuilder
	estimator *progress.Estimator // nil なら進捗表示なしで動作します
}

// NewOrchestrator は Upload ステージの Orchestrator を生成します。
func NewOrchestrator(
	session *domain.Session,
	exec *remotecall.Executor,
	images adapters.ImageGateway,
	creds adapters.CredentialStore,
	builder *prompts.ScenePromptBuilder,
	estimator *progress.Estimator,
) *Orchestrator {
	return &Orchestrator{
		stage:     StageUpload,
		session:   session,
		exec:      exec,
		images:    images,
		creds:     creds,
		builder:   builder,
		estimator: estimator,
	}
}

// Stage は現在のステージを返します。
func (o *Orchestrator) Stage() Stage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stage
}

// Session はオーケストレータが所有するセッションを返します。
func (o *Orchestrator) Session() *domain.Session {
	return o.session
}

// CanEnter はステージの前提成果物が揃っているかを返します。
func (o *Orchestrator) CanEnter(s Stage) bool {
	switch s {
	case StageUpload:
		return true
	case StageRefine:
		return o.session.CombinedImage() != nil
	case StageStoryboard:
		return o.session.StoryboardGrid() != nil
	case StageResults:
		return o.session.HasSceneImage()
	default:
		return false
	}
}

// Combine はモデル画像と商品画像を合成し、成功時に Upload → Refine へ進みます。
// どちらかの画像が無ければ呼び出しを発行せず ErrMissingInput を返します。
func (o *Orchestrator) Combine(ctx context.Context, params prompts.CombineParams) error {
	if err := o.ensureCredential(); err != nil {
		return err
	}
	model := o.session.ModelImage()
	product := o.session.ProductImage()
	if model == nil || product == nil {
		return fmt.Errorf("合成にはモデル画像と商品画像の両方が必要です: %w", domain.ErrMissingInput)
	}

	art, err := o.callImage(ctx, domain.StageRequest{
		Kind:        domain.OpCombine,
		Inputs:      []*domain.Artifact{model, product},
		Prompt:      o.builder.BuildCombine(params),
		AspectRatio: CombineAspectRatio,
	})
	if err != nil {
		return err
	}

	o.session.SetCombinedImage(art)
	o.advance(StageRefine)
	slog.Info("合成が完了してステージが進んだのだ", "stage", o.Stage().String())
	return nil
}

// Refine は編集パラメータで合成画像をその場で更新します。ステージは変わりません。
func (o *Orchestrator) Refine(ctx context.Context, params prompts.CombineParams) error {
	if err := o.ensureCredential(); err != nil {
		return err
	}
	combined := o.session.CombinedImage()
	if combined == nil {
		return fmt.Errorf("リファインには合成画像が必要です: %w", domain.ErrMissingInput)
	}

	art, err := o.callImage(ctx, domain.StageRequest{
		Kind:        domain.OpRefine,
		Inputs:      []*domain.Artifact{combined},
		Prompt:      o.builder.BuildRefine(params),
		AspectRatio: CombineAspectRatio,
	})
	if err != nil {
		return err
	}

	o.session.SetCombinedImage(art)
	slog.Info("合成画像を更新したのだ", "stage", o.Stage().String())
	return nil
}

// Storyboard は合成画像から 3x3 のストーリーボードグリッドを生成し、
// 成功時に Storyboard ステージへ進みます。
func (o *Orchestrator) Storyboard(ctx context.Context) error {
	if err := o.ensureCredential(); err != nil {
		return err
	}
	combined := o.session.CombinedImage()
	if combined == nil {
		return fmt.Errorf("ストーリーボード生成には合成画像が必要です: %w", domain.ErrMissingInput)
	}

	art, err := o.callImage(ctx, domain.StageRequest{
		Kind:        domain.OpStoryboardGrid,
		Inputs:      []*domain.Artifact{combined},
		Prompt:      o.builder.BuildStoryboard(),
		AspectRatio: StoryboardAspectRatio,
	})
	if err != nil {
		return err
	}

	o.session.SetStoryboardGrid(art)
	o.advance(StageStoryboard)
	slog.Info("ストーリーボードが完成したのだ", "stage", o.Stage().String())
	return nil
}

// RequestExtraction は抽出の開始を要求します。最初のセルが完了する前に
// ただちに Results ステージへ遷移するため、呼び出し側の表示層は
// 全シーンが空・ビジー状態でも耐えられる必要があります。
// 抽出の失敗はステージを後退させません。
func (o *Orchestrator) RequestExtraction(ctx context.Context, extractor Extractor) error {
	if err := o.ensureCredential(); err != nil {
		return err
	}
	if o.session.StoryboardGrid() == nil {
		return fmt.Errorf("抽出にはストーリーボードが必要です: %w", domain.ErrMissingInput)
	}

	o.advance(StageResults)
	slog.Info("抽出を開始して Results へ遷移したのだ", "stage", o.Stage().String())
	return extractor.Run(ctx, o.session)
}

// ensureCredential は認証情報の有無を確認します。欠落はリトライ対象外です。
func (o *Orchestrator) ensureCredential() error {
	if o.creds.HasCredential() {
		return nil
	}
	o.creds.RequestCredential()
	return domain.ErrMissingCredential
}

// callImage はステージレベルの画像呼び出しを実行します。進捗表示の開始・終了も
// ここで束ねます。表示は見かけ上のもので、呼び出しの成否には影響しません。
func (o *Orchestrator) callImage(ctx context.Context, req domain.StageRequest) (*domain.Artifact, error) {
	if o.estimator != nil {
		o.estimator.Start()
	}
	art, err := o.exec.DoImage(ctx, func(ctx context.Context) (*domain.Artifact, error) {
		return o.images.GenerateImage(ctx, req)
	})
	if o.estimator != nil {
		if err != nil {
			o.estimator.Abort()
		} else {
			o.estimator.Finish()
		}
	}
	if err != nil {
		slog.Error("ステージ呼び出しに失敗したのだ。ステージと成果物はそのままなのだ",
			"kind", req.Kind, "stage", o.Stage().String(), "error", err)
		return nil, err
	}
	return art, nil
}

// advance はステージを前方にのみ動かします。後退は起こりません。
func (o *Orchestrator) advance(s Stage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s > o.stage {
		o.stage = s
	}
}
