package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/shouni/go-promo-kit/internal/builder"
	"github.com/shouni/go-promo-kit/internal/config"

	"github.com/shouni/go-http-kit/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"

	"github.com/shouni/go-promo-kit/pkg/adapters"
	"github.com/shouni/go-promo-kit/pkg/asset"
	"github.com/shouni/go-promo-kit/pkg/domain"
	"github.com/shouni/go-promo-kit/pkg/prompts"
)

// Execute は、モデル写真と商品写真から合成 → ストーリーボード → 9 シーン抽出まで
// を一気通貫で実行するのだ。各ステージの成果物は完成し次第 OutputDir に保存する。
func Execute(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	// ソース画像の読み込み。2 枚は独立なので並列で取りに行くのだ。
	loader := adapters.NewAssetLoader(appCtx.Reader)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		art, err := loader.Load(egCtx, cfg.Options.ModelImage)
		if err != nil {
			return err
		}
		appCtx.Session.SetModelImage(art)
		return nil
	})
	eg.Go(func() error {
		art, err := loader.Load(egCtx, cfg.Options.ProductImage)
		if err != nil {
			return err
		}
		appCtx.Session.SetProductImage(art)
		return nil
	})
	if err := eg.Wait(); err != nil {
		return fmt.Errorf("ソース画像の読み込みに失敗したのだ: %w", err)
	}

	orch := builder.BuildOrchestrator(appCtx)
	params := prompts.CombineParams{
		BackgroundText:    cfg.Options.BackgroundText,
		LightingReference: cfg.Options.LightingRef,
		NeonText:          cfg.Options.NeonText,
		FontStyle:         cfg.Options.FontStyle,
	}

	// --- Stage 1: Combine (合成) ---
	slog.Info("Stage 1: モデルと商品の合成を開始するのだ...")
	if err := orch.Combine(ctx, params); err != nil {
		return fmt.Errorf("合成に失敗したのだ: %w", err)
	}
	if err := saveArtifact(ctx, appCtx, asset.DefaultCombinedFileName, appCtx.Session.CombinedImage()); err != nil {
		return err
	}

	// --- Stage 2: Storyboard (ストーリーボード生成) ---
	slog.Info("Stage 2: ストーリーボード生成を開始するのだ...")
	if err := orch.Storyboard(ctx); err != nil {
		return fmt.Errorf("ストーリーボード生成に失敗したのだ: %w", err)
	}
	if err := saveArtifact(ctx, appCtx, asset.DefaultStoryboardFileName, appCtx.Session.StoryboardGrid()); err != nil {
		return err
	}

	// --- Stage 3: Extraction (シーン抽出) ---
	slog.Info("Stage 3: シーン抽出を開始するのだ...")
	extractErr := orch.RequestExtraction(ctx, builder.BuildExtractRunner(appCtx))
	if err := saveScenes(ctx, appCtx); err != nil {
		return err
	}
	if extractErr != nil {
		return fmt.Errorf("一部のシーン抽出に失敗したのだ（成功分は保存済み）: %w", extractErr)
	}
	slog.Info("すべての生成工程が完了したのだ！", "progress", appCtx.Session.ExtractionProgress())
	return nil
}

// ExecuteCombine は合成ステージのみを実行するのだ。--refine 指定時は保存済みの
// combined.png を読み直し、新しい演出パラメータでその場で作り直す。
func ExecuteCombine(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	orch := builder.BuildOrchestrator(appCtx)
	params := prompts.CombineParams{
		BackgroundText:    cfg.Options.BackgroundText,
		LightingReference: cfg.Options.LightingRef,
		NeonText:          cfg.Options.NeonText,
		FontStyle:         cfg.Options.FontStyle,
	}

	if cfg.Options.Refine {
		if err := restoreCombined(ctx, appCtx); err != nil {
			return err
		}
		if err := orch.Refine(ctx, params); err != nil {
			return fmt.Errorf("リファインに失敗したのだ: %w", err)
		}
	} else {
		loader := adapters.NewAssetLoader(appCtx.Reader)
		model, err := loader.Load(ctx, cfg.Options.ModelImage)
		if err != nil {
			return fmt.Errorf("モデル画像の読み込みに失敗したのだ: %w", err)
		}
		product, err := loader.Load(ctx, cfg.Options.ProductImage)
		if err != nil {
			return fmt.Errorf("商品画像の読み込みに失敗したのだ: %w", err)
		}
		appCtx.Session.SetModelImage(model)
		appCtx.Session.SetProductImage(product)
		if err := orch.Combine(ctx, params); err != nil {
			return fmt.Errorf("合成に失敗したのだ: %w", err)
		}
	}
	return saveArtifact(ctx, appCtx, asset.DefaultCombinedFileName, appCtx.Session.CombinedImage())
}

// ExecuteStoryboard は保存済みの合成画像からストーリーボード生成と 9 シーン抽出を行うのだ。
func ExecuteStoryboard(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}
	if err := restoreCombined(ctx, appCtx); err != nil {
		return err
	}

	orch := builder.BuildOrchestrator(appCtx)
	if err := orch.Storyboard(ctx); err != nil {
		return fmt.Errorf("ストーリーボード生成に失敗したのだ: %w", err)
	}
	if err := saveArtifact(ctx, appCtx, asset.DefaultStoryboardFileName, appCtx.Session.StoryboardGrid()); err != nil {
		return err
	}

	extractErr := orch.RequestExtraction(ctx, builder.BuildExtractRunner(appCtx))
	if err := saveScenes(ctx, appCtx); err != nil {
		return err
	}
	if extractErr != nil {
		return fmt.Errorf("一部のシーン抽出に失敗したのだ（成功分は保存済み）: %w", extractErr)
	}
	return nil
}

// ExecuteVideo は保存済みのシーン画像を起点に動画を生成し、ダウンロードして保存するのだ。
// --all-scenes 指定時は画像を持つ全シーンを並列に処理する。
func ExecuteVideo(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	ids := []int{cfg.Options.SceneID}
	if cfg.Options.AllScenes {
		ids = allSceneIDs()
	}
	if err := restoreScenes(ctx, appCtx, ids, !cfg.Options.AllScenes); err != nil {
		return err
	}

	sceneRunner := builder.BuildSceneRunner(appCtx)
	if cfg.Options.AllScenes {
		if err := sceneRunner.GenerateAllVideos(ctx, appCtx.Session, cfg.Options.MotionPrompt); err != nil {
			return fmt.Errorf("一括動画生成に失敗したのだ: %w", err)
		}
	} else {
		if _, err := sceneRunner.GenerateVideo(ctx, appCtx.Session, cfg.Options.SceneID, cfg.Options.MotionPrompt); err != nil {
			return fmt.Errorf("動画生成に失敗したのだ: %w", err)
		}
	}

	// 完成した動画をダウンロードして保存するのだ。
	for _, scene := range appCtx.Session.Scenes() {
		if scene.VideoURL == "" {
			continue
		}
		if err := downloadVideo(ctx, appCtx, scene.ID, scene.VideoURL); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteUpscale は保存済みのシーン画像を高解像度化して上書き保存するのだ。
func ExecuteUpscale(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	id := cfg.Options.SceneID
	if err := restoreScenes(ctx, appCtx, []int{id}, true); err != nil {
		return err
	}

	if err := builder.BuildSceneRunner(appCtx).Upscale(ctx, appCtx.Session, id); err != nil {
		return fmt.Errorf("アップスケールに失敗したのだ: %w", err)
	}

	scene, err := appCtx.Session.Scene(id)
	if err != nil {
		return err
	}
	path, err := asset.ScenePath(cfg.Options.OutputDir, id)
	if err != nil {
		return err
	}
	if err := appCtx.Writer.Write(ctx, path, bytes.NewReader(scene.Image.Data), scene.Image.MimeType); err != nil {
		return fmt.Errorf("アップスケール結果の保存に失敗したのだ: %w", err)
	}
	slog.Info("アップスケール結果を保存したのだ", "scene", id, "path", path)
	return nil
}

// setupAppContext は、提供された設定と共有コンポーネントを使用して、
// アプリケーションコンテキストを初期化して返すのだ。
func setupAppContext(ctx context.Context, cfg *config.Config) (*builder.AppContext, error) {
	httpClient := httpkit.New(cfg.Options.HTTPTimeout)

	imageModel := cfg.ImageModel
	if cfg.Options.ImageModel != "" {
		imageModel = cfg.Options.ImageModel
	}
	videoModel := cfg.VideoModel
	if cfg.Options.VideoModel != "" {
		videoModel = cfg.Options.VideoModel
	}

	gateway, err := builder.InitializeGateway(ctx, cfg.GeminiAPIKey, imageModel, videoModel)
	if err != nil {
		return nil, err
	}

	gcsFactory, err := gcsfactory.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client factory: %w", err)
	}
	reader, err := gcsFactory.InputReader()
	if err != nil {
		return nil, err
	}
	writer, err := gcsFactory.OutputWriter()
	if err != nil {
		return nil, err
	}

	appCtx := builder.NewAppContext(cfg, httpClient, gateway, reader, writer)
	return &appCtx, nil
}

// restoreScenes は過去の実行で保存した scene_N.png をセッションへ復元するのだ。
// required が true のとき、読めないシーンはエラーになる。
func restoreScenes(ctx context.Context, appCtx *builder.AppContext, ids []int, required bool) error {
	loader := adapters.NewAssetLoader(appCtx.Reader)
	restored := 0
	for _, id := range ids {
		path, err := asset.ScenePath(appCtx.Options.OutputDir, id)
		if err != nil {
			return err
		}
		art, err := loader.Load(ctx, path)
		if err != nil {
			if required {
				return fmt.Errorf("シーン %d の画像が見つからないのだ。先に generate を実行してほしいのだ: %w", id, err)
			}
			continue
		}
		appCtx.Session.RestoreSceneImage(id, art)
		restored++
	}
	if restored == 0 {
		return fmt.Errorf("復元できたシーンが 1 つもないのだ: %w", domain.ErrMissingInput)
	}
	return nil
}

// restoreCombined は過去の実行で保存した combined.png をセッションへ復元するのだ。
func restoreCombined(ctx context.Context, appCtx *builder.AppContext) error {
	path, err := asset.ResolveOutputPath(appCtx.Options.OutputDir, asset.DefaultCombinedFileName)
	if err != nil {
		return err
	}
	art, err := adapters.NewAssetLoader(appCtx.Reader).Load(ctx, path)
	if err != nil {
		return fmt.Errorf("合成画像が見つからないのだ。先に combine を実行してほしいのだ: %w", err)
	}
	appCtx.Session.SetCombinedImage(art)
	return nil
}

// saveScenes は抽出済みシーン画像を保存するのだ。ベストエフォート方針なので、
// 失敗したセルがあっても成功分は保存する。
func saveScenes(ctx context.Context, appCtx *builder.AppContext) error {
	for _, scene := range appCtx.Session.Scenes() {
		if scene.Image == nil {
			continue
		}
		path, err := asset.ScenePath(appCtx.Options.OutputDir, scene.ID)
		if err != nil {
			return err
		}
		if err := appCtx.Writer.Write(ctx, path, bytes.NewReader(scene.Image.Data), scene.Image.MimeType); err != nil {
			return fmt.Errorf("シーン %d の保存に失敗したのだ: %w", scene.ID, err)
		}
		slog.Info("シーンを保存したのだ", "scene", scene.ID, "path", path)
	}
	return nil
}

// saveArtifact はステージ成果物を OutputDir 直下に保存するのだ。
func saveArtifact(ctx context.Context, appCtx *builder.AppContext, fileName string, art *domain.Artifact) error {
	path, err := asset.ResolveOutputPath(appCtx.Options.OutputDir, fileName)
	if err != nil {
		return err
	}
	if err := appCtx.Writer.Write(ctx, path, bytes.NewReader(art.Data), art.MimeType); err != nil {
		return fmt.Errorf("'%s' の保存に失敗したのだ: %w", path, err)
	}
	slog.Info("成果物を保存したのだ", "path", path)
	return nil
}

// downloadVideo は Veo の成果物 URI から動画を取得して保存するのだ。
// Files エンドポイントは API キーをヘッダーで要求する。
func downloadVideo(ctx context.Context, appCtx *builder.AppContext, sceneID int, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-goog-api-key", appCtx.Config.GeminiAPIKey)

	resp, err := appCtx.HTTPClient().Do(req)
	if err != nil {
		return fmt.Errorf("シーン %d の動画ダウンロードに失敗したのだ: %w", sceneID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("シーン %d の動画ダウンロードに失敗したのだ: status %d", sceneID, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	path, err := asset.SceneVideoPath(appCtx.Options.OutputDir, sceneID)
	if err != nil {
		return err
	}
	if err := appCtx.Writer.Write(ctx, path, bytes.NewReader(data), "video/mp4"); err != nil {
		return fmt.Errorf("シーン %d の動画保存に失敗したのだ: %w", sceneID, err)
	}
	slog.Info("シーン動画を保存したのだ", "scene", sceneID, "path", path)
	return nil
}

func allSceneIDs() []int {
	ids := make([]int, domain.SceneCount)
	for i := range ids {
		ids[i] = i
	}
	return ids
}
