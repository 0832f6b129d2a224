package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-promo-kit/internal/config"
	"github.com/shouni/go-promo-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// generateCmd は、合成 → ストーリーボード → シーン抽出までを一気通貫で実行するのだ。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "モデルと商品の合成から9シーン抽出までを一括実行しますなのだ。",
	Long: `モデル写真と商品写真を合成し、3x3のストーリーボードを生成して、
9つのシーン画像を順番に切り出すのだ。成果物はすべて --output-dir に保存されるのだよ。`,
	RunE: generateCommand,
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// 1. 必須チェック
	if opts.ModelImage == "" || opts.ProductImage == "" {
		return fmt.Errorf("ソース（--model-image と --product-image の両方）を指定してほしいのだ")
	}

	// 2. 環境変数等から基本設定をロードするのだ
	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("プロモシーン生成パイプラインを起動するのだ！",
		"image_model", cfg.ImageModel,
		"output_dir", opts.OutputDir,
		"pacing", opts.PacingDelay)

	if err := pipeline.Execute(ctx, cfg); err != nil {
		return fmt.Errorf("パイプライン実行中にエラーが発生したのだ: %w", err)
	}

	slog.Info("すべての生成工程が完了したのだ！")
	return nil
}
