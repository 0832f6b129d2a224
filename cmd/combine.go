package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-promo-kit/internal/config"
	"github.com/shouni/go-promo-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// combineCmd は、合成ステージのみを実行するのだ。演出パラメータを調整しながら
// --refine で何度でも作り直せるのだよ。
var combineCmd = &cobra.Command{
	Use:   "combine",
	Short: "モデル写真と商品写真を1枚のヒーローショットに合成しますなのだ。",
	Long: `モデル写真と商品写真から合成画像 (combined.png) を生成するのだ。
--refine を付けると、保存済みの合成画像を新しい演出パラメータで作り直すのだよ。`,
	RunE: combineCommand,
}

func init() {
	combineCmd.Flags().BoolVar(&opts.Refine, "refine", false, "保存済みの合成画像をその場で作り直すのだ。")
}

func combineCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if !opts.Refine && (opts.ModelImage == "" || opts.ProductImage == "") {
		return fmt.Errorf("ソース（--model-image と --product-image の両方）を指定してほしいのだ")
	}

	cfg := config.LoadConfig()
	cfg.Options = opts

	if err := pipeline.ExecuteCombine(ctx, cfg); err != nil {
		return fmt.Errorf("合成ステージの実行中にエラーが発生したのだ: %w", err)
	}

	slog.Info("合成が完了したのだ！", "output_dir", opts.OutputDir)
	return nil
}
