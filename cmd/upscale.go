package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-promo-kit/internal/config"
	"github.com/shouni/go-promo-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// upscaleCmd は、抽出済みのシーン画像を高解像度化して上書き保存するのだ。
var upscaleCmd = &cobra.Command{
	Use:   "upscale",
	Short: "シーン画像を高解像度化しますなのだ。",
	Long: `--output-dir に保存済みのシーン画像 (scene_N.png) を読み込み、
構図を変えずに高解像度化して同じパスへ上書き保存するのだ。`,
	RunE: upscaleCommand,
}

func init() {
	upscaleCmd.Flags().IntVarP(&opts.SceneID, "scene", "s", 0, "対象シーンのID (0-8) なのだ。")
}

func upscaleCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if opts.SceneID < 0 || opts.SceneID > 8 {
		return fmt.Errorf("--scene は 0 から 8 の範囲で指定してほしいのだ")
	}

	cfg := config.LoadConfig()
	cfg.Options = opts

	if err := pipeline.ExecuteUpscale(ctx, cfg); err != nil {
		return fmt.Errorf("アップスケール中にエラーが発生したのだ: %w", err)
	}

	slog.Info("アップスケールが完了したのだ！", "scene", opts.SceneID)
	return nil
}
