package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-promo-kit/internal/config"
	"github.com/shouni/go-promo-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// storyboardCmd は、保存済みの合成画像からストーリーボード生成と9シーン抽出を行うのだ。
var storyboardCmd = &cobra.Command{
	Use:   "storyboard",
	Short: "合成画像から3x3ストーリーボードを生成して9シーンを切り出しますなのだ。",
	Long: `--output-dir に保存済みの combined.png を読み込み、3x3のストーリーボード
グリッドを生成してから、9つのシーン画像を1セルずつ順番に抽出するのだ。
一部のセルが失敗しても残りのセルは続行して、成功分だけ保存するのだよ。`,
	RunE: storyboardCommand,
}

func storyboardCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("ストーリーボード生成を起動するのだ！",
		"output_dir", opts.OutputDir,
		"pacing", opts.PacingDelay)

	if err := pipeline.ExecuteStoryboard(ctx, cfg); err != nil {
		return fmt.Errorf("ストーリーボード実行中にエラーが発生したのだ: %w", err)
	}

	slog.Info("シーン抽出まで完了したのだ！")
	return nil
}
