package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-promo-kit/internal/config"
	"github.com/shouni/go-promo-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// videoCmd は、抽出済みのシーン画像からショート動画を生成するのだ。
var videoCmd = &cobra.Command{
	Use:   "video",
	Short: "シーン画像を起点にVeoでショート動画を生成しますなのだ。",
	Long: `--output-dir に保存済みのシーン画像 (scene_N.png) を読み込み、動画生成を
依頼して完成までポーリングするのだ。--all-scenes なら画像を持つ全シーンを
並列に処理するのだよ。完成した動画は scene_N.mp4 として保存されるのだ。`,
	RunE: videoCommand,
}

func init() {
	videoCmd.Flags().IntVarP(&opts.SceneID, "scene", "s", 0, "対象シーンのID (0-8) なのだ。")
	videoCmd.Flags().StringVar(&opts.MotionPrompt, "motion", "", "動画のモーション指示なのだ。")
	videoCmd.Flags().BoolVar(&opts.AllScenes, "all-scenes", false, "画像を持つ全シーンを対象にするのだ。")
	videoCmd.Flags().DurationVar(&opts.VideoPollInterval, "poll-interval", config.DefaultVideoPollInterval, "動画完成確認の間隔なのだ。")
	videoCmd.Flags().IntVar(&opts.MaxVideoPolls, "max-polls", config.DefaultMaxVideoPolls, "ポーリング回数の上限なのだ。")
}

func videoCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if !opts.AllScenes && (opts.SceneID < 0 || opts.SceneID > 8) {
		return fmt.Errorf("--scene は 0 から 8 の範囲で指定してほしいのだ")
	}

	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("動画生成を起動するのだ！",
		"video_model", cfg.VideoModel,
		"scene", opts.SceneID,
		"all_scenes", opts.AllScenes)

	if err := pipeline.ExecuteVideo(ctx, cfg); err != nil {
		return fmt.Errorf("動画生成中にエラーが発生したのだ: %w", err)
	}

	slog.Info("動画生成が完了したのだ！")
	return nil
}
