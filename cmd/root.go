package cmd

import (
	"fmt"
	"os"

	"github.com/shouni/go-promo-kit/internal/config"

	"github.com/spf13/cobra"
)

// opts は addAppFlags で各フラグに紐付けられる実行時パラメータなのだ。
var opts config.GenerateOptions

var rootCmd = &cobra.Command{
	Use:               "ap-promo-go",
	Short:             "モデル写真と商品写真からプロモ用シーン素材を生成するツールなのだ。",
	PersistentPreRunE: preRunAppE,
	SilenceUsage:      true,
}

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- ソース入力関連 ---
	rootCmd.PersistentFlags().StringVarP(&opts.ModelImage, "model-image", "m", "", "モデル写真のパス（ローカル or gs://...）なのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.ProductImage, "product-image", "p", "", "商品写真のパス（ローカル or gs://...）なのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.OutputDir, "output-dir", "o", config.DefaultOutputDir, "成果物の保存先ディレクトリ（ローカル or gs://...）なのだ。")

	// --- 合成・リファインの演出パラメータ ---
	rootCmd.PersistentFlags().StringVar(&opts.BackgroundText, "background-text", "", "背景の演出指示なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.LightingRef, "lighting", "", "ライティングの参照指示なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.NeonText, "neon-text", "", "ネオンサインに入れる文字なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.FontStyle, "font-style", "", "ネオン文字のフォントスタイルなのだ。")

	// --- AIモデル・挙動設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.ImageModel, "image-model", "", "使用する画像生成モデル名なのだ（未指定なら環境変数/デフォルト）。")
	rootCmd.PersistentFlags().StringVar(&opts.VideoModel, "video-model", "", "使用する動画生成モデル名なのだ（未指定なら環境変数/デフォルト）。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "Webリクエストのタイムアウトなのだ。")

	// --- 実行制御 ---
	rootCmd.PersistentFlags().DurationVar(&opts.PacingDelay, "pacing", config.DefaultPacingDelay, "シーン抽出セル間のポーズなのだ（レート制限対策）。")
	rootCmd.PersistentFlags().IntVar(&opts.MaxAttempts, "max-attempts", config.DefaultMaxAttempts, "リモート呼び出しのリトライ上限なのだ。")
}

// preRunAppE は、コマンド実行前に環境変数などの必須チェックを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	// Gemini APIを利用するため、APIキーの存在チェックは欠かせないのだ！
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("エラー: 環境変数 GEMINI_API_KEY が設定されていません。Gemini APIの利用には必須なのだ")
	}

	return nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	addAppFlags(rootCmd)
	rootCmd.AddCommand(
		generateCmd,
		combineCmd,
		storyboardCmd,
		videoCmd,
		upscaleCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
