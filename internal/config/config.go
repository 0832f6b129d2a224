package config

import (
	"time"

	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultImageModel        = "gemini-3-pro-image-preview"
	DefaultVideoModel        = "veo-3.1-generate-preview"
	DefaultHTTPTimeout       = 30 * time.Second
	DefaultPacingDelay       = 6 * time.Second // 抽出セル間の固定ポーズ（レート制限対策）
	DefaultMaxAttempts       = 6
	DefaultVideoPollInterval = 10 * time.Second
	DefaultMaxVideoPolls     = 60 // ポーリングの上限。無限待ちを避けるためのガードなのだ
	DefaultOutputDir         = "output/scenes"
	DefaultStyleSuffix       = "professional commercial photography, studio quality, sharp focus, rich color grading, consistent branding, high resolution"
)

// Config はアプリケーション全体の環境設定（APIキーやモデル設定）を保持する構造体なのだ。
type Config struct {
	GeminiAPIKey string
	ImageModel   string
	VideoModel   string
	StyleSuffix  string

	Options GenerateOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	return &Config{
		GeminiAPIKey: envutil.GetEnv("GEMINI_API_KEY", ""),
		ImageModel:   envutil.GetEnv("IMAGE_GEMINI_MODEL", DefaultImageModel),
		VideoModel:   envutil.GetEnv("VIDEO_GEMINI_MODEL", DefaultVideoModel),
		StyleSuffix:  envutil.GetEnv("STYLE_SUFFIX", DefaultStyleSuffix),
	}
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	// ソース入力関連
	ModelImage   string // --model-image: モデル写真のパス（ローカル or gs://...）
	ProductImage string // --product-image: 商品写真のパス
	OutputDir    string // --output-dir: 成果物の保存先ディレクトリ

	// 合成・リファインの演出パラメータ
	BackgroundText string // --background-text
	LightingRef    string // --lighting
	NeonText       string // --neon-text
	FontStyle      string // --font-style
	Refine         bool   // --refine: 既存の合成画像をその場で作り直す

	// シーンタスク関連
	SceneID      int    // --scene: 動画生成・アップスケール対象のシーン ID (0-8)
	MotionPrompt string // --motion: 動画のモーション指示
	AllScenes    bool   // --all-scenes: 画像を持つ全シーンを対象にする

	// AI挙動設定
	ImageModel string // --image-model
	VideoModel string // --video-model

	// 実行制御
	PacingDelay       time.Duration // --pacing: 抽出セル間のポーズ
	MaxAttempts       int           // --max-attempts: リトライ上限
	VideoPollInterval time.Duration // --poll-interval
	MaxVideoPolls     int           // --max-polls
	HTTPTimeout       time.Duration // --http-timeout
}
