// Package prompts は、各リモート操作に渡す指示文を組み立てます。
// 画風（スタイル）の指定はすべてのプロンプトに共通のサフィックスとして注入します。
package prompts

import (
	"fmt"
	"strings"
)

// CombineParams は合成・リファイン時のステージ固有パラメータです。
type CombineParams struct {
	BackgroundText    string // 背景に描き込むブランドテキスト
	LightingReference string // ライティングの参照指示（"golden hour" 等）
	NeonText          string // ネオンサインとして載せるキャッチコピー
	FontStyle         string // ネオン・ロゴに適用するフォントスタイル
}

// ScenePromptBuilder は、操作種別ごとの指示文を構築します。
type ScenePromptBuilder struct {
	styleSuffix string // 例: "cinematic product photography, high quality"
}

// NewScenePromptBuilder は新しい ScenePromptBuilder を生成します。
func NewScenePromptBuilder(styleSuffix string) *ScenePromptBuilder {
	return &ScenePromptBuilder{styleSuffix: styleSuffix}
}

// BuildCombine はモデル画像と商品画像を 1 枚の販促ビジュアルへ合成する指示文を返します。
func (b *ScenePromptBuilder) BuildCombine(p CombineParams) string {
	parts := []string{
		"Combine the two provided photos into a single professional promotional visual.",
		"The first image is the model, the second image is the product.",
		"Have the model naturally present the product as the hero of the shot.",
	}
	if p.BackgroundText != "" {
		parts = append(parts, fmt.Sprintf("Render the brand text %q into the background environment.", p.BackgroundText))
	}
	if p.LightingReference != "" {
		parts = append(parts, fmt.Sprintf("Match the lighting to: %s.", p.LightingReference))
	}
	if p.NeonText != "" {
		style := p.FontStyle
		if style == "" {
			style = "modern sans-serif"
		}
		parts = append(parts, fmt.Sprintf("Add a glowing neon sign reading %q in a %s font style.", p.NeonText, style))
	}
	return b.withSuffix(strings.Join(parts, " "))
}

// BuildRefine は既存の合成画像を編集パラメータで更新する指示文を返します。
// 入力には現在の合成画像が渡される前提です。
func (b *ScenePromptBuilder) BuildRefine(p CombineParams) string {
	parts := []string{
		"Refine the provided promotional visual while keeping the model and the product unchanged.",
	}
	if p.BackgroundText != "" {
		parts = append(parts, fmt.Sprintf("Update the background brand text to %q.", p.BackgroundText))
	}
	if p.LightingReference != "" {
		parts = append(parts, fmt.Sprintf("Relight the scene to match: %s.", p.LightingReference))
	}
	if p.NeonText != "" {
		style := p.FontStyle
		if style == "" {
			style = "modern sans-serif"
		}
		parts = append(parts, fmt.Sprintf("Replace the neon caption with %q in a %s font style.", p.NeonText, style))
	}
	return b.withSuffix(strings.Join(parts, " "))
}

// BuildStoryboard は合成画像を基に 3x3 のストーリーボードグリッドを生成する指示文を返します。
func (b *ScenePromptBuilder) BuildStoryboard() string {
	return b.withSuffix(
		"Using the provided promotional visual as the reference, create a single image containing " +
			"a 3x3 storyboard grid of nine distinct scenes for a short commercial. " +
			"Each cell shows the same model and product in a different camera angle, pose and setting, " +
			"with consistent branding, wardrobe and color grading across all nine cells. " +
			"Draw thin margins between cells and keep every cell fully inside its quadrant.")
}

// BuildExtract はグリッドから指定象限のセルを単独画像として抽出する指示文を返します。
func (b *ScenePromptBuilder) BuildExtract(position string) string {
	return b.withSuffix(fmt.Sprintf(
		"The provided image is a 3x3 storyboard grid. Reproduce only the %s cell as a standalone, "+
			"full-resolution image. Recreate the cell's content faithfully, without grid lines, "+
			"neighboring cells or added elements.", position))
}

// BuildUpscale はシーン画像の高解像度化の指示文を返します。
func (b *ScenePromptBuilder) BuildUpscale() string {
	return "Upscale the provided image to a higher resolution. Sharpen fine detail and preserve " +
		"the composition, colors, branding and text exactly as they are. Do not add, remove or move anything."
}

// BuildMotion はシーン画像を起点とした動画生成のモーション指示文を返します。
func (b *ScenePromptBuilder) BuildMotion(motionPrompt string) string {
	if motionPrompt == "" {
		motionPrompt = "slow cinematic camera push-in with subtle natural motion"
	}
	return fmt.Sprintf("Animate this scene: %s. Keep the model, product and branding consistent with the source image.", motionPrompt)
}

func (b *ScenePromptBuilder) withSuffix(prompt string) string {
	if b.styleSuffix == "" {
		return prompt
	}
	return prompt + " Style: " + b.styleSuffix
}
