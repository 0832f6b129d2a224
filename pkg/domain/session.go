package domain

import (
	"fmt"
	"sync"
)

// Scene はストーリーボードから抽出される 1 シーンの状態です。
// ID は生成時に 0..8 で割り当てられ、以後変更・再利用されません。
type Scene struct {
	ID       int
	Image    *Artifact // 抽出済みのシーン画像（未抽出なら nil）
	VideoURL string    // 生成済み動画への参照（未生成なら空）

	// 同一操作の二重実行を防ぐための advisory フラグ群。
	// 異なる操作同士（抽出と動画生成など）は同時に立ち得ます。
	IsExtracting      bool
	IsGeneratingVideo bool
	IsUpscaling       bool
}

// Session はパイプライン全体が共有する唯一の可変状態です。
// アプリケーション起動時に一度だけ生成され、実行中に破棄されることはありません。
// すべての変更は以下の専用メソッド経由で行い、メソッド同士は相互に
// アトミックです（あるシーンの更新が別シーンの更新を壊すことはありません）。
type Session struct {
	mu sync.Mutex

	modelImage     *Artifact
	productImage   *Artifact
	combinedImage  *Artifact
	storyboardGrid *Artifact

	scenes             [SceneCount]Scene
	extractionProgress int // 0-100。1 回の抽出実行内では単調非減少。
}

// NewSession は ID 0..8 のシーンを備えた空のセッションを生成します。
func NewSession() *Session {
	s := &Session{}
	for i := range s.scenes {
		s.scenes[i].ID = i
	}
	return s
}

// --- ソース画像 ---

// SetModelImage は modelImage のみを更新します。
func (s *Session) SetModelImage(a *Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modelImage = a
}

// SetProductImage は productImage のみを更新します。
func (s *Session) SetProductImage(a *Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.productImage = a
}

// ModelImage は現在のモデル画像を返します。
func (s *Session) ModelImage() *Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modelImage
}

// ProductImage は現在の商品画像を返します。
func (s *Session) ProductImage() *Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.productImage
}

// --- ステージ成果物 ---

// SetCombinedImage は combinedImage のみを更新します。
// Refine による上書き（in-place 更新）にも同じメソッドを使います。
func (s *Session) SetCombinedImage(a *Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.combinedImage = a
}

// CombinedImage は現在の合成画像を返します。
func (s *Session) CombinedImage() *Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.combinedImage
}

// SetStoryboardGrid は storyboardGrid のみを更新します。
func (s *Session) SetStoryboardGrid(a *Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storyboardGrid = a
}

// StoryboardGrid は現在のストーリーボード画像を返します。
func (s *Session) StoryboardGrid() *Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storyboardGrid
}

// --- シーン参照 ---

// validateSceneID はシーン ID が 0..SceneCount-1 に収まるかを検査します。
// Scene と各 Begin* が入口で検査するため、対応する Finish*/Fail* には
// 検査済みの ID しか渡りません。
func validateSceneID(id int) error {
	if id < 0 || id >= SceneCount {
		return fmt.Errorf("シーン ID %d は範囲外です", id)
	}
	return nil
}

// Scene は指定 ID のシーンのスナップショット（コピー）を返します。
func (s *Session) Scene(id int) (Scene, error) {
	if err := validateSceneID(id); err != nil {
		return Scene{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scenes[id], nil
}

// Scenes は全シーンのスナップショットを返します。
func (s *Session) Scenes() []Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Scene, SceneCount)
	copy(out, s.scenes[:])
	return out
}

// HasSceneImage は抽出済み画像を持つシーンが 1 つでもあれば true を返します。
func (s *Session) HasSceneImage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.scenes {
		if s.scenes[i].Image != nil {
			return true
		}
	}
	return false
}

// --- 抽出（scenes[id].IsExtracting / Image と extractionProgress のみを触る） ---

// BeginExtract は scenes[id].IsExtracting を立てます。
// 同じシーンで抽出が進行中の場合は ErrSceneBusy を返します。
func (s *Session) BeginExtract(id int) error {
	if err := validateSceneID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scenes[id].IsExtracting {
		return fmt.Errorf("シーン %d: 抽出: %w", id, ErrSceneBusy)
	}
	s.scenes[id].IsExtracting = true
	return nil
}

// FinishExtract は scenes[id].Image を格納し、IsExtracting を下ろします。
func (s *Session) FinishExtract(id int, a *Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenes[id].Image = a
	s.scenes[id].IsExtracting = false
}

// FailExtract は scenes[id].IsExtracting を下ろします。格納済みの画像は触りません。
func (s *Session) FailExtract(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenes[id].IsExtracting = false
}

// RestoreSceneImage は scenes[id].Image のみを設定します。
// 過去の実行で保存した抽出結果をディスクから復元する場合に使います。
func (s *Session) RestoreSceneImage(id int, a *Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenes[id].Image = a
}

// SetExtractionProgress は extractionProgress のみを更新します。
// 1 回の抽出実行内での単調性を守るため、現在値より小さい値は無視します。
func (s *Session) SetExtractionProgress(pct int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pct > s.extractionProgress {
		s.extractionProgress = pct
	}
}

// ResetExtractionProgress は extractionProgress を 0 に戻します。
// 新しい抽出実行の開始時にのみ呼びます。
func (s *Session) ResetExtractionProgress() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extractionProgress = 0
}

// ExtractionProgress は現在の抽出進捗（0-100）を返します。
func (s *Session) ExtractionProgress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extractionProgress
}

// --- 動画生成（scenes[id].IsGeneratingVideo / VideoURL のみを触る） ---

// BeginVideo は scenes[id].IsGeneratingVideo を立てます。
// シーン画像が未抽出なら ErrMissingInput、既に生成中なら ErrSceneBusy を返します。
func (s *Session) BeginVideo(id int) error {
	if err := validateSceneID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scenes[id].Image == nil {
		return fmt.Errorf("シーン %d: 動画生成にはシーン画像が必要です: %w", id, ErrMissingInput)
	}
	if s.scenes[id].IsGeneratingVideo {
		return fmt.Errorf("シーン %d: 動画生成: %w", id, ErrSceneBusy)
	}
	s.scenes[id].IsGeneratingVideo = true
	return nil
}

// FinishVideo は scenes[id].VideoURL を格納し、IsGeneratingVideo を下ろします。
func (s *Session) FinishVideo(id int, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenes[id].VideoURL = url
	s.scenes[id].IsGeneratingVideo = false
}

// FailVideo は scenes[id].IsGeneratingVideo を下ろします。
func (s *Session) FailVideo(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenes[id].IsGeneratingVideo = false
}

// --- アップスケール（scenes[id].IsUpscaling / Image のみを触る） ---

// BeginUpscale は scenes[id].IsUpscaling を立てます。
// シーン画像が未抽出なら ErrMissingInput、既に実行中なら ErrSceneBusy を返します。
func (s *Session) BeginUpscale(id int) error {
	if err := validateSceneID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scenes[id].Image == nil {
		return fmt.Errorf("シーン %d: アップスケールにはシーン画像が必要です: %w", id, ErrMissingInput)
	}
	if s.scenes[id].IsUpscaling {
		return fmt.Errorf("シーン %d: アップスケール: %w", id, ErrSceneBusy)
	}
	s.scenes[id].IsUpscaling = true
	return nil
}

// FinishUpscale は scenes[id].Image を高解像度版で置き換え、IsUpscaling を下ろします。
func (s *Session) FinishUpscale(id int, a *Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenes[id].Image = a
	s.scenes[id].IsUpscaling = false
}

// FailUpscale は scenes[id].IsUpscaling を下ろします。格納済みの画像は触りません。
func (s *Session) FailUpscale(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenes[id].IsUpscaling = false
}
