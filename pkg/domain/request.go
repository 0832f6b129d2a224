package domain

// OperationKind はリモート生成サービスに対する操作の種別です。
type OperationKind string

const (
	OpCombine        OperationKind = "combine"
	OpRefine         OperationKind = "refine"
	OpStoryboardGrid OperationKind = "storyboard_grid"
	OpExtractCell    OperationKind = "extract_cell"
	OpUpscale        OperationKind = "upscale"
	OpGenerateVideo  OperationKind = "generate_video"
)

// StageRequest は 1 回のリモート操作を記述するディスクリプタです。
// 操作種別、必要な入力成果物、およびステージ固有のパラメータを保持します。
type StageRequest struct {
	Kind        OperationKind
	Inputs      []*Artifact // 操作が前提とする入力成果物（合成元、グリッド等）
	Prompt      string      // prompts パッケージで構築済みの指示文
	AspectRatio string

	// ExtractCell 固有: 抽出対象セルの固定位置ラベル（"top-left" 等）
	CellPosition string
}

// SceneCount はストーリーボードから抽出されるシーンの固定数です。
const SceneCount = 9

// CellPositions は 3x3 ストーリーボードの行優先の象限ラベルです。
// シーン ID i はちょうど CellPositions[i] に対応し、並び替えは行われません。
var CellPositions = [SceneCount]string{
	"top-left", "top-center", "top-right",
	"middle-left", "middle-center", "middle-right",
	"bottom-left", "bottom-center", "bottom-right",
}
