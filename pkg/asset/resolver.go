package asset

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shouni/go-utils/urlpath"
)

const (
	// DefaultCombinedFileName は合成画像のデフォルトファイル名です。
	DefaultCombinedFileName = "combined.png"
	// DefaultStoryboardFileName はストーリーボードグリッドのデフォルトファイル名です。
	DefaultStoryboardFileName = "storyboard.png"
	// DefaultSceneFileName はシーン画像の共通のベースファイル名です。
	DefaultSceneFileName = "scene.png"
	// DefaultVideoFileName はシーン動画の共通のベースファイル名です。
	DefaultVideoFileName = "scene.mp4"
)

// SceneFileRegex はシーン画像 (scene_1.png 等) に一致します
var SceneFileRegex = createIndexedRegex(DefaultSceneFileName)

// ResolveOutputPath は、ベースとなるディレクトリパスとファイル名から、
// GCS/ローカルを考慮した最終的な出力パスを生成します。
func ResolveOutputPath(baseDir, fileName string) (string, error) {
	return urlpath.ResolvePath(baseDir, fileName)
}

// ScenePath は出力ディレクトリとシーン ID から scene_N.png のパスを解決します。
// ファイル名の連番は 1 起点なので、シーン ID 0 は scene_1.png になります。
func ScenePath(baseDir string, sceneID int) (string, error) {
	base, err := urlpath.ResolvePath(baseDir, DefaultSceneFileName)
	if err != nil {
		return "", err
	}
	return urlpath.GenerateIndexedPath(base, sceneID+1)
}

// SceneVideoPath は出力ディレクトリとシーン ID から scene_N.mp4 のパスを解決します。
func SceneVideoPath(baseDir string, sceneID int) (string, error) {
	base, err := urlpath.ResolvePath(baseDir, DefaultVideoFileName)
	if err != nil {
		return "", err
	}
	return urlpath.GenerateIndexedPath(base, sceneID+1)
}

// createIndexedRegex は、ファイル名に基づきインデックス付きファイル用の正規表現を生成します。
// 例: "scene.png" -> ^scene_\d+\.png$
func createIndexedRegex(fileName string) *regexp.Regexp {
	ext := filepath.Ext(fileName)
	baseName := strings.TrimSuffix(fileName, ext)
	pattern := fmt.Sprintf(`^%s_\d+%s$`, regexp.QuoteMeta(baseName), regexp.QuoteMeta(ext))
	return regexp.MustCompile(pattern)
}
