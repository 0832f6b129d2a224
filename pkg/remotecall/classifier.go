package remotecall

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Classification は失敗したリモート呼び出しの分類結果です。
// Retryable が true の場合のみ再試行され、WaitHint が正であれば
// バックオフの代わりにプロバイダ提示の待機時間が採用されます。
type Classification struct {
	Retryable bool
	WaitHint  time.Duration
}

// Classifier はエラーを分類する差し替え可能な関数です。
// 待機の仕組みとは独立にテストできるよう、純粋関数として切り出しています。
type Classifier func(err error) Classification

// レート制限を示すマーカー。Gemini はエラーメッセージに 429 /
// RESOURCE_EXHAUSTED / quota のいずれかを含めて返してきます。
var rateLimitMarkers = []string{
	"429",
	"resource_exhausted",
	"quota",
	"rate limit",
}

// "Please retry in 32.5s" 形式と "retryDelay":"32s" 形式の両方を拾います。
var (
	retryInRegex    = regexp.MustCompile(`(?i)retry in\s+(\d+(?:\.\d+)?)\s*s`)
	retryDelayRegex = regexp.MustCompile(`(?i)retrydelay"?\s*[:=]\s*"?(\d+(?:\.\d+)?)s`)
)

// ClassifyError は既定の分類器です。レート制限マーカーを含むエラーだけを
// リトライ対象とし、メッセージに埋め込まれた提示待機時間を抽出します。
// それ以外（ネットワーク断、認証エラー、成果物欠落など）は即時に伝播します。
func ClassifyError(err error) Classification {
	if err == nil {
		return Classification{}
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return Classification{Retryable: true, WaitHint: extractWaitHint(err.Error())}
		}
	}
	return Classification{}
}

// extractWaitHint はエラーメッセージからプロバイダ提示の待機秒数を取り出します。
// 見つからなければ 0 を返し、呼び出し側は指数バックオフにフォールバックします。
func extractWaitHint(msg string) time.Duration {
	for _, re := range []*regexp.Regexp{retryInRegex, retryDelayRegex} {
		if m := re.FindStringSubmatch(msg); m != nil {
			if sec, err := strconv.ParseFloat(m[1], 64); err == nil {
				return time.Duration(sec * float64(time.Second))
			}
		}
	}
	return 0
}
