package remotecall

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-promo-kit/pkg/domain"
)

// 既定のリトライ方針。プロバイダ提示の待機時間が取れた場合は
// HintPadding を上乗せし、取れなければ BaseDelay * 2^attempt で待ちます。
const (
	DefaultMaxAttempts = 6
	DefaultBaseDelay   = 2 * time.Second
	DefaultHintPadding = 5 * time.Second
)

// RetryPolicy は 1 回のリモート呼び出しに適用するリトライ上限と待機設定です。
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	HintPadding time.Duration
}

// DefaultPolicy は既定のリトライ方針を返します。
func DefaultPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		HintPadding: DefaultHintPadding,
	}
}

// Sleeper は待機の実装です。テストでは記録用のフェイクに差し替えます。
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Executor は分類駆動のリトライ付きでリモート呼び出しを 1 件実行します。
// すべてのステージ・抽出・シーンタスクが同じ Executor を共有します。
type Executor struct {
	policy   RetryPolicy
	classify Classifier
	sleep    Sleeper
}

// Option は Executor の構成オプションです。
type Option func(*Executor)

// WithClassifier は分類器を差し替えます。
func WithClassifier(c Classifier) Option {
	return func(e *Executor) { e.classify = c }
}

// WithSleeper は待機の実装を差し替えます（テスト用）。
func WithSleeper(s Sleeper) Option {
	return func(e *Executor) { e.sleep = s }
}

// New は指定のリトライ方針で Executor を生成します。
func New(policy RetryPolicy, opts ...Option) *Executor {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultMaxAttempts
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = DefaultBaseDelay
	}
	if policy.HintPadding <= 0 {
		policy.HintPadding = DefaultHintPadding
	}
	e := &Executor{
		policy:   policy,
		classify: ClassifyError,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Do は op を最大 MaxAttempts 回実行します。レート制限と分類された失敗だけが
// 待機のうえ再試行され、それ以外の失敗は分類以外の加工なしに即時伝播します。
// 上限まで成功しなかった場合は domain.ErrExhausted（最後の失敗を包んだもの）を返します。
func Do[T any](ctx context.Context, e *Executor, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < e.policy.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		c := e.classify(err)
		if !c.Retryable {
			return zero, err
		}
		lastErr = err

		if attempt == e.policy.MaxAttempts-1 {
			break
		}

		wait := e.waitFor(c, attempt)
		slog.Warn("レート制限に当たったので待機して再試行するのだ",
			"attempt", attempt+1,
			"max_attempts", e.policy.MaxAttempts,
			"wait", wait,
			"error", err)
		if err := e.sleep(ctx, wait); err != nil {
			return zero, err
		}
	}

	return zero, fmt.Errorf("%d 回試行しても成功しなかったのだ: %w: %w",
		e.policy.MaxAttempts, domain.ErrExhausted, lastErr)
}

// waitFor は次の試行までの待機時間を決めます。提示時間があればそれに
// HintPadding を足し、なければ attempt 起点の指数バックオフです。
func (e *Executor) waitFor(c Classification, attempt int) time.Duration {
	if c.WaitHint > 0 {
		return c.WaitHint + e.policy.HintPadding
	}
	return e.policy.BaseDelay * (1 << attempt)
}

// DoImage は画像を返す操作向けのラッパーです。成功応答に認識可能な
// ペイロードが含まれない場合は domain.ErrMissingArtifact とし、再試行しません。
func (e *Executor) DoImage(ctx context.Context, op func(context.Context) (*domain.Artifact, error)) (*domain.Artifact, error) {
	art, err := Do(ctx, e, op)
	if err != nil {
		return nil, err
	}
	if art.Empty() {
		return nil, domain.ErrMissingArtifact
	}
	return art, nil
}
