package remotecall

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shouni/go-promo-kit/pkg/domain"
)

// recordingSleeper は実際には待たずに待機時間だけを記録するのだ。
type recordingSleeper struct {
	waits []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func newTestExecutor(maxAttempts int) (*Executor, *recordingSleeper) {
	rec := &recordingSleeper{}
	e := New(RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   2 * time.Second,
		HintPadding: 5 * time.Second,
	}, WithSleeper(rec.sleep))
	return e, rec
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
		hint      time.Duration
	}{
		{"429 はリトライ対象なのだ", errors.New("googleapi: Error 429: too many requests"), true, 0},
		{"quota マーカーも拾うのだ", errors.New("You exceeded your current quota"), true, 0},
		{"RESOURCE_EXHAUSTED も拾うのだ", errors.New("rpc error: code = ResourceExhausted desc = RESOURCE_EXHAUSTED"), true, 0},
		{"提示時間を抽出するのだ", errors.New("429: quota exceeded. Please retry in 3s."), true, 3 * time.Second},
		{"retryDelay 形式も抽出するのだ", errors.New(`429 RESOURCE_EXHAUSTED {"retryDelay":"17s"}`), true, 17 * time.Second},
		{"小数秒も読めるのだ", errors.New("quota: retry in 32.5s"), true, 32500 * time.Millisecond},
		{"普通のエラーは対象外なのだ", errors.New("invalid argument"), false, 0},
		{"認証エラーも対象外なのだ", domain.ErrMissingCredential, false, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := ClassifyError(tc.err)
			if c.Retryable != tc.retryable {
				t.Errorf("Retryable: 期待 %v, 実際 %v", tc.retryable, c.Retryable)
			}
			if c.WaitHint != tc.hint {
				t.Errorf("WaitHint: 期待 %v, 実際 %v", tc.hint, c.WaitHint)
			}
		})
	}
}

func TestExecutor_HintedRetrySucceeds(t *testing.T) {
	// シナリオ: 1・2 回目は "retry in 3s" 付きのクォータエラー、3 回目で成功するのだ。
	e, rec := newTestExecutor(6)
	calls := 0
	art, err := e.DoImage(context.Background(), func(context.Context) (*domain.Artifact, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("429: quota exceeded. Please retry in 3s.")
		}
		return &domain.Artifact{Data: []byte{1}, MimeType: "image/png"}, nil
	})
	if err != nil {
		t.Fatalf("成功を期待したのだ: %v", err)
	}
	if art == nil || len(art.Data) == 0 {
		t.Fatal("成果物が返っていないのだ")
	}
	if calls != 3 {
		t.Errorf("呼び出し回数: 期待 3, 実際 %d", calls)
	}
	if len(rec.waits) != 2 {
		t.Fatalf("待機回数: 期待 2, 実際 %d", len(rec.waits))
	}
	for i, w := range rec.waits {
		if w < 8*time.Second {
			t.Errorf("待機 %d 回目が hint+5s 未満なのだ: %v", i+1, w)
		}
	}
}

func TestExecutor_ExponentialBackoffWithoutHint(t *testing.T) {
	e, rec := newTestExecutor(4)
	_, err := Do(context.Background(), e, func(context.Context) (string, error) {
		return "", errors.New("rate limit exceeded")
	})
	if !errors.Is(err, domain.ErrExhausted) {
		t.Fatalf("ErrExhausted を期待したのだ: %v", err)
	}
	// attempt 0 起点の base*2^attempt。最終試行の後には待機しないのだ。
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	if len(rec.waits) != len(want) {
		t.Fatalf("待機回数: 期待 %d, 実際 %d", len(want), len(rec.waits))
	}
	for i := range want {
		if rec.waits[i] != want[i] {
			t.Errorf("待機 %d 回目: 期待 %v, 実際 %v", i+1, want[i], rec.waits[i])
		}
	}
}

func TestExecutor_GivesUpAfterMaxAttempts(t *testing.T) {
	e, _ := newTestExecutor(6)
	calls := 0
	quotaErr := errors.New("429: quota exceeded")
	_, err := Do(context.Background(), e, func(context.Context) (int, error) {
		calls++
		return 0, quotaErr
	})
	if calls != 6 {
		t.Errorf("ちょうど maxAttempts 回の呼び出しを期待したのだ: %d", calls)
	}
	if !errors.Is(err, domain.ErrExhausted) {
		t.Errorf("ErrExhausted を期待したのだ: %v", err)
	}
	if !errors.Is(err, quotaErr) {
		t.Errorf("最後の失敗が包まれていないのだ: %v", err)
	}
}

func TestExecutor_NonRetryablePropagatesUnchanged(t *testing.T) {
	e, rec := newTestExecutor(6)
	calls := 0
	boom := fmt.Errorf("画像の読み込みに失敗したのだ: %w", domain.ErrMissingInput)
	_, err := Do(context.Background(), e, func(context.Context) (int, error) {
		calls++
		return 0, boom
	})
	if calls != 1 {
		t.Errorf("非リトライ対象はちょうど 1 回の呼び出しを期待したのだ: %d", calls)
	}
	if !errors.Is(err, boom) {
		t.Errorf("エラーが加工されずに伝播することを期待したのだ: %v", err)
	}
	if len(rec.waits) != 0 {
		t.Errorf("待機は発生しないはずなのだ: %v", rec.waits)
	}
}

func TestExecutor_EmptyPayloadIsMissingArtifact(t *testing.T) {
	e, _ := newTestExecutor(6)
	calls := 0
	_, err := e.DoImage(context.Background(), func(context.Context) (*domain.Artifact, error) {
		calls++
		return &domain.Artifact{}, nil
	})
	if !errors.Is(err, domain.ErrMissingArtifact) {
		t.Fatalf("ErrMissingArtifact を期待したのだ: %v", err)
	}
	if calls != 1 {
		t.Errorf("ペイロード欠落はリトライしないのだ: %d", calls)
	}
}
