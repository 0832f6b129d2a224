// Package progress は、完了時刻が分からないリモート呼び出しの進行中に表示する
// 見かけ上の進捗率を生成します。実際のパイプライン状態からは完全に切り離されて
// おり、ここでのタイミングのずれが処理の正しさに影響することはありません。
package progress

import (
	"math"
	"sync"
	"time"
)

const (
	// DefaultTickInterval は進捗の更新間隔です。
	DefaultTickInterval = 300 * time.Millisecond
	// DefaultSmoothing は漸近ステップの平滑化定数 K です。
	DefaultSmoothing = 8.0
	// DefaultResetDelay は 100% 表示後に 0 へ戻すまでの猶予です。
	DefaultResetDelay = 800 * time.Millisecond

	// minStep は終盤でも表示が完全に止まらないための下限ステップです。
	minStep = 0.1
	// ceiling は Finish が呼ばれるまで決して超えない上限です。
	ceiling = 99.0
)

// Estimator は単調増加する表示用の進捗率を生成します。
// 呼び出しが未完了の間は 100 に漸近するだけで決して到達せず、
// Finish で即座に 100 になり、少し置いて 0 に戻ります。
// 同時にアクティブにできるティッカーは 1 つだけです。
type Estimator struct {
	mu         sync.Mutex
	pct        float64
	running    bool
	stop       chan struct{}
	interval   time.Duration
	smoothing  float64
	resetDelay time.Duration
}

// New は既定設定の Estimator を生成します。
func New() *Estimator {
	return &Estimator{
		interval:   DefaultTickInterval,
		smoothing:  DefaultSmoothing,
		resetDelay: DefaultResetDelay,
	}
}

// NewWithInterval は更新間隔とリセット猶予を指定して生成します（テスト用途）。
func NewWithInterval(interval, resetDelay time.Duration) *Estimator {
	e := New()
	if interval > 0 {
		e.interval = interval
	}
	if resetDelay > 0 {
		e.resetDelay = resetDelay
	}
	return e
}

// Start は進捗の刻みを開始します。前のティッカーが残っていれば先に止めるので、
// 二重に進捗が進むことはありません。
func (e *Estimator) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
	e.pct = 0
	e.running = true
	ch := make(chan struct{})
	e.stop = ch
	go e.loop(ch)
}

// Finish は進捗を即座に 100 にし、resetDelay 経過後に 0 へ戻します。
func (e *Estimator) Finish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
	e.running = false
	e.pct = 100
	time.AfterFunc(e.resetDelay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		// 次の呼び出しが既に始まっていたら触らないのだ。
		if !e.running && e.pct == 100 {
			e.pct = 0
		}
	})
}

// Abort はティッカーを止めて進捗を 0 に戻します。呼び出しが失敗したときに使います。
func (e *Estimator) Abort() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
	e.running = false
	e.pct = 0
}

// Percentage は現在の表示用進捗率（0-100 の整数）を返します。
func (e *Estimator) Percentage() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int(math.Round(e.pct))
}

// Running はティッカーが動作中かどうかを返します。
func (e *Estimator) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// stopLocked は実行中のティッカーを停止します。呼び出し側がロックを保持します。
func (e *Estimator) stopLocked() {
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
}

func (e *Estimator) loop(stop chan struct{}) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.tick()
		}
	}
}

// tick は残距離に比例したステップで 100 に漸近させます。
// minStep の下限があっても ceiling で頭打ちにするため 100 には届きません。
func (e *Estimator) tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	step := (100 - e.pct) / e.smoothing
	if step < minStep {
		step = minStep
	}
	e.pct += step
	if e.pct > ceiling {
		e.pct = ceiling
	}
}
