package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shouni/go-promo-kit/pkg/domain"
	"github.com/shouni/go-promo-kit/pkg/prompts"
)

// fakeVideoGateway は投入とポーリングを記録するフェイクなのだ。
type fakeVideoGateway struct {
	mu          sync.Mutex
	started     []domain.StageRequest
	polls       int
	doneAfter   int // 何回目のポーリングで完了にするか
	startErr    error
	pollErr     error
	resultURI   string
	neverFinish bool
	emptyResult bool                                // 完了応答に URI を入れない
	startBroken func(req domain.StageRequest) error // リクエスト単位で投入を失敗させる
}

func (f *fakeVideoGateway) StartVideo(_ context.Context, req domain.StageRequest) (domain.OperationHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return "", f.startErr
	}
	if f.startBroken != nil {
		if err := f.startBroken(req); err != nil {
			return "", err
		}
	}
	f.started = append(f.started, req)
	return "operations/test-op", nil
}

func (f *fakeVideoGateway) PollVideo(_ context.Context, _ domain.OperationHandle) (*domain.VideoStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	f.polls++
	if f.neverFinish || f.polls < f.doneAfter {
		return &domain.VideoStatus{Done: false}, nil
	}
	if f.emptyResult {
		return &domain.VideoStatus{Done: true, Video: &domain.Artifact{}}, nil
	}
	uri := f.resultURI
	if uri == "" {
		uri = "https://example.com/video.mp4"
	}
	return &domain.VideoStatus{Done: true, Video: &domain.Artifact{URI: uri, MimeType: "video/mp4"}}, nil
}

func newSceneRunner(videos *fakeVideoGateway, images *fakeImageGateway) *SceneRunner {
	r := NewSceneRunner(noWaitExecutor(), images, videos,
		prompts.NewScenePromptBuilder(""), time.Millisecond, 10)
	r.sleep = func(context.Context, time.Duration) error { return nil }
	return r
}

func sessionWithSceneImages(ids ...int) *domain.Session {
	sess := domain.NewSession()
	for _, id := range ids {
		sess.RestoreSceneImage(id, &domain.Artifact{Data: []byte{byte(id)}, MimeType: "image/png"})
	}
	return sess
}

func TestSceneRunner_GenerateVideoPollsUntilDone(t *testing.T) {
	videos := &fakeVideoGateway{doneAfter: 3}
	r := newSceneRunner(videos, &fakeImageGateway{})
	sess := sessionWithSceneImages(2)

	url, err := r.GenerateVideo(context.Background(), sess, 2, "slow pan")
	if err != nil {
		t.Fatalf("動画生成が失敗したのだ: %v", err)
	}
	if url == "" {
		t.Fatal("動画 URL が返っていないのだ")
	}
	if videos.polls != 3 {
		t.Errorf("ポーリング回数: 期待 3, 実際 %d", videos.polls)
	}

	sc, _ := sess.Scene(2)
	if sc.VideoURL != url || sc.IsGeneratingVideo {
		t.Errorf("シーン 2 の状態が不正なのだ: %+v", sc)
	}
}

func TestSceneRunner_GenerateVideoWithoutImageIsNoop(t *testing.T) {
	videos := &fakeVideoGateway{doneAfter: 1}
	r := newSceneRunner(videos, &fakeImageGateway{})
	sess := domain.NewSession()

	_, err := r.GenerateVideo(context.Background(), sess, 0, "")
	if !errors.Is(err, domain.ErrMissingInput) {
		t.Fatalf("ErrMissingInput を期待したのだ: %v", err)
	}
	if len(videos.started) != 0 {
		t.Error("前提未達なのにジョブが投入されたのだ")
	}
}

func TestSceneRunner_PollGuardStopsIndefiniteHang(t *testing.T) {
	videos := &fakeVideoGateway{neverFinish: true}
	r := newSceneRunner(videos, &fakeImageGateway{})
	sess := sessionWithSceneImages(1)

	_, err := r.GenerateVideo(context.Background(), sess, 1, "")
	if err == nil {
		t.Fatal("ポーリング上限超過のエラーを期待したのだ")
	}
	if videos.polls != 10 {
		t.Errorf("ポーリング回数: 期待 10, 実際 %d", videos.polls)
	}
	sc, _ := sess.Scene(1)
	if sc.IsGeneratingVideo {
		t.Error("失敗後にビジーフラグが残っているのだ")
	}
}

func TestSceneRunner_Upscale(t *testing.T) {
	t.Run("成功するとシーン画像が置き換わるのだ", func(t *testing.T) {
		images := &fakeImageGateway{
			respond: func(domain.StageRequest) (*domain.Artifact, error) {
				return &domain.Artifact{Data: []byte("upscaled"), MimeType: "image/png"}, nil
			},
		}
		r := newSceneRunner(&fakeVideoGateway{}, images)
		sess := sessionWithSceneImages(5)

		if err := r.Upscale(context.Background(), sess, 5); err != nil {
			t.Fatalf("アップスケールが失敗したのだ: %v", err)
		}
		sc, _ := sess.Scene(5)
		if string(sc.Image.Data) != "upscaled" || sc.IsUpscaling {
			t.Errorf("シーン 5 の状態が不正なのだ: %+v", sc)
		}
	})

	t.Run("失敗しても元の画像は残るのだ", func(t *testing.T) {
		images := &fakeImageGateway{
			respond: func(domain.StageRequest) (*domain.Artifact, error) {
				return nil, errors.New("invalid argument")
			},
		}
		r := newSceneRunner(&fakeVideoGateway{}, images)
		sess := sessionWithSceneImages(5)

		if err := r.Upscale(context.Background(), sess, 5); err == nil {
			t.Fatal("エラーを期待したのだ")
		}
		sc, _ := sess.Scene(5)
		if sc.Image == nil || sc.IsUpscaling {
			t.Errorf("失敗後の状態が不正なのだ: %+v", sc)
		}
	})
}

func TestSceneRunner_VideoRunsConcurrentlyWithExtraction(t *testing.T) {
	// シナリオ: シーン 2 の動画生成と、独立に進む抽出（シーン 6 を処理中）が
	// 同時に走っても、互いのレコードだけを更新するのだ。
	videos := &fakeVideoGateway{doneAfter: 2}
	images := &fakeImageGateway{}
	r := newSceneRunner(videos, images)
	extract := NewExtractRunner(noWaitExecutor(), images,
		prompts.NewScenePromptBuilder(""), time.Millisecond)

	sess := newSessionWithGrid()
	sess.RestoreSceneImage(2, &domain.Artifact{Data: []byte{2}, MimeType: "image/png"})

	var wg sync.WaitGroup
	wg.Add(2)
	var videoErr, extractErr error
	go func() {
		defer wg.Done()
		_, videoErr = r.GenerateVideo(context.Background(), sess, 2, "")
	}()
	go func() {
		defer wg.Done()
		extractErr = extract.Run(context.Background(), sess)
	}()
	wg.Wait()

	if videoErr != nil {
		t.Fatalf("動画生成が失敗したのだ: %v", videoErr)
	}
	if extractErr != nil {
		t.Fatalf("抽出が失敗したのだ: %v", extractErr)
	}

	for _, sc := range sess.Scenes() {
		if sc.IsExtracting || sc.IsGeneratingVideo {
			t.Errorf("シーン %d のビジーフラグが残っているのだ: %+v", sc.ID, sc)
		}
		if sc.ID == 2 {
			if sc.VideoURL == "" {
				t.Error("シーン 2 の動画が記録されていないのだ")
			}
		} else if sc.VideoURL != "" {
			t.Errorf("シーン %d に他シーンの動画が書き込まれたのだ", sc.ID)
		}
	}
}

func TestSceneRunner_GenerateAllVideosIsolatesFailedScene(t *testing.T) {
	// シーン 0 の投入がリトライ対象外のエラーで失敗しても、ポーリング中の
	// シーン 5 は巻き込まれずに完走するのだ。
	videos := &fakeVideoGateway{
		doneAfter: 2,
		startBroken: func(req domain.StageRequest) error {
			if len(req.Inputs) > 0 && len(req.Inputs[0].Data) > 0 && req.Inputs[0].Data[0] == 0 {
				return errors.New("invalid argument")
			}
			return nil
		},
	}
	r := newSceneRunner(videos, &fakeImageGateway{})
	sess := sessionWithSceneImages(0, 5)

	err := r.GenerateAllVideos(context.Background(), sess, "")
	if err == nil {
		t.Fatal("シーン 0 の失敗が返ることを期待したのだ")
	}

	sc0, _ := sess.Scene(0)
	if sc0.VideoURL != "" || sc0.IsGeneratingVideo {
		t.Errorf("シーン 0 の状態が不正なのだ: %+v", sc0)
	}
	sc5, _ := sess.Scene(5)
	if sc5.VideoURL == "" {
		t.Errorf("シーン 5 が完走していないのだ: %+v", sc5)
	}
	if sc5.IsGeneratingVideo {
		t.Error("シーン 5 のビジーフラグが残っているのだ")
	}
}

func TestSceneRunner_DoneWithoutURIFailsScene(t *testing.T) {
	videos := &fakeVideoGateway{doneAfter: 1, emptyResult: true}
	r := newSceneRunner(videos, &fakeImageGateway{})
	sess := sessionWithSceneImages(3)

	_, err := r.GenerateVideo(context.Background(), sess, 3, "")
	if !errors.Is(err, domain.ErrMissingArtifact) {
		t.Fatalf("ErrMissingArtifact を期待したのだ: %v", err)
	}
	sc, _ := sess.Scene(3)
	if sc.VideoURL != "" || sc.IsGeneratingVideo {
		t.Errorf("空の完了応答が成功として記録されたのだ: %+v", sc)
	}
}

func TestSceneRunner_GenerateAllVideosSkipsEmptyScenes(t *testing.T) {
	videos := &fakeVideoGateway{doneAfter: 1}
	r := newSceneRunner(videos, &fakeImageGateway{})
	sess := sessionWithSceneImages(0, 4, 8)

	if err := r.GenerateAllVideos(context.Background(), sess, "orbit"); err != nil {
		t.Fatalf("一括動画生成が失敗したのだ: %v", err)
	}
	if len(videos.started) != 3 {
		t.Errorf("投入数: 期待 3, 実際 %d", len(videos.started))
	}
	for _, sc := range sess.Scenes() {
		hasImage := sc.Image != nil
		hasVideo := sc.VideoURL != ""
		if hasImage != hasVideo {
			t.Errorf("シーン %d: 画像有無と動画有無が一致しないのだ: %+v", sc.ID, sc)
		}
	}
}
