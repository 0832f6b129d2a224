package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shouni/go-promo-kit/pkg/domain"
	"github.com/shouni/go-promo-kit/pkg/prompts"
	"github.com/shouni/go-promo-kit/pkg/remotecall"
)

type fakeImages struct {
	calls   int
	respond func(req domain.StageRequest) (*domain.Artifact, error)
}

func (f *fakeImages) GenerateImage(_ context.Context, req domain.StageRequest) (*domain.Artifact, error) {
	f.calls++
	if f.respond != nil {
		return f.respond(req)
	}
	return &domain.Artifact{Data: []byte(req.Kind), MimeType: "image/png"}, nil
}

type fakeCreds struct {
	has       bool
	requested bool
}

func (f *fakeCreds) HasCredential() bool { return f.has }
func (f *fakeCreds) RequestCredential()  { f.requested = true }

type fakeExtractor struct {
	stageAtRun Stage
	err        error
}

func newTestOrchestrator(images *fakeImages, creds *fakeCreds) *Orchestrator {
	exec := remotecall.New(remotecall.DefaultPolicy(),
		remotecall.WithSleeper(func(context.Context, time.Duration) error { return nil }))
	return NewOrchestrator(domain.NewSession(), exec, images, creds,
		prompts.NewScenePromptBuilder("test style"), nil)
}

func sessionWithSources(o *Orchestrator) {
	o.Session().SetModelImage(&domain.Artifact{Data: []byte("model"), MimeType: "image/png"})
	o.Session().SetProductImage(&domain.Artifact{Data: []byte("product"), MimeType: "image/png"})
}

func TestOrchestrator_CombineAdvancesToRefine(t *testing.T) {
	// シナリオ: 両方のソース画像があり、合成が一発で成功するのだ。
	images := &fakeImages{}
	o := newTestOrchestrator(images, &fakeCreds{has: true})
	sessionWithSources(o)

	if err := o.Combine(context.Background(), prompts.CombineParams{}); err != nil {
		t.Fatalf("合成が失敗したのだ: %v", err)
	}
	if o.Stage() != StageRefine {
		t.Errorf("ステージ: 期待 refine, 実際 %s", o.Stage())
	}
	if o.Session().CombinedImage() == nil {
		t.Error("合成画像が格納されていないのだ")
	}
	if images.calls != 1 {
		t.Errorf("呼び出し回数: 期待 1, 実際 %d", images.calls)
	}
}

func TestOrchestrator_CombineRequiresBothSources(t *testing.T) {
	images := &fakeImages{}
	o := newTestOrchestrator(images, &fakeCreds{has: true})
	o.Session().SetModelImage(&domain.Artifact{Data: []byte("model"), MimeType: "image/png"})

	err := o.Combine(context.Background(), prompts.CombineParams{})
	if !errors.Is(err, domain.ErrMissingInput) {
		t.Fatalf("ErrMissingInput を期待したのだ: %v", err)
	}
	if images.calls != 0 {
		t.Error("前提未達なのにリモート呼び出しが発行されたのだ")
	}
	if o.Stage() != StageUpload {
		t.Errorf("遷移してはいけないのだ: %s", o.Stage())
	}
}

func TestOrchestrator_MissingCredentialBlocksCalls(t *testing.T) {
	images := &fakeImages{}
	creds := &fakeCreds{has: false}
	o := newTestOrchestrator(images, creds)
	sessionWithSources(o)

	err := o.Combine(context.Background(), prompts.CombineParams{})
	if !errors.Is(err, domain.ErrMissingCredential) {
		t.Fatalf("ErrMissingCredential を期待したのだ: %v", err)
	}
	if !creds.requested {
		t.Error("認証情報の設定が促されていないのだ")
	}
	if images.calls != 0 {
		t.Error("認証なしでリモート呼び出しが発行されたのだ")
	}
}

func TestOrchestrator_FailureKeepsStageAndArtifacts(t *testing.T) {
	images := &fakeImages{}
	o := newTestOrchestrator(images, &fakeCreds{has: true})
	sessionWithSources(o)

	if err := o.Combine(context.Background(), prompts.CombineParams{}); err != nil {
		t.Fatalf("合成が失敗したのだ: %v", err)
	}
	combined := o.Session().CombinedImage()

	// 以降の呼び出しはすべて失敗させるのだ。
	images.respond = func(domain.StageRequest) (*domain.Artifact, error) {
		return nil, errors.New("invalid argument")
	}

	if err := o.Storyboard(context.Background()); err == nil {
		t.Fatal("エラーを期待したのだ")
	}
	if o.Stage() != StageRefine {
		t.Errorf("失敗でステージが動いてはいけないのだ: %s", o.Stage())
	}
	if o.Session().CombinedImage() != combined {
		t.Error("失敗で格納済みの成果物が変わったのだ")
	}
	if o.Session().StoryboardGrid() != nil {
		t.Error("失敗なのにストーリーボードが格納されたのだ")
	}
}

func TestOrchestrator_RefineUpdatesInPlace(t *testing.T) {
	images := &fakeImages{}
	o := newTestOrchestrator(images, &fakeCreds{has: true})
	sessionWithSources(o)

	if err := o.Combine(context.Background(), prompts.CombineParams{}); err != nil {
		t.Fatalf("合成が失敗したのだ: %v", err)
	}
	before := o.Session().CombinedImage()

	err := o.Refine(context.Background(), prompts.CombineParams{NeonText: "SALE"})
	if err != nil {
		t.Fatalf("リファインが失敗したのだ: %v", err)
	}
	if o.Stage() != StageRefine {
		t.Errorf("リファインでステージが動いてはいけないのだ: %s", o.Stage())
	}
	if o.Session().CombinedImage() == before {
		t.Error("合成画像が更新されていないのだ")
	}
}

func TestOrchestrator_StageGates(t *testing.T) {
	o := newTestOrchestrator(&fakeImages{}, &fakeCreds{has: true})

	if o.CanEnter(StageRefine) || o.CanEnter(StageStoryboard) || o.CanEnter(StageResults) {
		t.Error("成果物なしで後段ステージが解放されているのだ")
	}

	o.Session().SetCombinedImage(&domain.Artifact{Data: []byte{1}, MimeType: "image/png"})
	if !o.CanEnter(StageRefine) {
		t.Error("合成画像があるのに Refine が解放されないのだ")
	}

	o.Session().SetStoryboardGrid(&domain.Artifact{Data: []byte{2}, MimeType: "image/png"})
	if !o.CanEnter(StageStoryboard) {
		t.Error("ストーリーボードがあるのに Storyboard が解放されないのだ")
	}

	o.Session().RestoreSceneImage(0, &domain.Artifact{Data: []byte{3}, MimeType: "image/png"})
	if !o.CanEnter(StageResults) {
		t.Error("シーン画像があるのに Results が解放されないのだ")
	}
}

func TestOrchestrator_RequestExtractionTransitionsImmediately(t *testing.T) {
	o := newTestOrchestrator(&fakeImages{}, &fakeCreds{has: true})
	o.Session().SetCombinedImage(&domain.Artifact{Data: []byte{1}, MimeType: "image/png"})
	o.Session().SetStoryboardGrid(&domain.Artifact{Data: []byte{2}, MimeType: "image/png"})

	ext := &fakeExtractor{}
	if err := o.RequestExtraction(context.Background(), extractorFunc(func(ctx context.Context, sess *domain.Session) error {
		ext.stageAtRun = o.Stage()
		return ext.err
	})); err != nil {
		t.Fatalf("抽出要求が失敗したのだ: %v", err)
	}

	// セルが 1 つも完了する前に Results へ遷移しているのだ。
	if ext.stageAtRun != StageResults {
		t.Errorf("抽出開始時点のステージ: 期待 results, 実際 %s", ext.stageAtRun)
	}
}

func TestOrchestrator_ExtractionFailureKeepsResultsStage(t *testing.T) {
	o := newTestOrchestrator(&fakeImages{}, &fakeCreds{has: true})
	o.Session().SetStoryboardGrid(&domain.Artifact{Data: []byte{2}, MimeType: "image/png"})

	boom := errors.New("セル 4: 抽出失敗")
	err := o.RequestExtraction(context.Background(), extractorFunc(func(context.Context, *domain.Session) error {
		return boom
	}))
	if !errors.Is(err, boom) {
		t.Fatalf("抽出のエラーが伝播していないのだ: %v", err)
	}
	if o.Stage() != StageResults {
		t.Errorf("抽出失敗でステージが後退してはいけないのだ: %s", o.Stage())
	}
}

// extractorFunc は関数を Extractor として扱うためのアダプタなのだ。
type extractorFunc func(ctx context.Context, sess *domain.Session) error

func (f extractorFunc) Run(ctx context.Context, sess *domain.Session) error {
	return f(ctx, sess)
}
