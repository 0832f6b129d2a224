package builder

import (
	"github.com/shouni/go-promo-kit/internal/config"

	"github.com/shouni/go-http-kit/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/go-promo-kit/pkg/adapters"
	"github.com/shouni/go-promo-kit/pkg/domain"
	"github.com/shouni/go-promo-kit/pkg/prompts"
	"github.com/shouni/go-promo-kit/pkg/remotecall"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する
// これを各Build関数に渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config  *config.Config         // Configは、環境変数から読み込まれたグローバルな設定です（APIキー、モデル名など）。
	Options config.GenerateOptions // Optionsは、コマンドラインから渡された実行時の設定です。
	Session *domain.Session        // Sessionは、起動時に一度だけ生成される共有の可変状態です。
	Reader  remoteio.InputReader   // Readerは、ソース画像の読み込みに使用する入力元です。
	Writer  remoteio.OutputWriter  // Writerは、生成された成果物を保存するための出力先です。

	gateway    *adapters.GeminiGateway // gateway はリモート生成サービスへの共通アダプター
	executor   *remotecall.Executor    // executor は全ステージ・シーンタスクが共有するリトライ実行器
	prompts    *prompts.ScenePromptBuilder
	creds      adapters.CredentialStore
	httpClient httpkit.HTTPClient // httpClient は動画ダウンロード等の外部通信に使う共通クライアント
}

// NewAppContext は AppContext の新しいインスタンスを生成する
func NewAppContext(
	cfg *config.Config,
	httpClient httpkit.HTTPClient,
	gateway *adapters.GeminiGateway,
	reader remoteio.InputReader,
	writer remoteio.OutputWriter,
) AppContext {
	policy := remotecall.DefaultPolicy()
	if cfg.Options.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.Options.MaxAttempts
	}

	return AppContext{
		Config:     cfg,
		Options:    cfg.Options,
		Session:    domain.NewSession(),
		Reader:     reader,
		Writer:     writer,
		gateway:    gateway,
		executor:   remotecall.New(policy),
		prompts:    prompts.NewScenePromptBuilder(cfg.StyleSuffix),
		creds:      adapters.EnvCredentialStore{},
		httpClient: httpClient,
	}
}

// HTTPClient は共有の HTTP クライアントを返します。
func (a *AppContext) HTTPClient() httpkit.HTTPClient {
	return a.httpClient
}
