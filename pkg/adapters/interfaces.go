// Package adapters は、オーケストレーション中核が消費する外部協調者を
// 能力インターフェースとして定義し、Gemini / Veo 実装を提供します。
package adapters

import (
	"context"

	"github.com/shouni/go-promo-kit/pkg/domain"
)

// ImageGateway は画像を返す単発のリモート生成操作です。
// Combine / Refine / StoryboardGrid / ExtractCell / Upscale のすべてがこれを使います。
type ImageGateway interface {
	GenerateImage(ctx context.Context, req domain.StageRequest) (*domain.Artifact, error)
}

// VideoGateway は長時間実行の動画生成ジョブです。投入してハンドルを受け取り、
// 完了シグナルが返るまで一定間隔でポーリングします。
type VideoGateway interface {
	StartVideo(ctx context.Context, req domain.StageRequest) (domain.OperationHandle, error)
	PollVideo(ctx context.Context, handle domain.OperationHandle) (*domain.VideoStatus, error)
}

// CredentialStore は認証情報の有無を判定します。中核はリモート呼び出しの前に
// 必ず HasCredential を確認し、認証欠落エラーをリトライしてはいけません。
type CredentialStore interface {
	HasCredential() bool
	RequestCredential()
}
