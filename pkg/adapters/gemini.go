package adapters

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/shouni/go-promo-kit/pkg/domain"
)

// GeminiGateway は ImageGateway / VideoGateway の Gemini 実装です。
// 画像系の操作は画像モデルの GenerateContent に、動画は Veo の
// 長時間実行オペレーションにマッピングします。
type GeminiGateway struct {
	client     *genai.Client
	imageModel string
	videoModel string
}

// NewGeminiGateway は genai クライアントを初期化してゲートウェイを返します。
func NewGeminiGateway(ctx context.Context, apiKey, imageModel, videoModel string) (*GeminiGateway, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("APIキーが未設定です: %w", domain.ErrMissingCredential)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("genai クライアントの初期化に失敗しました: %w", err)
	}
	return &GeminiGateway{
		client:     client,
		imageModel: imageModel,
		videoModel: videoModel,
	}, nil
}

// GenerateImage は入力成果物とプロンプトを 1 つのコンテンツにまとめて画像モデルへ送り、
// 応答から最初のインライン画像パートを取り出します。
// 画像パートが 1 つも含まれない応答は domain.ErrMissingArtifact です。
func (g *GeminiGateway) GenerateImage(ctx context.Context, req domain.StageRequest) (*domain.Artifact, error) {
	parts := make([]*genai.Part, 0, len(req.Inputs)+1)
	parts = append(parts, genai.NewPartFromText(req.Prompt))
	for _, in := range req.Inputs {
		if in.Empty() {
			return nil, fmt.Errorf("操作 %s の入力成果物が空です: %w", req.Kind, domain.ErrMissingInput)
		}
		parts = append(parts, genai.NewPartFromBytes(in.Data, in.MimeType))
	}

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	}
	if req.AspectRatio != "" {
		cfg.ImageConfig = &genai.ImageConfig{AspectRatio: req.AspectRatio}
	}

	slog.Debug("画像生成リクエストを送信するのだ", "kind", req.Kind, "inputs", len(req.Inputs), "model", g.imageModel)

	resp, err := g.client.Models.GenerateContent(ctx,
		g.imageModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		cfg,
	)
	if err != nil {
		return nil, fmt.Errorf("画像生成に失敗しました (%s): %w", req.Kind, err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return &domain.Artifact{
					Data:     part.InlineData.Data,
					MimeType: part.InlineData.MIMEType,
				}, nil
			}
		}
	}
	return nil, fmt.Errorf("操作 %s の応答に画像パートがありません: %w", req.Kind, domain.ErrMissingArtifact)
}

// StartVideo はシーン画像を開始フレームとして Veo の動画生成ジョブを投入し、
// ポーリング用のハンドルを返します。
func (g *GeminiGateway) StartVideo(ctx context.Context, req domain.StageRequest) (domain.OperationHandle, error) {
	if len(req.Inputs) == 0 || req.Inputs[0].Empty() {
		return "", fmt.Errorf("動画生成には開始フレーム画像が必要です: %w", domain.ErrMissingInput)
	}
	start := req.Inputs[0]

	cfg := &genai.GenerateVideosConfig{NumberOfVideos: 1}
	if req.AspectRatio != "" {
		cfg.AspectRatio = req.AspectRatio
	}

	op, err := g.client.Models.GenerateVideos(ctx,
		g.videoModel,
		req.Prompt,
		&genai.Image{ImageBytes: start.Data, MIMEType: start.MimeType},
		cfg,
	)
	if err != nil {
		return "", fmt.Errorf("動画生成ジョブの投入に失敗しました: %w", err)
	}
	slog.Info("動画生成ジョブを投入したのだ", "operation", op.Name, "model", g.videoModel)
	return domain.OperationHandle(op.Name), nil
}

// PollVideo はハンドルの現在状態を取得します。完了していれば動画成果物への
// 参照を返し、完了応答に動画が含まれない場合は domain.ErrMissingArtifact です。
func (g *GeminiGateway) PollVideo(ctx context.Context, handle domain.OperationHandle) (*domain.VideoStatus, error) {
	op, err := g.client.Operations.GetVideosOperation(ctx,
		&genai.GenerateVideosOperation{Name: string(handle)}, nil)
	if err != nil {
		return nil, fmt.Errorf("動画生成の状態取得に失敗しました: %w", err)
	}
	if !op.Done {
		return &domain.VideoStatus{Done: false}, nil
	}
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 || op.Response.GeneratedVideos[0].Video == nil {
		return nil, fmt.Errorf("完了応答に動画がありません: %w", domain.ErrMissingArtifact)
	}
	video := op.Response.GeneratedVideos[0].Video
	if video.URI == "" && len(video.VideoBytes) == 0 {
		return nil, fmt.Errorf("完了応答の動画が空です: %w", domain.ErrMissingArtifact)
	}
	return &domain.VideoStatus{
		Done: true,
		Video: &domain.Artifact{
			Data:     video.VideoBytes,
			MimeType: video.MIMEType,
			URI:      video.URI,
		},
	}, nil
}
