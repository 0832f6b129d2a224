package adapters

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/go-promo-kit/pkg/domain"
)

const (
	defaultCacheExpiration = 5 * time.Minute
	cacheCleanupInterval   = 15 * time.Minute
)

// AssetLoader はソース画像（ローカル or gs://）を読み込んで Artifact に変換します。
// 同じパスの再読み込みはキャッシュで吸収します。生成された成果物は対象外で、
// キャッシュするのは入力側だけです。
type AssetLoader struct {
	reader remoteio.InputReader
	cache  *cache.Cache
}

// NewAssetLoader は入力キャッシュ付きの AssetLoader を生成します。
func NewAssetLoader(reader remoteio.InputReader) *AssetLoader {
	return &AssetLoader{
		reader: reader,
		cache:  cache.New(defaultCacheExpiration, cacheCleanupInterval),
	}
}

// Load は指定パスの画像を読み込みます。キャッシュにあればそれを返します。
func (l *AssetLoader) Load(ctx context.Context, path string) (*domain.Artifact, error) {
	if cached, ok := l.cache.Get(path); ok {
		return cached.(*domain.Artifact), nil
	}

	rc, err := l.reader.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("画像 '%s' の読み込みに失敗しました: %w: %w", path, domain.ErrMissingInput, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("画像 '%s' の読み取りに失敗しました: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("画像 '%s' が空です: %w", path, domain.ErrMissingInput)
	}

	art := &domain.Artifact{Data: data, MimeType: mimeTypeOf(path)}
	l.cache.Set(path, art, cache.DefaultExpiration)
	return art, nil
}

// mimeTypeOf は拡張子から MIME タイプを推定します。不明なら PNG 扱いです。
func mimeTypeOf(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "image/png"
}
