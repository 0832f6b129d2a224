package adapters

import (
	"log/slog"
	"os"
)

// GeminiAPIKeyEnv は Gemini API キーを保持する環境変数名です。
const GeminiAPIKeyEnv = "GEMINI_API_KEY"

// EnvCredentialStore は環境変数を参照する CredentialStore 実装です。
type EnvCredentialStore struct{}

// HasCredential は API キーが設定されていれば true を返します。
func (EnvCredentialStore) HasCredential() bool {
	return os.Getenv(GeminiAPIKeyEnv) != ""
}

// RequestCredential は利用者に API キーの設定を促します。
// CLI では対話的な取得手段を持たないため、案内を出すだけです。
func (EnvCredentialStore) RequestCredential() {
	slog.Error("環境変数 GEMINI_API_KEY が設定されていないのだ。Gemini API の利用には必須なのだ",
		"env", GeminiAPIKeyEnv)
}
