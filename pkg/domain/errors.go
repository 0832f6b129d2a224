package domain

import "errors"

// リモート生成サービスとの対話で発生する失敗の分類です。
// 呼び出し側は errors.Is で種別を判定します。
var (
	// ErrRateLimited はプロバイダのクォータ超過（429 等）を表します。リトライ対象です。
	ErrRateLimited = errors.New("rate limited")

	// ErrMissingCredential は API キー未設定を表します。リトライしてはいけません。
	ErrMissingCredential = errors.New("missing credential")

	// ErrMissingArtifact はサービスが応答したものの、期待した成果物パートが
	// 含まれていなかったことを表します。リトライ対象外です。
	ErrMissingArtifact = errors.New("missing artifact in response")

	// ErrMissingInput は前提となる入力成果物が存在しないことを表します。
	// この状態でリモート呼び出しを発行してはいけません。
	ErrMissingInput = errors.New("missing input")

	// ErrExhausted はリトライ上限まで試行しても成功しなかったことを表します。
	// 当該呼び出しとしては終端ですが、ステージやシーン単位での再実行は可能です。
	ErrExhausted = errors.New("retry attempts exhausted")

	// ErrSceneBusy は同一シーンで同じ操作が既に進行中であることを表します。
	ErrSceneBusy = errors.New("scene operation already in progress")
)
