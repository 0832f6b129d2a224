package domain

// Artifact は生成された画像・動画コンテンツへの不透明な参照です。
// インラインのバイト列（Data + MimeType）か、ダウンロード可能な URI の
// 少なくとも一方を保持します。
type Artifact struct {
	Data     []byte
	MimeType string
	URI      string
}

// Empty は成果物として認識できるペイロードを持たない場合に true を返します。
func (a *Artifact) Empty() bool {
	return a == nil || (len(a.Data) == 0 && a.URI == "")
}

// OperationHandle は長時間実行されるリモート操作（動画生成など）の識別子です。
type OperationHandle string

// VideoStatus は動画生成操作のポーリング結果です。
// Done が false の間は Video は常に nil です。
type VideoStatus struct {
	Done  bool
	Video *Artifact
}
