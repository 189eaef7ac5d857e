package enrich

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint 計算原始語料全文的 SHA-256 哈希值，
// 用於偵測菜譜內容是否變更
func Fingerprint(sourceText string) string {
	hash := sha256.Sum256([]byte(sourceText))
	return hex.EncodeToString(hash[:])
}
