package common

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// ShortID 取識別碼的短形式（UUID 第一段），用於檔名等人讀場景
func ShortID(id string) string {
	id = strings.TrimSpace(id)
	if idx := strings.IndexByte(id, '-'); idx > 0 {
		return id[:idx]
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// codeForStatus HTTP 狀態碼對應的錯誤代碼
func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return ErrCodeInvalidRequest
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusTooManyRequests:
		return ErrCodeTooManyRequests
	default:
		return ErrCodeInternalError
	}
}

// WriteErrorResponse 以狀態碼推斷錯誤代碼並寫入錯誤響應
func WriteErrorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Code:    codeForStatus(status),
		Message: message,
	})
}

// WriteError 將自定義錯誤渲染為錯誤響應
func WriteError(w http.ResponseWriter, cerr *CustomError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(cerr.Status)
	resp := ErrorResponse{
		Code:    cerr.Code,
		Message: cerr.Message,
	}
	if cerr.Err != nil {
		resp.Details = cerr.Err.Error()
	}
	json.NewEncoder(w).Encode(resp)
}
