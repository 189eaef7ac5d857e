package common

import (
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"message"`           // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// ValidationError 表示驗證錯誤：使用者輸入資訊不足，永不致命
type ValidationError struct {
	message       string
	MissingFields []string
}

// Error 實現 error 介面
func (e *ValidationError) Error() string {
	return e.message
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(message string, missing ...string) error {
	return &ValidationError{
		message:       message,
		MissingFields: missing,
	}
}

// IsValidationError 檢查是否為驗證錯誤
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// 預定義錯誤代碼，對應錯誤分類：
// 設定錯誤（啟動時致命）、協作服務錯誤（一律本地回退）、
// 資料完整性錯誤（降級 + 警告）、驗證錯誤（重新詢問）
const (
	ErrCodeConfig          = "CONFIG_ERROR"       // 設定缺失或無效，啟動時致命
	ErrCodeCollaborator    = "COLLABORATOR_ERROR" // 外部服務失敗，由回退路徑吸收
	ErrCodeDataIntegrity   = "DATA_INTEGRITY"     // 知識庫資料缺失或損壞
	ErrCodeValidation      = "VALIDATION_ERROR"   // 使用者輸入不足
	ErrCodeNotFound        = "NOT_FOUND"          // 404
	ErrCodeInvalidRequest  = "INVALID_REQUEST"    // 400
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS"  // 429
	ErrCodeInternalError   = "INTERNAL_ERROR"     // 500
)

// 預定義錯誤
var (
	ErrNotFound        = NewError(ErrCodeNotFound, "資源不存在", http.StatusNotFound, nil)
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "無效的請求", http.StatusBadRequest, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "請求過於頻繁", http.StatusTooManyRequests, nil)
	ErrInternalError   = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)

	// 業務錯誤
	ErrKnowledgeNotReady = NewError(ErrCodeDataIntegrity, "知識庫尚未載入", http.StatusServiceUnavailable, nil)
	ErrCollaborator      = NewError(ErrCodeCollaborator, "外部生成服務錯誤", http.StatusServiceUnavailable, nil)
)

// NewNotFoundError 創建帶原因的 NOT_FOUND 錯誤
func NewNotFoundError(message string, err error) *CustomError {
	return NewError(ErrCodeNotFound, message, http.StatusNotFound, err)
}

// NewDataIntegrityError 創建資料完整性錯誤
func NewDataIntegrityError(message string, err error) *CustomError {
	return NewError(ErrCodeDataIntegrity, message, http.StatusInternalServerError, err)
}

// NewConfigError 創建設定錯誤（僅允許在啟動階段終止進程）
func NewConfigError(message string, err error) *CustomError {
	return NewError(ErrCodeConfig, message, http.StatusInternalServerError, err)
}

// IsNotFound 檢查是否為 NOT_FOUND 類錯誤
func IsNotFound(err error) bool {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeNotFound
	}
	return false
}
