package errors

import (
	stdErrors "errors"
	"fmt"
)

// ErrorCode 错误代码类型
type ErrorCode string

// datastorm 对外暴露的错误代码
const (
	// 兜底：无法归类的错误
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"

	// 调用方输入：未知字段、空属性、不安全的标识符
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// 记录、模型或关联不存在
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// 实例状态不允许该操作（例如未持久化的实例参与 Link）
	ErrCodeConflict    ErrorCode = "CONFLICT"
	ErrCodeTimeout     ErrorCode = "TIMEOUT"
	ErrCodeUnsupported ErrorCode = "UNSUPPORTED"

	// 保存流水线中的字段校验失败
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	// 唯一约束冲突
	ErrCodeDuplicate ErrorCode = "DUPLICATE_ERROR"

	// 驱动返回的其他错误
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
	// 生命周期事件发布失败
	ErrCodePublish ErrorCode = "PUBLISH_ERROR"
)

// ValidationFailedMessage 保存失败时 ValidationError 的固定消息，
// 具体字段错误保存在实例的错误集合中。
const ValidationFailedMessage = "Validations failed. Check obj.errors to see the errors."

// IError 错误接口
type IError interface {
	error

	// 获取错误代码
	Code() ErrorCode

	// 获取错误消息
	Message() string

	// 获取原始错误
	Cause() error

	// 获取错误详情（fields、operation 等）
	Details() map[string]any

	// 添加详情，返回新错误
	WithDetails(details map[string]any) IError
}

// AppError 应用错误实现
type AppError struct {
	code    ErrorCode
	message string
	cause   error
	details map[string]any
}

// NewError 创建新错误
func NewError(code ErrorCode, message string) IError {
	return &AppError{
		code:    code,
		message: message,
		details: make(map[string]any),
	}
}

// WrapError 包装错误；err 为 nil 时返回 nil
func WrapError(err error, code ErrorCode, message string) IError {
	if err == nil {
		return nil
	}

	return &AppError{
		code:    code,
		message: message,
		cause:   err,
		details: make(map[string]any),
	}
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

// Code 获取错误代码
func (e *AppError) Code() ErrorCode {
	return e.code
}

// Message 获取错误消息
func (e *AppError) Message() string {
	return e.message
}

// Cause 获取原始错误
func (e *AppError) Cause() error {
	return e.cause
}

// Details 获取错误详情
func (e *AppError) Details() map[string]any {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	return e.details
}

// Is 目标为 *AppError 时按错误代码比较，否则沿 cause 链查找
func (e *AppError) Is(target error) bool {
	if target == nil {
		return false
	}

	if appErr, ok := target.(*AppError); ok {
		return e.code == appErr.code
	}

	if e.cause != nil {
		return stdErrors.Is(e.cause, target)
	}

	return false
}

// Unwrap 解包错误（支持 errors.Unwrap）
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithDetails 添加详情
func (e *AppError) WithDetails(details map[string]any) IError {
	newDetails := make(map[string]any, len(e.details)+len(details))
	for k, v := range e.details {
		newDetails[k] = v
	}
	for k, v := range details {
		newDetails[k] = v
	}

	return &AppError{
		code:    e.code,
		message: e.message,
		cause:   e.cause,
		details: newDetails,
	}
}

// NewValidationFailed 创建保存时的校验失败错误，details["fields"] 列出出错字段。
func NewValidationFailed(fields []string) IError {
	return NewError(ErrCodeValidation, ValidationFailedMessage).
		WithDetails(map[string]any{"fields": fields})
}

// IsNotFound 检查是否为未找到错误
func IsNotFound(err error) bool {
	return IsErrorCode(err, ErrCodeNotFound)
}

// IsValidation 检查是否为验证错误
func IsValidation(err error) bool {
	return IsErrorCode(err, ErrCodeValidation)
}

// IsDuplicate 检查是否为唯一键冲突错误
func IsDuplicate(err error) bool {
	return IsErrorCode(err, ErrCodeDuplicate)
}

// IsErrorCode 检查错误链上第一个 AppError 的代码
func IsErrorCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return appErr.code == code
	}

	return false
}

// GetErrorCode 获取错误代码；链上没有 AppError 时为 INTERNAL_ERROR
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return appErr.code
	}

	return ErrCodeInternal
}
