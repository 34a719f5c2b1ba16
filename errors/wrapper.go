package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"runtime"

	"datastorm/logging"
)

// WrapWithLog 包装错误并记录警告日志；logger 为 nil 时使用全局日志器
func WrapWithLog(ctx context.Context, logger logging.Logger, err error, code ErrorCode, msg string, fields ...logging.Field) error {
	if err == nil {
		return nil
	}
	if logger == nil {
		logger = logging.GetLogger()
	}

	// 获取调用位置
	_, file, line, _ := runtime.Caller(1)

	wrapped := WrapError(err, code, msg)

	allFields := append([]logging.Field{
		logging.Error(err),
		logging.String("error_code", string(code)),
		logging.String("location", fmt.Sprintf("%s:%d", file, line)),
	}, fields...)

	logger.Warn(ctx, msg, allFields...)

	return wrapped
}

// WrapDatabaseError 为一次数据库操作的错误附加操作名（details["operation"]）。
//
// 可识别的错误（链上已有 AppError、datastorm 哨兵错误、唯一键冲突）沿用其错误码且不记录日志，
// 其余错误以 DATABASE_ERROR 包装并记录警告。
func WrapDatabaseError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}
	detail := map[string]any{"operation": operation}

	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return WrapError(err, appErr.code, operation).WithDetails(detail)
	}
	if code, _, ok := classify(err); ok {
		return WrapError(err, code, operation).WithDetails(detail)
	}

	wrapped := WrapWithLog(ctx, nil, err, ErrCodeDatabase,
		fmt.Sprintf("数据库操作失败: %s", operation),
		logging.String("operation", operation),
	)
	return wrapped.(IError).WithDetails(detail)
}

// NewValidationError 创建参数校验错误
func NewValidationError(msg string) error {
	return NewError(ErrCodeValidation, msg)
}
