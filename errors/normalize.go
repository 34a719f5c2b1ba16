package errors

import (
	"context"
	stdErrors "errors"

	"datastorm/data/db/dialect"
	"datastorm/data/orm"
)

var knownDialects = []dialect.Dialect{
	dialect.New("mysql"),
	dialect.New("sqlite"),
	dialect.New("postgres"),
}

// classify 识别 datastorm 哨兵错误与唯一约束冲突，返回对应的错误代码与消息
func classify(err error) (ErrorCode, string, bool) {
	switch {
	case stdErrors.Is(err, orm.ErrNotFound):
		return ErrCodeNotFound, "记录未找到", true
	case stdErrors.Is(err, orm.ErrUnknownModel):
		return ErrCodeNotFound, "模型未注册", true
	case stdErrors.Is(err, orm.ErrUnknownAssociation):
		return ErrCodeNotFound, "关联未声明", true
	case stdErrors.Is(err, orm.ErrUnknownField),
		stdErrors.Is(err, orm.ErrEmptyAttributes),
		stdErrors.Is(err, orm.ErrUnsafeIdentifier):
		return ErrCodeInvalidInput, "无效的字段", true
	case stdErrors.Is(err, orm.ErrNotPersisted):
		return ErrCodeConflict, "实例尚未持久化", true
	case stdErrors.Is(err, orm.ErrUnsupported):
		return ErrCodeUnsupported, "不支持的操作", true
	case stdErrors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout, "操作超时", true
	}

	for _, d := range knownDialects {
		if d.IsUniqueViolation(err) {
			return ErrCodeDuplicate, "唯一键冲突", true
		}
	}
	return "", "", false
}

// Normalize 将 datastorm 的哨兵错误与常见数据库错误规范化为 AppError。
//
// 注意：
//   - 错误链上已有 AppError 时原样返回；
//   - 未识别的错误保持原样，不强行包装，交由调用方决定是否 Wrap。
func Normalize(err error) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return err
	}

	if code, msg, ok := classify(err); ok {
		return WrapError(err, code, msg)
	}

	// 未识别的错误保持原样
	return err
}
