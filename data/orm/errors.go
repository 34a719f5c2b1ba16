package orm

import "errors"

var (
	// ErrNotFound 表示记录未找到。
	//
	// Find/First 以 (nil, nil) 表达“未找到”，只有显式要求存在的调用方才会返回该错误。
	ErrNotFound = errors.New("orm: record not found")
	// ErrUnsupported 表示当前数据集或关联不支持请求的操作。
	ErrUnsupported = errors.New("orm: operation unsupported")
	// ErrUnknownField 表示给模型赋值了未声明的字段。
	ErrUnknownField = errors.New("orm: unknown field")
	// ErrUnknownModel 表示在注册表中找不到模型。
	ErrUnknownModel = errors.New("orm: unknown model")
	// ErrUnknownAssociation 表示模型上没有声明该关联。
	ErrUnknownAssociation = errors.New("orm: unknown association")
	// ErrNotPersisted 表示实例尚未写入数据库。
	ErrNotPersisted = errors.New("orm: instance not persisted")
	// ErrEmptyAttributes 表示插入/更新时没有任何列。
	ErrEmptyAttributes = errors.New("orm: empty attributes")
	// ErrUnsafeIdentifier 表示表名或列名包含非法字符。
	ErrUnsafeIdentifier = errors.New("orm: unsafe identifier")
)
