// Package validation 提供两类校验：
//
//   - 参数级检查（ValidateXxx），返回 VALIDATION_ERROR，供命令行与配置加载使用；
//   - 字段校验器（Presence、Unique 等），挂到 model.Model.Validate 上，
//     在保存流水线中把问题写入实例的错误集合。
package validation

import (
	"fmt"
	"regexp"
	"strings"

	dbsql "datastorm/data/db/sql"
	"datastorm/errors"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// MaxPageSize 单次查询允许的最大行数
const MaxPageSize = 1000

// NewValidationError 创建验证错误
func NewValidationError(message string) error {
	return errors.NewValidationError(message)
}

// ValidateRequired 验证必填字段
func ValidateRequired(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return errors.NewError(errors.ErrCodeValidation,
			fmt.Sprintf("%s不能为空", fieldName))
	}
	return nil
}

// ValidateStringLength 验证字符串长度，max 为 0 表示不限制
func ValidateStringLength(value, fieldName string, min, max int) error {
	length := len([]rune(value))
	if length < min {
		return errors.NewError(errors.ErrCodeValidation,
			fmt.Sprintf("%s长度不能少于%d个字符（当前%d）", fieldName, min, length))
	}
	if max > 0 && length > max {
		return errors.NewError(errors.ErrCodeValidation,
			fmt.Sprintf("%s长度不能超过%d个字符（当前%d）", fieldName, max, length))
	}
	return nil
}

// ValidateEnum 验证枚举值
func ValidateEnum(value, fieldName string, validValues []string) error {
	for _, valid := range validValues {
		if value == valid {
			return nil
		}
	}
	return errors.NewError(errors.ErrCodeValidation,
		fmt.Sprintf("%s的值无效，必须是以下之一: %v", fieldName, validValues))
}

// ValidateIdentifier 验证表名、列名等 SQL 标识符
func ValidateIdentifier(value, fieldName string) error {
	if err := ValidateRequired(value, fieldName); err != nil {
		return err
	}
	if !dbsql.IsSafeIdentifier(value) {
		return errors.NewError(errors.ErrCodeValidation,
			fmt.Sprintf("%s不是合法的标识符: %q", fieldName, value))
	}
	return nil
}

// ValidatePage 验证 limit/offset；limit 为 0 表示不限制
func ValidatePage(limit, offset int) error {
	if limit < 0 {
		return errors.NewError(errors.ErrCodeValidation, "limit不能为负数")
	}
	if limit > MaxPageSize {
		return errors.NewError(errors.ErrCodeValidation,
			fmt.Sprintf("limit不能超过%d", MaxPageSize))
	}
	if offset < 0 {
		return errors.NewError(errors.ErrCodeValidation, "offset不能为负数")
	}
	return nil
}
