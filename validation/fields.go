package validation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cast"

	"datastorm/data/orm"
	"datastorm/data/orm/model"
)

// 字段错误消息
const (
	MsgTaken        = "is already taken"
	MsgBlank        = "can't be blank"
	MsgInvalid      = "is invalid"
	MsgNotIncluded  = "is not included in the list"
	MsgNotANumber   = "is not a number"
	msgTooShort     = "is too short (minimum is %d characters)"
	msgTooLong      = "is too long (maximum is %d characters)"
	msgGreaterEqual = "must be greater than or equal to %v"
	msgLessEqual    = "must be less than or equal to %v"
)

func blank(value any) bool {
	if value == nil {
		return true
	}
	s, ok := value.(string)
	return ok && strings.TrimSpace(s) == ""
}

// Unique 要求字段值在表中唯一，冲突时记录 "is already taken"
func Unique() model.ValidatorFunc {
	return UniqueWithMessage(MsgTaken)
}

// UniqueWithMessage 同 Unique，使用自定义消息。
//
// 已保存的实例按快照主键排除自身所在行；值为 nil 时跳过。
func UniqueWithMessage(msg string) model.ValidatorFunc {
	return func(ctx context.Context, inst *model.Instance, field string, value any) error {
		if value == nil {
			return nil
		}
		m := inst.Model()
		ds := m.RawDataset().Where(orm.Cond{field: value})
		if !inst.IsNew() {
			self := ds.Dialect().QuoteIdentifier(m.Table() + "." + m.PrimaryKey())
			ds = ds.WhereExpr(self+" <> ?", inst.PersistedID())
		}
		n, err := ds.Count(ctx)
		if err != nil {
			return fmt.Errorf("uniqueness of %s: %w", field, err)
		}
		if n > 0 {
			inst.Errors().Add(field, msg)
		}
		return nil
	}
}

// Presence 要求字段非空（nil 或空白字符串视为空）
func Presence() model.ValidatorFunc {
	return func(_ context.Context, inst *model.Instance, field string, value any) error {
		if blank(value) {
			inst.Errors().Add(field, MsgBlank)
		}
		return nil
	}
}

// Length 限制字符串长度（按字符计），max 为 0 表示不限制；nil 跳过
func Length(min, max int) model.ValidatorFunc {
	return func(_ context.Context, inst *model.Instance, field string, value any) error {
		if value == nil {
			return nil
		}
		n := len([]rune(cast.ToString(value)))
		if n < min {
			inst.Errors().Add(field, fmt.Sprintf(msgTooShort, min))
		}
		if max > 0 && n > max {
			inst.Errors().Add(field, fmt.Sprintf(msgTooLong, max))
		}
		return nil
	}
}

// Format 要求字符串匹配正则；nil 跳过
func Format(re *regexp.Regexp) model.ValidatorFunc {
	return func(_ context.Context, inst *model.Instance, field string, value any) error {
		if value == nil {
			return nil
		}
		if !re.MatchString(cast.ToString(value)) {
			inst.Errors().Add(field, MsgInvalid)
		}
		return nil
	}
}

// Email 要求字段是邮箱格式
func Email() model.ValidatorFunc {
	return Format(emailRegex)
}

// Inclusion 要求值属于给定集合（按字符串比较）；nil 跳过
func Inclusion(values ...string) model.ValidatorFunc {
	return func(_ context.Context, inst *model.Instance, field string, value any) error {
		if value == nil {
			return nil
		}
		s := cast.ToString(value)
		for _, v := range values {
			if s == v {
				return nil
			}
		}
		inst.Errors().Add(field, MsgNotIncluded)
		return nil
	}
}

// Numericality 要求值可转换为数字，并可选地限制范围；nil 跳过
func Numericality(opts ...NumberOption) model.ValidatorFunc {
	var r numberRange
	for _, opt := range opts {
		opt(&r)
	}
	return func(_ context.Context, inst *model.Instance, field string, value any) error {
		if value == nil {
			return nil
		}
		n, err := cast.ToFloat64E(value)
		if err != nil || (isString(value) && strings.TrimSpace(value.(string)) == "") {
			inst.Errors().Add(field, MsgNotANumber)
			return nil
		}
		if r.min != nil && n < *r.min {
			inst.Errors().Add(field, fmt.Sprintf(msgGreaterEqual, *r.min))
		}
		if r.max != nil && n > *r.max {
			inst.Errors().Add(field, fmt.Sprintf(msgLessEqual, *r.max))
		}
		return nil
	}
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

type numberRange struct {
	min, max *float64
}

// NumberOption 配置 Numericality
type NumberOption func(*numberRange)

// AtLeast 下限（含）
func AtLeast(min float64) NumberOption {
	return func(r *numberRange) { r.min = &min }
}

// AtMost 上限（含）
func AtMost(max float64) NumberOption {
	return func(r *numberRange) { r.max = &max }
}
