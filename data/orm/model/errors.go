package model

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
)

// Errors 实例的字段错误集合：字段 -> 按添加顺序排列的消息。
//
// 校验器在各自的 goroutine 中并发写入，所有方法都是并发安全的。
type Errors struct {
	mu sync.Mutex
	m  map[string][]string
}

func newErrors() *Errors {
	return &Errors{m: make(map[string][]string)}
}

// Add 为字段追加一条错误消息
func (e *Errors) Add(field, msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.m[field] = append(e.m[field], msg)
}

// On 返回字段上的错误消息（副本）
func (e *Errors) On(field string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.m[field]...)
}

// Fields 返回有错误的字段名（排序）
func (e *Errors) Fields() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	fields := make([]string, 0, len(e.m))
	for f := range e.m {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Empty 是否没有任何错误
func (e *Errors) Empty() bool {
	return e.Len() == 0
}

// Len 出错字段数
func (e *Errors) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.m)
}

// Clear 清空全部错误
func (e *Errors) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.m = make(map[string][]string)
}

// Map 返回全部错误的副本
func (e *Errors) Map() map[string][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string][]string, len(e.m))
	for f, msgs := range e.m {
		out[f] = append([]string(nil), msgs...)
	}
	return out
}

// FullMessages 以 "字段 消息" 的形式列出全部错误，按字段排序
func (e *Errors) FullMessages() []string {
	m := e.Map()
	fields := make([]string, 0, len(m))
	for f := range m {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var out []string
	for _, f := range fields {
		for _, msg := range m[f] {
			out = append(out, f+" "+msg)
		}
	}
	return out
}

func (e *Errors) String() string {
	return strings.Join(e.FullMessages(), ", ")
}

// MarshalJSON 编码为 {"name":["is already taken"]}
func (e *Errors) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Map())
}
