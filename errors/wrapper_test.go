package errors

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"datastorm/data/orm"
	"datastorm/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// warnRecorder 记录 Warn 调用，其余级别丢弃
type warnRecorder struct {
	logging.NoopLogger
	mu     sync.Mutex
	msgs   []string
	fields [][]logging.Field
}

func (r *warnRecorder) Warn(_ context.Context, msg string, fields ...logging.Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	r.fields = append(r.fields, fields)
}

func (r *warnRecorder) WithFields(...logging.Field) logging.Logger { return r }

func (r *warnRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func globalRecorder(t *testing.T) *warnRecorder {
	t.Helper()
	original := logging.GetLogger()
	rec := &warnRecorder{}
	logging.SetLogger(rec)
	t.Cleanup(func() { logging.SetLogger(original) })
	return rec
}

func fieldValue(fields []logging.Field, key string) any {
	for _, f := range fields {
		if f.Key == key {
			return f.Value
		}
	}
	return nil
}

func TestWrapWithLog(t *testing.T) {
	ctx := context.Background()
	rec := &warnRecorder{}
	cause := errors.New("nats: connection closed")

	err := WrapWithLog(ctx, rec, cause, ErrCodePublish, "publish lifecycle event failed", logging.String("type", "item.created"))
	assert.True(t, IsErrorCode(err, ErrCodePublish))
	assert.ErrorIs(t, err, cause)

	require.Equal(t, 1, rec.count())
	assert.Equal(t, "publish lifecycle event failed", rec.msgs[0])
	assert.Equal(t, string(ErrCodePublish), fieldValue(rec.fields[0], "error_code"))
	assert.Equal(t, "item.created", fieldValue(rec.fields[0], "type"))
	assert.Contains(t, fieldValue(rec.fields[0], "location"), "wrapper_test.go")

	assert.NoError(t, WrapWithLog(ctx, rec, nil, ErrCodePublish, "publish lifecycle event failed"))
	assert.Equal(t, 1, rec.count())
}

func TestWrapWithLog_DefaultsToGlobalLogger(t *testing.T) {
	rec := globalRecorder(t)

	err := WrapWithLog(context.Background(), nil, errors.New("boom"), ErrCodeDatabase, "写入失败")
	assert.True(t, IsErrorCode(err, ErrCodeDatabase))
	assert.Equal(t, 1, rec.count())
}

func TestWrapDatabaseError(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		err    error
		want   ErrorCode
		logged bool
	}{
		{"plain driver error", errors.New("no such table: flowers"), ErrCodeDatabase, true},
		{"not found sentinel", fmt.Errorf("find list: %w", orm.ErrNotFound), ErrCodeNotFound, false},
		{"unknown field", fmt.Errorf("%w: items.flower", orm.ErrUnknownField), ErrCodeInvalidInput, false},
		{"validation failed", fmt.Errorf("save list: %w", NewValidationFailed([]string{"name"})), ErrCodeValidation, false},
		{"sqlite unique", errors.New("UNIQUE constraint failed: tags.name"), ErrCodeDuplicate, false},
		{"mysql unique", errors.New("Error 1062: Duplicate entry 'wish' for key 'name'"), ErrCodeDuplicate, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := globalRecorder(t)

			wrapped := WrapDatabaseError(ctx, tt.err, "insert tags")
			require.Error(t, wrapped)
			assert.Equal(t, tt.want, GetErrorCode(wrapped))
			assert.ErrorIs(t, wrapped, tt.err)

			var app IError
			require.ErrorAs(t, wrapped, &app)
			assert.Equal(t, "insert tags", app.Details()["operation"])
			assert.Equal(t, tt.logged, rec.count() == 1)
		})
	}

	assert.NoError(t, WrapDatabaseError(ctx, nil, "操作"))
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("name 不能为空")
	assert.True(t, IsValidation(err))
	assert.Equal(t, "[VALIDATION_ERROR] name 不能为空", err.Error())
}

func TestConcurrentWrapWithLog(t *testing.T) {
	rec := &warnRecorder{}
	original := errors.New("并发测试错误")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Error(t, WrapWithLog(context.Background(), rec, original, ErrCodeDatabase, "并发包装"))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1000, rec.count())
}

func BenchmarkWrapDatabaseError(b *testing.B) {
	logging.SetLogger(logging.NewNoopLogger())
	ctx := context.Background()
	err := errors.New("UNIQUE constraint failed: tags.name")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = WrapDatabaseError(ctx, err, "基准测试")
	}
}
