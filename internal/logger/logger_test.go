package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput sends logs to a buffer and restores the previous sink and
// level when the test ends.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()

	mu.RLock()
	saved := current
	mu.RUnlock()
	savedLevel := level.Level()

	buf := new(bytes.Buffer)
	InitWithWriter(buf, "INFO", "text", false)

	t.Cleanup(func() {
		mu.Lock()
		install(saved)
		mu.Unlock()
		level.Set(savedLevel)
	})
	return buf
}

func decodeJSONLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry), buf.String())
	return entry
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		present []string
		absent  []string
	}{
		{"DEBUG", []string{"debug message", "info message", "warn message", "error message"}, nil},
		{"INFO", []string{"info message", "warn message", "error message"}, []string{"debug message"}},
		{"WARN", []string{"warn message", "error message"}, []string{"debug message", "info message"}},
		{"ERROR", []string{"error message"}, []string{"debug message", "info message", "warn message"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := captureOutput(t)
			SetLevel(tt.level)

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")

			out := buf.String()
			for _, s := range tt.present {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	t.Run("CaseInsensitive", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("dEbUg")
		Debug("visible")
		assert.Contains(t, buf.String(), "visible")
		assert.True(t, Enabled(slog.LevelDebug))
	})

	t.Run("InvalidIgnored", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("WARN")
		SetLevel("LOUD")
		Info("hidden")
		assert.Empty(t, buf.String())
		assert.False(t, Enabled(slog.LevelInfo))
	})
}

func TestTextFormat(t *testing.T) {
	buf := captureOutput(t)

	Info("report shared", KeyOwnerID, "Niki002", KeyRecipient, "bob@x.com", KeyCount, 1, KeyError, errors.New("boom now"))

	out := buf.String()
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{3} INFO  report shared`, out)
	assert.Contains(t, out, "owner_id=Niki002")
	assert.Contains(t, out, "recipient=bob@x.com")
	assert.Contains(t, out, "count=1")
	assert.Contains(t, out, `error="boom now"`)
}

func TestTextHandlerAttrsAndGroups(t *testing.T) {
	buf := captureOutput(t)

	With(KeyUserID, "Niki002").WithGroup("bus").Info("connected", KeyAttempt, 2, slog.Group("backoff", "next", time.Second))

	out := buf.String()
	assert.Contains(t, out, "user_id=Niki002")
	assert.Contains(t, out, "bus.attempt=2")
	assert.Contains(t, out, "bus.backoff.next=1s")
}

func TestTextHandlerColor(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorTextHandler(&buf, nil, true)
	slog.New(h).Warn("reconnecting", KeyAttempt, 1)

	out := buf.String()
	assert.Contains(t, out, "\033[33mWARN \033[0m")
	assert.Contains(t, out, "\033[36mattempt\033[0m=1")
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
}

func TestJSONFormat(t *testing.T) {
	buf := captureOutput(t)
	SetFormat("json")

	Info("report revoked", ReportID("R1"), Status(404))

	entry := decodeJSONLine(t, buf)
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "report revoked", entry["msg"])
	assert.Equal(t, "R1", entry["report_id"])
	assert.Equal(t, float64(404), entry["status"])
	assert.Contains(t, entry, "time")
}

func TestFormatSwitching(t *testing.T) {
	buf := captureOutput(t)

	SetFormat("xml")
	Info("still text")
	assert.Contains(t, buf.String(), "INFO  still text")

	buf.Reset()
	SetFormat("json")
	Info("now json")
	assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestConcurrentLogging(t *testing.T) {
	buf := captureOutput(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				Info("event delivered", KeySequence, n*100+j)
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1000)
	for _, line := range lines {
		assert.Contains(t, line, "INFO  event delivered seq=", "interleaved line: %q", line)
	}
}

func TestContextLogging(t *testing.T) {
	t.Run("InjectsFields", func(t *testing.T) {
		buf := captureOutput(t)
		SetFormat("json")

		lc := NewLogContext("share.report").WithUser("Niki002").WithRequestID("req-1").WithTrace("abc123", "xyz789")
		InfoCtx(WithContext(context.Background(), lc), "shared", KeyReportID, "R1")

		entry := decodeJSONLine(t, buf)
		assert.Equal(t, "abc123", entry["trace_id"])
		assert.Equal(t, "xyz789", entry["span_id"])
		assert.Equal(t, "share.report", entry["operation"])
		assert.Equal(t, "req-1", entry["request_id"])
		assert.Equal(t, "Niki002", entry["user_id"])
		assert.Equal(t, "R1", entry["report_id"])
	})

	t.Run("OmitsEmptyFields", func(t *testing.T) {
		buf := captureOutput(t)
		SetFormat("json")

		InfoCtx(WithContext(context.Background(), NewLogContext("notify.connect")), "connected")

		entry := decodeJSONLine(t, buf)
		assert.NotContains(t, entry, "user_id")
		assert.NotContains(t, entry, "trace_id")
	})

	t.Run("NilAndBareContexts", func(t *testing.T) {
		buf := captureOutput(t)

		require.NotPanics(t, func() {
			InfoCtx(nil, "nil context") //nolint:staticcheck // exercising nil tolerance
			InfoCtx(context.Background(), "bare context")
		})
		assert.Contains(t, buf.String(), "nil context")
		assert.Contains(t, buf.String(), "bare context")
	})

	t.Run("DebugCtxFiltered", func(t *testing.T) {
		buf := captureOutput(t)
		DebugCtx(context.Background(), "hidden")
		assert.Empty(t, buf.String())
	})
}

func TestLogContext(t *testing.T) {
	lc := NewLogContext("share.revoke")
	assert.Equal(t, "share.revoke", lc.Operation)
	assert.False(t, lc.StartTime.IsZero())

	withUser := lc.WithUser("Niki002")
	assert.Equal(t, "Niki002", withUser.UserID)
	assert.Empty(t, lc.UserID, "original must be unchanged")

	var nilCtx *LogContext
	assert.Nil(t, nilCtx.Clone())
	assert.Nil(t, nilCtx.WithUser("x"))
	assert.Zero(t, nilCtx.DurationMs())

	lc.StartTime = time.Now().Add(-20 * time.Millisecond)
	assert.GreaterOrEqual(t, lc.DurationMs(), 20.0)
}

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, "", Err(nil).Key)
	assert.Equal(t, KeyError, Err(assert.AnError).Key)
	assert.Equal(t, "*", ReportID("").Value.String())
	assert.Equal(t, "R1", ReportID("R1").Value.String())
	assert.Equal(t, KeyAttempt, Attempt(3).Key)
	assert.Equal(t, 2*time.Second, Backoff(2*time.Second).Value.Duration())
}

func TestInit(t *testing.T) {
	t.Run("ToFile", func(t *testing.T) {
		_ = captureOutput(t)
		path := t.TempDir() + "/rsctl.log"
		require.NoError(t, Init(Config{Level: "INFO", Format: "json", Output: path}))
		Info("to file")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "to file")
	})

	t.Run("BadPath", func(t *testing.T) {
		_ = captureOutput(t)
		err := Init(Config{Output: t.TempDir() + "/missing/dir/rsctl.log"})
		assert.Error(t, err)
	})

	t.Run("Empty", func(t *testing.T) {
		_ = captureOutput(t)
		assert.NoError(t, Init(Config{}))
	})
}

func BenchmarkLogDisabled(b *testing.B) {
	InitWithWriter(new(bytes.Buffer), "ERROR", "text", false)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Debug("test message", "key", "value")
	}
}

func BenchmarkLogCtx(b *testing.B) {
	InitWithWriter(new(bytes.Buffer), "DEBUG", "json", false)
	ctx := WithContext(context.Background(), NewLogContext("share.list").WithUser("Niki002"))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		InfoCtx(ctx, "test message", "count", i)
	}
}
