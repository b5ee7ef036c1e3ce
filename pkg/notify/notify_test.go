package notify_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lskk/go-request/pkg/notify"
)

var (
	_ notify.Notifier = notify.Nop{}
	_ notify.Loader   = notify.Nop{}
	_ notify.Notifier = &notify.LogNotifier{}
	_ notify.Loader   = &notify.LogNotifier{}
	_ notify.Notifier = &notify.Recorder{}
	_ notify.Loader   = &notify.Recorder{}
)

func TestLogNotifier(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	n := notify.NewLogNotifier(zap.New(core))

	n.CloseAll()
	n.ShowMessage(notify.Message{Type: notify.TypeWarning, Text: "Login: wrong password", Duration: 2 * time.Second, Closable: true})
	n.ShowMessage(notify.Message{Type: notify.TypeError, Text: "Login: system error"})
	n.ShowMessage(notify.Message{Type: notify.TypeSuccess, Text: "Saved"})
	n.ShowError("Request: server busy")
	n.Open()
	n.Close()

	var levels []zapcore.Level
	var messages []string
	for _, entry := range logs.All() {
		assert.Equal(t, "notify", entry.LoggerName)
		levels = append(levels, entry.Level)
		messages = append(messages, entry.Message)
	}
	assert.Equal(t, []zapcore.Level{
		zapcore.DebugLevel,
		zapcore.WarnLevel,
		zapcore.ErrorLevel,
		zapcore.InfoLevel,
		zapcore.ErrorLevel,
		zapcore.DebugLevel,
		zapcore.DebugLevel,
	}, levels)
	assert.Equal(t, []string{
		"messages closed",
		"Login: wrong password",
		"Login: system error",
		"Saved",
		"Request: server busy",
		"loading started",
		"loading finished",
	}, messages)
	assert.Equal(t, "warning", logs.All()[1].ContextMap()["message.type"])
}

func TestLogNotifier_NilLogger(t *testing.T) {
	t.Parallel()
	n := notify.NewLogNotifier(nil)
	assert.NotPanics(t, func() {
		n.ShowError("error")
		n.CloseAll()
	})
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	r := notify.NewRecorder()
	r.Open()
	r.CloseAll()
	r.ShowMessage(notify.Message{Type: notify.TypeWarning, Text: "warning text"})
	r.ShowError("error text")
	r.Close()

	assert.Equal(t, []string{
		"loader:open",
		"closeAll",
		"message:warning:warning text",
		"error:error text",
		"loader:close",
	}, r.Events())
	assert.Equal(t, []notify.Message{{Type: notify.TypeWarning, Text: "warning text"}}, r.Messages())
	assert.Equal(t, []string{"error text"}, r.Errors())

	r.Reset()
	assert.Empty(t, r.Events())
	assert.Empty(t, r.Messages())
	assert.Empty(t, r.Errors())
}
