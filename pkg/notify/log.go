package notify

import (
	"go.uber.org/zap"
)

// LogNotifier writes messages to the logger, it is used by headless applications.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates the LogNotifier, a nil logger discards all messages.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger.Named("notify")}
}

func (n *LogNotifier) ShowMessage(msg Message) {
	fields := []zap.Field{
		zap.String("message.type", string(msg.Type)),
		zap.Duration("message.duration", msg.Duration),
	}
	switch msg.Type {
	case TypeError:
		n.logger.Error(msg.Text, fields...)
	case TypeWarning:
		n.logger.Warn(msg.Text, fields...)
	default:
		n.logger.Info(msg.Text, fields...)
	}
}

func (n *LogNotifier) ShowError(text string) {
	n.logger.Error(text, zap.String("message.type", string(TypeError)))
}

func (n *LogNotifier) CloseAll() {
	n.logger.Debug("messages closed")
}

func (n *LogNotifier) Open() {
	n.logger.Debug("loading started")
}

func (n *LogNotifier) Close() {
	n.logger.Debug("loading finished")
}
