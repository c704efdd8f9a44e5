package kafka

import (
	chlog "github.com/charmbracelet/log"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/CoPhuocVinh/demo-kafka/internal/utils"
)

// logger forwards franz-go client logs to the application logger.
type logger struct {
	level kgo.LogLevel
}

func newLogger() logger {
	if utils.Logger == nil {
		utils.InitLogger()
	}
	level := kgo.LogLevelWarn
	if utils.Logger.GetLevel() <= chlog.DebugLevel {
		level = kgo.LogLevelInfo
	}
	return logger{level: level}
}

func (l logger) Level() kgo.LogLevel { return l.level }

func (l logger) Log(level kgo.LogLevel, msg string, keyvals ...any) {
	lg := utils.Logger.With("component", "kafka")
	switch level {
	case kgo.LogLevelError:
		lg.Error(msg, keyvals...)
	case kgo.LogLevelWarn:
		lg.Warn(msg, keyvals...)
	case kgo.LogLevelInfo:
		lg.Info(msg, keyvals...)
	default:
		lg.Debug(msg, keyvals...)
	}
}
