package relayer

import (
	"io"
	"os"
	"time"

	"github.com/consensys/gnark/logger"
	cfgtypes "github.com/kysee/zk-knights/provers/types"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the process logger from cfg and installs it as gnark's logger.
// When cfg.LogFile is set, output is duplicated into a rotated file.
func NewLogger(cfg *cfgtypes.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	if cfg.LogFile != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	l := zerolog.New(out).Level(level).With().Timestamp().Logger()
	logger.Set(l)
	return l
}
