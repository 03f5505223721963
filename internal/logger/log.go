package logger

import (
	"io"
	stdlog "log"
	"os"
	"strings"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/PratikDhanave/epcis-query-service/internal/config"
)

// Init configures the global zerolog logger once at startup.
//
// LOG_PRETTY=true writes coloured console output for local development;
// otherwise every line is a JSON object. All lines carry the service and
// instance fields so logs from several replicas can be told apart.
//
//	logger.Init(cfg)
//	log.Info().Msg("server started")
func Init(cfg config.Config) {
	level := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.LogLevel))); err == nil && l != zerolog.NoLevel {
		level = l
	}
	zerolog.SetGlobalLevel(level)

	var w io.Writer = os.Stdout
	if cfg.LogPretty {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	zlog.Logger = zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("instance", cfg.InstanceID).
		Logger()

	// Route the standard library logger through zerolog too.
	stdlog.SetFlags(0)
	stdlog.SetOutput(zlog.Logger)
}
