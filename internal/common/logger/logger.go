package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init installs the global console logger on stdout.
func Init(serviceName string, debug bool) {
	InitWriter(os.Stdout, serviceName, debug)
}

// InitWriter installs the global console logger writing to out. Debug
// enables debug level output.
func InitWriter(out io.Writer, serviceName string, debug bool) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFieldName = "timestamp"
	zerolog.MessageFieldName = "message"

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(consoleWriter(out)).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()

	log.Info().Str("min_level", level.String()).Msg("Logger initialized")
}

// consoleWriter renders "TIME | LEVEL | [component] message key=value".
func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	_, isFile := out.(*os.File)
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    !isFile,
		TimeFormat: time.RFC3339,
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			"component",
			zerolog.MessageFieldName,
		},
		FieldsExclude: []string{"component"},
		FormatLevel: func(i interface{}) string {
			return fmt.Sprintf("| %-5s |", strings.ToUpper(fmt.Sprint(i)))
		},
		FormatPartValueByName: func(i interface{}, name string) string {
			if name == "component" {
				if i == nil {
					return ""
				}
				return fmt.Sprintf("[%s]", i)
			}
			return fmt.Sprint(i)
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("%s=", i)
		},
	}
}

// Component returns the global logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}

func Debug() *zerolog.Event { return log.Debug() }

func Info() *zerolog.Event { return log.Info() }

func Warn() *zerolog.Event { return log.Warn() }

func Error() *zerolog.Event { return log.Error() }

// Fatal logs and exits the process.
func Fatal() *zerolog.Event { return log.Fatal() }
