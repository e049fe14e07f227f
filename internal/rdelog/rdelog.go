// =============================================================================
// rdeconv - Logging Module
// =============================================================================
//
// Setup wires a zerolog.Logger that writes to both the console and a
// per-run log file (logs/rdesys_<timestamp>.log); the file is created when
// Setup runs, not on the first write. traceback.format controls how much of
// an error chain is logged: "compact" logs the top-level message only,
// "full" and "duplex" both add the whole wrapped chain, and the console and
// the file receive the same records in every format.
//
// =============================================================================

package rdelog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/rs/zerolog"

	"github.com/ginjaninja78/rdeconv/internal/rdeconfig"
)

// Logger wraps a zerolog.Logger plus the open log file it owns, so the
// caller can close the file once the run finishes.
type Logger struct {
	zerolog.Logger
	file *os.File
}

// Close closes the underlying log file, if one was opened.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Setup creates logs/rdesys_<timestamp>.log under logsDir and returns a
// Logger writing to both that file and the console, formatted per
// cfg.Traceback.Format. now is injected so callers control the timestamp
// that lands in the log file's name. verbose lowers the minimum level to
// debug; otherwise the logger sits at info.
func Setup(logsDir string, cfg *rdeconfig.Config, now time.Time, verbose bool) (*Logger, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory %s: %w", logsDir, err)
	}

	name := fmt.Sprintf("rdesys_%s.log", now.Format("20060102_150405"))
	file, err := os.OpenFile(filepath.Join(logsDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	console := zerolog.ConsoleWriter{Out: colorable.NewColorableStdout(), TimeFormat: time.Kitchen}

	var writer io.Writer
	switch cfg.Traceback.Format {
	case "full":
		writer = zerolog.MultiLevelWriter(console, file)
	case "duplex":
		writer = zerolog.MultiLevelWriter(console, &fullChainWriter{file: file})
	default: // "compact"
		writer = zerolog.MultiLevelWriter(console, file)
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zl := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	return &Logger{Logger: zl, file: file}, nil
}

// fullChainWriter writes every record verbatim to the log file; it is the
// file sink in "duplex" mode. The console receives the same records,
// chain field included, formatted by the ConsoleWriter.
type fullChainWriter struct {
	file *os.File
}

func (w *fullChainWriter) Write(p []byte) (int, error) {
	return w.file.Write(p)
}

// LogPipelineError writes err to logger at error level, expanding the full
// wrapped-error chain into the "chain" field when cfg.Traceback.Format is
// "full" or "duplex".
func LogPipelineError(logger zerolog.Logger, cfg *rdeconfig.Config, tileIndex int, processor string, err error) {
	event := logger.Error().Int("tile", tileIndex).Str("processor", processor)
	if cfg.Traceback.Format == "full" || cfg.Traceback.Format == "duplex" {
		event = event.Str("chain", chainString(err))
	}
	event.Msg(err.Error())
}

func chainString(err error) string {
	s := err.Error()
	for {
		unwrapped := unwrap(err)
		if unwrapped == nil {
			return s
		}
		s += " <- " + unwrapped.Error()
		err = unwrapped
	}
}

func unwrap(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}
