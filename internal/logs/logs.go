package logs

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New otwiera (append) plik logów i buduje logger z timestampem i callerem.
// withConsole dokleja czytelny ConsoleWriter na stdout (tryb CLI).
func New(logFilePath string, withConsole bool, level string) (zerolog.Logger, io.Closer, error) {
	logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file %s: %w", logFilePath, err)
	}

	zerolog.TimeFieldFormat = time.RFC3339

	var writer io.Writer = logFile
	if withConsole {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		writer = zerolog.MultiLevelWriter(logFile, consoleWriter)
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	logger := zerolog.New(writer).Level(lvl).With().
		Timestamp().
		Caller().
		Logger()

	// globalny logger (dla bibliotek, które go używają)
	log.Logger = logger

	return logger, logFile, nil
}
