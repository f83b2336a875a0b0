package logger

import (
	"log"
	"os"
)

// Logger is an alias so packages can take *logger.Logger without caring
// that it is the standard library type underneath.
type Logger = log.Logger

// New returns a stdout logger with the shared service prefix format.
func New(service string) *Logger {
	return log.New(os.Stdout, "["+service+"] ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}
