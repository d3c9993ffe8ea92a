package resolver

// Logger is the logging capability the resolver reports its decisions to.
// Return values are never inspected. *logging.Logger satisfies it.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}

// NopLogger discards everything.
var NopLogger Logger = nopLogger{}

func orNop(l Logger) Logger {
	if l == nil {
		return NopLogger
	}
	return l
}
