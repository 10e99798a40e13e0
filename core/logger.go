package core

// Logger is the logging contract used across the app.
// Implementations may interpret extra args as errors, key/value maps or users.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
