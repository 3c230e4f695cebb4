package core

// Logger is any service that can log & report application events.
// Args may carry an error, a map[string]interface{} of fields or the calling user.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
