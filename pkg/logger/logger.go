package logger

// Backend is a destination for log records. The package-level functions
// fan every record out to all configured backends.
type Backend interface {
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
}

type dispatcher struct {
	backends []Backend
}

var active *dispatcher

// Init configures the global logger. It must be called once at process
// start, before any logging function. Calls made before Init are dropped.
func Init(backends ...Backend) {
	active = &dispatcher{backends: backends}
}

// Debug writes a message at DEBUG level to all configured backends.
func Debug(message string, keyvals ...any) {
	if active == nil {
		return
	}
	for _, b := range active.backends {
		b.Debug(message, keyvals...)
	}
}

// Info writes a message at INFO level to all configured backends.
func Info(message string, keyvals ...any) {
	if active == nil {
		return
	}
	for _, b := range active.backends {
		b.Info(message, keyvals...)
	}
}

// Warn writes a message at WARN level to all configured backends.
func Warn(message string, keyvals ...any) {
	if active == nil {
		return
	}
	for _, b := range active.backends {
		b.Warn(message, keyvals...)
	}
}

// Error writes a message at ERROR level to all configured backends.
func Error(message string, keyvals ...any) {
	if active == nil {
		return
	}
	for _, b := range active.backends {
		b.Error(message, keyvals...)
	}
}

// Fatal writes a message at FATAL level and terminates the program.
func Fatal(message string, keyvals ...any) {
	if active == nil {
		return
	}
	for _, b := range active.backends {
		b.Fatal(message, keyvals...)
	}
}
