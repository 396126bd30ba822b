package logger

// LoggerInstance defines the interface for logging backends.
type LoggerInstance interface {
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
	Sync() error
}

// Logger holds multiple logging backends and dispatches log calls to all of them.
type Logger struct {
	instances []LoggerInstance
	fields    []any
}

var singleton *Logger

// Init initializes the global logger with one or more logging backends.
// Calls made before Init are dropped.
func Init(instances ...LoggerInstance) {
	singleton = &Logger{instances: instances}
}

// Default returns the global logger, or a no-op logger before Init.
func Default() *Logger {
	if singleton == nil {
		return &Logger{}
	}
	return singleton
}

// With returns a logger that prepends keyvals to every entry.
func (l *Logger) With(keyvals ...any) *Logger {
	fields := make([]any, 0, len(l.fields)+len(keyvals))
	fields = append(fields, l.fields...)
	fields = append(fields, keyvals...)
	return &Logger{instances: l.instances, fields: fields}
}

func (l *Logger) merge(keyvals []any) []any {
	if len(l.fields) == 0 {
		return keyvals
	}
	out := make([]any, 0, len(l.fields)+len(keyvals))
	out = append(out, l.fields...)
	return append(out, keyvals...)
}

func (l *Logger) Debug(message string, keyvals ...any) {
	kv := l.merge(keyvals)
	for _, instance := range l.instances {
		instance.Debug(message, kv...)
	}
}

func (l *Logger) Info(message string, keyvals ...any) {
	kv := l.merge(keyvals)
	for _, instance := range l.instances {
		instance.Info(message, kv...)
	}
}

func (l *Logger) Warn(message string, keyvals ...any) {
	kv := l.merge(keyvals)
	for _, instance := range l.instances {
		instance.Warn(message, kv...)
	}
}

func (l *Logger) Error(message string, keyvals ...any) {
	kv := l.merge(keyvals)
	for _, instance := range l.instances {
		instance.Error(message, kv...)
	}
}

// Fatal logs to every backend and terminates the program.
func (l *Logger) Fatal(message string, keyvals ...any) {
	kv := l.merge(keyvals)
	for _, instance := range l.instances {
		instance.Fatal(message, kv...)
	}
}

// Sync flushes buffered entries in every backend.
func (l *Logger) Sync() {
	for _, instance := range l.instances {
		_ = instance.Sync()
	}
}

// Debug writes a message at DEBUG level to all configured backends.
func Debug(message string, keyvals ...any) { Default().Debug(message, keyvals...) }

// Info writes a message at INFO level to all configured backends.
func Info(message string, keyvals ...any) { Default().Info(message, keyvals...) }

// Warn writes a message at WARN level to all configured backends.
func Warn(message string, keyvals ...any) { Default().Warn(message, keyvals...) }

// Error writes a message at ERROR level to all configured backends.
func Error(message string, keyvals ...any) { Default().Error(message, keyvals...) }

// Fatal writes a message at FATAL level and terminates the program.
func Fatal(message string, keyvals ...any) { Default().Fatal(message, keyvals...) }

// With returns the global logger with keyvals attached.
func With(keyvals ...any) *Logger { return Default().With(keyvals...) }

// Sync flushes the global logger.
func Sync() { Default().Sync() }
