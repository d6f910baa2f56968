package logging

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// errUnpairedKey is logged as the value of a trailing key with no value.
var errUnpairedKey = fmt.Errorf("unpaired log key")

type zapLogger struct {
	name  string
	level AtomicLevel
	utc   bool
	sinks []Appender
}

func newZapLogger(name string, level Level, utc bool, sinks ...Appender) *zapLogger {
	return &zapLogger{name: name, level: NewAtomicLevelAt(level), utc: utc, sinks: sinks}
}

func (l *zapLogger) SetLevel(level Level) { l.level.Set(level) }

func (l *zapLogger) GetLevel() Level { return l.level.Get() }

func (l *zapLogger) AddAppender(appender Appender) {
	l.sinks = append(l.sinks, appender)
}

func (l *zapLogger) Sublogger(subname string) Logger {
	name := subname
	if l.name != "" {
		name = l.name + "." + subname
	}
	sinks := make([]Appender, len(l.sinks))
	copy(sinks, l.sinks)
	child := &zapLogger{name: name, level: NewAtomicLevelAt(l.GetLevel()), utc: l.utc, sinks: sinks}
	return globalLoggerRegistry.adopt(name, child)
}

func (l *zapLogger) Sync() error {
	var err error
	for _, sink := range l.sinks {
		err = multierr.Append(err, sink.Sync())
	}
	return err
}

func (l *zapLogger) enabled(level Level) bool {
	return level >= l.level.Get()
}

// write hands one entry to every sink. It must be called directly from the exported logging
// method so the recorded caller is the user's call site.
func (l *zapLogger) write(level Level, msg string, fields []zapcore.Field) {
	now := time.Now()
	if l.utc {
		now = now.UTC()
	}
	entry := zapcore.Entry{
		Level:      level.AsZap(),
		Time:       now,
		LoggerName: l.name,
		Message:    msg,
		Caller:     callSite(2),
	}
	for _, sink := range l.sinks {
		if err := sink.Write(entry, fields); err != nil {
			fmt.Fprintln(os.Stderr, err) //nolint:errcheck
		}
	}
}

// fieldsOf pairs up alternating keys and values. Keys that are not strings are formatted with %v.
func fieldsOf(keysAndValues []any) []zapcore.Field {
	if len(keysAndValues) == 0 {
		return nil
	}
	fields := make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keysAndValues[i])
		}
		var value any = errUnpairedKey
		if i+1 < len(keysAndValues) {
			value = keysAndValues[i+1]
		}
		fields = append(fields, zap.Any(key, value))
	}
	return fields
}

func (l *zapLogger) Debug(args ...any) {
	if l.enabled(DEBUG) {
		l.write(DEBUG, fmt.Sprint(args...), nil)
	}
}

func (l *zapLogger) Debugf(template string, args ...any) {
	if l.enabled(DEBUG) {
		l.write(DEBUG, fmt.Sprintf(template, args...), nil)
	}
}

func (l *zapLogger) Debugw(msg string, keysAndValues ...any) {
	if l.enabled(DEBUG) {
		l.write(DEBUG, msg, fieldsOf(keysAndValues))
	}
}

func (l *zapLogger) Info(args ...any) {
	if l.enabled(INFO) {
		l.write(INFO, fmt.Sprint(args...), nil)
	}
}

func (l *zapLogger) Infof(template string, args ...any) {
	if l.enabled(INFO) {
		l.write(INFO, fmt.Sprintf(template, args...), nil)
	}
}

func (l *zapLogger) Infow(msg string, keysAndValues ...any) {
	if l.enabled(INFO) {
		l.write(INFO, msg, fieldsOf(keysAndValues))
	}
}

func (l *zapLogger) Warn(args ...any) {
	if l.enabled(WARN) {
		l.write(WARN, fmt.Sprint(args...), nil)
	}
}

func (l *zapLogger) Warnf(template string, args ...any) {
	if l.enabled(WARN) {
		l.write(WARN, fmt.Sprintf(template, args...), nil)
	}
}

func (l *zapLogger) Warnw(msg string, keysAndValues ...any) {
	if l.enabled(WARN) {
		l.write(WARN, msg, fieldsOf(keysAndValues))
	}
}

func (l *zapLogger) Error(args ...any) {
	if l.enabled(ERROR) {
		l.write(ERROR, fmt.Sprint(args...), nil)
	}
}

func (l *zapLogger) Errorf(template string, args ...any) {
	if l.enabled(ERROR) {
		l.write(ERROR, fmt.Sprintf(template, args...), nil)
	}
}

func (l *zapLogger) Errorw(msg string, keysAndValues ...any) {
	if l.enabled(ERROR) {
		l.write(ERROR, msg, fieldsOf(keysAndValues))
	}
}

// callSite reports the frame `skip` levels above its caller.
func callSite(skip int) zapcore.EntryCaller {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return zapcore.EntryCaller{}
	}
	caller := zapcore.NewEntryCaller(pc, file, line, true)
	if fn := runtime.FuncForPC(pc); fn != nil {
		caller.Function = fn.Name()
	}
	return caller
}
