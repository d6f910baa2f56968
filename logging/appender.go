package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
)

// DefaultTimeFormatStr is the timestamp layout of console log lines.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

// Appender receives finished log entries. zapcore.Core satisfies it, so zap observers and cores
// can be attached directly.
type Appender interface {
	Write(zapcore.Entry, []zapcore.Field) error
	Sync() error
}

// ConsoleAppender writes one tab separated line per entry:
//
//	<time>	<LEVEL>	<logger>	<dir/file:line>	<message>	<fields as JSON>
type ConsoleAppender struct {
	io.Writer
}

// NewStdoutAppender returns a ConsoleAppender on stdout.
func NewStdoutAppender() ConsoleAppender {
	return ConsoleAppender{os.Stdout}
}

// NewWriterAppender returns a ConsoleAppender on w.
func NewWriterAppender(w io.Writer) ConsoleAppender {
	return ConsoleAppender{w}
}

// fieldEncoder renders only the fields, in the order they were given.
var fieldEncoder = zapcore.EncoderConfig{SkipLineEnding: true}

func (appender ConsoleAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	cols := []string{
		entry.Time.Format(DefaultTimeFormatStr),
		strings.ToUpper(entry.Level.String()),
		entry.LoggerName,
	}
	if entry.Caller.Defined {
		cols = append(cols, shortCaller(entry.Caller))
	}
	cols = append(cols, entry.Message)

	var encodeErr error
	if len(fields) > 0 {
		buf, err := zapcore.NewJSONEncoder(fieldEncoder).EncodeEntry(zapcore.Entry{}, fields)
		if err == nil {
			cols = append(cols, buf.String())
			buf.Free()
		}
		encodeErr = err
	}
	_, writeErr := fmt.Fprintln(appender.Writer, strings.Join(cols, "\t"))
	return multierr.Append(encodeErr, writeErr)
}

// Sync is a no-op; writes are unbuffered.
func (appender ConsoleAppender) Sync() error {
	return nil
}

func shortCaller(caller zapcore.EntryCaller) string {
	dir, file := filepath.Split(caller.File)
	return filepath.Base(dir) + "/" + file + ":" + strconv.Itoa(caller.Line)
}
