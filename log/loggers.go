package log

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// Info takes a pointer subLogger struct and string sends to the output
func Info(sl *SubLogger, data string) {
	stage(sl, levelInfo, data)
}

// Infoln takes a pointer subLogger struct and interface sends to the output
func Infoln(sl *SubLogger, v ...any) {
	stage(sl, levelInfo, fmt.Sprint(v...))
}

// Infof takes a pointer subLogger struct, string and interface formats sends to the output
func Infof(sl *SubLogger, data string, v ...any) {
	stage(sl, levelInfo, fmt.Sprintf(data, v...))
}

// Debug takes a pointer subLogger struct and string sends to the output
func Debug(sl *SubLogger, data string) {
	stage(sl, levelDebug, data)
}

// Debugf takes a pointer subLogger struct, string and interface formats sends to the output
func Debugf(sl *SubLogger, data string, v ...any) {
	stage(sl, levelDebug, fmt.Sprintf(data, v...))
}

// Warn takes a pointer subLogger struct & string and sends to the output
func Warn(sl *SubLogger, data string) {
	stage(sl, levelWarn, data)
}

// Warnf takes a pointer subLogger struct, string and interface formats sends to the output
func Warnf(sl *SubLogger, data string, v ...any) {
	stage(sl, levelWarn, fmt.Sprintf(data, v...))
}

// Error takes a pointer subLogger struct & string and sends to the output
func Error(sl *SubLogger, data string) {
	stage(sl, levelError, data)
}

// Errorln takes a pointer subLogger struct & interface and sends to the output
func Errorln(sl *SubLogger, v ...any) {
	stage(sl, levelError, fmt.Sprint(v...))
}

// Errorf takes a pointer subLogger struct, string and interface formats sends to the output
func Errorf(sl *SubLogger, data string, v ...any) {
	stage(sl, levelError, fmt.Sprintf(data, v...))
}

func displayError(err error) {
	if err != nil {
		log.Printf("Logger write error: %v\n", err)
	}
}

type level uint8

const (
	levelInfo level = iota
	levelDebug
	levelWarn
	levelError
)

func (l level) header() string {
	switch l {
	case levelDebug:
		return logger.DebugHeader
	case levelWarn:
		return logger.WarnHeader
	case levelError:
		return logger.ErrorHeader
	default:
		return logger.InfoHeader
	}
}

func (l level) enabled(lv Levels) bool {
	switch l {
	case levelDebug:
		return lv.Debug
	case levelWarn:
		return lv.Warn
	case levelError:
		return lv.Error
	default:
		return lv.Info
	}
}

func stage(sl *SubLogger, lvl level, data string) {
	if sl == nil {
		return
	}
	mu.RLock()
	defer mu.RUnlock()
	header := lvl.header()
	if customLogHook != nil && customLogHook(header, sl.name, data) {
		return
	}
	if !lvl.enabled(sl.levels) || sl.output == nil {
		return
	}
	var b strings.Builder
	b.WriteString(header)
	if logger.ShowLogSystemName {
		b.WriteString(logger.Spacer)
		b.WriteString(sl.name)
	}
	b.WriteString(logger.Spacer)
	if logger.TimestampFormat != "" {
		b.WriteString(time.Now().Format(logger.TimestampFormat))
		b.WriteString(logger.Spacer)
	}
	b.WriteString(data)
	if !strings.HasSuffix(data, "\n") {
		b.WriteByte('\n')
	}
	_, err := sl.output.Write([]byte(b.String()))
	displayError(err)
}
