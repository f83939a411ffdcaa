package log

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	DebugLog = iota
	InfoLog
	WarningLog
	ErrorLog
	maxLevelLog
)

const (
	red    = "0;31"
	green  = "0;32"
	yellow = "0;33"
	pink   = "1;35"
)

var levels = map[int]string{
	DebugLog:   color(pink, "[DEBUG]"),
	InfoLog:    color(green, "[INFO ]"),
	WarningLog: color(yellow, "[WARN ]"),
	ErrorLog:   color(red, "[ERROR]"),
}

func color(code, msg string) string {
	return fmt.Sprintf("\033[%sm%s\033[m", code, msg)
}

type Logger struct {
	sync.RWMutex
	level   int
	logger  *log.Logger
	logFile *os.File
}

var Log = newLogger(os.Stdout, InfoLog, nil)

func newLogger(out io.Writer, level int, file *os.File) *Logger {
	return &Logger{
		level:   level,
		logger:  log.New(out, "", log.Ldate|log.Lmicroseconds),
		logFile: file,
	}
}

// Init routes log output to a dated file under path in addition to stdout.
func Init(path string, level int) error {
	if level < 0 || level >= maxLevelLog {
		return errors.New("invalid log level")
	}
	if err := os.MkdirAll(path, 0766); err != nil {
		return err
	}
	name := time.Now().Format("2006-01-02_15.04.05") + ".log"
	f, err := os.Create(filepath.Join(path, name))
	if err != nil {
		return err
	}

	Log.Lock()
	defer Log.Unlock()
	if Log.logFile != nil {
		Log.logFile.Close()
	}
	Log.level = level
	Log.logFile = f
	Log.logger = log.New(io.MultiWriter(os.Stdout, f), "", log.Ldate|log.Lmicroseconds)
	return nil
}

func (l *Logger) SetDebugLevel(level int) error {
	if level < 0 || level >= maxLevelLog {
		return errors.New("invalid log level")
	}
	l.Lock()
	defer l.Unlock()
	l.level = level
	return nil
}

func (l *Logger) output(level int, msg string) {
	l.RLock()
	defer l.RUnlock()
	if level >= l.level {
		l.logger.Output(3, levels[level]+" "+msg)
	}
}

func (l *Logger) Debug(a ...interface{})            { l.output(DebugLog, fmt.Sprintln(a...)) }
func (l *Logger) Debugf(f string, a ...interface{}) { l.output(DebugLog, fmt.Sprintf(f+"\n", a...)) }
func (l *Logger) Info(a ...interface{})             { l.output(InfoLog, fmt.Sprintln(a...)) }
func (l *Logger) Infof(f string, a ...interface{})  { l.output(InfoLog, fmt.Sprintf(f+"\n", a...)) }
func (l *Logger) Warning(a ...interface{})          { l.output(WarningLog, fmt.Sprintln(a...)) }
func (l *Logger) Warningf(f string, a ...interface{}) {
	l.output(WarningLog, fmt.Sprintf(f+"\n", a...))
}
func (l *Logger) Error(a ...interface{})            { l.output(ErrorLog, fmt.Sprintln(a...)) }
func (l *Logger) Errorf(f string, a ...interface{}) { l.output(ErrorLog, fmt.Sprintf(f+"\n", a...)) }

func Debug(a ...interface{})              { Log.Debug(a...) }
func Debugf(f string, a ...interface{})   { Log.Debugf(f, a...) }
func Info(a ...interface{})               { Log.Info(a...) }
func Infof(f string, a ...interface{})    { Log.Infof(f, a...) }
func Warning(a ...interface{})            { Log.Warning(a...) }
func Warningf(f string, a ...interface{}) { Log.Warningf(f, a...) }
func Error(a ...interface{})              { Log.Error(a...) }
func Errorf(f string, a ...interface{})   { Log.Errorf(f, a...) }
