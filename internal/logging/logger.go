package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fatih/color"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel разбирает уровень из строки конфигурации; неизвестное значение даёт INFO
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TRACE
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

var levelColors = map[LogLevel]*color.Color{
	TRACE: color.New(color.FgHiBlack),
	DEBUG: color.New(color.FgCyan),
	INFO:  color.New(color.FgGreen),
	WARN:  color.New(color.FgYellow),
	ERROR: color.New(color.FgRed, color.Bold),
}

// Options настройки логгера
type Options struct {
	Dir          string // пустая строка отключает файловый вывод
	MaxSizeMB    int
	MaxBackups   int
	MaxAgeDays   int
	ConsoleLevel LogLevel
	FileLevel    LogLevel
	Console      io.Writer // по умолчанию os.Stdout
}

// sinks общие приёмники, разделяемые логгерами компонентов
type sinks struct {
	mu              sync.Mutex
	consoleLogger   *log.Logger
	fileLogger      *log.Logger
	file            io.Closer
	minConsoleLevel LogLevel
	minFileLevel    LogLevel
}

// Logger представляет логгер компонента
type Logger struct {
	component string
	out       *sinks
}

// NewLogger создаёт логгер с выводом в консоль и (опционально) в ротируемый файл
func NewLogger(component string, opts Options) (*Logger, error) {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	s := &sinks{
		consoleLogger:   log.New(console, "", log.LstdFlags),
		minConsoleLevel: opts.ConsoleLevel,
		minFileLevel:    opts.FileLevel,
	}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("ошибка создания директории логов: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, component+".log"),
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}
		s.fileLogger = log.New(file, "", log.LstdFlags)
		s.file = file
	}

	return &Logger{component: component, out: s}, nil
}

// NewConsoleLogger создаёт логгер только с консольным выводом
func NewConsoleLogger(component string, w io.Writer, level LogLevel) *Logger {
	l, _ := NewLogger(component, Options{Console: w, ConsoleLevel: level, FileLevel: level})
	return l
}

// With возвращает логгер другого компонента с теми же приёмниками
func (l *Logger) With(component string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{component: component, out: l.out}
}

// Component имя компонента
func (l *Logger) Component() string {
	if l == nil {
		return ""
	}
	return l.component
}

// Close закрывает файловый приёмник
func (l *Logger) Close() error {
	if l == nil || l.out.file == nil {
		return nil
	}
	return l.out.file.Close()
}

func (l *Logger) Trace(format string, args ...interface{}) { l.log(TRACE, format, args...) }
func (l *Logger) Debug(format string, args ...interface{}) { l.log(DEBUG, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.log(INFO, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(WARN, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(ERROR, format, args...) }

// log nil-логгер ничего не делает, чтобы пакеты можно было использовать без настройки
func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if l == nil || l.out == nil {
		return
	}

	msg := fmt.Sprintf(format, args...)
	s := l.out
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fileLogger != nil && level >= s.minFileLevel {
		s.fileLogger.Printf("[%s] [%s] %s", level, l.component, msg)
	}
	if level >= s.minConsoleLevel {
		tag := levelColors[level].Sprintf("[%s]", level)
		s.consoleLogger.Printf("%s [%s] %s", tag, l.component, msg)
	}
}
