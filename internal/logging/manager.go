package logging

import (
	"sync"
)

// LoggerManager раздаёт логгеры компонентов поверх общего базового логгера
type LoggerManager struct {
	mu      sync.RWMutex
	base    *Logger
	loggers map[string]*Logger
}

var (
	defaultMu     sync.RWMutex
	defaultLogger *Logger
	globalManager = &LoggerManager{loggers: make(map[string]*Logger)}
)

// InitDefaultLogger инициализирует глобальный логгер процесса
func InitDefaultLogger(component string, opts Options) error {
	l, err := NewLogger(component, opts)
	if err != nil {
		return err
	}
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()

	globalManager.mu.Lock()
	globalManager.base = l
	globalManager.loggers = make(map[string]*Logger)
	globalManager.mu.Unlock()
	return nil
}

// CloseDefaultLogger закрывает глобальный логгер
func CloseDefaultLogger() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger != nil {
		defaultLogger.Close()
		defaultLogger = nil
	}
}

// Default возвращает глобальный логгер (nil, если не инициализирован)
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	return globalManager
}

// GetLogger возвращает логгер компонента, создавая его при необходимости
func (lm *LoggerManager) GetLogger(component string) *Logger {
	lm.mu.RLock()
	if l, ok := lm.loggers[component]; ok {
		lm.mu.RUnlock()
		return l
	}
	lm.mu.RUnlock()

	lm.mu.Lock()
	defer lm.mu.Unlock()
	if l, ok := lm.loggers[component]; ok {
		return l
	}
	if lm.base == nil {
		return nil
	}
	l := lm.base.With(component)
	lm.loggers[component] = l
	return l
}

// ListComponents возвращает список зарегистрированных компонентов
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	components := make([]string, 0, len(lm.loggers))
	for component := range lm.loggers {
		components = append(components, component)
	}
	return components
}

// GetComponentLogger возвращает логгер компонента из глобального менеджера
func GetComponentLogger(component string) *Logger {
	return globalManager.GetLogger(component)
}

func GetWorldLogger() *Logger    { return GetComponentLogger("world") }
func GetStorageLogger() *Logger  { return GetComponentLogger("storage") }
func GetRegistryLogger() *Logger { return GetComponentLogger("registry") }
func GetAPILogger() *Logger      { return GetComponentLogger("api") }

// Удобные функции для глобального логгера
func Trace(format string, args ...interface{}) { Default().Trace(format, args...) }
func Debug(format string, args ...interface{}) { Default().Debug(format, args...) }
func Info(format string, args ...interface{})  { Default().Info(format, args...) }
func Warn(format string, args ...interface{})  { Default().Warn(format, args...) }
func Error(format string, args ...interface{}) { Default().Error(format, args...) }
