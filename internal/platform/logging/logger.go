// Package logging is the platform's hand-rolled leveled logger. Every
// service calls Init once at startup with its own service name, then uses
// the package-level Debug/Info/Warn/Error functions; the service name rides
// along on every line so aggregated output from all five processes stays
// distinguishable.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"paysaga/internal/platform/config"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "INFO"
	}
}

type Logger struct {
	level   Level
	format  string
	service string
	logger  *log.Logger
}

type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Service   string                 `json:"service"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

var defaultLogger *Logger

// Init wires the package-level logger for the named service. cfg.Format
// selects between "json" (the default for anything other than a local
// terminal) and a compact text rendering.
func Init(service string, cfg config.Logging) {
	defaultLogger = &Logger{
		level:   parseLevel(cfg.Level),
		format:  cfg.Format,
		service: service,
		logger:  log.New(os.Stdout, "", 0),
	}
}

func parseLevel(levelStr string) Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

func (l *Logger) log(level Level, message string, fields map[string]interface{}) {
	if level < l.level {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level.String(),
		Service:   l.service,
		Message:   message,
		Fields:    fields,
	}

	var output string
	if l.format == "json" {
		jsonData, _ := json.Marshal(entry)
		output = string(jsonData)
	} else {
		output = fmt.Sprintf("[%s] %s %s %s", entry.Timestamp, entry.Level, entry.Service, entry.Message)
		if len(fields) > 0 {
			fieldsStr, _ := json.Marshal(fields)
			output += fmt.Sprintf(" %s", fieldsStr)
		}
	}

	l.logger.Println(output)
}

func Debug(message string, fields ...map[string]interface{}) {
	if defaultLogger != nil {
		defaultLogger.log(DEBUG, message, firstOrNil(fields))
	}
}

func Info(message string, fields ...map[string]interface{}) {
	if defaultLogger != nil {
		defaultLogger.log(INFO, message, firstOrNil(fields))
	}
}

func Warn(message string, fields ...map[string]interface{}) {
	if defaultLogger != nil {
		defaultLogger.log(WARN, message, firstOrNil(fields))
	}
}

func Error(message string, err error, fields map[string]interface{}) {
	if defaultLogger != nil {
		if fields == nil {
			fields = make(map[string]interface{})
		}
		if err != nil {
			fields["error"] = err.Error()
		}
		defaultLogger.log(ERROR, message, fields)
	}
}

func firstOrNil(fields []map[string]interface{}) map[string]interface{} {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}
