package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/evmstore/types"
)

// LogWriter owns the outputs opened by InitLogger.
type LogWriter struct {
	file *os.File
}

// Dispose closes the log file, if one was opened.
func (w *LogWriter) Dispose() {
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
}

// fileHook mirrors entries at or above its level into a log file.
type fileHook struct {
	writer    io.Writer
	levels    []logrus.Level
	formatter logrus.Formatter
}

func (h *fileHook) Levels() []logrus.Level {
	return h.levels
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(line)
	return err
}

// InitLogger configures the standard logrus logger from the logging config
// and returns it along with the writer that has to be disposed on shutdown.
func InitLogger(cfg *types.Config) (*LogWriter, *logrus.Logger) {
	logger := logrus.StandardLogger()
	logWriter := &LogWriter{}

	if cfg.Logging.OutputStderr {
		logger.SetOutput(os.Stderr)
	} else {
		logger.SetOutput(os.Stdout)
	}

	level := logrus.InfoLevel
	if cfg.Logging.OutputLevel != "" {
		parsed, err := logrus.ParseLevel(cfg.Logging.OutputLevel)
		if err != nil {
			logger.Warnf("invalid log level %q, using info", cfg.Logging.OutputLevel)
		} else {
			level = parsed
		}
	}
	logger.SetLevel(level)

	if cfg.Logging.FilePath != "" {
		fileLevel := level
		if cfg.Logging.FileLevel != "" {
			parsed, err := logrus.ParseLevel(cfg.Logging.FileLevel)
			if err == nil {
				fileLevel = parsed
			}
		}

		file, err := os.OpenFile(cfg.Logging.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Errorf("error opening log file %v: %v", cfg.Logging.FilePath, err)
		} else {
			logWriter.file = file
			logger.AddHook(&fileHook{
				writer:    file,
				levels:    logrus.AllLevels[:fileLevel+1],
				formatter: &logrus.JSONFormatter{},
			})
			if fileLevel > level {
				logger.SetLevel(fileLevel)
			}
		}
	}

	return logWriter, logger
}

// LogFatal logs a fatal error with callstack info that skips callerSkip many levels with arbitrarily many additional infos.
// callerSkip equal to 0 gives you info directly where LogFatal is called.
func LogFatal(err error, errorMsg interface{}, callerSkip int, additionalInfos ...map[string]interface{}) {
	logErrorInfo(err, callerSkip, additionalInfos...).Fatal(errorMsg)
}

// LogError logs an error with callstack info that skips callerSkip many levels with arbitrarily many additional infos.
// callerSkip equal to 0 gives you info directly where LogError is called.
func LogError(err error, errorMsg interface{}, callerSkip int, additionalInfos ...map[string]interface{}) {
	logErrorInfo(err, callerSkip, additionalInfos...).Error(errorMsg)
}

func logErrorInfo(err error, callerSkip int, additionalInfos ...map[string]interface{}) *logrus.Entry {
	logFields := logrus.NewEntry(logrus.StandardLogger())

	pc, fullFilePath, line, ok := runtime.Caller(callerSkip + 2)
	if ok {
		logFields = logFields.WithFields(logrus.Fields{
			"_file":     filepath.Base(fullFilePath),
			"_function": runtime.FuncForPC(pc).Name(),
			"_line":     line,
		})
	} else {
		logFields = logFields.WithField("runtime", "Callstack cannot be read")
	}

	// the wrapped chain is logged as errInfo_N fields, innermost error last
	chain := []string{}
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, e.Error())
	}
	for idx := 0; idx < len(chain)-1; idx++ {
		outer := chain[idx]
		if pos := strings.LastIndex(outer, chain[idx+1]); pos != -1 {
			outer = outer[:pos] + "~" + fmt.Sprintf("errInfo_%v", idx+1) + "~" + outer[pos+len(chain[idx+1]):]
		}
		logFields = logFields.WithField(fmt.Sprintf("errInfo_%v", idx), outer)
	}

	if err != nil {
		logFields = logFields.WithField("errType", fmt.Sprintf("%T", err)).WithError(err)
	}

	for _, infoMap := range additionalInfos {
		for name, info := range infoMap {
			logFields = logFields.WithField(name, info)
		}
	}

	return logFields
}
