package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/robalyx/doorbell/internal/setup/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Manager handles the creation and management of log files and directories.
// Each process run gets a timestamped session directory with separate main
// and database log files.
type Manager struct {
	instanceID    string
	logDir        string
	sessionDir    string
	level         string
	maxLogsToKeep int
}

// NewManager creates a new logging manager and rotates old log sessions.
func NewManager(logDir string, debugCfg *config.Debug) *Manager {
	m := &Manager{
		instanceID:    uuid.New().String(),
		logDir:        logDir,
		level:         debugCfg.LogLevel,
		maxLogsToKeep: debugCfg.MaxLogsToKeep,
	}

	if m.level == "" {
		m.level = "info"
	}

	if m.maxLogsToKeep <= 0 {
		m.maxLogsToKeep = 10
	}

	return m
}

// InstanceID returns the unique identifier of this program instance.
func (m *Manager) InstanceID() string {
	return m.instanceID
}

// GetLoggers initializes the main and database loggers. The main logger
// writes to both the console and the session's main.log; the database
// logger only writes to database.log to keep query noise out of the
// console.
func (m *Manager) GetLoggers() (*zap.Logger, *zap.Logger, error) {
	if err := m.setupLogDirectories(); err != nil {
		return nil, nil, err
	}

	mainLogger, err := m.initLogger(filepath.Join(m.sessionDir, "main.log"), true)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create main logger: %w", err)
	}

	dbLogger, err := m.initLogger(filepath.Join(m.sessionDir, "database.log"), false)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database logger: %w", err)
	}

	return mainLogger, dbLogger, nil
}

// setupLogDirectories creates the session directory and prunes sessions
// beyond the retention limit.
func (m *Manager) setupLogDirectories() error {
	if err := os.MkdirAll(m.logDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	sessionDir := filepath.Join(m.logDir, time.Now().Format("2006-01-02_15-04-05"))
	if err := os.MkdirAll(sessionDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	m.sessionDir = sessionDir

	if err := m.rotateLogSessions(); err != nil {
		return fmt.Errorf("failed to rotate log sessions: %w", err)
	}

	return nil
}

// rotateLogSessions removes the oldest session directories beyond the
// retention limit.
func (m *Manager) rotateLogSessions() error {
	sessions, err := filepath.Glob(filepath.Join(m.logDir, "*"))
	if err != nil {
		return err
	}

	if len(sessions) <= m.maxLogsToKeep {
		return nil
	}

	sort.Strings(sessions)

	for _, session := range sessions[:len(sessions)-m.maxLogsToKeep] {
		if err := os.RemoveAll(session); err != nil {
			return err
		}
	}

	return nil
}

// initLogger creates a zap logger writing to the given file, optionally
// teeing to the console.
func (m *Manager) initLogger(path string, console bool) (*zap.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(m.level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file %s: %w", path, err)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(file), zapLevel),
	}

	if console {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(os.Stderr),
			zapLevel,
		))
	}

	return zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Development(),
	), nil
}
