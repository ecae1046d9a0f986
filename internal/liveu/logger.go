package liveu

import "github.com/sirupsen/logrus"

// Logger is the logging surface the LiveU client needs
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// LogrusAdapter adapts logrus.Logger to our Logger interface
type LogrusAdapter struct {
	logger *logrus.Logger
}

// NewLogrusAdapter creates a logger adapter for logrus. Entries carry a
// component field so API traffic can be told apart from the chat side.
func NewLogrusAdapter(logger *logrus.Logger) *LogrusAdapter {
	return &LogrusAdapter{logger: logger}
}

func (la *LogrusAdapter) entry() *logrus.Entry {
	return la.logger.WithField("component", "liveu")
}

func (la *LogrusAdapter) Debugf(format string, args ...interface{}) {
	la.entry().Debugf(format, args...)
}

func (la *LogrusAdapter) Infof(format string, args ...interface{}) {
	la.entry().Infof(format, args...)
}

func (la *LogrusAdapter) Warnf(format string, args ...interface{}) {
	la.entry().Warnf(format, args...)
}

func (la *LogrusAdapter) Errorf(format string, args ...interface{}) {
	la.entry().Errorf(format, args...)
}

// TestLogger implements Logger interface using testing.T
type TestLogger struct {
	t interface {
		Logf(format string, args ...interface{})
	}
}

// NewTestLogger creates a logger that uses testing.T
func NewTestLogger(t interface {
	Logf(format string, args ...interface{})
}) *TestLogger {
	return &TestLogger{t: t}
}

func (tl *TestLogger) Debugf(format string, args ...interface{}) {
	tl.t.Logf("[DEBUG] "+format, args...)
}

func (tl *TestLogger) Infof(format string, args ...interface{}) {
	tl.t.Logf("[INFO] "+format, args...)
}

func (tl *TestLogger) Warnf(format string, args ...interface{}) {
	tl.t.Logf("[WARN] "+format, args...)
}

func (tl *TestLogger) Errorf(format string, args ...interface{}) {
	tl.t.Logf("[ERROR] "+format, args...)
}
