package log

import "github.com/sirupsen/logrus"

// BadgerLogger implements the badger.Logger interface on top of a logrus entry
// Badger's informational chatter (compactions, value log replays) is demoted to debug
type BadgerLogger struct {
	*logrus.Entry
}

// NewBadgerLogger creates an adapter logging through entry
func NewBadgerLogger(entry *logrus.Entry) *BadgerLogger {
	return &BadgerLogger{entry.WithField("component", "badgerdb")}
}

// Errorf logs an error message
func (l *BadgerLogger) Errorf(f string, v ...interface{}) { l.Entry.Errorf(f, v...) }

// Warningf logs a warning message
func (l *BadgerLogger) Warningf(f string, v ...interface{}) { l.Entry.Warningf(f, v...) }

// Infof logs at debug level
func (l *BadgerLogger) Infof(f string, v ...interface{}) { l.Entry.Debugf(f, v...) }

// Debugf logs at trace level
func (l *BadgerLogger) Debugf(f string, v ...interface{}) { l.Entry.Tracef(f, v...) }
