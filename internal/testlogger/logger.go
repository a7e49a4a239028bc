package testlogger

import (
	"fmt"
	"sync"
)

// Logger records log lines so tests can assert on them. It never calls
// testing.T, as channels keep logging from their own goroutines after a test
// returns.
type Logger struct {
	mu      sync.Mutex
	entries []string
}

func (s *Logger) Error(err error, text, serviceName, sessionID string) {
	s.add(fmt.Sprintf("ERROR %s in service %s session %s: %s", text, serviceName, sessionID, err))
}

func (s *Logger) Info(text string, serviceName string, sessionID string) {
	s.add(fmt.Sprintf("INFO service %s; session %s; text '%s'", serviceName, sessionID, text))
}

func (s *Logger) Debug(text string, serviceName string, sessionID string) {
	s.add(fmt.Sprintf("DEBUG service %s; session %s; text '%s'", serviceName, sessionID, text))
}

func (s *Logger) Entries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.entries...)
}

func (s *Logger) add(line string) {
	s.mu.Lock()
	s.entries = append(s.entries, line)
	s.mu.Unlock()
}

func New() *Logger {
	return &Logger{}
}
