package services

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Level is the severity of a Notice
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	}
	return "info"
}

// Notice is a user-facing outcome message
type Notice struct {
	Level   Level
	Title   string
	Message string
	Err     error
	Time    time.Time
}

// IsZero reports whether the notice carries nothing
func (n Notice) IsZero() bool {
	return n.Message == "" && n.Title == "" && n.Err == nil
}

// SuccessNotice builds a success notice
func SuccessNotice(message string) Notice {
	return Notice{Level: LevelSuccess, Title: "Success", Message: message, Time: time.Now()}
}

// InfoNotice builds an informational notice
func InfoNotice(message string) Notice {
	return Notice{Level: LevelInfo, Title: "Info", Message: message, Time: time.Now()}
}

// ValidationNotice builds a notice for input rejected before any request
func ValidationNotice(message string) Notice {
	return Notice{Level: LevelWarning, Title: "Validation Error", Message: message, Time: time.Now()}
}

// ErrorNotice builds an error notice; err is kept for logging
func ErrorNotice(message string, err error) Notice {
	return Notice{Level: LevelError, Title: "Error", Message: message, Err: err, Time: time.Now()}
}

// Notifier fans notices out to subscribers, called synchronously in subscription order.
type Notifier struct {
	mu     sync.RWMutex
	subs   map[int]func(Notice)
	next   int
	logger *zap.Logger
}

// NewNotifier creates a notifier that logs error notices to logger
func NewNotifier(logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{subs: make(map[int]func(Notice)), logger: logger}
}

// Subscribe registers fn and returns a function that removes it
func (n *Notifier) Subscribe(fn func(Notice)) (cancel func()) {
	n.mu.Lock()
	id := n.next
	n.next++
	n.subs[id] = fn
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

// Publish delivers notice to every subscriber
func (n *Notifier) Publish(notice Notice) {
	if n == nil || notice.IsZero() {
		return
	}
	if notice.Time.IsZero() {
		notice.Time = time.Now()
	}
	if notice.Level == LevelError {
		n.logger.Error(notice.Message, zap.Error(notice.Err))
	} else {
		n.logger.Debug("notice", zap.String("level", notice.Level.String()), zap.String("message", notice.Message))
	}

	n.mu.RLock()
	subs := make([]func(Notice), 0, len(n.subs))
	for id := 0; id < n.next; id++ {
		if fn, ok := n.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	n.mu.RUnlock()

	for _, fn := range subs {
		fn(notice)
	}
}
