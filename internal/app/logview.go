package app

import (
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2/data/binding"
)

const (
	logDebounceInterval = 150 * time.Millisecond
	logLineLimit        = 200
)

// logCapture is an io.Writer that keeps the last lines written to it and
// mirrors them into a binding for the log panel. Updates are debounced so a
// burst of log lines causes one refresh.
type logCapture struct {
	binding binding.String
	limit   int

	mu    sync.Mutex
	lines []string

	updateCh chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newLogCapture(b binding.String, limit int) *logCapture {
	if limit <= 0 {
		limit = logLineLimit
	}
	return &logCapture{binding: b, limit: limit}
}

func (l *logCapture) Write(p []byte) (int, error) {
	text := strings.ReplaceAll(string(p), "\r\n", "\n")
	l.mu.Lock()
	for _, part := range strings.Split(text, "\n") {
		if part == "" {
			continue
		}
		l.lines = append(l.lines, part)
	}
	if len(l.lines) > l.limit {
		l.lines = l.lines[len(l.lines)-l.limit:]
	}
	started := l.updateCh != nil
	l.mu.Unlock()

	if !started {
		l.flush()
		return len(p), nil
	}
	select {
	case l.updateCh <- struct{}{}:
	default:
	}
	return len(p), nil
}

// start launches the debounce loop. Until it is called every write flushes
// immediately.
func (l *logCapture) start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.updateCh != nil {
		return
	}
	l.updateCh = make(chan struct{}, 1)
	l.stopCh = make(chan struct{})
	l.wg.Add(1)
	go l.loop(l.updateCh, l.stopCh)
}

// stop ends the debounce loop after a final flush.
func (l *logCapture) stop() {
	l.mu.Lock()
	stopCh := l.stopCh
	l.mu.Unlock()
	if stopCh == nil {
		return
	}
	l.stopOnce.Do(func() { close(stopCh) })
	l.wg.Wait()
}

func (l *logCapture) loop(updates <-chan struct{}, stop <-chan struct{}) {
	defer l.wg.Done()
	timer := time.NewTimer(logDebounceInterval)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-stop:
			timer.Stop()
			l.flush()
			return
		case <-updates:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(logDebounceInterval)
		case <-timer.C:
			l.flush()
		}
	}
}

func (l *logCapture) flush() {
	l.mu.Lock()
	text := strings.Join(l.lines, "\n")
	l.mu.Unlock()
	_ = l.binding.Set(text)
}

func (l *logCapture) text() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}
