package services

import (
	"context"
	"errors"
	"sync"

	"github.com/tracecmd/backend/internal/domain"
	"go.uber.org/zap"
)

func nopLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

type fakeFiles struct {
	mu        sync.Mutex
	existing  map[string]bool
	existErr  error
	deleteErr error
	deleted   []string
	checked   []string
}

func newFakeFiles(paths ...string) *fakeFiles {
	f := &fakeFiles{existing: map[string]bool{}}
	for _, p := range paths {
		f.existing[p] = true
	}
	return f
}

func (f *fakeFiles) FileExist(path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checked = append(f.checked, path)
	if f.existErr != nil {
		return false, f.existErr
	}
	return f.existing[path], nil
}

func (f *fakeFiles) DeleteFile(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, path)
	delete(f.existing, path)
	return nil
}

// journal records collaborator calls in order across fakes
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(e string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.entries))
	copy(out, j.entries)
	return out
}

type recordingListener struct {
	name string
	j    *journal
	mu   sync.Mutex
	got  []domain.Notification
}

func (l *recordingListener) Notify(n domain.Notification) {
	l.mu.Lock()
	l.got = append(l.got, n)
	l.mu.Unlock()
	if l.j != nil {
		l.j.add("notify:" + l.name)
	}
}

func (l *recordingListener) notifications() []domain.Notification {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Notification(nil), l.got...)
}

type panickingListener struct{}

func (panickingListener) Notify(domain.Notification) { panic("listener exploded") }

type fakeProgress struct {
	j              *journal
	mu             sync.Mutex
	title          string
	shown          int
	dismissed      int
	panicOnDismiss bool
}

func (p *fakeProgress) Show(title string) {
	p.mu.Lock()
	p.title = title
	p.shown++
	p.mu.Unlock()
	p.j.add("progress:show")
}

func (p *fakeProgress) Dismiss() {
	p.mu.Lock()
	p.dismissed++
	p.mu.Unlock()
	p.j.add("progress:dismiss")
	if p.panicOnDismiss {
		panic("progress exploded")
	}
}

func (p *fakeProgress) counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shown, p.dismissed
}

type shownError struct {
	code *domain.ErrorCode
	msg  string
}

type fakeDisplay struct {
	j        *journal
	mu       sync.Mutex
	messages []string
	errors   []shownError
	panics   bool
}

func (d *fakeDisplay) ShowMessage(msg string) {
	d.mu.Lock()
	d.messages = append(d.messages, msg)
	d.mu.Unlock()
	d.j.add("display:message")
	if d.panics {
		panic("display exploded")
	}
}

func (d *fakeDisplay) ShowError(code *domain.ErrorCode, msg string) {
	d.mu.Lock()
	d.errors = append(d.errors, shownError{code: code, msg: msg})
	d.mu.Unlock()
	d.j.add("display:error")
	if d.panics {
		panic("display exploded")
	}
}

func (d *fakeDisplay) shownErrors() []shownError {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]shownError(nil), d.errors...)
}

type fakeHook struct {
	j     *journal
	err   error
	panic bool
	calls int
	mu    sync.Mutex
}

func (h *fakeHook) Refresh(ctx context.Context) error {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()
	h.j.add("hook:refresh")
	if h.panic {
		panic("refresh exploded")
	}
	return h.err
}

func (h *fakeHook) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

type fakeDiagnostics struct{ used float64 }

func (d fakeDiagnostics) MemoryUsedPercent() (float64, error) { return d.used, nil }

var errBoom = errors.New("boom")
