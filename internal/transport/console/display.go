package console

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tracecmd/backend/internal/domain"
)

// Display prints task messages and errors to a terminal
type Display struct {
	mu  sync.Mutex
	out io.Writer
}

func NewDisplay(out io.Writer) *Display {
	return &Display{out: out}
}

func (d *Display) ShowMessage(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintln(d.out, MessageStyle.Render(msg))
}

func (d *Display) ShowError(code *domain.ErrorCode, msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	title := code.Title
	if title == "" {
		title = code.Name
	}
	fmt.Fprintln(d.out, ErrorTitle.Render(title))
	fmt.Fprintln(d.out, ErrorBody.Render(fmt.Sprintf("%d: %s", code.Code, msg)))
}

// Rejection prints a validation category in the "code: message" form
func (d *Display) Rejection(code *domain.ErrorCode, appName string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintln(d.out, ErrorBody.Render(fmt.Sprintf("%d: %s", code.Code, code.Format(appName))))
}

// Progress prints the task title when shown and the elapsed time when dismissed
type Progress struct {
	mu      sync.Mutex
	out     io.Writer
	title   string
	started time.Time
	shown   bool
}

func NewProgress(out io.Writer) *Progress {
	return &Progress{out: out}
}

func (p *Progress) Show(title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.title = title
	p.started = time.Now()
	p.shown = true
	fmt.Fprintln(p.out, ProgressStyle.Render(title+"..."))
}

func (p *Progress) Dismiss() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.shown {
		return
	}
	p.shown = false
	elapsed := time.Since(p.started).Round(time.Millisecond)
	fmt.Fprintln(p.out, MutedStyle.Render(fmt.Sprintf("%s finished in %s", p.title, elapsed)))
}

// Visible reports whether Show was called without a matching Dismiss
func (p *Progress) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shown
}
