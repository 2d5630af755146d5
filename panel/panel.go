// Package panel keeps the user-facing state of an export session: the
// status line, the readiness attempt counter and the last Ready result.
// Its Copy and Download actions always scrape again before exporting.
package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/use-agent/buzzexport/export"
	"github.com/use-agent/buzzexport/models"
	"github.com/use-agent/buzzexport/poller"
)

// Status lines shown to the user.
const (
	StatusWaiting    = "Waiting for gradebook table…"
	StatusGaveUp     = "Couldn’t detect the table. Refresh and try again."
	StatusStopped    = "Stopped."
	StatusCopied     = "Copied JSON to clipboard ✅"
	StatusDownloaded = "Downloaded JSON ✅"
	StatusDownloadMD = "Downloaded Markdown ✅"
)

// clipboardBlocked is the message of a failed Copy.
const clipboardBlocked = "Clipboard blocked. Use Download JSON instead."

// ErrNotReady is wrapped by every error returned for a NotReady scrape.
var ErrNotReady = errors.New("gradebook not ready")

// Snapshot is a point-in-time copy of the panel state.
type Snapshot struct {
	Text        string
	State       poller.State
	Attempt     int
	MaxAttempts int
	UpdatedAt   time.Time
	LastReady   *models.Outcome
}

// Panel is safe for concurrent use. The poller reports into it while API
// handlers and CLI actions read it and trigger fresh scrapes.
type Panel struct {
	scrape poller.ExtractFunc
	copyFn func([]byte) error
	now    func() time.Time
	notify func(string)

	mu          sync.RWMutex
	text        string
	state       poller.State
	attempt     int
	maxAttempts int
	updatedAt   time.Time
	last        *models.Outcome
}

// Option configures a Panel.
type Option func(*Panel)

// WithClipboard replaces the system clipboard writer.
func WithClipboard(fn func([]byte) error) Option {
	return func(p *Panel) { p.copyFn = fn }
}

// WithNotify registers fn to receive every new status line. fn runs with
// the panel locked and must not call back into it.
func WithNotify(fn func(string)) Option {
	return func(p *Panel) { p.notify = fn }
}

// WithClock overrides the clock used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Panel) { p.now = now }
}

// New returns a panel whose actions use scrape for every fresh extraction.
func New(scrape poller.ExtractFunc, opts ...Option) *Panel {
	p := &Panel{
		scrape: scrape,
		copyFn: export.Copy,
		now:    time.Now,
		text:   StatusWaiting,
		state:  poller.StatePolling,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.updatedAt = p.now()
	return p
}

// Watch runs the readiness poll and reports every attempt into the panel.
func (p *Panel) Watch(ctx context.Context, policy poller.Policy) poller.Result {
	res := poller.WaitUntilReady(ctx, p.scrape, policy, p.Observe)
	p.Finish(res)
	return res
}

// Observe records a NotReady attempt. It has the poller.ProgressFunc shape.
func (p *Panel) Observe(t poller.Tick) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempt = t.Attempt
	p.maxAttempts = t.MaxAttempts
	p.state = poller.StatePolling
	p.setText(fmt.Sprintf("%s (%d/%d)", StatusWaiting, t.Attempt, t.MaxAttempts))
}

// Finish records the end of a poll.
func (p *Panel) Finish(res poller.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = res.State
	p.attempt = res.Attempts
	if res.MaxAttempts > 0 {
		p.maxAttempts = res.MaxAttempts
	}

	switch res.State {
	case poller.StateSucceeded:
		p.remember(res.Outcome)
		p.setText(readyText(res.Outcome))
	case poller.StateExhausted:
		p.setText(StatusGaveUp)
	case poller.StateCanceled:
		p.setText(StatusStopped)
	}
	slog.Info("readiness poll finished",
		"state", res.State.String(),
		"attempts", res.Attempts,
		"status", p.text,
	)
}

// Scrape performs a fresh extraction. A NotReady outcome is returned along
// with an error wrapping ErrNotReady whose message is "Not ready: <reason>".
func (p *Panel) Scrape(ctx context.Context) (models.Outcome, error) {
	o := p.scrape(ctx)
	if !o.IsReady() {
		return o, notReady(o)
	}
	p.mu.Lock()
	p.remember(o)
	p.mu.Unlock()
	return o, nil
}

// Copy scrapes again and puts the JSON export on the clipboard.
func (p *Panel) Copy(ctx context.Context) (models.Outcome, error) {
	o, err := p.Scrape(ctx)
	if err != nil {
		return o, err
	}
	data, err := export.JSON(o)
	if err != nil {
		return o, err
	}
	if err := p.copyFn(data); err != nil {
		return o, models.NewExportError(models.ErrCodeClipboard, clipboardBlocked, err)
	}
	p.setStatus(StatusCopied)
	return o, nil
}

// Download scrapes again and writes the export to path, returning the path
// actually written (markdown exports get a .md extension).
func (p *Panel) Download(ctx context.Context, path string, format models.ExportFormat) (string, models.Outcome, error) {
	o, err := p.Scrape(ctx)
	if err != nil {
		return "", o, err
	}
	data, err := export.Render(o, format)
	if err != nil {
		return "", o, err
	}
	path = export.FileName(path, format)
	if err := export.WriteFile(path, data); err != nil {
		return "", o, err
	}
	if format == models.FormatMarkdown {
		p.setStatus(StatusDownloadMD)
	} else {
		p.setStatus(StatusDownloaded)
	}
	slog.Info("export written", "path", path, "courses", o.CourseCount())
	return path, o, nil
}

// LastReady returns the most recent Ready outcome seen by the panel.
func (p *Panel) LastReady() (models.Outcome, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return models.Outcome{}, false
	}
	return *p.last, true
}

// Status returns the current panel state.
func (p *Panel) Status() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := Snapshot{
		Text:        p.text,
		State:       p.state,
		Attempt:     p.attempt,
		MaxAttempts: p.maxAttempts,
		UpdatedAt:   p.updatedAt,
	}
	if p.last != nil {
		last := *p.last
		s.LastReady = &last
	}
	return s
}

func (p *Panel) setStatus(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setText(text)
}

// setText requires p.mu.
func (p *Panel) setText(text string) {
	p.text = text
	p.updatedAt = p.now()
	if p.notify != nil {
		p.notify(text)
	}
}

// remember requires p.mu.
func (p *Panel) remember(o models.Outcome) {
	if o.IsReady() {
		p.last = &o
	}
}

func readyText(o models.Outcome) string {
	return fmt.Sprintf("Ready ✅ Found %d courses.", o.CourseCount())
}

func notReady(o models.Outcome) error {
	return models.NewExportError(models.ErrCodeNotReady, "Not ready: "+string(o.Reason()), ErrNotReady)
}
