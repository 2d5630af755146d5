package scraper

import (
	"context"
	"log/slog"
	"regexp"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/buzzexport/config"
	"github.com/use-agent/buzzexport/models"
)

// BrowserSource reads snapshots from a tab in a real Chrome. It either
// launches its own browser or attaches to the user's browser over CDP.
//
// A tab that already shows the page is reused, so the user's logged-in
// session is scraped as is. Otherwise a new tab is opened and navigated.
type BrowserSource struct {
	browser  *rod.Browser
	page     *rod.Page
	cfg      config.BrowserConfig
	attached bool
	ownsPage bool

	mu sync.Mutex
}

// NewBrowserSource connects to a browser and selects the tab to scrape.
// pattern may be nil, in which case a new tab is always opened.
func NewBrowserSource(ctx context.Context, cfg config.BrowserConfig, pageURL string, pattern *regexp.Regexp) (*BrowserSource, error) {
	s := &BrowserSource{cfg: cfg, attached: cfg.CDPURL != ""}

	var err error
	if s.attached {
		s.browser, err = attach(cfg)
	} else {
		s.browser, err = launch(cfg)
	}
	if err != nil {
		return nil, err
	}

	if page := findPage(s.browser, pattern); page != nil {
		s.page = page
		return s, nil
	}
	if err := s.openPage(ctx, pageURL); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// launch starts a local Chrome. The window is headful unless configured
// otherwise, because the gradebook sits behind a login.
func launch(cfg config.BrowserConfig) (*rod.Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.UserDataDir != "" {
		l = l.UserDataDir(cfg.UserDataDir)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "TranslateUI")
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewExportError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL, "headless", cfg.Headless)

	browser := rod.New().ControlURL(controlURL)
	if !cfg.Headless {
		// A visible window keeps the size the user gives it.
		browser = browser.NoDefaultDevice()
	}
	if err := browser.Connect(); err != nil {
		return nil, models.NewExportError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}
	return browser, nil
}

// attach connects to the user's own Chrome. Device emulation is disabled so
// the user's tabs are not resized.
func attach(cfg config.BrowserConfig) (*rod.Browser, error) {
	browser := rod.New().ControlURL(cfg.CDPURL).NoDefaultDevice()
	if err := browser.Connect(); err != nil {
		return nil, models.NewExportError(
			models.ErrCodeBrowserCrash,
			"failed to connect to CDP URL",
			err,
		)
	}
	slog.Info("attached to browser", "cdpURL", cfg.CDPURL)
	return browser, nil
}

// findPage returns the first open tab whose URL matches pattern. Target info
// is used instead of evaluating script so unrelated tabs are never touched.
func findPage(browser *rod.Browser, pattern *regexp.Regexp) *rod.Page {
	if pattern == nil {
		return nil
	}
	pages, err := browser.Pages()
	if err != nil {
		slog.Debug("listing tabs failed", "error", err)
		return nil
	}
	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			continue
		}
		if pattern.MatchString(info.URL) {
			slog.Info("reusing open tab", "url", info.URL)
			return p
		}
	}
	return nil
}

// openPage creates a tab and navigates it to pageURL.
//
// Stealth and extra headers are installed before navigation; they only
// take effect for navigations that happen after they are set.
func (s *BrowserSource) openPage(ctx context.Context, pageURL string) error {
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return models.NewExportError(
			models.ErrCodeBrowserCrash,
			"failed to open tab",
			err,
		)
	}
	s.page = page
	s.ownsPage = true

	if s.cfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}
	if len(s.cfg.Headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(s.cfg.Headers),
		}.Call(page)
	}

	if s.cfg.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.NavigationTimeout)
		defer cancel()
	}
	p := page.Context(ctx)

	slog.Info("opening page", "url", pageURL)
	if err := p.Navigate(pageURL); err != nil {
		return categorizeError(err, "navigation to gradebook failed")
	}
	if err := p.WaitLoad(); err != nil {
		slog.Debug("load event not observed, continuing", "error", err)
	}
	return nil
}

// Name implements Source.
func (s *BrowserSource) Name() string {
	if s.attached {
		return "cdp"
	}
	return "browser"
}

// Close implements Source. An attached browser belongs to the user: only a
// tab opened by this source is closed. A launched browser is shut down.
func (s *BrowserSource) Close() error {
	if s.attached {
		if s.ownsPage && s.page != nil {
			return s.page.Close()
		}
		return nil
	}
	slog.Info("closing browser")
	return s.browser.Close()
}
