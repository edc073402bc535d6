package webfetch

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"curator/config"
)

// BrowserSession drives a headless browser for sources whose content is
// rendered by JavaScript. Sessions are expensive scoped resources: Close
// releases the tab, the browser process, and the allocator on every exit
// path and is safe to call more than once.
type BrowserSession struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc

	headers      map[string]string
	waitSelector string

	mu     sync.Mutex
	closed bool
}

// NewBrowserSession launches a headless browser configured with the
// source's proxy, user agent, and extra headers. waitSelector, when set,
// is waited on before the DOM of every fetched page is captured.
func NewBrowserSession(cfg TransportConfig, waitSelector string) (*BrowserSession, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if cfg.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.Proxy))
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent
	}
	opts = append(opts, chromedp.UserAgent(ua))

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	session := &BrowserSession{
		tabCtx:       tabCtx,
		tabCancel:    tabCancel,
		allocCancel:  allocCancel,
		headers:      cfg.Headers,
		waitSelector: waitSelector,
	}

	// Start the browser now so launch failures surface here, not on the
	// first navigation.
	if err := chromedp.Run(tabCtx); err != nil {
		session.Close()
		return nil, err
	}

	return session, nil
}

// FetchRendered navigates to url and returns the rendered DOM. When a
// selector is given the session waits for it to become visible; otherwise
// it waits for the page's network to go idle. On timeout the partial DOM is
// salvaged and returned rather than failing: partial content is preferred
// over none.
func (s *BrowserSession) FetchRendered(ctx context.Context, url, selector string) (string, error) {
	log.Printf("[webfetch] Browser fetch: %s, selector=%q", url, selector)

	actions := []chromedp.Action{}
	if len(s.headers) > 0 {
		extra := network.Headers{}
		for k, v := range s.headers {
			extra[k] = v
		}
		actions = append(actions, network.Enable(), network.SetExtraHTTPHeaders(extra))
	}
	var idle *networkIdleWaiter
	if selector == "" {
		// Without a selector the DOM-ready event is too early for pages
		// that fill in content over XHR after load. Wait for the network
		// to go quiet instead; the listener must be armed before
		// navigation so the lifecycle event is not missed.
		idle = newNetworkIdleWaiter()
		actions = append(actions, idle.listen())
	}
	actions = append(actions, chromedp.Navigate(url))

	if selector != "" {
		actions = append(actions, chromedp.WaitVisible(selector, chromedp.ByQuery))
	} else {
		actions = append(actions, idle.wait())
	}

	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	navCtx, cancel := context.WithTimeout(s.tabCtx, config.BrowserNavigationTimeout)
	defer cancel()
	if ctx != nil {
		// Respect caller cancellation on top of the navigation timeout.
		go func() {
			select {
			case <-ctx.Done():
				cancel()
			case <-navCtx.Done():
			}
		}()
	}

	err := chromedp.Run(navCtx, actions...)
	if err == nil {
		return html, nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		log.Printf("[webfetch] Browser timeout for %s, salvaging partial DOM", url)
		salvageCtx, salvageCancel := context.WithTimeout(s.tabCtx, config.BrowserSelectorTimeout)
		defer salvageCancel()

		var partial string
		if salvageErr := chromedp.Run(salvageCtx, chromedp.OuterHTML("html", &partial, chromedp.ByQuery)); salvageErr == nil {
			return partial, nil
		}
	}

	return "", err
}

// networkIdleWaiter bridges the page lifecycle "networkIdle" event into an
// awaitable action. listen must run before navigation, wait after.
type networkIdleWaiter struct {
	idle chan struct{}
}

func newNetworkIdleWaiter() *networkIdleWaiter {
	return &networkIdleWaiter{idle: make(chan struct{})}
}

func (w *networkIdleWaiter) signal() {
	select {
	case <-w.idle:
	default:
		close(w.idle)
	}
}

func (w *networkIdleWaiter) listen() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		chromedp.ListenTarget(ctx, func(ev interface{}) {
			if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkIdle" {
				w.signal()
			}
		})
		return page.SetLifecycleEventsEnabled(true).Do(ctx)
	})
}

func (w *networkIdleWaiter) wait() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		select {
		case <-w.idle:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// FetchPage fetches one rendered page. The browser cannot observe
// Last-Modified, so the reported time is always zero.
func (s *BrowserSession) FetchPage(ctx context.Context, url string) ([]byte, time.Time, error) {
	html, err := s.FetchRendered(ctx, url, s.waitSelector)
	if err != nil {
		return nil, time.Time{}, err
	}
	return []byte(html), time.Time{}, nil
}

// Close tears down the tab, browser, and allocator. Idempotent.
func (s *BrowserSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.tabCancel()
	s.allocCancel()
	log.Printf("[webfetch] Browser session closed")
}
