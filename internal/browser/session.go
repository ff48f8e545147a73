// SPDX-License-Identifier: AGPL-3.0-only
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// ErrSessionLost marks failures where the underlying Chrome target is gone
// and only a full Restart can recover.
var ErrSessionLost = errors.New("browser: session lost")

type Options struct {
	Headless  bool
	Username  string
	Password  string
	AuthToken string
	LoginURL  string
	UserAgent string
}

// Session owns a single headless Chrome instance. All timeline access goes
// through it, and it can be torn down and re-established mid-run.
type Session struct {
	opts Options

	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc

	started bool
}

func NewSession(opts Options) *Session {
	if opts.LoginURL == "" {
		opts.LoginURL = "https://x.com/login"
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	return &Session{opts: opts}
}

func (s *Session) Start() error {

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(s.opts.UserAgent),
		chromedp.WindowSize(1920, 1200),
		chromedp.Flag("headless", s.opts.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		// js-flags expose window.gc so long scrape sessions can reclaim
		// memory between batches.
		chromedp.Flag("js-flags", "--expose-gc"),
	)

	s.allocCtx, s.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	s.ctx, s.cancel = chromedp.NewContext(s.allocCtx)

	if s.opts.AuthToken != "" {
		if err := s.setAuthCookie(); err != nil {
			s.Close()
			return fmt.Errorf("failed to set auth cookie: %w", err)
		}
	} else if s.opts.Username != "" {
		if err := s.login(); err != nil {
			s.Close()
			return fmt.Errorf("login failed: %w", err)
		}
	}

	s.started = true
	return nil
}

// Restart tears the browser down and brings a fresh instance up. The caller
// is responsible for navigating back and re-synchronizing its position.
func (s *Session) Restart() error {
	logrus.Warn("Restarting browser session...")
	s.Close()
	return s.Start()
}

func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	s.started = false
}

func (s *Session) setAuthCookie() error {
	return chromedp.Run(s.ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return network.SetCookie("auth_token", s.opts.AuthToken).
				WithDomain(".x.com").
				WithPath("/").
				WithSecure(true).
				WithHTTPOnly(true).
				Do(ctx)
		}),
	)
}

func (s *Session) login() error {
	return chromedp.Run(s.ctx,
		chromedp.Navigate(s.opts.LoginURL),
		chromedp.WaitVisible(`input[name="text"]`, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="text"]`, s.opts.Username+"\n", chromedp.ByQuery),
		chromedp.WaitVisible(`input[name="password"]`, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="password"]`, s.opts.Password+"\n", chromedp.ByQuery),
		chromedp.Sleep(5*time.Second),
	)
}

func (s *Session) Navigate(url string, settle time.Duration) error {
	err := chromedp.Run(s.ctx,
		chromedp.Navigate(url),
		chromedp.Sleep(settle),
	)
	return s.classify(err)
}

// Eval runs a JS expression on the current page and unmarshals the result
// into out. A nil out discards the result.
func (s *Session) Eval(js string, out interface{}, timeout time.Duration) error {
	ctx := s.ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, timeout)
		defer cancel()
	}
	err := chromedp.Run(ctx, chromedp.Evaluate(js, out))
	return s.classify(err)
}

// CollectGarbage forces a V8 GC pass. Requires the --expose-gc js flag.
func (s *Session) CollectGarbage() error {
	return s.Eval(`window.gc && window.gc()`, nil, 10*time.Second)
}

// classify maps chromedp transport-level failures onto ErrSessionLost so
// callers can tell a dead browser from an empty page.
func (s *Session) classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrSessionLost, err)
	}
	msg := err.Error()
	if strings.Contains(msg, "websocket") ||
		strings.Contains(msg, "target closed") ||
		strings.Contains(msg, "browser closed") ||
		strings.Contains(msg, "session closed") {
		return fmt.Errorf("%w: %v", ErrSessionLost, err)
	}
	return err
}
