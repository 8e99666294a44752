// Package collector drives a Chrome instance over the DevTools protocol and
// gathers an environment snapshot from a live page.
package collector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/shortontech/goblade/internal/assets"
	"github.com/shortontech/goblade/internal/snapshot"
)

// ErrInvalidURL is returned for targets that are not absolute http(s) URLs.
var ErrInvalidURL = errors.New("collector: target must be an absolute http or https URL")

// Options configures the browser launched for a collection.
type Options struct {
	// ChromePath overrides the browser executable; empty uses the system lookup.
	ChromePath string
	Headless   bool
	// Stealth applies the launch flags commonly used to hide automation.
	Stealth   bool
	UserAgent string
	Timeout   time.Duration
	// SettleDelay waits after the page is ready before collecting.
	SettleDelay time.Duration
}

// DefaultOptions returns headless collection with a 30 second page budget.
func DefaultOptions() Options {
	return Options{
		Headless:    true,
		Timeout:     30 * time.Second,
		SettleDelay: 500 * time.Millisecond,
	}
}

// Collector gathers snapshots. It starts a fresh browser per call.
type Collector struct {
	opts   Options
	logger *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Collector {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{opts: opts, logger: logger.Named("collector")}
}

func (c *Collector) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if c.opts.Headless {
		opts = append(opts,
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if c.opts.Stealth {
		opts = append(opts,
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.Flag("disable-infobars", true),
			chromedp.Flag("window-size", "1920,1080"),
		)
	}
	if c.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.opts.UserAgent))
	}
	if c.opts.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(c.opts.ChromePath))
	}
	return opts
}

// Collect navigates to target, runs the embedded collector and decodes the
// resulting snapshot. The browser is torn down before Collect returns.
func (c *Collector) Collect(ctx context.Context, target string) (*snapshot.Snapshot, error) {
	if err := validateTarget(target); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, c.allocatorOptions()...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(c.logger.Sugar().Debugf),
		chromedp.WithErrorf(c.logger.Sugar().Warnf),
	)
	defer browserCancel()

	start := time.Now()
	var raw []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(c.opts.SettleDelay),
		chromedp.Evaluate(string(assets.CollectorJS), nil),
		chromedp.Evaluate(assets.CollectExpression, &raw, awaitPromise),
	)
	if err != nil {
		return nil, fmt.Errorf("collector: run %s: %w", target, err)
	}

	snap, err := snapshot.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("collector: %s: %w", target, err)
	}
	c.logger.Debug("snapshot collected",
		zap.String("url", target),
		zap.Int("bytes", len(raw)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return snap, nil
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

func validateTarget(target string) error {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidURL, target)
	}
	return nil
}
