package browser

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

const pageActionTimeout = 30 * time.Second

// Chrome returns a Launcher backed by chromedp. With an endpoint it
// connects to a remote DevTools instance (a browserless deployment);
// without one it launches a local headful browser, which is what you want
// when debugging a scraping flow.
func Chrome(endpoint string) Launcher {
	return func(ctx context.Context) (Browser, error) {
		var allocCtx context.Context
		var cancel context.CancelFunc
		if endpoint != "" {
			allocCtx, cancel = chromedp.NewRemoteAllocator(ctx, endpoint)
		} else {
			opts := append(chromedp.DefaultExecAllocatorOptions[:],
				chromedp.Flag("headless", false),
			)
			allocCtx, cancel = chromedp.NewExecAllocator(ctx, opts...)
		}
		return &chromeBrowser{allocCtx: allocCtx, cancel: cancel}, nil
	}
}

type chromeBrowser struct {
	allocCtx context.Context
	cancel   context.CancelFunc
}

func (b *chromeBrowser) NewPage() (Page, error) {
	tabCtx, cancel := chromedp.NewContext(b.allocCtx)
	return &chromePage{ctx: tabCtx, cancel: cancel}, nil
}

func (b *chromeBrowser) Close() error {
	b.cancel()
	return nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (p *chromePage) run(actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(p.ctx, pageActionTimeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

func (p *chromePage) Goto(url string) error {
	return p.run(chromedp.Navigate(url), chromedp.WaitReady("body"))
}

func (p *chromePage) Type(selector, text string) error {
	return p.run(chromedp.WaitVisible(selector), chromedp.SendKeys(selector, text))
}

func (p *chromePage) Click(selector string) error {
	return p.run(chromedp.WaitVisible(selector), chromedp.Click(selector))
}

func (p *chromePage) Text(selector string) (string, error) {
	var out string
	err := p.run(chromedp.Text(selector, &out, chromedp.NodeVisible))
	return out, err
}

func (p *chromePage) URL() (string, error) {
	var u string
	err := p.run(chromedp.Location(&u))
	return u, err
}

func (p *chromePage) Close() error {
	p.cancel()
	return nil
}
