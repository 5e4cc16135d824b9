// Package browser abstracts the headless browser the scraping connectors
// drive, so connector logic can be exercised against a scriptable mock.
package browser

import "context"

// Page is one browser tab. Selectors are CSS selectors; drivers may also
// accept XPath where the selector starts with "//".
type Page interface {
	Goto(url string) error
	Type(selector, text string) error
	Click(selector string) error
	// Text waits for the selector and returns its visible text content.
	Text(selector string) (string, error)
	URL() (string, error)
	Close() error
}

// Browser is a running browser instance.
type Browser interface {
	NewPage() (Page, error)
	Close() error
}

// Launcher produces a browser bound to ctx. ctx cancellation tears the
// browser down.
type Launcher func(ctx context.Context) (Browser, error)
