package browser

import (
	"context"
	"fmt"
	"sync"
)

// Interaction records one call a connector made against a mock page.
type Interaction struct {
	Type     string // "goto", "type", "click", "text", "url"
	Selector string
	Value    string
	URL      string
}

// Mock is a scriptable Browser for connector tests. Zero value is usable:
// every selector resolves to an empty string.
type Mock struct {
	mu sync.Mutex

	// SelectorText maps selectors to the text Text returns for them.
	SelectorText map[string]string
	// SelectorErrs forces an error for specific selectors, regardless of
	// the method used on them.
	SelectorErrs map[string]error
	// CurrentURL is what URL reports; Goto updates it.
	CurrentURL string
	// URLAfterClick simulates a navigation triggered by clicking a
	// selector.
	URLAfterClick map[string]string

	Interactions []Interaction
	closed       bool
}

// Launcher wraps the mock in a browser.Launcher.
func (m *Mock) Launcher() Launcher {
	return func(ctx context.Context) (Browser, error) { return m, nil }
}

func (m *Mock) NewPage() (Page, error) {
	return &mockPage{mock: m}, nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether the connector closed the browser.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Mock) record(i Interaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Interactions = append(m.Interactions, i)
}

func (m *Mock) selectorErr(selector string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.SelectorErrs[selector]
}

type mockPage struct {
	mock *Mock
}

func (p *mockPage) Goto(url string) error {
	p.mock.record(Interaction{Type: "goto", URL: url})
	p.mock.mu.Lock()
	p.mock.CurrentURL = url
	p.mock.mu.Unlock()
	return nil
}

func (p *mockPage) Type(selector, text string) error {
	if err := p.mock.selectorErr(selector); err != nil {
		return err
	}
	p.mock.record(Interaction{Type: "type", Selector: selector, Value: text})
	return nil
}

func (p *mockPage) Click(selector string) error {
	if err := p.mock.selectorErr(selector); err != nil {
		return err
	}
	p.mock.record(Interaction{Type: "click", Selector: selector})
	p.mock.mu.Lock()
	if u, ok := p.mock.URLAfterClick[selector]; ok {
		p.mock.CurrentURL = u
	}
	p.mock.mu.Unlock()
	return nil
}

func (p *mockPage) Text(selector string) (string, error) {
	if err := p.mock.selectorErr(selector); err != nil {
		return "", err
	}
	p.mock.record(Interaction{Type: "text", Selector: selector})
	p.mock.mu.Lock()
	defer p.mock.mu.Unlock()
	text, ok := p.mock.SelectorText[selector]
	if !ok {
		return "", fmt.Errorf("mock browser: no text scripted for selector %q", selector)
	}
	return text, nil
}

func (p *mockPage) URL() (string, error) {
	p.mock.record(Interaction{Type: "url"})
	p.mock.mu.Lock()
	defer p.mock.mu.Unlock()
	return p.mock.CurrentURL, nil
}

func (p *mockPage) Close() error {
	return nil
}
