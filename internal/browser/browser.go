// Package browser defines the headless-browser collaborator used by
// screenshot sources. The browser is an expensive, stateful external
// resource: it is acquired once per batch of screenshot sources and released
// after, on both success and failure paths. Implementations are injected by
// the embedder; tests use a stub.
package browser

// SelectorKind names the element lookup strategies a source may configure.
// A source must configure exactly one.
type SelectorKind int

const (
	ByTag SelectorKind = iota
	ByClass
	ByID
	ByXPath
	ByCSS
)

func (k SelectorKind) String() string {
	switch k {
	case ByTag:
		return "tag"
	case ByClass:
		return "class"
	case ByID:
		return "id"
	case ByXPath:
		return "xpath"
	case ByCSS:
		return "css"
	default:
		return "unknown"
	}
}

// Element is a located page element.
type Element interface {
	// Text returns the element's visible text.
	Text() (string, error)
	// Screenshot captures the element as a base64-encoded PNG.
	Screenshot() (string, error)
}

// Browser is a live headless-browser session.
type Browser interface {
	Navigate(url string) error
	Find(kind SelectorKind, value string) ([]Element, error)
	// Quit releases the session. Safe to call more than once.
	Quit() error
}

// Factory opens a session. It is called at most once per batch of
// screenshot sources; a nil Factory disables screenshot sources.
type Factory func() (Browser, error)
