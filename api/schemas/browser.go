// api/schemas/browser.go
package schemas

// FrameSnapshot is the serialized rendered document of one frame, captured at
// a single point in time. Elements whose computed visibility was false at
// capture time carry the data-stridr-hidden attribute so consumers can skip
// them without re-deriving layout.
type FrameSnapshot struct {
	// Name is the frame's name attribute, or a synthetic "frame-N" when the
	// frame is anonymous. Empty for the main document.
	Name string `json:"name"`
	URL  string `json:"url"`
	Main bool   `json:"main"`
	HTML string `json:"html"`
}

// StrategyKind classifies how an ElementStrategy locates its element.
type StrategyKind string

const (
	StrategyXPath     StrategyKind = "xpath"
	StrategyCSS       StrategyKind = "css"
	StrategyText      StrategyKind = "text"
	StrategyAttribute StrategyKind = "attribute"
	StrategyRole      StrategyKind = "role"
)

// ElementStrategy is one scored, reasoned way of finding an element, produced
// fresh by the semantic resolver for a single resolution attempt. Lists of
// strategies are always sorted by non-increasing Priority; ties keep
// generation order.
type ElementStrategy struct {
	Kind       StrategyKind `json:"kind"`
	Selector   string       `json:"selector"`
	Confidence float64      `json:"confidence"`
	Priority   int          `json:"priority"`
	Reasoning  string       `json:"reasoning"`
	TargetText string       `json:"targetText,omitempty"`
	// ElementText is the text content of the element the strategy was
	// derived from, used by the click-effectiveness oracle.
	ElementText string `json:"elementText,omitempty"`
	// Frame names the frame the strategy belongs to. Empty means the main
	// document; clicks for non-empty frames are issued against that frame.
	Frame string `json:"frame,omitempty"`
}

// Navigational reports whether the strategy points at an element whose click
// is expected to change the page: links, tabs, buttons, nav containers.
func (s *ElementStrategy) Navigational() bool {
	for _, hint := range [...]string{"nav", "link", "tab", "button", "href"} {
		if containsFold(s.Selector, hint) || containsFold(s.Reasoning, hint) {
			return true
		}
	}
	return false
}
