package retained

// ============================================================================
// Raw Events
// ============================================================================

// RawEvent is a platform input event. The set of raw events is closed.
type RawEvent interface {
	rawEvent()
}

// MouseButton identifies which mouse button was pressed.
type MouseButton uint8

const (
	MouseButtonNone MouseButton = iota
	MouseButtonLeft
	MouseButtonRight
	MouseButtonMiddle
)

// PointerMove reports the cursor position in viewport pixels.
type PointerMove struct {
	X, Y float32
}

// PointerButton reports a button transition at the last cursor position.
type PointerButton struct {
	Button  MouseButton
	Pressed bool
}

// Resize reports a new viewport size.
type Resize struct {
	Width, Height float32
}

// Close asks the window to close.
type Close struct{}

// RedrawRequest asks for a repaint without any input change.
type RedrawRequest struct{}

// Wake is posted by other goroutines to interrupt the event loop.
type Wake struct{}

func (PointerMove) rawEvent()   {}
func (PointerButton) rawEvent() {}
func (Resize) rawEvent()        {}
func (Close) rawEvent()         {}
func (RedrawRequest) rawEvent() {}
func (Wake) rawEvent()          {}

// ============================================================================
// Translated Events
// ============================================================================

// Event names emitted by the router.
const (
	EventMouseEnter = "mouseenter"
	EventMouseLeave = "mouseleave"
	EventMouseOver  = "mouseover"
	EventHover      = "hover"
	EventMouseDown  = "mousedown"
	EventMouseUp    = "mouseup"
	EventClick      = "click"
	EventFocus      = "focus"
	EventBlur       = "blur"
)

// Event is a DOM event addressed to a node.
type Event struct {
	Name   string
	Target NodeID
	X, Y   float32
	Button MouseButton
}
