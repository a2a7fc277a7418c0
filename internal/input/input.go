// Package input emits keyboard and mouse events to the game window.
package input

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Faultbox/d2sight/pkg/geom"
)

// ErrUnknownKey is returned for key names the emitter cannot map.
var ErrUnknownKey = errors.New("unknown key")

// EventType names an emitted input action.
type EventType int

const (
	EventNone EventType = iota
	EventKeyDown
	EventKeyUp
	EventKeyClick
	EventMouseMove
	EventMouseClick
)

var eventNames = [...]string{"none", "key_down", "key_up", "key_click", "mouse_move", "mouse_click"}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// Button is a mouse button.
type Button int

const (
	Left Button = iota
	Right
)

func (b Button) String() string {
	if b == Right {
		return "right"
	}
	return "left"
}

// Event is one emitted input action. Point is window-relative.
type Event struct {
	Type   EventType
	Key    string
	Button Button
	Point  geom.PointU16
}

// Emitter synthesizes OS input.
type Emitter interface {
	KeyDown(key string) error
	KeyUp(key string) error
	KeyClick(key string) error
	MouseMove(p geom.PointU16) error
	MouseClick(p geom.PointU16, b Button) error
}

var namedKeys = map[string]string{
	"alt":         "alt",
	"backspace":   "backspace",
	"caps_lock":   "capslock",
	"control":     "ctrl",
	"delete":      "delete",
	"left_arrow":  "left",
	"up_arrow":    "up",
	"right_arrow": "right",
	"down_arrow":  "down",
	"end":         "end",
	"enter":       "enter",
	"esc":         "esc",
	"home":        "home",
	"page_down":   "pagedown",
	"page_up":     "pageup",
	"shift":       "shift",
	"space":       "space",
	"tab":         "tab",
}

// KeyName maps a settings key name to the emitter's name. Single characters
// map to themselves.
func KeyName(name string) (string, error) {
	if len([]rune(name)) == 1 {
		return name, nil
	}
	lower := strings.ToLower(name)
	if k, ok := namedKeys[lower]; ok {
		return k, nil
	}
	if n, err := strconv.Atoi(strings.TrimPrefix(lower, "f")); err == nil && lower[0] == 'f' && n >= 1 && n <= 12 {
		return fmt.Sprintf("f%d", n), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKey, name)
}

// Recorder is an Emitter that only records events.
type Recorder struct {
	events []Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{events: make([]Event, 0, 16)}
}

// Events returns the recorded events.
func (r *Recorder) Events() []Event {
	return r.events
}

// Reset clears the recorded events.
func (r *Recorder) Reset() {
	r.events = r.events[:0]
}

// Clicks returns the points of the recorded mouse clicks.
func (r *Recorder) Clicks() []geom.PointU16 {
	var out []geom.PointU16
	for _, e := range r.events {
		if e.Type == EventMouseClick {
			out = append(out, e.Point)
		}
	}
	return out
}

func (r *Recorder) KeyDown(key string) error {
	r.events = append(r.events, Event{Type: EventKeyDown, Key: key})
	return nil
}

func (r *Recorder) KeyUp(key string) error {
	r.events = append(r.events, Event{Type: EventKeyUp, Key: key})
	return nil
}

func (r *Recorder) KeyClick(key string) error {
	r.events = append(r.events, Event{Type: EventKeyClick, Key: key})
	return nil
}

func (r *Recorder) MouseMove(p geom.PointU16) error {
	r.events = append(r.events, Event{Type: EventMouseMove, Point: p})
	return nil
}

func (r *Recorder) MouseClick(p geom.PointU16, b Button) error {
	r.events = append(r.events, Event{Type: EventMouseClick, Point: p, Button: b})
	return nil
}
