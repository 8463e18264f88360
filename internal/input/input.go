// Package input drives the real mouse and keyboard. The accessibility layer
// handles most interaction through actions and text setters; this is the
// fallback for components that only react to genuine OS events.
package input

import (
	"fmt"
	"time"

	"github.com/go-vgo/robotgo"
)

// Robot sends events through the OS input queue via robotgo.
type Robot struct {
	// TypeDelay paces keystrokes; some Swing text fields drop characters
	// when they arrive faster than the event dispatch thread drains them.
	TypeDelay time.Duration
}

// New returns a Robot with a conservative typing pace.
func New() *Robot {
	return &Robot{TypeDelay: 10 * time.Millisecond}
}

// Click moves the pointer to screen coordinates and left-clicks.
func (r *Robot) Click(x, y int) error {
	robotgo.Move(x, y)
	robotgo.MilliSleep(50)
	robotgo.Click("left", false)
	return nil
}

// DoubleClick moves the pointer and double-clicks.
func (r *Robot) DoubleClick(x, y int) error {
	robotgo.Move(x, y)
	robotgo.MilliSleep(50)
	robotgo.Click("left", true)
	return nil
}

// RightClick moves the pointer and right-clicks.
func (r *Robot) RightClick(x, y int) error {
	robotgo.Move(x, y)
	robotgo.MilliSleep(50)
	robotgo.Click("right", false)
	return nil
}

// TypeText types the string into whatever currently has keyboard focus.
func (r *Robot) TypeText(s string) error {
	robotgo.TypeStrDelay(s, int(r.TypeDelay/time.Millisecond))
	return nil
}

// KeyTap presses a single key with optional modifiers, e.g.
// KeyTap("a", "ctrl") or KeyTap("enter").
func (r *Robot) KeyTap(key string, modifiers ...string) error {
	args := make([]interface{}, len(modifiers))
	for i, m := range modifiers {
		args[i] = m
	}
	if err := robotgo.KeyTap(key, args...); err != nil {
		return fmt.Errorf("key tap %q: %w", key, err)
	}
	return nil
}
