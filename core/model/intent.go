package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Intent is an operator action on the panel.
type Intent int

const (
	IntentOff Intent = iota
	// IntentLeft sends the same value as IntentOff. The web panel wired
	// both buttons to 0 and the device behaviour depends on it.
	IntentLeft
	IntentMiddle
	IntentRight
	IntentCustom
)

// Preset returns the fixed value sent for a button intent. Custom has no
// preset and reports false.
func (i Intent) Preset() (int, bool) {
	switch i {
	case IntentOff, IntentLeft:
		return 0, true
	case IntentMiddle:
		return 45, true
	case IntentRight:
		return 90, true
	default:
		return 0, false
	}
}

// String returns a human-readable representation of the intent.
func (i Intent) String() string {
	switch i {
	case IntentOff:
		return "off"
	case IntentLeft:
		return "left"
	case IntentMiddle:
		return "middle"
	case IntentRight:
		return "right"
	case IntentCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// IntentFromString maps a button name to its intent.
func IntentFromString(s string) (Intent, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off":
		return IntentOff, true
	case "left":
		return IntentLeft, true
	case "middle":
		return IntentMiddle, true
	case "right":
		return IntentRight, true
	case "custom":
		return IntentCustom, true
	default:
		return 0, false
	}
}

// ParseIntent parses textual operator input. Accepted forms are a button
// name ("off", "left", "middle", "right"), "custom N" or a bare integer N.
// The returned value is not range checked.
func ParseIntent(s string) (Intent, int, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, 0, fmt.Errorf("empty intent")
	}
	if v, err := strconv.Atoi(fields[0]); err == nil && len(fields) == 1 {
		return IntentCustom, v, nil
	}
	in, ok := IntentFromString(fields[0])
	if !ok {
		return 0, 0, fmt.Errorf("unknown intent %q", fields[0])
	}
	if in != IntentCustom {
		if len(fields) != 1 {
			return 0, 0, fmt.Errorf("intent %s takes no value", in)
		}
		v, _ := in.Preset()
		return in, v, nil
	}
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("custom requires exactly one value")
	}
	v, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidInput, fields[1])
	}
	return IntentCustom, v, nil
}
