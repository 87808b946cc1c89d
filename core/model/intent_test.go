package model

import (
	"errors"
	"testing"
)

func TestIntentPresets(t *testing.T) {
	cases := map[Intent]int{IntentOff: 0, IntentLeft: 0, IntentMiddle: 45, IntentRight: 90}
	for in, want := range cases {
		got, ok := in.Preset()
		if !ok || got != want {
			t.Fatalf("%s: expected %d got %d (%v)", in, want, got, ok)
		}
	}
	if _, ok := IntentCustom.Preset(); ok {
		t.Fatal("custom must not have a preset")
	}
}

func TestParseIntent(t *testing.T) {
	tests := []struct {
		in     string
		intent Intent
		value  int
	}{
		{"off", IntentOff, 0},
		{"LEFT", IntentLeft, 0},
		{" middle ", IntentMiddle, 45},
		{"right", IntentRight, 90},
		{"custom 42", IntentCustom, 42},
		{"17", IntentCustom, 17},
		{"-3", IntentCustom, -3},
	}
	for _, tt := range tests {
		in, v, err := ParseIntent(tt.in)
		if err != nil {
			t.Fatalf("%q: %v", tt.in, err)
		}
		if in != tt.intent || v != tt.value {
			t.Fatalf("%q: got %s %d", tt.in, in, v)
		}
	}
}

func TestParseIntentErrors(t *testing.T) {
	for _, s := range []string{"", "up", "off 3", "custom", "custom 1 2"} {
		if _, _, err := ParseIntent(s); err == nil {
			t.Fatalf("%q: expected error", s)
		}
	}
	if _, _, err := ParseIntent("custom abc"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput got %v", err)
	}
}
