package model

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	// CommandTopic is the topic the motor firmware listens on.
	CommandTopic = "esp/motor/pwm"
	// StatusTopic is where the firmware reports "online" and applied positions.
	StatusTopic = "esp/motor/status"

	MinValue = 0
	MaxValue = 100
)

// ErrInvalidInput is returned when a command value is outside [MinValue, MaxValue].
var ErrInvalidInput = errors.New("invalid input")

// Command is a validated message ready to be published.
type Command struct {
	topic   string
	payload string
	value   int
}

// NewCommand validates value and builds the command for CommandTopic.
// The payload is the canonical decimal representation of value.
func NewCommand(value int) (Command, error) {
	if err := ValidateValue(value); err != nil {
		return Command{}, err
	}
	return Command{topic: CommandTopic, payload: strconv.Itoa(value), value: value}, nil
}

// ValidateValue reports ErrInvalidInput when value is out of range. Values
// are never clamped.
func ValidateValue(value int) error {
	if value < MinValue || value > MaxValue {
		return fmt.Errorf("%w: value %d outside [%d,%d]", ErrInvalidInput, value, MinValue, MaxValue)
	}
	return nil
}

func (c Command) Topic() string   { return c.topic }
func (c Command) Payload() string { return c.payload }
func (c Command) Value() int      { return c.value }

// InboundMessage is a message received on a subscribed topic.
type InboundMessage struct {
	Topic   string `json:"topic"`
	Payload string `json:"payload"`
}
