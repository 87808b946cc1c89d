// Package dispatch turns operator intents into motor commands.
//
// CommandDispatcher exposes the four panel buttons (Off, Left, Middle,
// Right) and the slider (Custom). Values are validated against the
// [0,100] range before a Command is built, then published on
// esp/motor/pwm through an mqtt.Publisher. Every attempt is reported to the
// configured metrics sink and command log. Publishing is fire-and-forget:
// the dispatcher returns once the transport has accepted the message.
package dispatch
