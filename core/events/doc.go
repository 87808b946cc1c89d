// Package events defines the panel events published on the event bus and
// streamed to operators.
//
// Available event kinds:
//   - KindState: session state transition or connect failure
//   - KindFeedback: status report from the device
//   - KindCommand: outcome of a dispatch attempt
package events
