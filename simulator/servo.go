package main

// Servo geometry of the reference board.
const (
	servoMinPulseUS = 1000
	servoMaxPulseUS = 2000
	servoMaxDegree  = 90
)

// pulseWidthUS converts an angle to the PWM pulse width. Angles above
// servoMaxDegree extrapolate past servoMaxPulseUS like the firmware does.
func pulseWidthUS(deg int) int {
	return servoMinPulseUS + (servoMaxPulseUS-servoMinPulseUS)*deg/servoMaxDegree
}

// parsePosition reads a leading decimal integer from at most the first ten
// bytes of payload. Anything unparsable yields 0.
func parsePosition(payload []byte) int {
	if len(payload) > 10 {
		payload = payload[:10]
	}
	i := 0
	for i < len(payload) && (payload[i] == ' ' || payload[i] == '\t' || payload[i] == '\n') {
		i++
	}
	neg := false
	if i < len(payload) && (payload[i] == '-' || payload[i] == '+') {
		neg = payload[i] == '-'
		i++
	}
	v := 0
	for ; i < len(payload) && payload[i] >= '0' && payload[i] <= '9'; i++ {
		v = v*10 + int(payload[i]-'0')
	}
	if neg {
		return -v
	}
	return v
}
