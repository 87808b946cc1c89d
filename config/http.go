package config

// HTTPConfig configures the control API. An empty Addr disables it.
type HTTPConfig struct {
	Addr string `json:"addr"`
	// Token, when set, is required as a bearer token on every /api route.
	Token string `json:"token"`
	// AllowedOrigins lists websocket origins accepted by /api/events besides
	// same-host requests.
	AllowedOrigins []string `json:"allowed_origins"`
}
