package model

import "fmt"

// Endpoint identifies the broker a session connects to.
type Endpoint struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	ClientID string `json:"client_id"`
}

// Validate checks the endpoint fields.
func (e Endpoint) Validate() error {
	if e.Host == "" {
		return fmt.Errorf("endpoint host is required")
	}
	if e.Port < 1 || e.Port > 65535 {
		return fmt.Errorf("endpoint port %d out of range 1-65535", e.Port)
	}
	if e.ClientID == "" {
		return fmt.Errorf("endpoint client id is required")
	}
	return nil
}

// Address returns host:port.
func (e Endpoint) Address() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}
