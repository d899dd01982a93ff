package client

import (
	"fmt"
	"time"

	"github.com/goatapp/adyen-terminal-api/internal/nexocrypto"
)

// Terminal identifies one physical POI device: its network address, the
// request timeout applied to exchanges with it, and the credential its
// messages are protected with. Immutable for the lifetime of a client.
type Terminal struct {
	// Address is the terminal's host or host:port. When no port is
	// given the protocol's fixed local-integration port is used.
	Address string

	// Timeout covers connect plus response wait for one exchange.
	Timeout time.Duration

	// SaleID and POIID are sent in every message header.
	SaleID string
	POIID  string

	// Credential is the symmetric key material bound to this terminal.
	Credential nexocrypto.Credential
}

// Validate checks the terminal definition is complete.
func (t Terminal) Validate() error {
	if t.Address == "" {
		return fmt.Errorf("terminal address is required")
	}
	if t.Timeout <= 0 {
		return fmt.Errorf("terminal timeout must be greater than 0")
	}
	if t.SaleID == "" {
		return fmt.Errorf("sale ID is required")
	}
	if t.POIID == "" {
		return fmt.Errorf("POI ID is required")
	}
	if err := t.Credential.Validate(); err != nil {
		return fmt.Errorf("credential: %w", err)
	}
	return nil
}
