// Package identity exposes the parts of the XMPP server's identity that the
// web client configuration depends on.
package identity

import (
	"strings"

	"github.com/angeloszaimis/inverse-config/internal/properties"
)

// Host-level properties shared with the rest of the XMPP server.
const (
	KeyDomain         = "xmpp.domain"
	KeyInbandRegister = "register.inband"
)

// Provider reports the server's XMPP domain and whether in-band registration
// is enabled.
type Provider interface {
	Domain() string
	InbandRegistrationEnabled() bool
}

// StoreProvider reads the server identity from the settings store on every
// call, so that changes to the store are visible without a restart.
type StoreProvider struct {
	store         properties.Store
	domain        string
	inbandEnabled bool
}

// NewStoreProvider returns a Provider backed by store. domain and
// inbandEnabled are used when the store does not hold the corresponding keys.
func NewStoreProvider(store properties.Store, domain string, inbandEnabled bool) *StoreProvider {
	return &StoreProvider{
		store:         store,
		domain:        domain,
		inbandEnabled: inbandEnabled,
	}
}

// Domain returns the XMPP domain in lower case.
func (p *StoreProvider) Domain() string {
	return strings.ToLower(strings.TrimSpace(p.store.String(KeyDomain, p.domain)))
}

func (p *StoreProvider) InbandRegistrationEnabled() bool {
	return p.store.Bool(KeyInbandRegister, p.inbandEnabled)
}

// Static is a fixed Provider.
type Static struct {
	XMPPDomain    string
	InbandEnabled bool
}

func (s Static) Domain() string {
	return s.XMPPDomain
}

func (s Static) InbandRegistrationEnabled() bool {
	return s.InbandEnabled
}
