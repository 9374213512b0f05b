// Package transport abstracts the WhatsApp side of the bot. The actual
// protocol lives in the whatsapp-web.js gateway sidecar; this package only
// knows how to address recipients and how to reach the gateway.
package transport

import (
	"context"
	"strings"
)

// Suffix is the canonical user-address suffix on the transport.
const Suffix = "@c.us"

// BroadcastJID is the status-broadcast pseudo-sender. Messages from it are
// never commands.
const BroadcastJID = "status@broadcast"

// Message is one inbound chat message as delivered by the gateway.
type Message struct {
	Body          string `json:"body"`
	From          string `json:"from"`
	FromBroadcast bool   `json:"from_broadcast"`
}

// Client is the outbound capability the bot needs from the transport.
type Client interface {
	// SendMessage delivers text to a canonical recipient address.
	SendMessage(ctx context.Context, to, text string) error

	// IsRegistered reports whether the address belongs to a real account.
	IsRegistered(ctx context.Context, to string) (bool, error)

	// Ready reports whether the underlying client is paired and connected.
	// The reminder scheduler skips its tick entirely while this is false.
	Ready(ctx context.Context) bool
}

// CanonicalJID normalizes a stored contact number into the transport address:
// all non-digits stripped, suffix appended unless already present.
func CanonicalJID(number string) string {
	if strings.HasSuffix(number, Suffix) {
		return stripNonDigits(strings.TrimSuffix(number, Suffix)) + Suffix
	}
	return stripNonDigits(number) + Suffix
}

// PhoneFromJID converts a sender JID back into the +-prefixed phone number
// shape the backend stores (628123@c.us -> +628123).
func PhoneFromJID(jid string) string {
	number := strings.TrimSuffix(jid, Suffix)
	if strings.HasPrefix(number, "+") {
		return number
	}
	return "+" + number
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
