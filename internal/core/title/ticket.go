package title

import "fmt"

// TicketSize is the fixed size of a ticket structure. A downloaded cetk
// payload is the ticket followed by a variable-length certificate chain.
const TicketSize = 0x2A4

// SplitTicket separates a downloaded cetk payload into the ticket bytes
// and the trailing certificate chain. The chain must be non-empty.
func SplitTicket(payload []byte) (ticket []byte, certs []byte, err error) {
	if len(payload) <= TicketSize {
		return nil, nil, fmt.Errorf("cetk: %d bytes, need more than %d for ticket and cert chain", len(payload), TicketSize)
	}
	return payload[:TicketSize], payload[TicketSize:], nil
}
