package fedapaywebhook

import (
	"encoding/json"
	"strings"
)

// Event is the callback FedaPay delivers once a transaction reaches a
// terminal status. Provider ids arrive as JSON numbers.
type Event struct {
	ID     json.Number `json:"id"`
	Status string      `json:"status"`
}

// TransactionID returns the provider transaction id as a string key.
func (e *Event) TransactionID() string {
	if e == nil {
		return ""
	}
	return strings.TrimSpace(e.ID.String())
}

// IdempotencyID keys the delivery for the webhook guard. The status is part
// of the key so distinct terminal statuses for one transaction are not
// suppressed; replay of the same status is.
func (e *Event) IdempotencyID() string {
	if e == nil {
		return ""
	}
	return e.TransactionID() + ":" + strings.TrimSpace(e.Status)
}
