package transaction

import "time"

// Result is the outcome of a submission. Exactly one of TxID and
// SignatureID is set. Failed is true when the transaction was broadcast but
// its pending signature could not be completed.
type Result struct {
	TxID        string `json:"txId,omitempty"`
	SignatureID string `json:"signatureId,omitempty"`
	Failed      bool   `json:"failed,omitempty"`
}

// Timeouts bounds each network call of a submission. Zero values use the
// package defaults.
type Timeouts struct {
	Build     time.Duration
	Broadcast time.Duration
	KMS       time.Duration
}

// Default timeouts.
const (
	DefaultBuildTimeout     = 30 * time.Second
	DefaultBroadcastTimeout = 30 * time.Second
	DefaultKMSTimeout       = 10 * time.Second
)

func (t Timeouts) withDefaults() Timeouts {
	if t.Build <= 0 {
		t.Build = DefaultBuildTimeout
	}
	if t.Broadcast <= 0 {
		t.Broadcast = DefaultBroadcastTimeout
	}
	if t.KMS <= 0 {
		t.KMS = DefaultKMSTimeout
	}
	return t
}
