package gameserver

import "errors"

// Dispatch and broadcast failures fall into four recoverable kinds. None of
// them is fatal to the process; decode and identity failures are reported to
// the offending session, validation failures are rejected silently, and
// delivery failures are isolated per recipient.
var (
	// ErrDecode marks an unparseable or incomplete inbound envelope.
	ErrDecode = errors.New("malformed message")
	// ErrIdentity marks a claimed player id that does not match the
	// session, or references a player no longer in the store.
	ErrIdentity = errors.New("identity rejected")
	// ErrValidation marks a well-formed action rejected by the rules
	// (out-of-bounds move). Not surfaced to the client.
	ErrValidation = errors.New("action rejected")
	// ErrDelivery marks a failed write to one peer during broadcast.
	ErrDelivery = errors.New("delivery failed")
)
