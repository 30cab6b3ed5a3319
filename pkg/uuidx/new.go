// Package uuidx generates the time-ordered identifiers used for subscriptions and relay routes.
package uuidx

import "github.com/google/uuid"

// New returns a version 7 UUID. It panics if the random source fails.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString returns a version 7 UUID in its canonical string form.
func NewString() string {
	return New().String()
}

// Prefixed returns a version 7 UUID string tagged with a kind prefix, e.g. "sub_0190...".
// Ids produced this way still sort by creation time within one prefix.
func Prefixed(prefix string) string {
	if prefix == "" {
		return NewString()
	}
	return prefix + "_" + NewString()
}
