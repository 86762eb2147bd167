package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across repositories and services. The transport
// layer maps these to status codes.
var (
	ErrNotFound               = errors.New("not found")
	ErrConcurrentModification = errors.New("membership was modified concurrently, re-read and retry")
)

// IllegalTransitionError rejects a state-machine edge that is not in the
// legal set. It names the current state, the requested state and the legal
// successors so callers never have to guess why the command failed.
type IllegalTransitionError struct {
	From      MembershipStatus
	Requested MembershipStatus
	Legal     []MembershipStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition %s -> %s (legal successors: %v)", e.From, e.Requested, e.Legal)
}

// GeographyDowngradeError rejects an enrichment that would lower the
// assignment tier. Enrichment only upgrades.
type GeographyDowngradeError struct {
	From GeographyTier
	To   GeographyTier
}

func (e *GeographyDowngradeError) Error() string {
	return fmt.Sprintf("geography downgrade %s -> %s rejected", e.From, e.To)
}

// InvalidHierarchyError rejects a malformed geography node creation.
type InvalidHierarchyError struct {
	Reason string
}

func (e *InvalidHierarchyError) Error() string {
	return "invalid hierarchy: " + e.Reason
}

// ValidationError covers command preconditions that are not transition
// rules, e.g. submitting without any geography or suspending without a
// reason.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
