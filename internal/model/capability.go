package model

import "strings"

// Capability is one of the closed set of actions a grant can authorize.
type Capability uint8

const (
	CapRead Capability = 1 << iota
	CapWrite
	CapShare
	CapDelete
)

// CapabilitySet is a bitmask of capabilities. The zero value is the empty
// set, which as a grant means explicit deny.
type CapabilitySet uint8

// AllCapabilities is what resource ownership implies.
const AllCapabilities = CapabilitySet(CapRead | CapWrite | CapShare | CapDelete)

// Caps builds a set from individual capabilities.
func Caps(caps ...Capability) CapabilitySet {
	var s CapabilitySet
	for _, c := range caps {
		s |= CapabilitySet(c)
	}
	return s
}

// Has reports whether the set contains c.
func (s CapabilitySet) Has(c Capability) bool {
	return s&CapabilitySet(c) != 0
}

// Union returns the most-permissive combination of both sets.
func (s CapabilitySet) Union(other CapabilitySet) CapabilitySet {
	return s | other
}

// IsEmpty reports whether the set grants nothing (explicit deny).
func (s CapabilitySet) IsEmpty() bool {
	return s == 0
}

func (c Capability) String() string {
	switch c {
	case CapRead:
		return "read"
	case CapWrite:
		return "write"
	case CapShare:
		return "share"
	case CapDelete:
		return "delete"
	}
	return "unknown"
}

func (s CapabilitySet) String() string {
	if s == 0 {
		return "none"
	}
	var parts []string
	for _, c := range []Capability{CapRead, CapWrite, CapShare, CapDelete} {
		if s.Has(c) {
			parts = append(parts, c.String())
		}
	}
	return strings.Join(parts, ",")
}

// ParseCapability maps a capability name to its flag.
func ParseCapability(name string) (Capability, bool) {
	switch name {
	case "read":
		return CapRead, true
	case "write":
		return CapWrite, true
	case "share":
		return CapShare, true
	case "delete":
		return CapDelete, true
	}
	return 0, false
}

// ParseCapabilitySet parses a comma-separated capability list such as
// "read,write". An empty string parses to the empty set.
func ParseCapabilitySet(list string) (CapabilitySet, bool) {
	var s CapabilitySet
	if list == "" || list == "none" {
		return s, true
	}
	for _, name := range strings.Split(list, ",") {
		c, ok := ParseCapability(strings.TrimSpace(name))
		if !ok {
			return 0, false
		}
		s |= CapabilitySet(c)
	}
	return s, true
}
