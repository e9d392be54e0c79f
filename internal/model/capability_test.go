package model

import "testing"

func TestParseCapabilitySet(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   CapabilitySet
		wantOK bool
	}{
		{name: "single", input: "read", want: Caps(CapRead), wantOK: true},
		{name: "multiple", input: "read,write", want: Caps(CapRead, CapWrite), wantOK: true},
		{name: "spaces", input: "read, share , delete", want: Caps(CapRead, CapShare, CapDelete), wantOK: true},
		{name: "empty is explicit deny", input: "", want: 0, wantOK: true},
		{name: "none is explicit deny", input: "none", want: 0, wantOK: true},
		{name: "unknown name", input: "read,admin", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCapabilitySet(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseCapabilitySet(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseCapabilitySet(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCapabilitySetString(t *testing.T) {
	tests := []struct {
		set  CapabilitySet
		want string
	}{
		{set: 0, want: "none"},
		{set: Caps(CapRead), want: "read"},
		{set: Caps(CapWrite, CapRead), want: "read,write"},
		{set: AllCapabilities, want: "read,write,share,delete"},
	}
	for _, tt := range tests {
		if got := tt.set.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestCapabilitySetOps(t *testing.T) {
	s := Caps(CapRead)
	if !s.Has(CapRead) || s.Has(CapWrite) {
		t.Errorf("Has on %v misreports membership", s)
	}
	u := s.Union(Caps(CapWrite))
	if !u.Has(CapRead) || !u.Has(CapWrite) {
		t.Errorf("Union(%v) = %v, want read+write", s, u)
	}
	if !CapabilitySet(0).IsEmpty() || s.IsEmpty() {
		t.Error("IsEmpty misreports")
	}
}
