package enums

import "fmt"

// ReturnInitiator identifies which party opened a return request.
type ReturnInitiator string

const (
	ReturnInitiatorConsumer ReturnInitiator = "consumer"
	ReturnInitiatorVendor   ReturnInitiator = "vendor"
)

var validReturnInitiators = []ReturnInitiator{
	ReturnInitiatorConsumer,
	ReturnInitiatorVendor,
}

// String implements fmt.Stringer.
func (i ReturnInitiator) String() string {
	return string(i)
}

// IsValid reports whether the value is a known ReturnInitiator.
func (i ReturnInitiator) IsValid() bool {
	for _, candidate := range validReturnInitiators {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseReturnInitiator converts raw input into a ReturnInitiator.
func ParseReturnInitiator(value string) (ReturnInitiator, error) {
	for _, candidate := range validReturnInitiators {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return initiator %q", value)
}
