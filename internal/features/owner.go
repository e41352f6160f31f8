package features

import (
	"fmt"
	"strings"
)

const (
	OwnerFirst     = "First Owner"
	OwnerSecond    = "Second Owner"
	OwnerThird     = "Third Owner"
	OwnerFourthUp  = "Fourth & Above Owner"
	OwnerTestDrive = "Test Drive Car"

	OwnerCodeMin = 1
	OwnerCodeMax = 5

	// OwnerFallbackCode is returned for labels outside the mapping.
	OwnerFallbackCode = 1
)

// ownerLabels is indexed by code-1.
var ownerLabels = [...]string{OwnerFirst, OwnerSecond, OwnerThird, OwnerFourthUp, OwnerTestDrive}

// OwnerLabels returns the five labels ordered by code.
func OwnerLabels() []string {
	return append([]string(nil), ownerLabels[:]...)
}

// OwnerCode translates a label to its code. Unknown labels map to
// OwnerFallbackCode; ok reports whether the label was recognised.
func OwnerCode(label string) (code int, ok bool) {
	for i, l := range ownerLabels {
		if l == label {
			return i + 1, true
		}
	}
	return OwnerFallbackCode, false
}

// OwnerLabel is the inverse of OwnerCode.
func OwnerLabel(code int) (string, bool) {
	if code < OwnerCodeMin || code > OwnerCodeMax {
		return "", false
	}
	return ownerLabels[code-1], true
}

// OwnerNote is the human-readable mapping shown under the form.
func OwnerNote() string {
	parts := make([]string, len(ownerLabels))
	for i, l := range ownerLabels {
		parts[i] = fmt.Sprintf("%d=%s", i+1, l)
	}
	return "Owner mapping: " + strings.Join(parts, ", ")
}
