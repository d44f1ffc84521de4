package models

import "regexp"

// classicAddressRegex matches an XRPL classic address: "r" followed by
// 24-34 characters of the ledger's base58 alphabet.
var classicAddressRegex = regexp.MustCompile(`^r[1-9A-HJ-NP-Za-km-z]{24,34}$`)

// IsClassicAddress reports whether s looks like an XRPL classic address.
// It does not verify the checksum.
func IsClassicAddress(s string) bool {
	return classicAddressRegex.MatchString(s)
}
