package por

import (
	"fmt"
	"strings"
)

const (
	addressPrefix = "aleo1"
	addressLength = 63
)

// bech32 data charset; prover addresses carry no mixed case.
const addressCharset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// Address is a prover address in its canonical string form. External
// input only becomes an Address through ToAddress, so every Address in
// the system is well formed.
type Address string

// ToAddress is the strict decode applied to externally supplied prover
// addresses.
func ToAddress(s string) (Address, error) {
	if !strings.HasPrefix(s, addressPrefix) {
		return "", fmt.Errorf("address %q: missing %q prefix", s, addressPrefix)
	}
	if len(s) != addressLength {
		return "", fmt.Errorf("address %q: length %d, want %d", s, len(s), addressLength)
	}
	for _, c := range s[len(addressPrefix):] {
		if !strings.ContainsRune(addressCharset, c) {
			return "", fmt.Errorf("address %q: invalid character %q", s, c)
		}
	}
	return Address(s), nil
}

func (a Address) String() string {
	return string(a)
}
