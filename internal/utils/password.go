package utils

import (
	"crypto/rand"
	"math/big"
)

const tempPasswordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// TempPassword generates a throwaway password for the signup the password
// setup flow starts. The user never sees it; it only satisfies the
// directory's signup contract and is replaced during setup completion. The
// fixed affixes guarantee the directory's character-class policy holds
// whatever the random core contains.
func TempPassword() string {
	core := make([]byte, 20)
	for i := range core {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(tempPasswordAlphabet))))
		if err != nil {
			// crypto/rand only fails when the platform entropy source is
			// broken; there is no reasonable recovery.
			panic(err)
		}
		core[i] = tempPasswordAlphabet[n.Int64()]
	}
	return "Aa" + string(core) + "9"
}
