package core

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// GenerateAddress derives a fresh account address from a new ECDSA key.
// The address is the hex of the last 20 bytes of the hashed public key,
// prefixed with 0x, which matches the registry's address format.
func GenerateAddress() string {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		panic(err)
	}

	pub := elliptic.Marshal(elliptic.P256(), privateKey.PublicKey.X, privateKey.PublicKey.Y)
	sum := sha256.Sum256(pub)

	return "0x" + hex.EncodeToString(sum[len(sum)-20:])
}
