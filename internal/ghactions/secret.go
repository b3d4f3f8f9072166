package ghactions

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

// sealSecret encrypts a secret value against a repository's base64-encoded
// public key using an anonymous sealed box, the encoding GitHub requires for
// secret uploads.
func sealSecret(value, publicKeyB64 string) (string, error) {
	keyBytes, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return "", fmt.Errorf("malformed repository public key: %w", err)
	}
	if len(keyBytes) != 32 {
		return "", fmt.Errorf("repository public key has unexpected length %d", len(keyBytes))
	}

	var recipient [32]byte
	copy(recipient[:], keyBytes)

	sealed, err := box.SealAnonymous(nil, []byte(value), &recipient, rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to seal secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}
