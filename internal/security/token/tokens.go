package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"
)

// GenerateOpaqueToken genera un token opaco aleatorio (base64url sin padding).
func GenerateOpaqueToken(nBytes int) (string, error) {
	return GenerateOpaqueTokenFrom(rand.Reader, nBytes)
}

// GenerateOpaqueTokenFrom es GenerateOpaqueToken con una fuente explícita
// (los tests inyectan un reader determinístico).
func GenerateOpaqueTokenFrom(r io.Reader, nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SHA256Base64URL devuelve sha256(input) en base64url sin padding (para guardar en DB).
func SHA256Base64URL(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
