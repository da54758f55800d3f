package service

// SecretBox seals and opens small secrets for storage at rest. Seal of the
// same plaintext twice yields different ciphertexts; Open rejects any
// tampered or truncated value instead of returning partial plaintext.
type SecretBox interface {
	Seal(plaintext []byte) (string, error)
	Open(sealed string) ([]byte, error)
}
