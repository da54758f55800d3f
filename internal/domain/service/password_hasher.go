package service

// PasswordHasher abstracts password hashing and verification.
type PasswordHasher interface {
	Hash(password string) (string, error)

	// Compare reports whether the password matches the stored hash. A
	// mismatch is a false return, not an error; errors mean the hash could
	// not be parsed.
	Compare(hash, password string) (bool, error)
}
