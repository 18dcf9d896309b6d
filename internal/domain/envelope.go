package domain

import "time"

// Envelope is the binary result of one encryption.
type Envelope struct {
	Ciphertext    []byte
	PublicContext []byte
	Length        int
}

// TransportEnvelope is the text-safe form returned to clients.
type TransportEnvelope struct {
	Encrypted   string
	Context     string
	Length      int
	Fingerprint string
	CreatedAt   time.Time
}
