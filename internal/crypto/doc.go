// Package crypto seals key material at rest.
//
// Implements XChaCha20-Poly1305 sealing for the CKKS key bundle written by the key store.
// Two implementations: XChaChaSealer (production) and NoopSealer (dev/test plaintext passthrough).
package crypto
