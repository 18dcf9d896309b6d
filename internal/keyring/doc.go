// Package keyring owns the CKKS crypto context for the process.
//
// In shared mode one context is loaded from the key store (or generated and saved) at startup and
// handed out to every request; in ephemeral mode each call gets fresh keys. The provider decides
// what is public: request paths only ever see a public view of the context, and secret exports
// require an administrative capability that the HTTP server never holds.
package keyring
