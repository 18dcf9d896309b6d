// Package lattigo implements domain.CryptoLibrary on top of the Lattigo CKKS scheme.
//
// Contexts are exported as a framed bundle (see bundle.go) holding the marshaled
// parameters and keys. Public exports never contain the secret key section.
package lattigo
