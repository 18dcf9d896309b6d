// Package app provides the application service layer.
//
// Orchestrates use cases: encrypt a vector, persist an envelope, read stored artifacts, publish the public context.
// Sits between HTTP handlers and the crypto/storage adapters. Depends on domain interfaces, not concrete implementations.
package app
