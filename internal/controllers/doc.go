// Package controllers holds the capability registry: one concrete
// implementation per capability (transport, files, storage, installation
// identity, user session, crypto) bound at startup and read by the request
// and file pipelines on every call.
//
// # Concurrency
//
// The registry does no locking. Binding happens once, from a single goroutine,
// before any pipeline is used; after that the registry is read-only and safe
// for concurrent readers. Rebinding while requests are in flight is a caller
// error and is not detected.
package controllers
