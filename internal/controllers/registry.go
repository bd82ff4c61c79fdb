package controllers

import (
	"errors"
	"fmt"
)

var (
	ErrNotConfigured       = errors.New("capability not configured")
	ErrWrongImplementation = errors.New("bound implementation does not satisfy capability")
)

type Registry struct {
	slots map[Capability]any
}

func NewRegistry() *Registry {
	return &Registry{slots: make(map[Capability]any)}
}

// Bind replaces the implementation for c. Last writer wins; conformance is
// checked only when the typed getter is called.
func (r *Registry) Bind(c Capability, impl any) {
	if impl == nil {
		delete(r.slots, c)
		return
	}
	r.slots[c] = impl
}

// Get returns the implementation bound to c.
func (r *Registry) Get(c Capability) (any, error) {
	impl, ok := r.slots[c]
	if !ok {
		return nil, fmt.Errorf("%s: %w", c, ErrNotConfigured)
	}
	return impl, nil
}

// Has reports whether anything is bound to c.
func (r *Registry) Has(c Capability) bool {
	_, ok := r.slots[c]
	return ok
}

func (r *Registry) SetTransport(t Transport)                 { r.Bind(REST, t) }
func (r *Registry) SetFileController(f FileController)       { r.Bind(File, f) }
func (r *Registry) SetStorage(s StorageController)           { r.Bind(Storage, s) }
func (r *Registry) SetInstallation(i InstallationController) { r.Bind(Installation, i) }
func (r *Registry) SetUserController(u UserController)       { r.Bind(User, u) }
func (r *Registry) SetCrypto(c CryptoController)             { r.Bind(Crypto, c) }

func (r *Registry) Transport() (Transport, error) {
	return get[Transport](r, REST)
}

func (r *Registry) FileController() (FileController, error) {
	return get[FileController](r, File)
}

func (r *Registry) Storage() (StorageController, error) {
	return get[StorageController](r, Storage)
}

func (r *Registry) Installation() (InstallationController, error) {
	return get[InstallationController](r, Installation)
}

func (r *Registry) UserController() (UserController, error) {
	return get[UserController](r, User)
}

func (r *Registry) Crypto() (CryptoController, error) {
	return get[CryptoController](r, Crypto)
}

func get[T any](r *Registry, c Capability) (T, error) {
	var zero T
	impl, err := r.Get(c)
	if err != nil {
		return zero, err
	}
	typed, ok := impl.(T)
	if !ok {
		return zero, fmt.Errorf("%s: %w: %T", c, ErrWrongImplementation, impl)
	}
	return typed, nil
}
