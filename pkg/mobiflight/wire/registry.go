// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package wire holds the building blocks shared by the MobiFlight protocol
// packages: numeric range guards, typed format errors and the bijective
// symbol to wire code registry.
package wire

import "fmt"

// Entry binds a symbol to its wire code
type Entry[S comparable] struct {
	Symbol S
	Code   int
}

// Registry is an immutable bijection between symbols and wire codes.
// It is safe for concurrent use.
type Registry[S comparable] struct {
	byCode   map[uint8]S
	bySymbol map[S]uint8
	ordered  []S
}

// NewRegistry builds a registry, rejecting duplicate symbols, duplicate codes
// and codes that do not fit an unsigned byte.
func NewRegistry[S comparable](entries []Entry[S]) (*Registry[S], error) {
	r := &Registry[S]{
		byCode:   make(map[uint8]S, len(entries)),
		bySymbol: make(map[S]uint8, len(entries)),
		ordered:  make([]S, 0, len(entries)),
	}

	for _, e := range entries {
		if _, err := RequireUint8(e.Code); err != nil {
			return nil, fmt.Errorf("wire code for %v: %w", e.Symbol, err)
		}
		code := uint8(e.Code)
		if prev, ok := r.byCode[code]; ok {
			return nil, fmt.Errorf("duplicate encoding %d for %v and %v", code, prev, e.Symbol)
		}
		if _, ok := r.bySymbol[e.Symbol]; ok {
			return nil, fmt.Errorf("duplicate symbol %v", e.Symbol)
		}
		r.byCode[code] = e.Symbol
		r.bySymbol[e.Symbol] = code
		r.ordered = append(r.ordered, e.Symbol)
	}

	return r, nil
}

// MustRegistry is like NewRegistry but panics on an invalid table.
// Intended for package-level initialization only.
func MustRegistry[S comparable](entries []Entry[S]) *Registry[S] {
	r, err := NewRegistry(entries)
	if err != nil {
		panic("wire: " + err.Error())
	}
	return r
}

// FromCode resolves a wire code; unknown codes report false
func (r *Registry[S]) FromCode(code int) (S, bool) {
	var zero S
	if code < MinUint8 || code > MaxUint8 {
		return zero, false
	}
	s, ok := r.byCode[uint8(code)]
	return s, ok
}

// Code returns the wire code of a symbol
func (r *Registry[S]) Code(s S) (uint8, bool) {
	c, ok := r.bySymbol[s]
	return c, ok
}

// Symbols returns all symbols in table order
func (r *Registry[S]) Symbols() []S {
	out := make([]S, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Len returns the number of entries
func (r *Registry[S]) Len() int {
	return len(r.ordered)
}
