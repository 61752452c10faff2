package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainMutation = "prism/mutation/v1"
	DomainDecls    = "prism/decls/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents domain/data
// boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// MutationID computes the content-addressed ID for a mutation record.
// The ID is stable across restarts and replays given the same inputs, so
// journal writes stay idempotent.
func MutationID(target, property string, old, newVal Value, seq int64) (string, error) {
	obj := Object{
		"target":   String(target),
		"property": String(property),
		"old":      old,
		"new":      newVal,
		"seq":      Int(seq),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("MutationID: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainMutation, canonical), nil
}

// DeclSetHash computes a stable hash over a set of compiled type
// declarations. Stamped onto every mutation record so replay can detect a
// journal produced under different declarations.
func DeclSetHash(specs []TypeSpec) (string, error) {
	arr := make(Array, 0, len(specs))
	for i := range specs {
		spec := &specs[i]
		props := make(Array, 0, len(spec.Properties))
		for j := range spec.Properties {
			p := &spec.Properties[j]
			po := Object{
				"name":     String(p.Name),
				"kind":     String(p.Kind),
				"scope":    String(p.Scope),
				"laziness": String(p.Laziness),
				"get":      String(p.Get),
			}
			if p.HasDefault {
				po["default"] = p.Default
			}
			props = append(props, po)
		}
		arr = append(arr, Object{
			"name":       String(spec.Name),
			"extends":    String(spec.Extends),
			"properties": props,
		})
	}

	canonical, err := MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("DeclSetHash: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainDecls, canonical), nil
}
