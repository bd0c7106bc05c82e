// Package bledb resolves Bluetooth SIG assigned numbers to human-readable names.
//
// The name tables live in bledb_generated.go, produced by ./gen from Nordic
// Semiconductor's bluetooth-numbers-database.
//
// Lookups accept any common UUID spelling (short form, 0x prefix, dashed or
// undashed 128-bit, braces). UUIDs built on the Bluetooth SIG base UUID are
// reduced to their 16-bit short form before the lookup.
package bledb

import (
	"strings"
)

//go:generate go run ./gen

const sigBaseSuffix = "00001000800000805f9b34fb"

// NormalizeUUID converts a UUID string to the internal format (lowercase, no dashes).
// SIG base UUIDs are shortened to 16 bits. The result is not validated.
func NormalizeUUID(uuid string) string {
	u := strings.ToLower(strings.TrimSpace(uuid))
	u = strings.TrimPrefix(u, "0x")
	u = strings.NewReplacer("-", "", "{", "", "}", "").Replace(u)

	if len(u) == 32 && strings.HasPrefix(u, "0000") && strings.HasSuffix(u, sigBaseSuffix) {
		return u[4:8]
	}
	return u
}

// LookupService returns the SIG name of a service UUID, or "" if unknown.
func LookupService(uuid string) string {
	return services[NormalizeUUID(uuid)]
}

// LookupCharacteristic returns the SIG name of a characteristic UUID, or "" if unknown.
func LookupCharacteristic(uuid string) string {
	return characteristics[NormalizeUUID(uuid)]
}

// LookupDescriptor returns the SIG name of a descriptor UUID, or "" if unknown.
func LookupDescriptor(uuid string) string {
	return descriptors[NormalizeUUID(uuid)]
}
