package device

import (
	"github.com/srg/gattpanel/internal/bledb"
)

// NormalizeUUID converts a backend UUID string (go-ble undashed hex, BlueZ
// dashed 128-bit) to the form used across the panel: lowercase, no dashes,
// Bluetooth SIG base UUIDs shortened to 16 bits.
func NormalizeUUID(uuid string) string {
	return bledb.NormalizeUUID(uuid)
}
