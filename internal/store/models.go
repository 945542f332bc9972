// Package store contains the GORM-backed SQLite models used by surfreplay.
//
// The harness keeps a single database (surfreplay.db) under its home
// directory. It holds one row per discovered DEX venue so repeated runs
// against the same node can skip the expensive getProgramAccounts scans.
package store

import (
	"gorm.io/gorm"
)

// Venue names used as the unique key of DiscoveredPool rows.
const (
	VenueRaydium = "raydium"
	VenueMeteora = "meteora"
)

// DiscoveredPool caches the result of venue discovery for one DEX.
// One row per venue; the payload is the JSON-encoded venue environment
// exactly as the step builders consume it.
type DiscoveredPool struct {
	gorm.Model
	Venue        string `gorm:"uniqueIndex;not null"` // "raydium" or "meteora"
	Address      string `gorm:"not null"`             // pool account address, base58
	Payload      []byte `gorm:"not null"`             // JSON-encoded venue environment
	RPCURL       string `gorm:"index"`                // node the pools were discovered on
	SlotObserved uint64 // slot at discovery time
}
