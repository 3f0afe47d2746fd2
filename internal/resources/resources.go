// Package resources embeds the built-in datasets shipped with the binary.
package resources

import _ "embed"

// FallbackEvents is the running-events dataset used when the live feed fails.
//
//go:embed fallback_events.json
var FallbackEvents []byte

// Attractions is the default literal attractions list, one WKT point each.
//
//go:embed attractions.json
var Attractions []byte
