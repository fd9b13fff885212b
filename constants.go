package kacchios

import "github.com/kacchi-os/kacchios/internal/constants"

// Re-export internal constants for callers that want the reference
// defaults without importing the internal package directly.
const (
	DefaultTableCapacity = constants.DefaultTableCapacity
	DefaultStackSize     = constants.DefaultStackSize
	DefaultTimeQuantum   = constants.DefaultTimeQuantum
	AgingThreshold       = constants.AgingThreshold
	QueueCapacity        = constants.QueueCapacity
	HeapSize             = constants.HeapSize
	HeapAlignment        = constants.HeapAlignment
)
