//go:build !windows && !darwin

package clipboard

// sequenceNumber is unavailable here; snapshots compare content hashes.
func sequenceNumber() (uint32, bool) { return 0, false }
