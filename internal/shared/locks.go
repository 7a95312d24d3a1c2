package shared

import "fmt"

// SequenceLockKey builds the redis key serialising one numbering series.
func SequenceLockKey(prefix string, year int) string {
	return fmt.Sprintf("fabricflow:sequence:%s:%d:lock", prefix, year)
}
