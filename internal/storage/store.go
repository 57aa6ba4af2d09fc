// Package storage is the blob store behind the drive: raw bytes addressed by
// owner id plus owner-relative path.
package storage

// Store is the blob store contract. Paths are owner-relative, "/"-separated
// and must not escape the owner's root.
type Store interface {
	Write(ownerID, path string, data []byte) error
	Read(ownerID, path string) ([]byte, error)
	Delete(ownerID, path string) error

	// Rename moves a file or directory in one operation
	Rename(ownerID, oldPath, newPath string) error

	// EnsureDir creates a directory (and parents) if missing
	EnsureDir(ownerID, path string) error

	// Exists reports whether anything occupies the path
	Exists(ownerID, path string) (bool, error)

	// RemoveTree deletes a directory and everything under it
	RemoveTree(ownerID, path string) error
}
