package config

// Request and namespace limits.
const (
	// MaxFileNameLength bounds a single path segment
	MaxFileNameLength = 255

	// MaxUploadBytes bounds one multipart upload request
	MaxUploadBytes = 512 << 20

	// MaxCollisionProbes bounds the name(n) suffix search during move/upload
	MaxCollisionProbes = 1000
)
