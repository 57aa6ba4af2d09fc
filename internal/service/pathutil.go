// Package service implements the drive's business logic on top of the
// repository, storage and KMS layers.
package service

import (
	"fmt"
	"strings"

	"github.com/PaaDream1999/inspect-drive/internal/config"
	"github.com/PaaDream1999/inspect-drive/internal/domain"
)

// NormalizePath canonicalizes a user-supplied folder path: backslashes become
// slashes, surrounding whitespace and slashes are trimmed and empty segments
// collapse. The root folder is the empty string.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), `\`, "/")

	var segs []string
	for _, seg := range strings.Split(p, "/") {
		if seg = strings.TrimSpace(seg); seg != "" {
			segs = append(segs, seg)
		}
	}
	return strings.Join(segs, "/")
}

// ValidatePath rejects traversal segments and over-long names anywhere in a
// normalized path. The empty path (root) is valid.
func ValidatePath(p string) error {
	if p == "" {
		return nil
	}
	for _, seg := range strings.Split(p, "/") {
		if err := ValidateSegment(seg); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSegment rejects one path segment that could escape or break the
// namespace.
func ValidateSegment(seg string) error {
	switch {
	case seg == "" || seg == "." || seg == "..":
		return fmt.Errorf("invalid path segment %q: %w", seg, domain.ErrValidation)
	case len(seg) > config.MaxFileNameLength:
		return fmt.Errorf("path segment too long: %w", domain.ErrValidation)
	case strings.ContainsAny(seg, "/\\"):
		return fmt.Errorf("path segment %q contains a separator: %w", seg, domain.ErrValidation)
	}
	return nil
}

// JoinPath joins a folder path and a name, treating "" as root.
func JoinPath(folderPath, name string) string {
	if folderPath == "" {
		return name
	}
	return folderPath + "/" + name
}

// SplitPath splits a full path into its parent folder path and leaf name.
func SplitPath(fullPath string) (folderPath, name string) {
	idx := strings.LastIndex(fullPath, "/")
	if idx < 0 {
		return "", fullPath
	}
	return fullPath[:idx], fullPath[idx+1:]
}

// CandidateName returns the nth collision candidate for a name. For files
// the suffix goes before the extension: "report.pdf" becomes "report(1).pdf".
// Folder names have no extension, so the suffix lands on the full name:
// "v1.2" becomes "v1.2(1)". n = 0 returns the name unchanged.
func CandidateName(fileName string, n int, folder bool) string {
	if n == 0 {
		return fileName
	}
	if folder {
		return fmt.Sprintf("%s(%d)", fileName, n)
	}
	base, ext := splitExt(fileName)
	return fmt.Sprintf("%s(%d)%s", base, n, ext)
}

// splitExt splits at the last dot. A leading dot ("dotfile" style names)
// counts as part of the base, not an extension.
func splitExt(name string) (base, ext string) {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 {
		return name, ""
	}
	return name[:idx], name[idx:]
}
