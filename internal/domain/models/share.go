package models

import "time"

// ShareOption is the visibility tier of a share.
type ShareOption string

const (
	SharePrivate    ShareOption = "private"
	ShareDepartment ShareOption = "department"
	SharePublic     ShareOption = "public"
	ShareSecret     ShareOption = "secret"
)

// Valid reports whether the option is one of the four known tiers.
func (o ShareOption) Valid() bool {
	switch o {
	case SharePrivate, ShareDepartment, SharePublic, ShareSecret:
		return true
	}
	return false
}

// SharedFile is a published access grant for one file or one folder subtree.
// At most one active record exists per (owner, target); re-sharing upserts
// in place and the ID is the stable public share handle.
type SharedFile struct {
	ID                    string      `json:"_id"`
	FileID                *string     `json:"file,omitempty"` // nil for folder shares
	Owner                 string      `json:"owner"`
	ShareOption           ShareOption `json:"shareOption"`
	SharedWithDepartments []string    `json:"sharedWithDepartments,omitempty"` // non-empty iff department
	IsFolder              bool        `json:"isFolder"`
	FolderPath            string      `json:"folderPath,omitempty"` // as supplied by the sharer
	FullPath              string      `json:"fullPath,omitempty"`   // canonical path from the owner's root
	IsPinned              bool        `json:"isPinned"`
	PinnedAt              *time.Time  `json:"pinnedAt,omitempty"`
	CreatedAt             time.Time   `json:"createdAt"`
}
