package models

import "time"

// FolderType is the sentinel fileType value for folder records.
const FolderType = "folder"

// SecretKeyRef is the handle to KMS key material for a secret file.
// The plaintext data key is never part of this struct and never persisted.
type SecretKeyRef struct {
	DataKeyID   string `json:"dataKeyId"`
	EncryptedDK string `json:"encryptedDK"` // wrapped data key (base64, opaque to us)
	IV          string `json:"iv"`          // hex
	DKHash      string `json:"dkHash"`      // hex sha256 of the plaintext data key
	KeyVersion  string `json:"keyVersion"`  // master key version, e.g. "v1"
}

// File is one resource in an owner's namespace: a file or a folder.
// Sibling names are unique per (owner, folderPath, kind); uniqueness is
// maintained by collision-suffix renaming, not a hard constraint.
type File struct {
	ID         string        `json:"_id"`
	Owner      string        `json:"owner"`
	FolderPath string        `json:"folderPath"` // "" = root; "/"-separated segments
	FileName   string        `json:"fileName"`
	FileType   string        `json:"fileType"` // mime type, or "folder"
	FilePath   string        `json:"filePath"` // canonical download URL
	FileSize   int64         `json:"fileSize"`
	IsSecret   bool          `json:"isSecret"`
	Shared     bool          `json:"-"` // back-reference: an active file share exists
	SecretKey  *SecretKeyRef `json:"-"`
	CreatedAt  time.Time     `json:"-"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// IsFolder reports whether the record is a folder.
func (f *File) IsFolder() bool { return f.FileType == FolderType }

// FullPath returns the owner-relative path of the resource.
func (f *File) FullPath() string {
	if f.FolderPath == "" {
		return f.FileName
	}
	return f.FolderPath + "/" + f.FileName
}
