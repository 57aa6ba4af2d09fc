package service

import (
	"slices"

	"github.com/PaaDream1999/inspect-drive/internal/domain/models"
)

// Action is what the caller is trying to do with a shared resource.
type Action string

const (
	ActionViewMetadata Action = "view-metadata"
	ActionDownload     Action = "download"
	ActionPreview      Action = "preview"
	ActionDeleteShare  Action = "delete-share"
)

// Decision is the outcome of an access evaluation. RequireLogin marks a
// request that would be allowed with a verified identity, so callers can
// redirect to login instead of hard-denying.
type Decision struct {
	Allowed      bool
	RequireLogin bool
	Reason       string
}

func allow() Decision                { return Decision{Allowed: true} }
func deny(reason string) Decision    { return Decision{Reason: reason} }
func requireLogin(r string) Decision { return Decision{RequireLogin: true, Reason: r} }

// Evaluate decides whether principal may perform action on a resource owned
// by owner, given its active share (nil when unshared).
//
// Rule order matters: secret shares never allow preview, not even for the
// owner. After that the owner may do anything, and everyone else is bound by
// the share tier.
func Evaluate(action Action, owner string, share *models.SharedFile, principal models.Principal) Decision {
	if action == ActionPreview && share != nil && share.ShareOption == models.ShareSecret {
		return deny("Preview not allowed")
	}

	if !principal.Anonymous() && principal.UserID == owner {
		return allow()
	}

	if share == nil {
		return deny("not shared")
	}

	if action == ActionDeleteShare {
		return deny("only the owner can remove a share")
	}

	switch share.ShareOption {
	case models.SharePublic:
		return allow()

	case models.SharePrivate:
		return deny("shared privately")

	case models.ShareDepartment:
		if principal.Anonymous() {
			return requireLogin("department share requires a verified identity")
		}
		if slices.Contains(share.SharedWithDepartments, principal.Department) {
			return allow()
		}
		return deny("department not granted")

	case models.ShareSecret:
		// Metadata and download are open to anyone holding the link; the
		// download itself is still gated on key possession downstream.
		return allow()

	default:
		return deny("unknown share tier")
	}
}
