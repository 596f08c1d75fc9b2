package models

import "github.com/google/uuid"

// Grant assigns capabilities to one user on one folder and, through the
// resolver walk, on everything beneath it. Unique per (folder, user).
type Grant struct {
	FolderID  uuid.UUID
	UserID    uuid.UUID
	CanView   bool
	CanEdit   bool
	CanUpload bool
}

// Allows reports whether the grant's flag for the capability is set.
func (g *Grant) Allows(c Capability) bool {
	switch c {
	case CapabilityView:
		return g.CanView
	case CapabilityEdit:
		return g.CanEdit
	case CapabilityUpload:
		return g.CanUpload
	default:
		return false
	}
}
