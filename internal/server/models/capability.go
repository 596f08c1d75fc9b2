package models

// Capability is the unit of permission grant on a folder subtree.
type Capability int

const (
	CapabilityView Capability = iota
	CapabilityEdit
	CapabilityUpload
)

func (c Capability) String() string {
	switch c {
	case CapabilityView:
		return "view"
	case CapabilityEdit:
		return "edit"
	case CapabilityUpload:
		return "upload"
	default:
		return "unknown"
	}
}
