// Package domain contains entities without logic, just meta-data.
package domain

type (
	SessionID string
	RoomName  string
)

// DefaultRoom is the implicit room used when a client does not name one.
const DefaultRoom RoomName = "default"

// Normalize maps an absent room name onto the implicit default room.
func (r RoomName) Normalize() RoomName {
	if r == "" {
		return DefaultRoom
	}
	return r
}

type Role string

const (
	RoleUnassigned Role = "unassigned"
	RolePresenter  Role = "presenter"
	RoleViewer     Role = "viewer"
)

// RecorderProfile is the media profile used by the engine's recorder element.
type RecorderProfile string

const (
	ProfileWebm          RecorderProfile = "WEBM"
	ProfileWebmVideoOnly RecorderProfile = "WEBM_VIDEO_ONLY"
)

// ProfileFor picks the recorder profile for a presenter source type.
// Screen shares carry no audio track, so they record video only.
func ProfileFor(sourceType string) RecorderProfile {
	switch sourceType {
	case "webcam":
		return ProfileWebm
	case "screen":
		return ProfileWebmVideoOnly
	default:
		return ProfileWebmVideoOnly
	}
}
