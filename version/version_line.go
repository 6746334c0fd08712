package version

// DefaultVersionLineHistory bounds the number of key coordinates a version
// line remembers.
const DefaultVersionLineHistory = 8

// VersionCoord identifies a version across writers.
type VersionCoord struct {
	FenceName string    `json:"fence_name"`
	VersionID VersionID `json:"version_id"`
}

// InvalidVersionCoord is the coordinate of no version.
var InvalidVersionCoord = VersionCoord{VersionID: InvalidVersionID}

// IsValid reports whether the coordinate points at a version.
func (c VersionCoord) IsValid() bool {
	return c.VersionID != InvalidVersionID
}

// VersionLine records where a version came from: the coordinate of the
// version it was derived from and the latest coordinate per writer along
// its ancestry.
type VersionLine struct {
	Parent      VersionCoord   `json:"parent_version"`
	KeyVersions []VersionCoord `json:"key_versions,omitempty"`
}

// NewVersionLine returns an empty line.
func NewVersionLine() VersionLine {
	return VersionLine{Parent: InvalidVersionCoord}
}

// AddCurrentVersion appends c to the key history. Consecutive coordinates of
// the same writer collapse to the newest one and the history keeps at most
// DefaultVersionLineHistory entries.
func (l *VersionLine) AddCurrentVersion(c VersionCoord) {
	if n := len(l.KeyVersions); n > 0 && l.KeyVersions[n-1].FenceName == c.FenceName {
		l.KeyVersions[n-1] = c
		return
	}
	l.KeyVersions = append(l.KeyVersions, c)
	if over := len(l.KeyVersions) - DefaultVersionLineHistory; over > 0 {
		l.KeyVersions = append([]VersionCoord(nil), l.KeyVersions[over:]...)
	}
}

// Derive returns the line of a version derived from the version at c.
func (l VersionLine) Derive(c VersionCoord) VersionLine {
	return VersionLine{
		Parent:      c,
		KeyVersions: append([]VersionCoord(nil), l.KeyVersions...),
	}
}

// CanFastForwardFrom reports whether a reader positioned at from may move to
// the version owning this line without missing history.
func (l VersionLine) CanFastForwardFrom(from VersionCoord) bool {
	if !from.IsValid() {
		return true
	}
	if l.Parent == from {
		return true
	}
	for _, k := range l.KeyVersions {
		if k.FenceName == from.FenceName && k.VersionID >= from.VersionID {
			return true
		}
	}
	return false
}

// Equal reports whether both lines are identical.
func (l VersionLine) Equal(other VersionLine) bool {
	if l.Parent != other.Parent || len(l.KeyVersions) != len(other.KeyVersions) {
		return false
	}
	for i := range l.KeyVersions {
		if l.KeyVersions[i] != other.KeyVersions[i] {
			return false
		}
	}
	return true
}

func (l VersionLine) clone() VersionLine {
	l.KeyVersions = append([]VersionCoord(nil), l.KeyVersions...)
	return l
}
