package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hupe1980/indexlib/status"
)

const (
	// VersionFilePrefix starts every version file name.
	VersionFilePrefix = "version."
	// SegmentDirPrefix starts every segment directory name.
	SegmentDirPrefix = "segment_"
)

var (
	segmentDirPattern  = regexp.MustCompile(`^segment_(\d+)_level_(\d+)$`)
	versionFilePattern = regexp.MustCompile(`^version\.(\d+)$`)
)

// SegmentDirName returns the directory name of segment id.
func SegmentDirName(id SegmentID) string {
	return fmt.Sprintf("%s%d_level_0", SegmentDirPrefix, id)
}

// SegmentIDFromDirName parses a segment directory name. It reports false for
// names that are not segment directories.
func SegmentIDFromDirName(name string) (SegmentID, bool) {
	m := segmentDirPattern.FindStringSubmatch(name)
	if m == nil {
		return InvalidSegmentID, false
	}
	id, err := strconv.ParseInt(m[1], 10, 32)
	if err != nil {
		return InvalidSegmentID, false
	}
	return SegmentID(id), true
}

// IsSegmentDirName reports whether name is a segment directory name.
func IsSegmentDirName(name string) bool {
	_, ok := SegmentIDFromDirName(name)
	return ok
}

// VersionFileName returns the file name of version id.
func VersionFileName(id VersionID) string {
	return VersionFilePrefix + strconv.FormatInt(int64(id), 10)
}

// VersionIDFromFileName parses a version file name. A name with the version
// prefix and a malformed suffix is an error satisfying status.IsConfigError.
func VersionIDFromFileName(name string) (VersionID, error) {
	suffix, ok := strings.CutPrefix(name, VersionFilePrefix)
	if !ok {
		return InvalidVersionID, status.InvalidArgsf("%q is not a version file name", name)
	}
	id, err := strconv.ParseInt(suffix, 10, 32)
	if err != nil || id < 0 {
		return InvalidVersionID, status.NewParseError(name, fmt.Errorf("malformed version id %q", suffix))
	}
	return VersionID(id), nil
}

// IsVersionFileName reports whether name is a well-formed version file name.
func IsVersionFileName(name string) bool {
	if !versionFilePattern.MatchString(name) {
		return false
	}
	_, err := VersionIDFromFileName(name)
	return err == nil
}

func errIDMismatch(want, got VersionID) error {
	return status.Corruptf("version file %d holds version %d", want, got)
}
