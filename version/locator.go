package version

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/indexlib/status"
)

// Locator is the ingestion checkpoint of a version: the source it was built
// from, the offset reached in that source and opaque user data.
type Locator struct {
	Src      uint64
	Offset   int64
	UserData []byte
}

// NewLocator returns a locator for offset in src.
func NewLocator(src uint64, offset int64) Locator {
	return Locator{Src: src, Offset: offset}
}

// IsEmpty reports whether the locator carries no progress.
func (l Locator) IsEmpty() bool {
	return l.Src == 0 && l.Offset == 0 && len(l.UserData) == 0
}

// IsFasterThan reports whether l has progressed at least as far as other in
// the same source. Locators of different sources are never comparable.
func (l Locator) IsFasterThan(other Locator) bool {
	if l.Src != other.Src {
		return false
	}
	return l.Offset >= other.Offset
}

// Equal reports whether both locators are identical.
func (l Locator) Equal(other Locator) bool {
	return l.Src == other.Src && l.Offset == other.Offset && string(l.UserData) == string(other.UserData)
}

// String encodes the locator as "<src>:<offset>:<base64 user data>".
func (l Locator) String() string {
	if l.IsEmpty() {
		return ""
	}
	return fmt.Sprintf("%d:%d:%s", l.Src, l.Offset, base64.StdEncoding.EncodeToString(l.UserData))
}

// ParseLocator decodes the String form. A bare decimal offset is accepted
// for locators written by older releases.
func ParseLocator(s string) (Locator, error) {
	if s == "" {
		return Locator{}, nil
	}

	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		offset, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Locator{}, status.NewParseError("locator", err)
		}
		return Locator{Offset: offset}, nil
	case 3:
		src, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			return Locator{}, status.NewParseError("locator", err)
		}
		offset, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return Locator{}, status.NewParseError("locator", err)
		}
		data, err := base64.StdEncoding.DecodeString(parts[2])
		if err != nil {
			return Locator{}, status.NewParseError("locator", err)
		}
		if len(data) == 0 {
			data = nil
		}
		return Locator{Src: src, Offset: offset, UserData: data}, nil
	default:
		return Locator{}, status.NewParseError("locator", fmt.Errorf("malformed locator %q", s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Locator) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Locator) UnmarshalText(text []byte) error {
	parsed, err := ParseLocator(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
