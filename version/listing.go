package version

import (
	"context"
	"fmt"
	"slices"

	"github.com/hupe1980/indexlib/directory"
)

// ListSegments returns the ids of the segment directories in dir, ascending.
// Other entries are ignored.
func ListSegments(ctx context.Context, dir *directory.Directory) ([]SegmentID, error) {
	names, err := dir.ListDir(ctx, "")
	if err != nil {
		return nil, err
	}
	ids := make([]SegmentID, 0, len(names))
	for _, n := range names {
		if id, ok := SegmentIDFromDirName(n); ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// ListVersions returns the ids of the version files in dir, ascending.
// Other entries are ignored.
func ListVersions(ctx context.Context, dir *directory.Directory) ([]VersionID, error) {
	names, err := dir.ListDir(ctx, "")
	if err != nil {
		return nil, err
	}
	ids := make([]VersionID, 0, len(names))
	for _, n := range names {
		if !IsVersionFileName(n) {
			continue
		}
		id, _ := VersionIDFromFileName(n)
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Load reads version id from dir.
func Load(ctx context.Context, dir *directory.Directory, id VersionID) (*Version, error) {
	name := VersionFileName(id)
	data, err := dir.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	v, err := FromString(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dir.OutputPath(name), err)
	}
	if v.ID() != id {
		return nil, fmt.Errorf("%s: %w", dir.OutputPath(name), errIDMismatch(id, v.ID()))
	}
	return v, nil
}

// LoadLatest reads the version with the highest id in dir. It returns an
// invalid version when dir holds none.
func LoadLatest(ctx context.Context, dir *directory.Directory) (*Version, error) {
	ids, err := ListVersions(ctx, dir)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return Invalid(), nil
	}
	return Load(ctx, dir, ids[len(ids)-1])
}

// LoadAll reads every version in dir, ascending by id. It fails on the
// first version that cannot be read.
func LoadAll(ctx context.Context, dir *directory.Directory) ([]*Version, error) {
	ids, err := ListVersions(ctx, dir)
	if err != nil {
		return nil, err
	}
	out := make([]*Version, 0, len(ids))
	for _, id := range ids {
		v, err := Load(ctx, dir, id)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Store writes v to dir, replacing a file with the same id.
func Store(ctx context.Context, dir *directory.Directory, v *Version) error {
	data, err := v.ToString()
	if err != nil {
		return err
	}
	return dir.Store(ctx, VersionFileName(v.ID()), []byte(data))
}

// StoreIfAbsent writes v to dir unless a version with the same id exists,
// in which case the error satisfies status.IsExist.
func StoreIfAbsent(ctx context.Context, dir *directory.Directory, v *Version) error {
	data, err := v.ToString()
	if err != nil {
		return err
	}
	return dir.StoreIfAbsent(ctx, VersionFileName(v.ID()), []byte(data))
}
