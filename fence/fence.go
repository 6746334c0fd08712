// Package fence isolates concurrent writers of one table.
//
// Each writer session owns a fence: a directory "__FENCE__<name>" below the
// table's global root. Segments and private version files are written inside
// the fence and only become globally visible when a version referencing them
// is published to the global root.
package fence

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hupe1980/indexlib/directory"
	"github.com/hupe1980/indexlib/status"
	"github.com/hupe1980/indexlib/version"
)

// DirPrefix starts the directory name of every fence.
const DirPrefix = "__FENCE__"

// Fence binds a writer identity to its private directory.
type Fence struct {
	name       string
	globalRoot *directory.Directory
	root       *directory.Directory
}

// DirName returns the directory name of the fence called name.
func DirName(name string) string {
	return DirPrefix + name
}

// NameFromDirName returns the fence name encoded in a directory name.
func NameFromDirName(dirName string) (string, bool) {
	name, ok := strings.CutPrefix(dirName, DirPrefix)
	return name, ok && name != ""
}

// GenerateName returns a fresh, unique fence name starting with prefix.
func GenerateName(prefix string) string {
	id := uuid.NewString()
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

// New creates (or reopens) the fence called name below globalRoot.
func New(ctx context.Context, globalRoot *directory.Directory, name string) (*Fence, error) {
	if name == "" || strings.Contains(name, "/") {
		return nil, status.InvalidArgsf("fence name %q", name)
	}
	root, err := globalRoot.MakeDirectory(ctx, DirName(name))
	if err != nil {
		return nil, fmt.Errorf("create fence %s: %w", name, err)
	}
	return &Fence{name: name, globalRoot: globalRoot, root: root}, nil
}

// Name returns the fence name.
func (f *Fence) Name() string { return f.name }

// GlobalRoot returns the table root shared by all writers.
func (f *Fence) GlobalRoot() *directory.Directory { return f.globalRoot }

// Root returns the private directory of the fence.
func (f *Fence) Root() *directory.Directory { return f.root }

// CreateSegmentDirectory creates the directory of segment id inside the fence.
func (f *Fence) CreateSegmentDirectory(ctx context.Context, id version.SegmentID) (*directory.Directory, error) {
	if id < 0 {
		return nil, status.InvalidArgsf("segment id %d", id)
	}
	return f.root.MakeDirectory(ctx, version.SegmentDirName(id))
}

// SegmentDirectory resolves the directory of segment id of version v,
// following the branch that produced it.
func SegmentDirectory(globalRoot *directory.Directory, v *version.Version, id version.SegmentID) (*directory.Directory, error) {
	if !v.HasSegment(id) {
		return nil, fmt.Errorf("segment %d in version %d: %w", id, v.ID(), status.ErrNotFound)
	}
	base := globalRoot
	if branch := v.BranchName(id); branch != "" {
		base = globalRoot.Sub(DirName(branch))
	}
	return base.Sub(version.SegmentDirName(id)), nil
}

// List returns the names of all fences below globalRoot.
func List(ctx context.Context, globalRoot *directory.Directory) ([]string, error) {
	entries, err := globalRoot.ListDir(ctx, "")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if name, ok := NameFromDirName(e); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// Remove deletes the fence called name and everything inside it.
func Remove(ctx context.Context, globalRoot *directory.Directory, name string) error {
	if name == "" {
		return status.InvalidArgsf("empty fence name")
	}
	return globalRoot.RemoveDirectory(ctx, DirName(name))
}
