// Package segment describes the metadata of one on-disk segment.
//
// Every dumped segment directory carries a "segment_info" JSON file. A
// segment is only safe to adopt during recovery when that file is present,
// parses and marks the segment as finalized.
package segment

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/hupe1980/indexlib/directory"
	"github.com/hupe1980/indexlib/status"
	"github.com/hupe1980/indexlib/version"
)

// InfoFileName is the name of the metadata file inside a segment directory.
const InfoFileName = "segment_info"

// State is the lifecycle state of a segment.
type State uint8

const (
	// StateBuilding: the segment exists only in memory or without metadata.
	StateBuilding State = iota
	// StateDumped: the segment was written by direct ingestion.
	StateDumped
	// StateMerged: the segment was produced by a merge.
	StateMerged
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateDumped:
		return "dumped"
	case StateMerged:
		return "merged"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Info is the content of the segment_info file.
type Info struct {
	DocCount     uint64            `json:"doc_count"`
	Timestamp    int64             `json:"timestamp"`
	Locator      version.Locator   `json:"locator"`
	SchemaID     version.SchemaID  `json:"schema_id"`
	IsMerged     bool              `json:"is_merged_segment"`
	Finalized    bool              `json:"finalized"`
	ShardCount   uint32            `json:"shard_count"`
	MaxTTL       int64             `json:"max_ttl,omitempty"`
	Descriptions map[string]string `json:"descriptions,omitempty"`
}

// State derives the lifecycle state recorded by the info.
func (i Info) State() State {
	if i.IsMerged {
		return StateMerged
	}
	return StateDumped
}

// Equal reports whether both infos are identical.
func (i Info) Equal(other Info) bool {
	return i.DocCount == other.DocCount &&
		i.Timestamp == other.Timestamp &&
		i.Locator.Equal(other.Locator) &&
		i.SchemaID == other.SchemaID &&
		i.IsMerged == other.IsMerged &&
		i.Finalized == other.Finalized &&
		i.ShardCount == other.ShardCount &&
		i.MaxTTL == other.MaxTTL &&
		maps.Equal(i.Descriptions, other.Descriptions)
}

// WriteInfo stores info into the segment directory dir.
func WriteInfo(ctx context.Context, dir *directory.Directory, info Info) error {
	if info.ShardCount == 0 {
		info.ShardCount = 1
	}
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return dir.Store(ctx, InfoFileName, data)
}

// LoadInfo reads the info of the segment directory dir. A missing file
// satisfies status.IsNotFound and a malformed one status.IsConfigError.
func LoadInfo(ctx context.Context, dir *directory.Directory) (Info, error) {
	data, err := dir.Load(ctx, InfoFileName)
	if err != nil {
		return Info{}, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return Info{}, status.NewParseError(dir.OutputPath(InfoFileName), err)
	}
	return info, nil
}

// StateOf returns the lifecycle state of the segment directory dir.
func StateOf(ctx context.Context, dir *directory.Directory) (State, error) {
	info, err := LoadInfo(ctx, dir)
	switch {
	case err == nil:
		return info.State(), nil
	case status.IsNotFound(err), status.IsConfigError(err):
		return StateBuilding, nil
	default:
		return StateBuilding, err
	}
}

// IsRecoverable reports whether the segment directory dir holds complete,
// finalized metadata. I/O failures other than a missing or malformed info
// file are returned.
func IsRecoverable(ctx context.Context, dir *directory.Directory) (Info, bool, error) {
	info, err := LoadInfo(ctx, dir)
	switch {
	case err == nil:
		return info, info.Finalized, nil
	case status.IsNotFound(err), status.IsConfigError(err):
		return Info{}, false, nil
	default:
		return Info{}, false, err
	}
}
