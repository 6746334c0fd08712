package version

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/indexlib/status"
)

type segmentDescriptions struct {
	SegmentStatistics       []SegmentStatistics      `json:"segment_statistics,omitempty"`
	SegmentTemperatureMetas []SegmentTemperatureMeta `json:"segment_temperature_metas,omitempty"`
}

type versionJSON struct {
	VersionID           *VersionID           `json:"versionid"`
	Segments            []SegmentID          `json:"segments"`
	SegmentBranchNames  []string             `json:"segment_branch_names,omitempty"`
	LastSegmentID       *SegmentID           `json:"last_segmentid,omitempty"`
	Timestamp           int64                `json:"timestamp"`
	CommitTime          int64                `json:"commit_time,omitempty"`
	Locator             string               `json:"locator,omitempty"`
	SchemaVersion       SchemaID             `json:"schema_version"`
	ReadSchemaVersion   SchemaID             `json:"read_schema_version,omitempty"`
	SchemaRoadMap       []SchemaID           `json:"schema_version_roadmap,omitempty"`
	FormatVersion       int                  `json:"format_version"`
	FenceName           string               `json:"fence_name,omitempty"`
	Sealed              bool                 `json:"sealed,omitempty"`
	VersionLine         *VersionLine         `json:"version_line,omitempty"`
	IndexTaskQueue      []IndexTaskMeta      `json:"index_task_queue,omitempty"`
	SegmentDescriptions *segmentDescriptions `json:"segment_descriptions,omitempty"`
	Descriptions        map[string]string    `json:"descriptions,omitempty"`

	// Written by releases before segment_descriptions existed.
	LegacySegmentStatistics       []SegmentStatistics      `json:"segment_statistics,omitempty"`
	LegacySegmentTemperatureMetas []SegmentTemperatureMeta `json:"segment_temperature_metas,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (v *Version) MarshalJSON() ([]byte, error) {
	id := v.id
	last := v.lastSegmentID
	line := v.versionLine

	out := versionJSON{
		VersionID:         &id,
		Segments:          v.segments,
		LastSegmentID:     &last,
		Timestamp:         v.timestamp,
		CommitTime:        v.commitTime,
		Locator:           v.locator.String(),
		SchemaVersion:     v.schemaID,
		ReadSchemaVersion: v.readSchemaID,
		SchemaRoadMap:     v.roadMap,
		FormatVersion:     v.formatVersion,
		FenceName:         v.fenceName,
		Sealed:            v.sealed,
		VersionLine:       &line,
		IndexTaskQueue:    v.tasks,
		Descriptions:      v.descriptions,
	}
	if out.Segments == nil {
		out.Segments = []SegmentID{}
	}
	if slices.ContainsFunc(v.branches, func(s string) bool { return s != "" }) {
		out.SegmentBranchNames = v.branches
	}
	if len(v.statistics) > 0 || len(v.temperatures) > 0 {
		out.SegmentDescriptions = &segmentDescriptions{
			SegmentStatistics:       v.statistics,
			SegmentTemperatureMetas: v.temperatures,
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Version) UnmarshalJSON(data []byte) error {
	decoded, err := decode(data)
	if err != nil {
		return err
	}
	*v = *decoded
	return nil
}

// ToString encodes the version in its canonical on-disk form.
func (v *Version) ToString() (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FromString decodes a version produced by ToString. Malformed or
// structurally invalid content yields an error satisfying status.IsConfigError.
func FromString(s string) (*Version, error) {
	return decode([]byte(s))
}

func decode(data []byte) (*Version, error) {
	var in versionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, status.NewParseError("version", err)
	}
	if in.VersionID == nil {
		return nil, status.NewParseError("version", fmt.Errorf("missing versionid"))
	}

	v := &Version{
		id:            *in.VersionID,
		segments:      in.Segments,
		branches:      in.SegmentBranchNames,
		membership:    roaring.New(),
		lastSegmentID: InvalidSegmentID,
		timestamp:     in.Timestamp,
		commitTime:    in.CommitTime,
		schemaID:      in.SchemaVersion,
		readSchemaID:  in.ReadSchemaVersion,
		roadMap:       in.SchemaRoadMap,
		formatVersion: in.FormatVersion,
		fenceName:     in.FenceName,
		sealed:        in.Sealed,
		versionLine:   NewVersionLine(),
		tasks:         in.IndexTaskQueue,
		descriptions:  in.Descriptions,
	}

	for i, id := range v.segments {
		if id < 0 || (i > 0 && id <= v.segments[i-1]) {
			return nil, status.NewParseError("version", fmt.Errorf("segments not strictly increasing at index %d", i))
		}
		v.membership.Add(uint32(id))
		v.lastSegmentID = id
	}
	if in.LastSegmentID != nil && *in.LastSegmentID > v.lastSegmentID {
		v.lastSegmentID = *in.LastSegmentID
	}

	switch {
	case v.branches == nil:
		v.branches = make([]string, len(v.segments))
	case len(v.branches) != len(v.segments):
		return nil, status.NewParseError("version", fmt.Errorf("%d branch names for %d segments", len(v.branches), len(v.segments)))
	}
	if len(v.segments) == 0 {
		v.segments, v.branches = nil, nil
	}

	loc, err := ParseLocator(in.Locator)
	if err != nil {
		return nil, err
	}
	v.locator = loc

	if len(v.roadMap) == 0 {
		v.roadMap = []SchemaID{DefaultSchemaID}
	}
	if !slices.Contains(v.roadMap, v.schemaID) {
		v.roadMap = append(v.roadMap, v.schemaID)
	}
	if v.formatVersion == 0 {
		v.formatVersion = 1
	}
	if in.VersionLine != nil {
		v.versionLine = *in.VersionLine
	}

	stats, temps := in.LegacySegmentStatistics, in.LegacySegmentTemperatureMetas
	if in.SegmentDescriptions != nil {
		stats = in.SegmentDescriptions.SegmentStatistics
		temps = in.SegmentDescriptions.SegmentTemperatureMetas
	}
	v.statistics = slices.DeleteFunc(stats, func(s SegmentStatistics) bool { return !v.HasSegment(s.SegmentID) })
	v.temperatures = slices.DeleteFunc(temps, func(t SegmentTemperatureMeta) bool { return !v.HasSegment(t.SegmentID) })
	if len(v.statistics) == 0 {
		v.statistics = nil
	}
	if len(v.temperatures) == 0 {
		v.temperatures = nil
	}

	for _, t := range v.tasks {
		if t.TaskType == "" || t.TaskName == "" {
			return nil, status.NewParseError("version", fmt.Errorf("index task without type or name"))
		}
	}
	return v, nil
}
