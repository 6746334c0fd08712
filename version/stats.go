package version

import "maps"

// IntegerRange is an inclusive [min, max] range, encoded as a two element array.
type IntegerRange [2]int64

// SegmentStatistics holds per-field value ranges of one segment for pruning
// and merge planning.
type SegmentStatistics struct {
	SegmentID    SegmentID               `json:"segment_id"`
	IntegerStats map[string]IntegerRange `json:"integer_stats,omitempty"`
}

// Equal reports whether both statistics are identical.
func (s SegmentStatistics) Equal(other SegmentStatistics) bool {
	return s.SegmentID == other.SegmentID && maps.Equal(s.IntegerStats, other.IntegerStats)
}

func (s SegmentStatistics) clone() SegmentStatistics {
	s.IntegerStats = maps.Clone(s.IntegerStats)
	return s
}

// SegmentTemperatureMeta records the storage temperature of a segment.
type SegmentTemperatureMeta struct {
	SegmentID   SegmentID `json:"segment_id"`
	Temperature string    `json:"segment_temperature"`
	Detail      string    `json:"segment_temperature_detail,omitempty"`
}
