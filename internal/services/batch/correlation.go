// -----------------------------------------------------------------------
// Correlation ID - Lossless encode/decode of per-request identity
// -----------------------------------------------------------------------

package batch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Delimiter separates correlation id components. Entity ids are UUIDs and
// task prefixes / sub-task tags are chosen without underscores, so the
// delimiter can never appear inside a component. Encode enforces this
// loudly rather than risking a result being routed to the wrong entity.
const Delimiter = "_"

// ErrBadCorrelation is returned when a correlation id cannot be decoded.
// Callers must skip (never guess) records carrying an undecodable id.
var ErrBadCorrelation = errors.New("malformed correlation id")

// CorrelationID identifies one (entity, sub-task) request inside a bulk
// submission. The ordinal exists only to guarantee uniqueness when the same
// entity appears with the same sub-task more than once in one envelope set.
type CorrelationID struct {
	TaskPrefix string
	EntityID   string
	SubTaskTag string
	Ordinal    int
}

// NewCorrelationID builds a correlation id, rejecting components that are
// empty or contain the delimiter.
func NewCorrelationID(taskPrefix, entityID, subTaskTag string, ordinal int) (CorrelationID, error) {
	for name, v := range map[string]string{
		"task prefix":  taskPrefix,
		"entity id":    entityID,
		"sub-task tag": subTaskTag,
	} {
		if v == "" {
			return CorrelationID{}, fmt.Errorf("correlation %s cannot be empty", name)
		}
		if strings.Contains(v, Delimiter) {
			return CorrelationID{}, fmt.Errorf("correlation %s %q contains reserved delimiter %q", name, v, Delimiter)
		}
	}
	if ordinal < 0 {
		return CorrelationID{}, fmt.Errorf("correlation ordinal cannot be negative")
	}
	return CorrelationID{
		TaskPrefix: taskPrefix,
		EntityID:   entityID,
		SubTaskTag: subTaskTag,
		Ordinal:    ordinal,
	}, nil
}

// String serializes the correlation id for the provider boundary.
// Format: {taskPrefix}_{entityId}_{subTaskTag}_{ordinal}
func (c CorrelationID) String() string {
	return strings.Join([]string{c.TaskPrefix, c.EntityID, c.SubTaskTag, strconv.Itoa(c.Ordinal)}, Delimiter)
}

// ParseCorrelationID is the inverse of String. Decoding is deterministic:
// any input that does not split into exactly four non-empty components with
// a numeric ordinal fails with ErrBadCorrelation.
func ParseCorrelationID(s string) (CorrelationID, error) {
	parts := strings.Split(s, Delimiter)
	if len(parts) != 4 {
		return CorrelationID{}, fmt.Errorf("%w: %q has %d segments, want 4", ErrBadCorrelation, s, len(parts))
	}
	for _, p := range parts {
		if p == "" {
			return CorrelationID{}, fmt.Errorf("%w: %q has an empty segment", ErrBadCorrelation, s)
		}
	}
	ordinal, err := strconv.Atoi(parts[3])
	if err != nil || ordinal < 0 {
		return CorrelationID{}, fmt.Errorf("%w: %q has non-numeric ordinal %q", ErrBadCorrelation, s, parts[3])
	}
	return CorrelationID{
		TaskPrefix: parts[0],
		EntityID:   parts[1],
		SubTaskTag: parts[2],
		Ordinal:    ordinal,
	}, nil
}
