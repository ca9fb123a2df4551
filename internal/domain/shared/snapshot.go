package shared

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// snapshotIgnored are bookkeeping fields that never take part in diffs or restores
var snapshotIgnored = []string{"id", "created_at", "updated_at"}

// Snapshot is the field-name -> value representation of an entity, as stored
// in the extra payload of log entries.
type Snapshot map[string]any

// TakeSnapshot captures the JSON-visible fields of v.
func TakeSnapshot(v any) (Snapshot, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	for _, key := range snapshotIgnored {
		delete(s, key)
	}
	return s, nil
}

// ApplySnapshot writes the fields present in s onto v. Fields missing from s
// are left untouched.
func ApplySnapshot(v any, s Snapshot) error {
	filtered := make(map[string]any, len(s))
	for k, val := range s {
		filtered[k] = val
	}
	for _, key := range snapshotIgnored {
		delete(filtered, key)
	}
	raw, err := json.Marshal(filtered)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("apply snapshot: %w", err)
	}
	return nil
}

// Diff compares two snapshots and returns the sorted names of changed fields
// together with their old and new values.
func Diff(before, after Snapshot) (fields []string, oldValues, newValues Snapshot) {
	oldValues = Snapshot{}
	newValues = Snapshot{}
	seen := map[string]struct{}{}
	for k := range before {
		seen[k] = struct{}{}
	}
	for k := range after {
		seen[k] = struct{}{}
	}
	for k := range seen {
		if reflect.DeepEqual(before[k], after[k]) {
			continue
		}
		fields = append(fields, k)
		oldValues[k] = before[k]
		newValues[k] = after[k]
	}
	sort.Strings(fields)
	return fields, oldValues, newValues
}

// SnapshotFromAny converts a decoded JSON value (as stored in a log entry)
// back into a Snapshot. It returns false if v is not an object.
func SnapshotFromAny(v any) (Snapshot, bool) {
	switch m := v.(type) {
	case Snapshot:
		return m, true
	case map[string]any:
		return Snapshot(m), true
	}
	return nil, false
}
