// Package migrate upgrades project.json documents across schema versions
// using a (from, to) -> function registry, forward-only, preserving every
// unknown field by round-tripping through a generic JSON representation.
package migrate

import (
	"encoding/json"

	"github.com/antonholmquist/jason"

	"github.com/nuevaaudio/nueva-engine/internal/nerrors"
)

// CurrentSchemaVersion is the schema version migrate_project upgrades to.
const CurrentSchemaVersion = "1.0.0"

// versionOrder lists every schema version this engine knows about, oldest
// first. Entries beyond CurrentSchemaVersion are reserved for future
// migrations registered below.
var versionOrder = []string{"1.0.0", "1.1.0", "1.2.0", "2.0.0"}

// migrationFn transforms a decoded document from one schema version to the
// next, using jason for generic traversal so fields this engine doesn't
// know about survive the round-trip untouched.
type migrationFn func(*jason.Object) (*jason.Object, error)

type versionPair struct{ from, to string }

var registry = map[versionPair]migrationFn{
	// Placeholder migrations for schema versions beyond 1.0.0; registered
	// so find_migration_path has edges to walk once a real 1.1.0+ schema
	// ships. None apply today since CurrentSchemaVersion is still 1.0.0.
	{from: "1.0.0", to: "1.1.0"}: identityMigration,
	{from: "1.1.0", to: "1.2.0"}: identityMigration,
	{from: "1.2.0", to: "2.0.0"}: identityMigration,
}

func identityMigration(obj *jason.Object) (*jason.Object, error) { return obj, nil }

// MigrateProject reads schema_version from data (defaulting to "1.0.0"
// when absent), walks the forward migration path to CurrentSchemaVersion,
// and returns the migrated document with schema_version updated at each
// step. Downgrades and unrecognized versions fail with a structured error.
func MigrateProject(data []byte) ([]byte, error) {
	obj, err := jason.NewObjectFromBytes(data)
	if err != nil {
		return nil, nerrors.New(nerrors.KindCorruptProject, err).Build()
	}

	current, err := obj.GetString("schema_version")
	if err != nil || current == "" {
		current = "1.0.0"
	}

	if current == CurrentSchemaVersion {
		return setSchemaVersion(obj, CurrentSchemaVersion)
	}

	path, pathErr := FindMigrationPath(current, CurrentSchemaVersion)
	if pathErr != nil {
		return nil, pathErr
	}

	for _, step := range path {
		fn, ok := registry[step]
		if !ok {
			return nil, nerrors.Newf(nerrors.KindMigrationFailed, "migration function missing for %s -> %s", step.from, step.to).Build()
		}
		migrated, err := fn(obj)
		if err != nil {
			return nil, nerrors.Newf(nerrors.KindMigrationFailed, "migration %s -> %s failed: %v", step.from, step.to, err).Build()
		}
		obj = migrated
		updated, err := setSchemaVersion(obj, step.to)
		if err != nil {
			return nil, err
		}
		obj, err = jason.NewObjectFromBytes(updated)
		if err != nil {
			return nil, nerrors.New(nerrors.KindCorruptProject, err).Build()
		}
	}

	m, err := obj.Map()
	if err != nil {
		return nil, nerrors.New(nerrors.KindCorruptProject, err).Build()
	}
	return json.Marshal(m)
}

// FindMigrationPath returns the sequence of (from, to) steps needed to
// reach target from current, following versionOrder and the registry.
// Returns an error for downgrades and unrecognized versions; an empty,
// nil-error path if current == target.
func FindMigrationPath(current, target string) ([]versionPair, error) {
	if current == target {
		return nil, nil
	}

	fromIdx := indexOf(versionOrder, current)
	targetIdx := indexOf(versionOrder, target)
	if fromIdx == -1 {
		return nil, nerrors.Newf(nerrors.KindInvalidSchemaVersion, "unrecognized schema version %q", current).Build()
	}
	if targetIdx == -1 {
		return nil, nerrors.Newf(nerrors.KindInvalidSchemaVersion, "unrecognized schema version %q", target).Build()
	}
	if fromIdx > targetIdx {
		return nil, nerrors.Newf(nerrors.KindMigrationFailed, "cannot downgrade project from schema %q to %q", current, target).
			Context("from", current).Context("to", target).Build()
	}

	var path []versionPair
	idx := fromIdx
	for idx < targetIdx {
		found := false
		for next := idx + 1; next <= targetIdx; next++ {
			pair := versionPair{from: versionOrder[idx], to: versionOrder[next]}
			if _, ok := registry[pair]; ok {
				path = append(path, pair)
				idx = next
				found = true
				break
			}
		}
		if !found {
			return nil, nerrors.Newf(nerrors.KindMigrationFailed, "no migration path from %q to %q", current, target).Build()
		}
	}
	return path, nil
}

func indexOf(versions []string, v string) int {
	for i, candidate := range versions {
		if candidate == v {
			return i
		}
	}
	return -1
}

func setSchemaVersion(obj *jason.Object, version string) ([]byte, error) {
	m, err := obj.Map()
	if err != nil {
		return nil, nerrors.New(nerrors.KindCorruptProject, err).Build()
	}
	m["schema_version"] = version
	return json.Marshal(m)
}
