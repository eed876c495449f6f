package fs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/zerr"
)

// MetadataPath returns the metadata directory of a prefix.
func MetadataPath(prefix string) string {
	return filepath.Join(prefix, domain.MetadataDir)
}

// SpecFilePath returns the location of the spec file of a prefix.
func SpecFilePath(prefix string) string {
	return filepath.Join(MetadataPath(prefix), domain.SpecFileName)
}

// MarkerPath returns the location of the in-progress marker of a prefix.
func MarkerPath(prefix string) string {
	return filepath.Join(MetadataPath(prefix), domain.InstallingMarkerName)
}

// Marker identifies the install that owns a prefix while it is being populated.
type Marker struct {
	PID     int       `json:"pid"`
	Token   string    `json:"token"`
	Started time.Time `json:"started"`
	Spec    string    `json:"spec"`
}

// WriteSpecFile records spec in the prefix. A prefix with a spec file and no
// marker is complete.
func WriteSpecFile(prefix string, spec *domain.Spec) error {
	return writeJSON(SpecFilePath(prefix), domain.EncodeSpec(spec))
}

// ReadSpecFile decodes the spec stored in a prefix.
func ReadSpecFile(prefix string) (*domain.Spec, error) {
	path := SpecFilePath(prefix)
	data, err := os.ReadFile(path) //nolint:gosec // Path is derived from the prefix
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read spec file"), "path", path)
	}
	var doc domain.SpecDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to decode spec file"), "path", path)
	}
	spec, err := doc.Decode()
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return spec, nil
}

// WriteMarker creates the in-progress marker. It fails if a marker already exists.
func WriteMarker(prefix string, m Marker) error {
	path := MarkerPath(prefix)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create metadata directory"), "path", prefix)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return zerr.Wrap(err, "failed to encode marker")
	}
	//nolint:gosec // Path is derived from the prefix
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create install marker"), "path", path)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return zerr.With(zerr.Wrap(err, "failed to write install marker"), "path", path)
	}
	if err := f.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to close install marker"), "path", path)
	}
	return nil
}

// ReadMarker returns the marker of a prefix and whether one exists.
func ReadMarker(prefix string) (Marker, bool, error) {
	path := MarkerPath(prefix)
	data, err := os.ReadFile(path) //nolint:gosec // Path is derived from the prefix
	if os.IsNotExist(err) {
		return Marker{}, false, nil
	}
	if err != nil {
		return Marker{}, false, zerr.With(zerr.Wrap(err, "failed to read install marker"), "path", path)
	}
	var m Marker
	if err := json.Unmarshal(data, &m); err != nil {
		// A marker torn by a crash still marks the prefix incomplete.
		return Marker{}, true, nil //nolint:nilerr // Content is informational
	}
	return m, true, nil
}

// RemoveMarker deletes the marker of a prefix.
func RemoveMarker(prefix string) error {
	if err := os.Remove(MarkerPath(prefix)); err != nil && !os.IsNotExist(err) {
		return zerr.With(zerr.Wrap(err, "failed to remove install marker"), "path", prefix)
	}
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create directory"), "path", filepath.Dir(path))
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to encode")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // Metadata is world readable
		return zerr.With(zerr.Wrap(err, "failed to write"), "path", path)
	}
	return nil
}
