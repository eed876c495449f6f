package domain

import "time"

// MetadataDir is the directory inside every install prefix that holds depot's own files.
const MetadataDir = ".depot"

// SpecFileName is the name of the spec file written into MetadataDir of a complete prefix.
const SpecFileName = "spec.json"

// InstallingMarkerName is the name of the marker file present in MetadataDir while an install runs.
const InstallingMarkerName = "installing"

// InstallRecord is the database entry for one spec.
type InstallRecord struct {
	Spec *Spec

	// Path is the install prefix.
	Path string

	// Explicit is true when the user asked for the spec directly rather than as a dependency.
	Explicit bool

	// Installed is false for entries kept only because installed specs still reference them
	// after a forced removal.
	Installed bool

	InstallationTime time.Time

	// RefCount is the number of installed specs that depend on this one directly.
	RefCount int

	// ContentHash is the digest of the prefix contents taken when the install completed.
	ContentHash string
}

// LayoutMatch is what a layout can recover from a prefix it produced.
type LayoutMatch struct {
	Name    string
	Version string
	Hash    string
}

// InstallStatus is the outcome of installing one spec.
type InstallStatus string

const (
	// InstallStatusInstalled means the install steps ran and the spec was recorded.
	InstallStatusInstalled InstallStatus = "installed"
	// InstallStatusCached means the spec was already installed.
	InstallStatusCached InstallStatus = "cached"
	// InstallStatusAdopted means a complete prefix was found on disk and recorded without rebuilding.
	InstallStatusAdopted InstallStatus = "adopted"
	// InstallStatusFailed means the install steps failed.
	InstallStatusFailed InstallStatus = "failed"
)

// InstallResult reports what happened to one spec during an install.
type InstallResult struct {
	Spec   *Spec
	Path   string
	Status InstallStatus
}

// BuildRequest carries everything a builder needs to populate one prefix.
type BuildRequest struct {
	Spec   *Spec
	Prefix string
	Steps  []string

	// DependencyPrefixes maps dependency names to their install prefixes.
	DependencyPrefixes map[string]string
}

// VerifyIssue is a problem found in an installed prefix.
type VerifyIssue struct {
	Spec    *Spec
	Path    string
	Problem string
}

// ScannedPrefix is a complete prefix found on disk together with the spec it holds.
type ScannedPrefix struct {
	Path string
	Spec *Spec
}
