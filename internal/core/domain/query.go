package domain

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.trai.ch/zerr"
)

// Query selects installed specs by name, version or version range, hash prefix and install reason.
type Query struct {
	Name       string
	Version    string
	Constraint *semver.Constraints
	HashPrefix string

	// Explicit, when set, restricts matches to explicit (true) or implicit (false) installs.
	Explicit *bool
}

// ParseQuery parses "name", "name@version", "name@<constraint>" or "/hashprefix".
// The empty string matches everything.
func ParseQuery(s string) (Query, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Query{}, nil
	}

	if hash, ok := strings.CutPrefix(s, "/"); ok {
		if hash == "" || strings.Trim(hash, "abcdefghijklmnopqrstuvwxyz234567") != "" {
			return Query{}, zerr.With(zerr.Wrap(ErrInvalidQuery, "malformed hash prefix"), "query", s)
		}
		return Query{HashPrefix: hash}, nil
	}

	name, version, hasVersion := strings.Cut(s, "@")
	if name == "" {
		return Query{}, zerr.With(zerr.Wrap(ErrInvalidQuery, "query has no package name"), "query", s)
	}
	q := Query{Name: name}
	if !hasVersion {
		return q, nil
	}
	if version == "" {
		return Query{}, zerr.With(zerr.Wrap(ErrInvalidQuery, "query has an empty version"), "query", s)
	}

	if !strings.ContainsAny(version, "<>=~^*, |") && !strings.HasSuffix(version, ".x") {
		q.Version = version
		return q, nil
	}

	c, err := semver.NewConstraint(version)
	if err != nil {
		return Query{}, zerr.With(zerr.Wrap(ErrInvalidQuery, err.Error()), "query", s)
	}
	q.Constraint = c
	return q, nil
}

// Matches reports whether the record satisfies the query.
func (q Query) Matches(rec *InstallRecord) bool {
	spec := rec.Spec
	if q.Explicit != nil && rec.Explicit != *q.Explicit {
		return false
	}
	if q.HashPrefix != "" && !strings.HasPrefix(spec.Hash(), q.HashPrefix) {
		return false
	}
	if q.Name != "" && spec.Name.String() != q.Name {
		return false
	}
	if q.Version != "" && !versionsEqual(spec.Version.String(), q.Version) {
		return false
	}
	if q.Constraint != nil {
		v, err := semver.NewVersion(spec.Version.String())
		if err != nil || !q.Constraint.Check(v) {
			return false
		}
	}
	return true
}

// String renders the query back in its textual form.
func (q Query) String() string {
	switch {
	case q.HashPrefix != "":
		return "/" + q.HashPrefix
	case q.Constraint != nil:
		return q.Name + "@" + q.Constraint.String()
	case q.Version != "":
		return q.Name + "@" + q.Version
	default:
		return q.Name
	}
}

func versionsEqual(a, b string) bool {
	if a == b {
		return true
	}
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	return errA == nil && errB == nil && va.Equal(vb)
}
