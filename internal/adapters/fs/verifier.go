package fs

import (
	"cmp"
	"context"
	"os"
	"runtime"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/depot/internal/core/ports"
	"golang.org/x/sync/errgroup"
)

var _ ports.PrefixVerifier = (*Verifier)(nil)

// Problems reported by the Verifier.
const (
	ProblemMissing     = "prefix is missing"
	ProblemNotDir      = "prefix is not a directory"
	ProblemIncomplete  = "install marker present"
	ProblemNoSpecFile  = "spec file is missing or unreadable"
	ProblemSpecChanged = "spec file does not match the record"
	ProblemModified    = "contents differ from the recorded digest"
)

// Verifier checks installed prefixes against their records.
type Verifier struct {
	digester *Digester
}

// NewVerifier creates a new Verifier.
func NewVerifier(digester *Digester) *Verifier {
	return &Verifier{digester: digester}
}

// Verify implements ports.PrefixVerifier. Prefixes are checked concurrently.
// Records kept only as references are skipped.
func (v *Verifier) Verify(ctx context.Context, records []*domain.InstallRecord) ([]domain.VerifyIssue, error) {
	var (
		mu     sync.Mutex
		issues []domain.VerifyIssue
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, rec := range records {
		if !rec.Installed {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if problem := v.check(rec); problem != "" {
				mu.Lock()
				issues = append(issues, domain.VerifyIssue{Spec: rec.Spec, Path: rec.Path, Problem: problem})
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(issues, func(a, b domain.VerifyIssue) int {
		return cmp.Or(strings.Compare(a.Path, b.Path), strings.Compare(a.Problem, b.Problem))
	})
	return issues, nil
}

// check returns the first problem found with rec's prefix, or "".
func (v *Verifier) check(rec *domain.InstallRecord) string {
	info, err := os.Stat(rec.Path)
	if err != nil {
		return ProblemMissing
	}
	if !info.IsDir() {
		return ProblemNotDir
	}
	if _, found, _ := ReadMarker(rec.Path); found {
		return ProblemIncomplete
	}
	spec, err := ReadSpecFile(rec.Path)
	if err != nil {
		return ProblemNoSpecFile
	}
	if !spec.Equal(rec.Spec) {
		return ProblemSpecChanged
	}
	if rec.ContentHash == "" {
		return ""
	}
	digest, err := v.digester.Digest(rec.Path)
	if err != nil || digest != rec.ContentHash {
		return ProblemModified
	}
	return ""
}
