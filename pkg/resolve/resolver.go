package resolve

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/stanzabuild/stanza/pkg/plugins"
	"github.com/stanzabuild/stanza/pkg/registry"
	"github.com/stanzabuild/stanza/pkg/vcs"
)

// DefaultMaxWorkers bounds concurrent lookups so resolution cannot overwhelm
// the registry or the VCS host.
const DefaultMaxWorkers = 4

// PackageIndex lists the published versions of a registry package.
// *registry.Client implements it.
type PackageIndex interface {
	Versions(ctx context.Context, packageName string) ([]registry.Version, error)
}

// RefResolver resolves a repository ref to a full commit hash.
// *vcs.Client implements it.
type RefResolver interface {
	ResolveRef(ctx context.Context, repo, ref string) (string, error)
}

// Config controls a Resolver.
type Config struct {
	// MaxWorkers bounds concurrent lookups. Defaults to DefaultMaxWorkers.
	MaxWorkers int

	Log *logrus.Logger
}

// Resolver resolves merged plugin sets into snapshots.
type Resolver struct {
	index      PackageIndex
	refs       RefResolver
	maxWorkers int
	log        *logrus.Logger
}

// New creates a Resolver; nil config selects defaults.
func New(index PackageIndex, refs RefResolver, config *Config) *Resolver {
	maxWorkers := DefaultMaxWorkers
	var log *logrus.Logger
	if config != nil {
		if config.MaxWorkers > 0 {
			maxWorkers = config.MaxWorkers
		}
		log = config.Log
	}
	if log == nil {
		log = logrus.New()
	}

	return &Resolver{
		index:      index,
		refs:       refs,
		maxWorkers: maxWorkers,
		log:        log,
	}
}

type job struct {
	namespace string
	position  int
	request   plugins.PluginRequest
}

// Resolve resolves every request in the merged sets. Lookups for independent
// requests run concurrently; the first failure cancels outstanding work and
// the whole pass fails. On success the snapshot preserves each namespace's
// plugin-set insertion order.
func (r *Resolver) Resolve(ctx context.Context, sets map[string]*plugins.Set) (*Snapshot, error) {
	var jobs []job
	results := make(map[string][]ResolvedPackage, len(sets))
	for _, namespace := range plugins.SortedNamespaces(sets) {
		set := sets[namespace]
		if set.Len() == 0 {
			continue
		}
		results[namespace] = make([]ResolvedPackage, set.Len())
		for i, req := range set.Requests() {
			jobs = append(jobs, job{namespace: namespace, position: i, request: req})
		}
	}

	if len(jobs) == 0 {
		return NewSnapshot(nil), nil
	}

	r.log.Infof("Resolving %d plugin request(s) across %d namespace(s)", len(jobs), len(results))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.maxWorkers)

	var mu sync.Mutex
	for _, j := range jobs {
		j := j
		eg.Go(func() error {
			resolved, err := r.resolveOne(ctx, j.request)
			if err != nil {
				return err
			}

			mu.Lock()
			results[j.namespace][j.position] = resolved
			mu.Unlock()

			r.log.Debugf("Resolved %s", resolved)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return NewSnapshot(results), nil
}

func (r *Resolver) resolveOne(ctx context.Context, req plugins.PluginRequest) (ResolvedPackage, error) {
	switch req.Source() {
	case plugins.SourceGitHub:
		return r.resolveGitHub(ctx, req)
	default:
		return r.resolveRegistry(ctx, req)
	}
}

func (r *Resolver) resolveRegistry(ctx context.Context, req plugins.PluginRequest) (ResolvedPackage, error) {
	constraint, err := registry.ParseConstraint(req.Constraint)
	if err != nil {
		return ResolvedPackage{}, newResolutionError(req, "invalid version constraint", err)
	}

	packageName := req.PackageName()
	versions, err := r.index.Versions(ctx, packageName)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return ResolvedPackage{}, newResolutionError(req, fmt.Sprintf("package %q not found in registry", packageName), err)
		}
		return ResolvedPackage{}, newResolutionError(req, "registry lookup failed", err)
	}

	best, found := registry.LatestSatisfying(versions, constraint)
	if !found {
		return ResolvedPackage{}, newResolutionError(req,
			fmt.Sprintf("no published version of %q satisfies %s (%d available)", packageName, constraint, len(versions)), nil)
	}

	return ResolvedPackage{
		Namespace:   req.Namespace,
		DisplayName: req.DisplayName,
		EntryPoint:  req.EntryPoint,
		PackageName: packageName,
		Version:     best.String(),
	}, nil
}

func (r *Resolver) resolveGitHub(ctx context.Context, req plugins.PluginRequest) (ResolvedPackage, error) {
	revision, err := r.refs.ResolveRef(ctx, req.GitHub, req.Ref)
	if err != nil {
		if errors.Is(err, vcs.ErrNotFound) {
			return ResolvedPackage{}, newResolutionError(req, fmt.Sprintf("ref %q not found in %s", req.Ref, req.GitHub), err)
		}
		return ResolvedPackage{}, newResolutionError(req, "ref lookup failed", err)
	}

	return ResolvedPackage{
		Namespace:   req.Namespace,
		DisplayName: req.DisplayName,
		EntryPoint:  req.EntryPoint,
		RepoURL:     vcs.RepoURL(req.GitHub),
		Revision:    revision,
	}, nil
}
