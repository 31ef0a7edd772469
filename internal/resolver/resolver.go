// Package resolver computes the latest stable version of an action and
// resolves tags to immutable commit SHAs, using the catalog as a permanent
// pin cache.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/mod/semver"
	"golang.org/x/sync/singleflight"

	"github.com/pgoslatara/actup/internal/domain/entities"
	"github.com/pgoslatara/actup/internal/domain/repositories"
)

// Resolver enriches actions with their latest stable version and per-tag
// commit SHAs. SHA resolution for a given (action, tag) pair is single-flighted
// and performs network I/O at most once per process lifetime.
type Resolver struct {
	remote  repositories.RemoteRepository
	catalog repositories.CatalogRepository
	group   singleflight.Group
}

// New creates a resolver backed by the given remote and catalog.
func New(remote repositories.RemoteRepository, catalog repositories.CatalogRepository) *Resolver {
	return &Resolver{remote: remote, catalog: catalog}
}

// LatestStable lists the action's tags and returns the one with the highest
// stable semver ordering. Pre-release and build-metadata tags are discarded.
func (r *Resolver) LatestStable(ctx context.Context, owner, name string) (string, error) {
	tags, err := r.remote.ListTags(ctx, owner+"/"+name)
	if err != nil {
		return "", fmt.Errorf("failed to list tags for %s/%s: %w", owner, name, err)
	}
	return LatestStableOf(tags)
}

// LatestStableOf picks the highest stable semver tag from a tag list. Ties
// (a major alias and its full form comparing equal) resolve by preferring the
// more specific form: v4.0.1 over v4.
func LatestStableOf(tags []string) (string, error) {
	best := ""
	for _, tag := range tags {
		normalized := normalizeVersion(tag)
		if !semver.IsValid(normalized) ||
			semver.Prerelease(normalized) != "" ||
			semver.Build(normalized) != "" {
			continue
		}

		if best == "" {
			best = tag
			continue
		}

		switch semver.Compare(normalized, normalizeVersion(best)) {
		case 1:
			best = tag
		case 0:
			if specificity(tag) > specificity(best) {
				best = tag
			}
		}
	}

	if best == "" {
		return "", entities.ErrAmbiguousVersion
	}
	return best, nil
}

// ResolveSHA resolves (action, tag) to a commit SHA. The pin cache is
// consulted first; on a miss exactly one concurrent caller performs the
// remote lookup and stores the pin permanently.
func (r *Resolver) ResolveSHA(ctx context.Context, owner, name, tag string) (string, error) {
	if pin, found, err := r.catalog.GetPin(ctx, owner, name, tag); err != nil {
		return "", fmt.Errorf("failed to read pin cache: %w", err)
	} else if found {
		return pin.SHA, nil
	}

	key := owner + "/" + name + "@" + tag
	sha, err, _ := r.group.Do(key, func() (any, error) {
		// Another flight may have stored the pin while we waited.
		if pin, found, cacheErr := r.catalog.GetPin(ctx, owner, name, tag); cacheErr != nil {
			return "", cacheErr
		} else if found {
			return pin.SHA, nil
		}

		resolved, resolveErr := r.remote.ResolveTagSHA(ctx, owner+"/"+name, tag)
		if resolveErr != nil {
			return "", resolveErr
		}

		saveErr := r.catalog.SavePin(ctx, entities.Pin{
			Owner:      owner,
			Name:       name,
			Tag:        tag,
			SHA:        resolved,
			ResolvedAt: time.Now().UTC(),
		})
		if errors.Is(saveErr, entities.ErrTagMoved) {
			// The cached pin stays authoritative; the anomaly is flagged on
			// the row and surfaced in reporting.
			logger.Warnf("Tag %s@%s moved to %s since it was pinned", owner+"/"+name, tag, resolved)
			pin, _, pinErr := r.catalog.GetPin(ctx, owner, name, tag)
			if pinErr != nil {
				return "", pinErr
			}
			return pin.SHA, nil
		}
		if saveErr != nil {
			return "", fmt.Errorf("failed to store pin: %w", saveErr)
		}
		return resolved, nil
	})
	if err != nil {
		return "", err
	}
	return sha.(string), nil
}

// IsNewer reports whether candidate is a strictly newer version than current.
func IsNewer(current, candidate string) bool {
	cur := normalizeVersion(current)
	cand := normalizeVersion(candidate)
	if semver.IsValid(cur) && semver.IsValid(cand) {
		return semver.Compare(cand, cur) > 0
	}
	return false
}

func normalizeVersion(version string) string {
	version = strings.TrimSpace(version)
	if strings.HasPrefix(version, "v") {
		return version
	}
	return "v" + version
}

// specificity counts version components, so v4.0.1 outranks v4.0 and v4.
func specificity(tag string) int {
	return strings.Count(tag, ".") + 1
}
