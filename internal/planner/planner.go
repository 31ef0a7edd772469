package planner

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/pgoslatara/actup/internal/domain/entities"
	"github.com/pgoslatara/actup/internal/resolver"
)

// VersionSource supplies the version and commit data the planner rewrites
// against. *resolver.Resolver satisfies it.
type VersionSource interface {
	LatestStable(ctx context.Context, owner, name string) (string, error)
	ResolveSHA(ctx context.Context, owner, name, tag string) (string, error)
}

// Planner turns scanned mentions into concrete file rewrites. It never touches
// the remote itself; everything goes through the VersionSource so resolution
// stays cached and single-flighted.
type Planner struct {
	versions VersionSource
}

func New(versions VersionSource) *Planner {
	return &Planner{versions: versions}
}

// annotationComment matches a trailing version annotation such as "# v4.0.1",
// with or without the space after the hash.
var annotationComment = regexp.MustCompile(`\s*#\s*v?\d+(\.\d+){0,2}([-+][0-9A-Za-z.-]+)?\s*$`)

// Plan computes the rewritten content of a single file. The mentions must all
// belong to filePath. The returned flag reports whether anything changed;
// planning already-rewritten content yields no change.
func (p *Planner) Plan(
	ctx context.Context,
	filePath string,
	content string,
	mentions []entities.Mention,
	mode entities.RemediationMode,
	pinTarget entities.PinTarget,
) (entities.FileChange, bool, error) {
	lines := strings.Split(content, "\n")
	changed := false

	for _, mention := range mentions {
		if mention.Line < 1 || mention.Line > len(lines) {
			continue
		}

		idx := mention.Line - 1
		rewritten, err := p.planLine(ctx, lines[idx], mention, mode, pinTarget)
		if err != nil {
			return entities.FileChange{}, false, err
		}
		if rewritten != lines[idx] {
			lines[idx] = rewritten
			changed = true
		}
	}

	if !changed {
		return entities.FileChange{}, false, nil
	}
	return entities.FileChange{Path: filePath, Content: strings.Join(lines, "\n")}, true, nil
}

func (p *Planner) planLine(
	ctx context.Context,
	line string,
	mention entities.Mention,
	mode entities.RemediationMode,
	pinTarget entities.PinTarget,
) (string, error) {
	switch mode {
	case entities.ModeLatestVersion:
		return p.planLatestVersion(ctx, line, mention)
	case entities.ModePinToSHA:
		return p.planPinToSHA(ctx, line, mention, pinTarget)
	default:
		return "", fmt.Errorf("unknown remediation mode %q", mode)
	}
}

func (p *Planner) planLatestVersion(ctx context.Context, line string, mention entities.Mention) (string, error) {
	// SHA- and branch-pinned mentions never get version bumps.
	if mention.Kind != entities.RefKindTag {
		return line, nil
	}

	latest, err := p.versions.LatestStable(ctx, mention.Owner, mention.Name)
	if errors.Is(err, entities.ErrAmbiguousVersion) || errors.Is(err, entities.ErrNotFound) {
		logger.Debugf("Skipping %s: no stable version to bump to", mention.ActionFullName())
		return line, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve latest version of %s: %w", mention.ActionFullName(), err)
	}

	if !resolver.IsNewer(mention.Ref, latest) {
		return line, nil
	}

	rewritten := replaceRef(line, mention, latest)
	if annotationComment.MatchString(rewritten) {
		// A stale version annotation would contradict the new ref.
		rewritten = annotationComment.ReplaceAllString(rewritten, "") + " # " + latest
	}
	return rewritten, nil
}

func (p *Planner) planPinToSHA(
	ctx context.Context,
	line string,
	mention entities.Mention,
	pinTarget entities.PinTarget,
) (string, error) {
	targetTag, ok := p.pinTargetTag(ctx, mention, pinTarget)
	if !ok {
		return line, nil
	}

	sha, err := p.versions.ResolveSHA(ctx, mention.Owner, mention.Name, targetTag)
	if errors.Is(err, entities.ErrNotFound) {
		logger.Warnf("Skipping %s: tag %s has no resolvable commit", mention.ActionFullName(), targetTag)
		return line, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s@%s to a commit: %w", mention.ActionFullName(), targetTag, err)
	}

	// Already pinned to the right commit with the right annotation.
	if mention.Kind == entities.RefKindSHA && mention.Ref == sha && mention.Annotation == targetTag {
		return line, nil
	}

	rewritten := annotationComment.ReplaceAllString(replaceRef(line, mention, sha), "")
	return rewritten + " # " + targetTag, nil
}

// pinTargetTag decides which tag a pin should anchor to. With
// PinTargetCurrent the mention's own tag wins; a sha-pinned line is only
// re-pinnable when its annotation recovers the original tag.
func (p *Planner) pinTargetTag(ctx context.Context, mention entities.Mention, pinTarget entities.PinTarget) (string, bool) {
	current := ""
	switch mention.Kind {
	case entities.RefKindTag:
		current = mention.Ref
	case entities.RefKindSHA:
		current = mention.Annotation
	case entities.RefKindBranch:
		logger.Debugf("Skipping %s: branch refs are not pinnable", mention.ActionFullName())
		return "", false
	}
	if current == "" {
		logger.Debugf("Skipping %s: original tag is not recoverable", mention.ActionFullName())
		return "", false
	}

	if pinTarget == entities.PinTargetLatest {
		latest, err := p.versions.LatestStable(ctx, mention.Owner, mention.Name)
		if err == nil {
			return latest, true
		}
		logger.Debugf("Falling back to current tag for %s: %v", mention.ActionFullName(), err)
	}
	return current, true
}

// replaceRef swaps the "@ref" part of the mention's uses path on the line,
// leaving indentation, quoting and everything else untouched.
func replaceRef(line string, mention entities.Mention, newRef string) string {
	old := mention.UsesPath() + "@" + mention.Ref
	updated := mention.UsesPath() + "@" + newRef
	return strings.Replace(line, old, updated, 1)
}
