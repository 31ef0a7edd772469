// Package scanner extracts `uses:` action references from GitHub workflow and
// action definition files, preserving line locations and existing version
// annotations so the planner can rewrite lines in place.
package scanner

import (
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pgoslatara/actup/internal/domain/entities"
)

// FileFormat is the closed set of parser variants. Detection is explicit:
// each variant implements the same extraction contract.
type FileFormat int

const (
	// FormatWorkflow is a workflow file with a top-level jobs block.
	FormatWorkflow FileFormat = iota
	// FormatCompositeAction is an action.yml with runs.using: composite.
	FormatCompositeAction
	// FormatUnknown falls back to line-based extraction.
	FormatUnknown
)

var (
	usesLinePattern = regexp.MustCompile(
		`uses:\s*["']?([A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+(?:/[^@\s"']+)?)@([A-Za-z0-9._/-]+)["']?` +
			`(?:\s*#\s*(\S+))?`,
	)
	shaPattern        = regexp.MustCompile(`^[0-9a-f]{40}$`)
	versionTagPattern = regexp.MustCompile(`^v?\d+(\.\d+){0,2}(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?$`)
	annotationPattern = regexp.MustCompile(`^v?\d+(\.\d+){0,2}$`)
)

// DetectFormat classifies a file's content into one of the parser variants.
func DetectFormat(content string) FileFormat {
	var doc struct {
		Jobs map[string]any `yaml:"jobs"`
		Runs struct {
			Using string `yaml:"using"`
		} `yaml:"runs"`
	}
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return FormatUnknown
	}
	if len(doc.Jobs) > 0 {
		return FormatWorkflow
	}
	if strings.EqualFold(doc.Runs.Using, "composite") {
		return FormatCompositeAction
	}
	return FormatUnknown
}

// ScanFile extracts every action reference from a single file. Duplicate
// references and references to unknown actions are recorded, never rejected;
// local (./) and docker:// uses are ignored.
func ScanFile(repoFullName, filePath, content string) []entities.Mention {
	var mentions []entities.Mention

	switch DetectFormat(content) {
	case FormatWorkflow:
		mentions = scanWorkflow(content)
	case FormatCompositeAction:
		mentions = scanCompositeAction(content)
	case FormatUnknown:
		mentions = scanWithRegex(content)
	}

	now := time.Now().UTC()
	for i := range mentions {
		mentions[i].RepoFullName = repoFullName
		mentions[i].FilePath = filePath
		mentions[i].ScannedAt = now
	}
	return mentions
}

// scanWorkflow walks the YAML node tree of a workflow file, collecting
// job-level reusable workflow uses and step-level action uses. Node positions
// give exact line numbers; line comments carry existing version annotations.
func scanWorkflow(content string) []entities.Mention {
	root, ok := parseRoot(content)
	if !ok {
		return scanWithRegex(content)
	}

	jobsNode := mappingValue(root, "jobs")
	if jobsNode == nil || jobsNode.Kind != yaml.MappingNode {
		return nil
	}

	var mentions []entities.Mention
	for i := 1; i < len(jobsNode.Content); i += 2 {
		jobNode := jobsNode.Content[i]
		if jobNode.Kind != yaml.MappingNode {
			continue
		}

		// Reusable workflow invocation
		if usesNode := mappingValue(jobNode, "uses"); usesNode != nil {
			if m, parsed := mentionFromNode(usesNode); parsed {
				mentions = append(mentions, m)
			}
		}

		if stepsNode := mappingValue(jobNode, "steps"); stepsNode != nil {
			mentions = append(mentions, scanSteps(stepsNode)...)
		}
	}
	return mentions
}

func scanCompositeAction(content string) []entities.Mention {
	root, ok := parseRoot(content)
	if !ok {
		return scanWithRegex(content)
	}

	runsNode := mappingValue(root, "runs")
	if runsNode == nil || runsNode.Kind != yaml.MappingNode {
		return nil
	}
	stepsNode := mappingValue(runsNode, "steps")
	if stepsNode == nil {
		return nil
	}
	return scanSteps(stepsNode)
}

func scanSteps(stepsNode *yaml.Node) []entities.Mention {
	if stepsNode.Kind != yaml.SequenceNode {
		return nil
	}

	var mentions []entities.Mention
	for _, stepNode := range stepsNode.Content {
		if stepNode.Kind != yaml.MappingNode {
			continue
		}
		usesNode := mappingValue(stepNode, "uses")
		if usesNode == nil {
			continue
		}
		if m, parsed := mentionFromNode(usesNode); parsed {
			mentions = append(mentions, m)
		}
	}
	return mentions
}

// scanWithRegex is the fallback for files no YAML variant accepts.
func scanWithRegex(content string) []entities.Mention {
	var mentions []entities.Mention
	for i, line := range strings.Split(content, "\n") {
		match := usesLinePattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		m, parsed := newMention(match[1]+"@"+match[2], i+1, match[3])
		if parsed {
			mentions = append(mentions, m)
		}
	}
	return mentions
}

func parseRoot(content string) (*yaml.Node, bool) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, false
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, false
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, false
	}
	return root, true
}

// mappingValue returns the value node for a key in a mapping node.
func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func mentionFromNode(node *yaml.Node) (entities.Mention, bool) {
	annotation := strings.TrimSpace(strings.TrimPrefix(node.LineComment, "#"))
	return newMention(node.Value, node.Line, annotation)
}

func newMention(raw string, line int, annotation string) (entities.Mention, bool) {
	owner, name, subpath, ref, ok := parseUses(raw)
	if !ok {
		return entities.Mention{}, false
	}

	if !annotationPattern.MatchString(annotation) {
		annotation = ""
	}

	return entities.Mention{
		Line:       line,
		Raw:        raw,
		Owner:      owner,
		Name:       name,
		Subpath:    subpath,
		Ref:        ref,
		Kind:       ClassifyRef(ref),
		Annotation: annotation,
	}, true
}

// parseUses splits "owner/repo[/path]@ref" into its parts. Local paths and
// docker images are not remote actions and report ok=false.
func parseUses(raw string) (owner, name, subpath, ref string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, ".") || strings.HasPrefix(raw, "docker://") {
		return "", "", "", "", false
	}

	at := strings.LastIndex(raw, "@")
	if at <= 0 || at == len(raw)-1 {
		return "", "", "", "", false
	}
	path, ref := raw[:at], raw[at+1:]

	parts := strings.SplitN(path, "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", "", false
	}
	owner, name = parts[0], parts[1]
	if len(parts) == 3 {
		subpath = parts[2]
	}
	return owner, name, subpath, ref, true
}

// ClassifyRef reports whether a reference is a commit SHA, a version tag, or
// a branch name.
func ClassifyRef(ref string) entities.RefKind {
	switch {
	case shaPattern.MatchString(ref):
		return entities.RefKindSHA
	case versionTagPattern.MatchString(ref):
		return entities.RefKindTag
	default:
		return entities.RefKindBranch
	}
}
