// Package catalog persists the audit state in SQLite: known actions, resolved
// pins, scanned mentions, discovered repositories, and pull request history.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pgoslatara/actup/internal/domain/entities"
	"github.com/pgoslatara/actup/internal/domain/repositories"
)

const schema = `
CREATE TABLE IF NOT EXISTS actions (
	owner          TEXT NOT NULL,
	name           TEXT NOT NULL,
	latest_version TEXT NOT NULL DEFAULT '',
	stars          INTEGER NOT NULL DEFAULT 0,
	checked_at     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (owner, name)
);

CREATE TABLE IF NOT EXISTS action_tags (
	owner       TEXT NOT NULL,
	name        TEXT NOT NULL,
	tag         TEXT NOT NULL,
	sha         TEXT NOT NULL,
	resolved_at TEXT NOT NULL DEFAULT '',
	moved_sha   TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (owner, name, tag)
);

CREATE TABLE IF NOT EXISTS mentions (
	repo_full_name TEXT NOT NULL,
	file_path      TEXT NOT NULL,
	line           INTEGER NOT NULL,
	raw            TEXT NOT NULL,
	owner          TEXT NOT NULL,
	name           TEXT NOT NULL,
	subpath        TEXT NOT NULL DEFAULT '',
	ref            TEXT NOT NULL,
	kind           TEXT NOT NULL,
	annotation     TEXT NOT NULL DEFAULT '',
	known          INTEGER NOT NULL DEFAULT 0,
	scanned_at     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_mentions_repo_file ON mentions (repo_full_name, file_path);

CREATE TABLE IF NOT EXISTS repositories (
	full_name      TEXT PRIMARY KEY,
	default_branch TEXT NOT NULL DEFAULT '',
	clone_url      TEXT NOT NULL DEFAULT '',
	stars          INTEGER NOT NULL DEFAULT 0,
	archived       INTEGER NOT NULL DEFAULT 0,
	fork           INTEGER NOT NULL DEFAULT 0,
	pushed_at      TEXT NOT NULL DEFAULT '',
	checked_at     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS pull_requests (
	repo_full_name TEXT NOT NULL,
	mode           TEXT NOT NULL,
	branch_name    TEXT NOT NULL,
	number         INTEGER NOT NULL DEFAULT 0,
	url            TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL,
	created_at     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (repo_full_name, mode, branch_name)
);
`

// Store implements repositories.CatalogRepository on SQLite.
type Store struct {
	db *sql.DB
}

// connPragmas are applied through the DSN so every connection the sql pool
// opens gets them, not just the first.
const connPragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// Open opens (or creates) the database file. In-memory databases need a
// shared-cache DSN ("file:name?mode=memory&cache=shared") because the sql
// pool opens more than one connection.
func Open(path string) (*Store, error) {
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&" + connPragmas
	} else {
		dsn += "?" + connPragmas
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog %q: %w", path, err)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open catalog %q: %w", path, err)
	}
	return &Store{db: db}, nil
}

var _ repositories.CatalogRepository = (*Store)(nil)

func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) SaveAction(ctx context.Context, action entities.Action) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO actions (owner, name, latest_version, stars, checked_at)
VALUES (?,?,?,?,?)
ON CONFLICT (owner, name) DO UPDATE SET
  latest_version = excluded.latest_version,
  stars          = excluded.stars,
  checked_at     = excluded.checked_at`,
		action.Owner, action.Name, action.LatestVersion, action.Stars, formatTime(action.CheckedAt),
	)
	return err
}

func (s *Store) GetAction(ctx context.Context, owner, name string) (entities.Action, bool, error) {
	var action entities.Action
	var checkedAt string
	row := s.db.QueryRowContext(ctx,
		`SELECT owner, name, latest_version, stars, checked_at FROM actions WHERE owner = ? AND name = ?`,
		owner, name,
	)
	if err := row.Scan(&action.Owner, &action.Name, &action.LatestVersion, &action.Stars, &checkedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.Action{}, false, nil
		}
		return entities.Action{}, false, err
	}
	action.CheckedAt = parseTime(checkedAt)
	return action, true, nil
}

func (s *Store) ListActions(ctx context.Context) ([]entities.Action, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT owner, name, latest_version, stars, checked_at FROM actions ORDER BY stars DESC, owner, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []entities.Action
	for rows.Next() {
		var action entities.Action
		var checkedAt string
		if err = rows.Scan(&action.Owner, &action.Name, &action.LatestVersion, &action.Stars, &checkedAt); err != nil {
			return nil, err
		}
		action.CheckedAt = parseTime(checkedAt)
		actions = append(actions, action)
	}
	return actions, rows.Err()
}

// SavePin inserts a pin once. A later save with a different SHA never
// overwrites the stored value: the new SHA lands in moved_sha and the caller
// gets ErrTagMoved.
func (s *Store) SavePin(ctx context.Context, pin entities.Pin) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var storedSHA string
		row := tx.QueryRowContext(ctx,
			`SELECT sha FROM action_tags WHERE owner = ? AND name = ? AND tag = ?`,
			pin.Owner, pin.Name, pin.Tag,
		)
		err := row.Scan(&storedSHA)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx,
				`INSERT INTO action_tags (owner, name, tag, sha, resolved_at, moved_sha) VALUES (?,?,?,?,?,'')`,
				pin.Owner, pin.Name, pin.Tag, pin.SHA, formatTime(pin.ResolvedAt),
			)
			return err
		case err != nil:
			return err
		case storedSHA == pin.SHA:
			return nil
		default:
			_, err = tx.ExecContext(ctx,
				`UPDATE action_tags SET moved_sha = ? WHERE owner = ? AND name = ? AND tag = ?`,
				pin.SHA, pin.Owner, pin.Name, pin.Tag,
			)
			if err != nil {
				return err
			}
			return fmt.Errorf("pin %s/%s@%s: %w", pin.Owner, pin.Name, pin.Tag, entities.ErrTagMoved)
		}
	})
}

func (s *Store) GetPin(ctx context.Context, owner, name, tag string) (entities.Pin, bool, error) {
	var pin entities.Pin
	var resolvedAt string
	row := s.db.QueryRowContext(ctx,
		`SELECT owner, name, tag, sha, resolved_at, moved_sha FROM action_tags
WHERE owner = ? AND name = ? AND tag = ?`,
		owner, name, tag,
	)
	if err := row.Scan(&pin.Owner, &pin.Name, &pin.Tag, &pin.SHA, &resolvedAt, &pin.MovedSHA); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.Pin{}, false, nil
		}
		return entities.Pin{}, false, err
	}
	pin.ResolvedAt = parseTime(resolvedAt)
	return pin, true, nil
}

func (s *Store) ListMovedPins(ctx context.Context) ([]entities.Pin, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT owner, name, tag, sha, resolved_at, moved_sha FROM action_tags
WHERE moved_sha != '' ORDER BY owner, name, tag`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pins []entities.Pin
	for rows.Next() {
		var pin entities.Pin
		var resolvedAt string
		if err = rows.Scan(&pin.Owner, &pin.Name, &pin.Tag, &pin.SHA, &resolvedAt, &pin.MovedSHA); err != nil {
			return nil, err
		}
		pin.ResolvedAt = parseTime(resolvedAt)
		pins = append(pins, pin)
	}
	return pins, rows.Err()
}

func (s *Store) ReplaceMentions(ctx context.Context, repoFullName, filePath string, mentions []entities.Mention) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM mentions WHERE repo_full_name = ? AND file_path = ?`,
			repoFullName, filePath,
		); err != nil {
			return err
		}
		for _, m := range mentions {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO mentions (repo_full_name, file_path, line, raw, owner, name, subpath, ref, kind, annotation, known, scanned_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
				repoFullName, filePath, m.Line, m.Raw, m.Owner, m.Name, m.Subpath,
				m.Ref, string(m.Kind), m.Annotation, boolToInt(m.Known), formatTime(m.ScannedAt),
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ListMentions(ctx context.Context, repoFullName string) ([]entities.Mention, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT repo_full_name, file_path, line, raw, owner, name, subpath, ref, kind, annotation, known, scanned_at
FROM mentions WHERE repo_full_name = ? ORDER BY file_path, line`,
		repoFullName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mentions []entities.Mention
	for rows.Next() {
		var m entities.Mention
		var kind, scannedAt string
		var known int
		if err = rows.Scan(&m.RepoFullName, &m.FilePath, &m.Line, &m.Raw, &m.Owner, &m.Name,
			&m.Subpath, &m.Ref, &kind, &m.Annotation, &known, &scannedAt); err != nil {
			return nil, err
		}
		m.Kind = entities.RefKind(kind)
		m.Known = known != 0
		m.ScannedAt = parseTime(scannedAt)
		mentions = append(mentions, m)
	}
	return mentions, rows.Err()
}

func (s *Store) ListMentionedRepositories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT repo_full_name FROM mentions ORDER BY repo_full_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) SaveRepository(ctx context.Context, repo entities.Repository) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO repositories (full_name, default_branch, clone_url, stars, archived, fork, pushed_at, checked_at)
VALUES (?,?,?,?,?,?,?,?)
ON CONFLICT (full_name) DO UPDATE SET
  default_branch = excluded.default_branch,
  clone_url      = excluded.clone_url,
  stars          = excluded.stars,
  archived       = excluded.archived,
  fork           = excluded.fork,
  pushed_at      = excluded.pushed_at,
  checked_at     = excluded.checked_at`,
		repo.FullName, repo.DefaultBranch, repo.CloneURL, repo.Stars,
		boolToInt(repo.Archived), boolToInt(repo.Fork), formatTime(repo.PushedAt), formatTime(repo.CheckedAt),
	)
	return err
}

func (s *Store) ListRepositories(ctx context.Context) ([]entities.Repository, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT full_name, default_branch, clone_url, stars, archived, fork, pushed_at, checked_at
FROM repositories ORDER BY stars DESC, full_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var repos []entities.Repository
	for rows.Next() {
		var repo entities.Repository
		var archived, fork int
		var pushedAt, checkedAt string
		if err = rows.Scan(&repo.FullName, &repo.DefaultBranch, &repo.CloneURL, &repo.Stars,
			&archived, &fork, &pushedAt, &checkedAt); err != nil {
			return nil, err
		}
		repo.Archived = archived != 0
		repo.Fork = fork != 0
		repo.PushedAt = parseTime(pushedAt)
		repo.CheckedAt = parseTime(checkedAt)
		repos = append(repos, repo)
	}
	return repos, rows.Err()
}

func (s *Store) SavePullRequest(ctx context.Context, record entities.PullRequestRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pull_requests (repo_full_name, mode, branch_name, number, url, status, created_at)
VALUES (?,?,?,?,?,?,?)
ON CONFLICT (repo_full_name, mode, branch_name) DO UPDATE SET
  number = excluded.number,
  url    = excluded.url,
  status = excluded.status`,
		record.RepoFullName, string(record.Mode), record.BranchName,
		record.Number, record.URL, string(record.Status), formatTime(record.CreatedAt),
	)
	return err
}

func (s *Store) OpenPullRequest(ctx context.Context, repoFullName string, mode entities.RemediationMode) (entities.PullRequestRecord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT repo_full_name, mode, branch_name, number, url, status, created_at
FROM pull_requests WHERE repo_full_name = ? AND mode = ? AND status = ? LIMIT 1`,
		repoFullName, string(mode), string(entities.PRStatusOpen),
	)
	record, err := scanPullRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.PullRequestRecord{}, false, nil
	}
	if err != nil {
		return entities.PullRequestRecord{}, false, err
	}
	return record, true, nil
}

func (s *Store) ListPullRequests(ctx context.Context) ([]entities.PullRequestRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT repo_full_name, mode, branch_name, number, url, status, created_at
FROM pull_requests ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []entities.PullRequestRecord
	for rows.Next() {
		record, scanErr := scanPullRequest(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *Store) UpdatePullRequestStatus(ctx context.Context, repoFullName string, number int, status entities.PRStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE pull_requests SET status = ? WHERE repo_full_name = ? AND number = ?`,
		string(status), repoFullName, number,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPullRequest(row rowScanner) (entities.PullRequestRecord, error) {
	var record entities.PullRequestRecord
	var mode, status, createdAt string
	if err := row.Scan(&record.RepoFullName, &mode, &record.BranchName,
		&record.Number, &record.URL, &status, &createdAt); err != nil {
		return entities.PullRequestRecord{}, err
	}
	record.Mode = entities.RemediationMode(mode)
	record.Status = entities.PRStatus(status)
	record.CreatedAt = parseTime(createdAt)
	return record, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
