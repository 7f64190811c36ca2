package driver

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pkg/errors"
)

// ErrFixtureNotFound is returned when a source has no file by that name.
var ErrFixtureNotFound = errors.New("fixture not found")

// Source supplies fixture files by slash-separated relative name.
type Source interface {
	ReadFixture(name string) ([]byte, error)
	String() string
}

// DirSource reads fixtures from a directory on disk.
type DirSource struct {
	Root string
}

func (s DirSource) ReadFixture(name string) ([]byte, error) {
	full := name
	if !filepath.IsAbs(name) {
		full = filepath.Join(s.Root, filepath.FromSlash(name))
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(ErrFixtureNotFound, "%s in %s", name, s.Root)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read fixture %s", name)
	}
	return data, nil
}

func (s DirSource) String() string { return s.Root }

// GitSource reads fixtures from a single commit of a local repository,
// ignoring the working tree.
type GitSource struct {
	Repo     string
	Revision string
	Hash     plumbing.Hash

	commit *object.Commit
}

// OpenGitSource resolves revision in the repository at dir.
func OpenGitSource(dir string, revision plumbing.Revision) (*GitSource, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.Wrapf(err, "open repository %s", dir)
	}
	hash, err := repo.ResolveRevision(revision)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve revision %s", revision)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, errors.Wrapf(err, "load commit %s", hash)
	}
	return &GitSource{Repo: dir, Revision: string(revision), Hash: *hash, commit: commit}, nil
}

func (s *GitSource) ReadFixture(name string) ([]byte, error) {
	file, err := s.commit.File(path.Clean(filepath.ToSlash(name)))
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, errors.Wrapf(ErrFixtureNotFound, "%s at %s", name, s.Revision)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read fixture %s", name)
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, errors.Wrapf(err, "read fixture %s", name)
	}
	return []byte(contents), nil
}

func (s *GitSource) String() string {
	return s.Repo + "@" + s.Hash.String()[:7]
}

// gitRevision picks the suite's pinned reference.
func gitRevision(suite *SuiteSpec) (plumbing.Revision, error) {
	if rev := strings.TrimSpace(suite.Rev); rev != "" {
		return plumbing.Revision(rev), nil
	}
	if tag := strings.TrimSpace(suite.Tag); tag != "" {
		return plumbing.Revision("refs/tags/" + tag), nil
	}
	if branch := strings.TrimSpace(suite.Branch); branch != "" {
		return plumbing.Revision("refs/heads/" + branch), nil
	}
	return "", errors.New("git suites require rev, tag, or branch")
}

// SourceFor opens the fixture source a suite reads from. Relative paths
// resolve against the manifest's directory.
func (m *Manifest) SourceFor(suite *SuiteSpec) (Source, error) {
	if suite.Git == "" {
		return DirSource{Root: m.Dir()}, nil
	}
	repo := suite.Git
	if !filepath.IsAbs(repo) {
		repo = filepath.Join(m.Dir(), repo)
	}
	rev, err := gitRevision(suite)
	if err != nil {
		return nil, err
	}
	return OpenGitSource(repo, rev)
}
