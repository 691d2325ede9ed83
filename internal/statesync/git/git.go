package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jo-hoe/socialpost/internal/common"
	appcfg "github.com/jo-hoe/socialpost/internal/config"
	"github.com/jo-hoe/socialpost/internal/statesync"
)

// Syncer commits the ledger in an existing git working tree and pushes it,
// using the git CLI via os/exec.
type Syncer struct {
	cfg     appcfg.GitSyncConfig
	repoDir string
}

var _ statesync.Syncer = (*Syncer)(nil)

// New creates a git Syncer for the working tree at cfg.RepoDir.
func New(cfg appcfg.GitSyncConfig) (*Syncer, error) {
	if err := ensureGitAvailable(); err != nil {
		return nil, err
	}
	repoDir, err := filepath.Abs(cfg.RepoDir)
	if err != nil {
		return nil, fmt.Errorf("resolve repo dir: %w", err)
	}
	if cfg.Remote == "" {
		cfg.Remote = common.GitRemoteName
	}
	return &Syncer{cfg: cfg, repoDir: repoDir}, nil
}

func (s *Syncer) Name() string { return "git" }

// Sync stages req.Paths, commits them if they changed and pushes. Nothing to
// commit is not an error, and the push still runs so earlier unpushed ledger
// commits reach the remote.
func (s *Syncer) Sync(ctx context.Context, req statesync.Request) error {
	rel, err := s.relPaths(req.Paths)
	if err != nil {
		return err
	}
	if len(rel) > 0 {
		addArgs := append([]string{"add", "--"}, rel...)
		if err := runGit(ctx, s.repoDir, addArgs...); err != nil {
			return fmt.Errorf("git add: %w", err)
		}
		changed, err := s.hasStagedChanges(ctx, rel)
		if err != nil {
			return err
		}
		if changed {
			msg, err := statesync.RenderCommitMessage(s.cfg.CommitMessageTemplate, req)
			if err != nil {
				return err
			}
			commitArgs := []string{"-c", "user.name=" + s.cfg.AuthorName, "-c", "user.email=" + s.cfg.AuthorEmail, "commit", "-m", msg, "--"}
			commitArgs = append(commitArgs, rel...)
			if err := runGit(ctx, s.repoDir, commitArgs...); err != nil && !isNothingToCommit(err) {
				return fmt.Errorf("git commit: %w", err)
			}
		}
	}

	if err := s.push(ctx); err != nil {
		// The remote may have moved on since checkout; replay our commits and try once more.
		if pullErr := s.pullRebase(ctx); pullErr != nil {
			return fmt.Errorf("%w (pull --rebase: %v)", err, pullErr)
		}
		if err := s.push(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Syncer) relPaths(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		rel, err := filepath.Rel(s.repoDir, abs)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil, fmt.Errorf("%s is outside repository %s", p, s.repoDir)
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out, nil
}

func (s *Syncer) hasStagedChanges(ctx context.Context, rel []string) (bool, error) {
	args := append([]string{"diff", "--cached", "--quiet", "--"}, rel...)
	err := runGit(ctx, s.repoDir, args...)
	if err == nil {
		return false, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return true, nil
	}
	return false, fmt.Errorf("git diff --cached: %w", err)
}

func (s *Syncer) push(ctx context.Context) error {
	target, err := s.pushTarget(ctx)
	if err != nil {
		return err
	}
	refspec := "HEAD"
	if s.cfg.Branch != "" {
		refspec = "HEAD:" + s.cfg.Branch
	}
	// Push using URL directly so we don't persist the token in .git/config
	if err := runGit(ctx, s.repoDir, "push", target, refspec); err != nil {
		return fmt.Errorf("git push: %w", redact(err, s.cfg.Auth.Token))
	}
	return nil
}

func (s *Syncer) pullRebase(ctx context.Context) error {
	target, err := s.pushTarget(ctx)
	if err != nil {
		return err
	}
	args := []string{"-c", "user.name=" + s.cfg.AuthorName, "-c", "user.email=" + s.cfg.AuthorEmail, "pull", "--rebase", "--autostash", target}
	if s.cfg.Branch != "" {
		args = append(args, s.cfg.Branch)
	}
	if err := runGit(ctx, s.repoDir, args...); err != nil {
		_ = runGit(context.Background(), s.repoDir, "rebase", "--abort")
		return redact(err, s.cfg.Auth.Token)
	}
	return nil
}

// pushTarget is the remote name, or its URL with credentials when a token is configured.
func (s *Syncer) pushTarget(ctx context.Context) (string, error) {
	if strings.TrimSpace(s.cfg.Auth.Token) == "" {
		return s.cfg.Remote, nil
	}
	out := &bytes.Buffer{}
	if err := runGitWithOutput(ctx, s.repoDir, out, nil, "remote", "get-url", s.cfg.Remote); err != nil {
		return "", fmt.Errorf("git remote get-url: %w", err)
	}
	raw := strings.TrimSpace(out.String())
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return s.cfg.Remote, nil
	}
	authURL, err := withAuth(raw, s.cfg.Auth.Username, s.cfg.Auth.Token)
	if err != nil {
		return "", fmt.Errorf("auth url: %w", err)
	}
	return authURL, nil
}

func withAuth(rawURL, username, token string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	// Avoid placing '@' or ':' in username/token improperly
	u.User = url.UserPassword(username, token)
	return u.String(), nil
}

func redact(err error, token string) error {
	if err == nil || token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "***"))
}

func runGit(ctx context.Context, dir string, args ...string) error {
	return runGitWithOutput(ctx, dir, nil, nil, args...)
}

func runGitWithOutput(ctx context.Context, dir string, stdout, stderr *bytes.Buffer, args ...string) error {
	cmd := exec.CommandContext(ctx, common.GitExecutable, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	// Capture output to include in errors; git prints "nothing to commit" on stdout.
	var outBuf, errBuf bytes.Buffer
	if stdout != nil {
		cmd.Stdout = stdout
	} else {
		cmd.Stdout = &outBuf
	}
	if stderr != nil {
		cmd.Stderr = stderr
	} else {
		cmd.Stderr = &errBuf
	}
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(errBuf.String() + " " + outBuf.String())
		if msg != "" {
			return &gitError{err: err, output: msg}
		}
		return err
	}
	return nil
}

// gitError keeps the *exec.ExitError reachable through errors.As.
type gitError struct {
	err    error
	output string
}

func (e *gitError) Error() string { return e.err.Error() + ": " + e.output }

func (e *gitError) Unwrap() error { return e.err }

func isNothingToCommit(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	// Match common git output when nothing to commit
	return strings.Contains(strings.ToLower(msg), "nothing to commit")
}

func ensureGitAvailable() error {
	if _, err := exec.LookPath(common.GitExecutable); err != nil {
		return errors.New("git executable not found in PATH")
	}
	return nil
}
