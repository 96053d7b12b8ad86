// Package modelgate is the idempotency gate in front of model downloads:
// an artifact whose presence marker exists locally is never fetched again.
package modelgate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
)

var ErrDownload = errors.New("model download failed")

// MarkerFile is the file whose existence proves a completed download.
const MarkerFile = "config.json"

// Artifact is a locally materialized model revision.
type Artifact struct {
	Repo     string `json:"repo"`
	Revision string `json:"revision"`
	Dir      string `json:"dir"`
}

// Downloader fetches one model revision into dest. Implementations must be
// resumable: partial state in dest is continued, not restarted.
type Downloader interface {
	Download(ctx context.Context, repo, revision, dest string) error
}

// HFCLIDownloader shells out to huggingface-cli.
type HFCLIDownloader struct{}

func (HFCLIDownloader) Download(ctx context.Context, repo, revision, dest string) error {
	// #nosec G204
	cmd := exec.CommandContext(ctx, "huggingface-cli", "download", repo,
		"--revision", revision, "--local-dir", dest)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Gate maps (repo, revision) onto the local models directory.
type Gate struct {
	ModelsDir  string
	Downloader Downloader
}

func New(modelsDir string) *Gate {
	return &Gate{ModelsDir: modelsDir, Downloader: HFCLIDownloader{}}
}

// LocalDir computes the deterministic artifact directory for a repo and
// revision: <modelsDir>/<trailing-repo-segment>_<revision>. A different
// revision always produces a different directory.
func (g *Gate) LocalDir(repo, revision string) string {
	name := path.Base(strings.TrimSuffix(repo, "/"))
	return filepath.Join(g.ModelsDir, name+"_"+revision)
}

// Present reports whether the artifact's presence marker exists.
func (g *Gate) Present(repo, revision string) bool {
	_, err := os.Stat(filepath.Join(g.LocalDir(repo, revision), MarkerFile))
	return err == nil
}

// EnsureDownloaded returns the artifact for (repo, revision), downloading
// it first unless the presence marker already exists. Repeated calls with
// the same arguments perform no network operation after the first success.
func (g *Gate) EnsureDownloaded(ctx context.Context, repo, revision string) (Artifact, error) {
	art := Artifact{Repo: repo, Revision: revision, Dir: g.LocalDir(repo, revision)}
	if g.Present(repo, revision) {
		return art, nil
	}
	if err := os.MkdirAll(art.Dir, 0o750); err != nil {
		return Artifact{}, fmt.Errorf("create model dir: %w", err)
	}
	if err := g.Downloader.Download(ctx, repo, revision, art.Dir); err != nil {
		return Artifact{}, fmt.Errorf("%w: %s@%s: %v", ErrDownload, repo, revision, err)
	}
	if !g.Present(repo, revision) {
		return Artifact{}, fmt.Errorf("%w: %s@%s: downloader exited 0 but %s is missing",
			ErrDownload, repo, revision, MarkerFile)
	}
	return art, nil
}
