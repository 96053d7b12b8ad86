package modelgate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type fakeDownloader struct {
	calls       int
	err         error
	writeMarker bool
}

func (f *fakeDownloader) Download(_ context.Context, repo, revision, dest string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if f.writeMarker {
		return os.WriteFile(filepath.Join(dest, MarkerFile), []byte("{}"), 0o600)
	}
	return nil
}

func TestLocalDirDeterministic(t *testing.T) {
	g := New("models")
	got := g.LocalDir("org/Model-Name", "6_5")
	want := filepath.Join("models", "Model-Name_6_5")
	if got != want {
		t.Fatalf("LocalDir: got %s want %s", got, want)
	}
	// A different revision produces a different directory.
	if g.LocalDir("org/Model-Name", "8_0") == got {
		t.Fatalf("revisions must not share a directory")
	}
}

func TestEnsureDownloadedFetchesOnce(t *testing.T) {
	dl := &fakeDownloader{writeMarker: true}
	g := &Gate{ModelsDir: t.TempDir(), Downloader: dl}

	art, err := g.EnsureDownloaded(context.Background(), "org/Model-Name", "6_5")
	if err != nil {
		t.Fatalf("first EnsureDownloaded: %v", err)
	}
	if dl.calls != 1 {
		t.Fatalf("downloader calls: got %d want 1", dl.calls)
	}

	again, err := g.EnsureDownloaded(context.Background(), "org/Model-Name", "6_5")
	if err != nil {
		t.Fatalf("second EnsureDownloaded: %v", err)
	}
	if dl.calls != 1 {
		t.Fatalf("second call must not invoke the downloader, got %d calls", dl.calls)
	}
	if again.Dir != art.Dir {
		t.Fatalf("artifact path changed between calls: %s vs %s", again.Dir, art.Dir)
	}
}

func TestEnsureDownloadedPresentMarkerSkipsClient(t *testing.T) {
	g := &Gate{ModelsDir: t.TempDir(), Downloader: &fakeDownloader{err: errors.New("must not be called")}}
	dir := g.LocalDir("org/Model-Name", "6_5")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MarkerFile), []byte("{}"), 0o600); err != nil {
		t.Fatalf("seed marker: %v", err)
	}

	art, err := g.EnsureDownloaded(context.Background(), "org/Model-Name", "6_5")
	if err != nil {
		t.Fatalf("EnsureDownloaded with marker present: %v", err)
	}
	if art.Dir != dir {
		t.Fatalf("artifact dir: got %s want %s", art.Dir, dir)
	}
}

func TestEnsureDownloadedClientFailure(t *testing.T) {
	g := &Gate{ModelsDir: t.TempDir(), Downloader: &fakeDownloader{err: errors.New("exit status 1")}}
	_, err := g.EnsureDownloaded(context.Background(), "org/m", "4_0")
	if !errors.Is(err, ErrDownload) {
		t.Fatalf("expected ErrDownload, got %v", err)
	}
	if g.Present("org/m", "4_0") {
		t.Fatalf("artifact must not be marked present after failure")
	}
}

func TestEnsureDownloadedMissingMarkerAfterClient(t *testing.T) {
	// Downloader exits 0 but never materializes the marker.
	g := &Gate{ModelsDir: t.TempDir(), Downloader: &fakeDownloader{}}
	_, err := g.EnsureDownloaded(context.Background(), "org/m", "4_0")
	if !errors.Is(err, ErrDownload) {
		t.Fatalf("expected ErrDownload for incomplete download, got %v", err)
	}
}
