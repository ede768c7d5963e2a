package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const artifactPrefix = "mockup-demo-"

// ArtifactName returns mockup-demo-<unix millis>.<ext>.
func ArtifactName(t time.Time, ext string) string {
	return fmt.Sprintf("%s%d.%s", artifactPrefix, t.UnixMilli(), ext)
}

// DirSink writes artifacts into a directory, creating it on demand.
type DirSink struct {
	Dir string
}

func (d DirSink) Save(name string, data []byte) (string, error) {
	if name != filepath.Base(name) {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	if err := os.MkdirAll(d.Dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(d.Dir, name)
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return path, nil
}
