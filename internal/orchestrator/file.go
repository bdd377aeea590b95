package orchestrator

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// LoadFile reads path into a File with a MIME type guessed from its
// extension. Unknown extensions leave MIMEType empty so the content is
// sniffed during extraction.
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read %s: %w", path, err)
	}
	return File{
		Name:     filepath.Base(path),
		MIMEType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Data:     data,
	}, nil
}
