package download

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// maxFilenameLength caps generated filenames. The extension survives
// truncation so the file type stays recognizable.
const maxFilenameLength = 200

// resolveFilename derives a local filename for a downloaded URL. The
// Content-Disposition filename wins when present and safe; otherwise
// the URL path's last segment is used; a URL with no usable segment
// falls back to a short hash of the URL itself.
func resolveFilename(rawURL string, hdr http.Header) string {
	if cd := hdr.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := sanitizeFilename(params["filename"]); name != "" {
				return ensureExtension(name, hdr)
			}
		}
	}

	if u, err := url.Parse(rawURL); err == nil {
		if name := sanitizeFilename(path.Base(u.Path)); name != "" && name != "/" && name != "." {
			return ensureExtension(name, hdr)
		}
	}

	sum := sha256.Sum256([]byte(rawURL))
	return ensureExtension("file_"+hex.EncodeToString(sum[:])[:8], hdr)
}

// ensureExtension appends an extension inferred from the Content-Type
// when the name has none.
func ensureExtension(name string, hdr http.Header) string {
	if filepath.Ext(name) != "" {
		return name
	}

	ct := hdr.Get("Content-Type")
	if ct == "" {
		return name
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil || mediaType == "application/octet-stream" {
		return name
	}

	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return name
	}
	return name + preferredExtension(mediaType, exts)
}

// preferredExtension picks a conventional extension when the mime
// package offers several (e.g. .jpe/.jpeg/.jpg for image/jpeg).
func preferredExtension(mediaType string, exts []string) string {
	preferred := map[string]string{
		"image/jpeg":      ".jpg",
		"text/plain":      ".txt",
		"audio/mpeg":      ".mp3",
		"application/zip": ".zip",
	}
	if ext, ok := preferred[mediaType]; ok {
		return ext
	}
	return exts[0]
}

// sanitizeFilename strips path separators, reserved characters, and
// control characters, and caps the length. It returns "" when nothing
// usable remains.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	// Drop any directory components an attacker-controlled header
	// might smuggle in.
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f:
			// control characters
		case strings.ContainsRune(`<>:"/\|?*`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	name = b.String()

	name = strings.Trim(name, ". ")
	if name == "" || name == "/" {
		return ""
	}

	if len(name) > maxFilenameLength {
		ext := filepath.Ext(name)
		if len(ext) > maxFilenameLength/2 {
			ext = ""
		}
		name = name[:maxFilenameLength-len(ext)] + ext
	}
	return name
}

// nameAllocator hands out unique filenames within a directory for the
// lifetime of a run. Collisions with names claimed earlier in the run
// or with files already on disk get a numeric suffix before the
// extension: report.pdf, report_1.pdf, report_2.pdf.
type nameAllocator struct {
	dir   string
	mu    sync.Mutex
	taken map[string]struct{}
}

func newNameAllocator(dir string) *nameAllocator {
	return &nameAllocator{dir: dir, taken: make(map[string]struct{})}
}

// claim reserves a unique variant of name and returns it.
func (a *nameAllocator) claim(name string) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.free(name) {
		a.taken[name] = struct{}{}
		return name
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if a.free(candidate) {
			a.taken[candidate] = struct{}{}
			return candidate
		}
	}
}

// free reports whether a name is unclaimed in this run and absent on disk.
func (a *nameAllocator) free(name string) bool {
	if _, ok := a.taken[name]; ok {
		return false
	}
	_, err := os.Stat(filepath.Join(a.dir, name))
	return os.IsNotExist(err)
}

// release frees a claimed name after a failed download so a later
// retry of the same URL can reuse it.
func (a *nameAllocator) release(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.taken, name)
}
