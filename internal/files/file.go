// Package files binds local file handles to server-assigned names and URLs.
package files

import (
	"regexp"
	"strings"
	"sync"
)

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._ -]*$`)

// ValidName reports whether name starts with an alphanumeric character and
// holds only alphanumerics, periods, spaces, underscores or dashes.
func ValidName(name string) bool {
	return validName.MatchString(name)
}

// File is a local handle for a file that is saved at most once. After the
// first successful save its name and URL are the server's and never change.
type File struct {
	mu   sync.Mutex
	name string
	url  string
	save *saveOp
}

type saveOp struct {
	done chan struct{}
	err  error
}

func New(name string) *File {
	return &File{name: name}
}

func (f *File) Name() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.name
}

type URLOption func(*urlOptions)

type urlOptions struct {
	forceSecure bool
}

// ForceSecure rewrites a leading http:// to https://.
func ForceSecure() URLOption {
	return func(o *urlOptions) { o.forceSecure = true }
}

// URL returns the remote URL and whether the file has one yet.
func (f *File) URL(opts ...URLOption) (string, bool) {
	var o urlOptions
	for _, opt := range opts {
		opt(&o)
	}

	f.mu.Lock()
	u := f.url
	f.mu.Unlock()

	if u == "" {
		return "", false
	}
	if o.forceSecure && len(u) >= len("http://") && strings.EqualFold(u[:len("http://")], "http://") {
		u = "https://" + u[len("http://"):]
	}
	return u, true
}

func (f *File) Saved() bool {
	_, ok := f.URL()
	return ok
}

// Equal is true for the same handle, or for two saved handles with the same
// name and URL. Unsaved handles are never equal to each other.
func (f *File) Equal(other *File) bool {
	if f == other {
		return true
	}
	if f == nil || other == nil {
		return false
	}
	u1, ok1 := f.URL()
	u2, ok2 := other.URL()
	if !ok1 || !ok2 {
		return false
	}
	return u1 == u2 && f.Name() == other.Name()
}

func (f *File) resolve(name, url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.name = name
	f.url = url
}
