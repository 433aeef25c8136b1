package loader

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// SourceKind distinguishes remote URLs from local files.
type SourceKind string

const (
	SourceRemote SourceKind = "remote"
	SourceLocal  SourceKind = "local"
)

// ErrEmptySource is returned for a blank source string.
var ErrEmptySource = errors.New("loader: empty source")

// Source is a parsed data source reference.
type Source struct {
	Raw  string     `json:"raw"`
	Kind SourceKind `json:"kind"`
	// Key identifies the source in the cache: the normalized URL or the cleaned path.
	Key string `json:"key"`
	// Name is the file name used for format detection.
	Name string `json:"name"`
}

// ParseSource classifies raw as a remote http(s) URL or a local path.
func ParseSource(raw string) (Source, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Source{}, ErrEmptySource
	}
	if u, err := url.Parse(s); err == nil && u.Scheme != "" && u.Host != "" {
		scheme := strings.ToLower(u.Scheme)
		if scheme != "http" && scheme != "https" {
			return Source{}, fmt.Errorf("loader: unsupported scheme %q", u.Scheme)
		}
		u.Scheme = scheme
		u.Host = strings.ToLower(u.Host)
		u.Fragment, u.RawFragment = "", ""
		return Source{Raw: raw, Kind: SourceRemote, Key: u.String(), Name: path.Base(u.Path)}, nil
	}
	clean := filepath.Clean(s)
	return Source{Raw: raw, Kind: SourceLocal, Key: clean, Name: filepath.Base(clean)}, nil
}
