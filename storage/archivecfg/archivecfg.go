// Package archivecfg opens archive backends from CLI-style specs.
//
// Supported specs:
//
//	localfs:/path/to/dir      filesystem archive rooted at the given directory
//	/path/to/dir              shorthand for localfs
//	grpc://host:port          remote archive over the gRPC service
//
// Multiple comma-separated specs open a replicating archive that writes to
// every backend and reads with ordered fallback. Prefixing the list with
// "fallback:" opens the backends read-mostly instead: reads fall through the
// list in order and writes go only to the first backend.
package archivecfg

import (
	"fmt"
	"io"
	"strings"
	"time"

	"credanchor.io/anchor/storage"
	"credanchor.io/anchor/storage/grpccas"
	"credanchor.io/anchor/storage/localfs"
)

// Archive is an opened backend plus whatever needs closing on shutdown.
type Archive struct {
	CAS     storage.CAS
	closers []io.Closer
}

func (a *Archive) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open opens the archive described by spec.
func Open(spec string) (*Archive, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("archivecfg: empty archive spec")
	}

	if strings.HasPrefix(spec, "fallback:") {
		out, backends, err := openList(strings.TrimPrefix(spec, "fallback:"))
		if err != nil {
			return nil, err
		}
		if len(backends) < 2 {
			_ = out.Close()
			return nil, fmt.Errorf("archivecfg: fallback spec needs at least two backends: %q", spec)
		}
		cass := make([]storage.CAS, len(backends))
		for i, b := range backends {
			cass[i] = b.CAS
		}
		out.CAS = storage.FallbackCAS{Backends: cass}
		return out, nil
	}

	parts := strings.Split(spec, ",")
	if len(parts) == 1 {
		return openOne(parts[0])
	}
	out, backends, err := openList(spec)
	if err != nil {
		return nil, err
	}
	out.CAS = storage.ReplicatingCAS{Backends: backends}
	return out, nil
}

// openList opens every backend in a comma-separated spec list. The returned
// Archive has its closers populated but no CAS yet.
func openList(list string) (*Archive, []storage.NamedCAS, error) {
	parts := strings.Split(list, ",")
	out := &Archive{}
	backends := make([]storage.NamedCAS, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			_ = out.Close()
			return nil, nil, fmt.Errorf("archivecfg: empty backend in spec list %q", list)
		}
		one, err := openOne(p)
		if err != nil {
			_ = out.Close()
			return nil, nil, err
		}
		backends = append(backends, storage.NamedCAS{Name: p, CAS: one.CAS})
		out.closers = append(out.closers, one.closers...)
	}
	return out, backends, nil
}

func openOne(spec string) (*Archive, error) {
	switch {
	case strings.HasPrefix(spec, "grpc://"):
		target := strings.TrimPrefix(spec, "grpc://")
		if target == "" {
			return nil, fmt.Errorf("archivecfg: grpc spec missing target: %q", spec)
		}
		c, err := grpccas.Dial(target, grpccas.DialOptions{Timeout: 10 * time.Second})
		if err != nil {
			return nil, err
		}
		return &Archive{CAS: c, closers: []io.Closer{c}}, nil

	case strings.HasPrefix(spec, "localfs:"):
		dir := strings.TrimPrefix(spec, "localfs:")
		cas, err := localfs.New(dir)
		if err != nil {
			return nil, err
		}
		return &Archive{CAS: cas}, nil

	default:
		// Bare paths are filesystem archives.
		cas, err := localfs.New(spec)
		if err != nil {
			return nil, err
		}
		return &Archive{CAS: cas}, nil
	}
}
