package mask

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
)

//go:embed masks/*.yaml
var embedded embed.FS

// Resource names, one mask file per remote resource type
const (
	JobSummary  = "job_summary"
	JobDetail   = "job_detail"
	JobRun      = "job_run"
	Catalog     = "catalog"
	Schema      = "schema"
	Table       = "table"
	TableDetail = "table_detail"
)

// Resources lists every mask the server needs at startup
var Resources = []string{JobSummary, JobDetail, JobRun, Catalog, Schema, Table, TableDetail}

// Set holds the masks for every remote resource type. It is built once at
// startup and only read afterwards.
type Set struct {
	JobSummary  *Mask
	JobDetail   *Mask
	JobRun      *Mask
	Catalog     *Mask
	Schema      *Mask
	Table       *Mask
	TableDetail *Mask
}

// Default returns the masks compiled into the binary
func Default() (*Set, error) {
	sub, err := fs.Sub(embedded, "masks")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub, nil)
}

// MustDefault is Default for tests and package-level setup
func MustDefault() *Set {
	s, err := Default()
	if err != nil {
		panic(err)
	}
	return s
}

// Load returns the embedded masks, replacing any that have a <name>.yaml
// counterpart in dir. An empty dir means embedded masks only.
func Load(dir string) (*Set, error) {
	base, err := fs.Sub(embedded, "masks")
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return LoadFS(base, nil)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("masks directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("masks directory %s is not a directory", dir)
	}
	return LoadFS(base, os.DirFS(dir))
}

// LoadFS reads every resource mask from base, preferring override when it has
// the file. override may be nil.
func LoadFS(base, override fs.FS) (*Set, error) {
	masks := make(map[string]*Mask, len(Resources))
	for _, name := range Resources {
		file := name + ".yaml"

		data, err := readFirst(file, override, base)
		if err != nil {
			return nil, fmt.Errorf("mask %s: %w", name, err)
		}
		m, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("mask %s: %w", name, err)
		}
		masks[name] = m
	}

	return &Set{
		JobSummary:  masks[JobSummary],
		JobDetail:   masks[JobDetail],
		JobRun:      masks[JobRun],
		Catalog:     masks[Catalog],
		Schema:      masks[Schema],
		Table:       masks[Table],
		TableDetail: masks[TableDetail],
	}, nil
}

func readFirst(file string, systems ...fs.FS) ([]byte, error) {
	for _, fsys := range systems {
		if fsys == nil {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Clean(file))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, fs.ErrNotExist
}
