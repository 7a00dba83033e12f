package source

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrOutsideRoot reports a path that climbs above its root.
	ErrOutsideRoot = errors.New("path escapes root")
	// ErrBadPackageSpec reports a malformed @namespace/name:version reference.
	ErrBadPackageSpec = errors.New("malformed package reference")
)

// PackageSpec identifies a versioned package in the local package cache.
type PackageSpec struct {
	Namespace string
	Name      string
	Version   string
}

// IsZero reports whether the spec is empty (the id belongs to the project).
func (p PackageSpec) IsZero() bool {
	return p == PackageSpec{}
}

func (p PackageSpec) String() string {
	if p.IsZero() {
		return ""
	}
	return "@" + p.Namespace + "/" + p.Name + ":" + p.Version
}

// Subdir returns the cache layout namespace/name/version.
func (p PackageSpec) Subdir() string {
	return filepath.Join(p.Namespace, p.Name, p.Version)
}

// ParsePackageSpec parses "@namespace/name:version".
func ParsePackageSpec(s string) (PackageSpec, error) {
	rest, ok := strings.CutPrefix(s, "@")
	if !ok {
		return PackageSpec{}, fmt.Errorf("%w: %q: missing @", ErrBadPackageSpec, s)
	}
	ns, nameVer, ok := strings.Cut(rest, "/")
	if !ok || ns == "" {
		return PackageSpec{}, fmt.Errorf("%w: %q: missing namespace", ErrBadPackageSpec, s)
	}
	name, ver, ok := strings.Cut(nameVer, ":")
	if !ok || name == "" || ver == "" {
		return PackageSpec{}, fmt.Errorf("%w: %q: expected name:version", ErrBadPackageSpec, s)
	}
	for _, part := range []string{ns, name, ver} {
		if strings.ContainsAny(part, `/\:`) || part == "." || part == ".." {
			return PackageSpec{}, fmt.Errorf("%w: %q", ErrBadPackageSpec, s)
		}
	}
	return PackageSpec{Namespace: ns, Name: name, Version: ver}, nil
}

// VirtualID addresses a logical file independent of its location on disk.
// Path is always rooted and slash separated ("/chapters/intro.vel").
type VirtualID struct {
	Package PackageSpec
	Path    string
}

// NewVirtualID normalizes vpath and pairs it with pkg.
func NewVirtualID(pkg PackageSpec, vpath string) (VirtualID, error) {
	clean, ok := CleanVirtualPath(vpath)
	if !ok {
		return VirtualID{}, fmt.Errorf("%w: %q", ErrOutsideRoot, vpath)
	}
	return VirtualID{Package: pkg, Path: clean}, nil
}

// ProjectFile is NewVirtualID without a package.
func ProjectFile(vpath string) (VirtualID, error) {
	return NewVirtualID(PackageSpec{}, vpath)
}

// VirtualIDFromPath maps an on-disk path (absolute, or relative to root) into a project id.
func VirtualIDFromPath(root, p string) (VirtualID, error) {
	if filepath.IsAbs(p) {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return VirtualID{}, err
		}
		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			return VirtualID{}, fmt.Errorf("%w: %q", ErrOutsideRoot, p)
		}
		p = rel
	}
	return ProjectFile(filepath.ToSlash(p))
}

func (id VirtualID) String() string {
	if id.Package.IsZero() {
		return id.Path
	}
	return id.Package.String() + id.Path
}

// Resolve joins the virtual path onto root. The path is already clean, so the
// result never leaves root.
func (id VirtualID) Resolve(root string) (string, bool) {
	if id.Path == "" || root == "" {
		return "", false
	}
	return filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(id.Path, "/"))), true
}

// Join resolves target as written in an include inside id:
//
//	@ns/name:1.0.0/lib.vel  package file
//	/abs/path.vel           relative to the root of id's project or package
//	rel/path.vel            relative to the directory of id
func (id VirtualID) Join(target string) (VirtualID, error) {
	if strings.HasPrefix(target, "@") {
		specPart, rest, _ := strings.Cut(target, ":")
		version, inner, _ := strings.Cut(rest, "/")
		spec, err := ParsePackageSpec(specPart + ":" + version)
		if err != nil {
			return VirtualID{}, err
		}
		if inner == "" {
			inner = "lib.vel"
		}
		return NewVirtualID(spec, inner)
	}
	if strings.HasPrefix(target, "/") {
		return NewVirtualID(id.Package, target)
	}
	dir := id.Path
	if i := strings.LastIndexByte(dir, '/'); i >= 0 {
		dir = dir[:i]
	}
	return NewVirtualID(id.Package, dir+"/"+target)
}

// LineCol represents a human-readable position in a source file.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based, in bytes
}
