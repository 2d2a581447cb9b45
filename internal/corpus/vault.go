package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/openmined/notereview/internal/utils"
)

// DefaultInclude selects markdown notes anywhere in the vault.
var DefaultInclude = []string{"**/*.md"}

type VaultOptions struct {
	Include []string // doublestar patterns, DefaultInclude when empty
	Ignore  []string // extra gitignore rules
}

// Vault is a Provider backed by a directory on disk.
type Vault struct {
	root    string
	include []string
	ignore  *ignoreList
}

func NewVault(root string, opts VaultOptions) (*Vault, error) {
	root, err := utils.ResolvePath(root)
	if err != nil {
		return nil, err
	}
	if !utils.DirExists(root) {
		return nil, fmt.Errorf("vault directory %q does not exist", root)
	}

	include := opts.Include
	if len(include) == 0 {
		include = DefaultInclude
	}
	for _, p := range include {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid include pattern %q", p)
		}
	}

	return &Vault{
		root:    root,
		include: include,
		ignore:  loadIgnoreList(root, opts.Ignore),
	}, nil
}

func (v *Vault) Root() string {
	return v.root
}

// List walks the vault and returns the included documents in lexical order.
// Any walk error aborts the listing, since a partial listing would report documents as deleted.
func (v *Vault) List(ctx context.Context) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(v.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("walk error: %w", walkErr)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		relPath, err := filepath.Rel(v.root, path)
		if err != nil {
			return fmt.Errorf("walk rel path: %w", err)
		}
		relPath = utils.NormPath(relPath)
		if relPath == "" {
			return nil
		}

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") || v.ignore.ShouldIgnore(relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || v.ignore.ShouldIgnore(relPath) {
			return nil
		}

		if v.included(relPath) {
			paths = append(paths, relPath)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("vault listing failed: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}

func (v *Vault) included(relPath string) bool {
	for _, pattern := range v.include {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}
	}
	return false
}

func (v *Vault) abs(path string) (string, error) {
	norm := utils.NormPath(path)
	if norm == "" || norm != path {
		return "", fmt.Errorf("invalid document path %q", path)
	}
	for _, seg := range strings.Split(norm, "/") {
		if seg == ".." {
			return "", fmt.Errorf("document path %q escapes the vault", path)
		}
	}
	return filepath.Join(v.root, filepath.FromSlash(norm)), nil
}

func (v *Vault) ReadText(path string) (string, error) {
	abs, err := v.abs(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	} else if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s", ErrNotText, path)
	}
	return string(data), nil
}

func (v *Vault) ModTime(path string) (int64, error) {
	abs, err := v.abs(path)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, path)
	} else if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.ModTime().Unix(), nil
}

// check if Vault implements Provider
var _ Provider = (*Vault)(nil)
