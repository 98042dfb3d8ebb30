package engine

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Sandbox engine 私有的暫存空間 (virtual filesystem)
// 只接受單層檔名, 不允許路徑
type Sandbox struct {
	fs   afero.Fs
	root string
}

// NewOsSandbox sandbox backed by a directory on disk, engines that exec real
// processes need a real directory
func NewOsSandbox(root string) (*Sandbox, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create sandbox dir[%s] : %w", root, err)
	}
	return &Sandbox{
		fs:   afero.NewBasePathFs(afero.NewOsFs(), root),
		root: root,
	}, nil
}

// NewMemSandbox in-memory sandbox
func NewMemSandbox() *Sandbox {
	return &Sandbox{fs: afero.NewMemMapFs()}
}

// Root directory on disk, empty for in-memory sandboxes
func (s *Sandbox) Root() string {
	return s.root
}

// Fs underlying afero filesystem
func (s *Sandbox) Fs() afero.Fs {
	return s.fs
}

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid staged name %q", name)
	}
	return nil
}

// WriteFile stage a file, overwriting any previous content
func (s *Sandbox) WriteFile(name string, data []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	return afero.WriteFile(s.fs, name, data, 0644)
}

// ReadFile read a staged file
func (s *Sandbox) ReadFile(name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	return afero.ReadFile(s.fs, name)
}

// Remove delete a staged file
func (s *Sandbox) Remove(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	return s.fs.Remove(name)
}

// Exists reports whether name is staged
func (s *Sandbox) Exists(name string) bool {
	ok, err := afero.Exists(s.fs, name)
	return err == nil && ok
}

// List staged names, sorted
func (s *Sandbox) List() ([]string, error) {
	infos, err := afero.ReadDir(s.fs, "/")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if !info.IsDir() {
			names = append(names, info.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Destroy remove the whole sandbox
func (s *Sandbox) Destroy() error {
	if s.root == "" {
		names, err := s.List()
		if err != nil {
			return err
		}
		for _, n := range names {
			_ = s.fs.Remove(n)
		}
		return nil
	}
	return os.RemoveAll(s.root)
}
