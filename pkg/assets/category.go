package assets

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"

	"github.com/matzehuels/layerpress/pkg/errors"
)

var zHint = regexp.MustCompile(`(?i)_z(\d+)`)

// Category is one layer slot: an immediate subdirectory of the asset root.
type Category struct {
	Name     string `json:"name"`
	ZIndex   int    `json:"z_index"`
	Path     string `json:"path"`
	DestName string `json:"dest_name"`
}

// ZIndex extracts the stacking hint from a category name. Names without a
// hint, or with one too large to represent, sort at 0.
func ZIndex(name string) int {
	m := zHint.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	z, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return z
}

// DestName is the normalized directory name for the category at position i.
func DestName(i int, name string) string {
	return fmt.Sprintf("%03d__%s", i, name)
}

// SortCategories orders categories bottom layer first: ascending z-index,
// ties broken by name. Names compare byte-wise, so "Hat" sorts before "eyes"
// regardless of locale. The order is total, so it never depends on how the
// filesystem listed the directories.
func SortCategories(cats []Category) {
	slices.SortStableFunc(cats, func(a, b Category) int {
		if c := cmp.Compare(a.ZIndex, b.ZIndex); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
}

// Discover lists the categories under root, sorted and with destination
// names assigned. Plain files and symlinks at the root are ignored.
func Discover(root string) ([]Category, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeSourceNotFound, err, "asset root %s", root)
		}
		return nil, errors.Wrap(errors.ErrCodeSourceNotFound, err, "list asset root %s", root)
	}

	var cats []Category
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		cats = append(cats, Category{
			Name:   e.Name(),
			ZIndex: ZIndex(e.Name()),
			Path:   filepath.Join(root, e.Name()),
		})
	}

	SortCategories(cats)
	for i := range cats {
		cats[i].DestName = DestName(i, cats[i].Name)
	}
	return cats, nil
}
