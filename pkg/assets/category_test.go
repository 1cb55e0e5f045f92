package assets

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/layerpress/pkg/errors"
)

func TestZIndex(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"background", 0},
		{"eyes_z1", 1},
		{"fur_z2", 2},
		{"hat_Z15", 15},
		{"mouth_z007", 7},
		{"z3_no_underscore", 0},
		{"a_z2_b_z9", 2},
		{"overflow_z99999999999999999999999", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ZIndex(tt.name); got != tt.want {
				t.Errorf("ZIndex(%q) = %d, want %d", tt.name, got, tt.want)
			}
		})
	}
}

func TestDestName(t *testing.T) {
	tests := []struct {
		i    int
		name string
		want string
	}{
		{0, "bg", "000__bg"},
		{7, "eyes_z1", "007__eyes_z1"},
		{123, "hat", "123__hat"},
		{1000, "overflow", "1000__overflow"},
	}
	for _, tt := range tests {
		if got := DestName(tt.i, tt.name); got != tt.want {
			t.Errorf("DestName(%d, %q) = %q, want %q", tt.i, tt.name, got, tt.want)
		}
	}
}

func names(cats []Category) []string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = c.Name
	}
	return out
}

func TestSortCategoriesExample(t *testing.T) {
	cats := []Category{
		{Name: "fur_z2", ZIndex: ZIndex("fur_z2")},
		{Name: "eyes_z1", ZIndex: ZIndex("eyes_z1")},
		{Name: "background", ZIndex: ZIndex("background")},
	}
	SortCategories(cats)

	want := []string{"background", "eyes_z1", "fur_z2"}
	got := names(cats)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestSortCategoriesByteOrder(t *testing.T) {
	cats := []Category{{Name: "eyes"}, {Name: "Hat"}, {Name: "_aura"}, {Name: "Bg"}}
	SortCategories(cats)

	want := []string{"Bg", "Hat", "_aura", "eyes"}
	got := names(cats)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestSortCategoriesIndependentOfInputOrder(t *testing.T) {
	base := []string{"shadow", "bg", "hat_z5", "eyes_z1", "ears_z1", "aura_z0", "fur_Z2", "zz", "aa_z5"}
	want := []string{"aa_z5", "hat_z5"} // checked below together with the full order

	var first []string
	rng := rand.New(rand.NewSource(1))
	for round := 0; round < 20; round++ {
		shuffled := append([]string(nil), base...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		cats := make([]Category, len(shuffled))
		for i, n := range shuffled {
			cats[i] = Category{Name: n, ZIndex: ZIndex(n)}
		}
		SortCategories(cats)

		for i := 1; i < len(cats); i++ {
			a, b := cats[i-1], cats[i]
			if a.ZIndex > b.ZIndex || (a.ZIndex == b.ZIndex && a.Name >= b.Name) {
				t.Fatalf("round %d: %q (z=%d) sorted before %q (z=%d)", round, a.Name, a.ZIndex, b.Name, b.ZIndex)
			}
		}

		got := names(cats)
		if first == nil {
			first = got
			continue
		}
		for i := range got {
			if got[i] != first[i] {
				t.Fatalf("round %d: order %v differs from %v", round, got, first)
			}
		}
	}

	if first[len(first)-2] != want[0] || first[len(first)-1] != want[1] {
		t.Errorf("highest layers = %v, want %v", first[len(first)-2:], want)
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"hat_z5", "bg", "eyes_z1"} {
		if err := os.Mkdir(filepath.Join(root, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "README.md"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	cats, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	want := []string{"000__bg", "001__eyes_z1", "002__hat_z5"}
	if len(cats) != len(want) {
		t.Fatalf("Discover found %d categories, want %d", len(cats), len(want))
	}
	for i, c := range cats {
		if c.DestName != want[i] {
			t.Errorf("cats[%d].DestName = %q, want %q", i, c.DestName, want[i])
		}
		if c.Path != filepath.Join(root, c.Name) {
			t.Errorf("cats[%d].Path = %q", i, c.Path)
		}
	}
}

func TestDiscoverMissingRoot(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, errors.ErrCodeSourceNotFound) {
		t.Errorf("Discover(missing) error = %v, want SOURCE_NOT_FOUND", err)
	}
}
