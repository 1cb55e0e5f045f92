package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/layerpress/pkg/errors"
	"github.com/matzehuels/layerpress/pkg/raster"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFilename)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if got := Default().Count(); got != 21 {
		t.Errorf("Count() = %d, want 21", got)
	}
	if Default().Format() != raster.FormatWebP {
		t.Errorf("Format() = %q, want webp", Default().Format())
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
start_index = 0
end_index = 4
name = "Item {{ .Index }}"
output_width = 512
output_height = 512
output_quality = 80
workers = 4

[paths]
assets = "layers"
output = "/tmp/out"

[engine]
command = ["node", "engine.js"]

[transcode]
isolate = true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	base := filepath.Dir(path)
	if cfg.StartIndex != 0 || cfg.EndIndex != 4 || cfg.Workers != 4 {
		t.Errorf("range/workers = %d..%d/%d", cfg.StartIndex, cfg.EndIndex, cfg.Workers)
	}
	if cfg.InputWidth != DefaultInputWidth {
		t.Errorf("InputWidth = %d, want default %d", cfg.InputWidth, DefaultInputWidth)
	}
	if cfg.Paths.Assets != filepath.Join(base, "layers") {
		t.Errorf("Assets = %q", cfg.Paths.Assets)
	}
	if cfg.Paths.Sorted != filepath.Join(base, "data_sorted") {
		t.Errorf("Sorted = %q", cfg.Paths.Sorted)
	}
	if cfg.Paths.Output != "/tmp/out" {
		t.Errorf("absolute Output should be kept, got %q", cfg.Paths.Output)
	}
	if cfg.Paths.Metadata != filepath.Join("/tmp/out", "erc721 metadata") {
		t.Errorf("Metadata = %q", cfg.Paths.Metadata)
	}
	if !cfg.Transcode.Isolate {
		t.Error("Transcode.Isolate should be true")
	}
	if len(cfg.Engine.Command) != 2 || cfg.Engine.Command[0] != "node" {
		t.Errorf("Engine.Command = %v", cfg.Engine.Command)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code errors.Code
	}{
		{"syntax", "start_index = ", errors.ErrCodeInvalidConfig},
		{"unknown key", "start_idx = 3", errors.ErrCodeInvalidConfig},
		{"bad range", "start_index = 5\nend_index = 1", errors.ErrCodeInvalidConfig},
		{"bad quality", "output_quality = 150", errors.ErrCodeInvalidConfig},
		{"bad format", `output_format = "gif"`, errors.ErrCodeInvalidConfig},
		{"bad template", `name = "{{ .Index "`, errors.ErrCodeInvalidConfig},
		{"sorted equals assets", "[paths]\nassets = \"data\"\nsorted = \"data\"", errors.ErrCodeInvalidConfig},
		{"zero workers", "workers = 0", errors.ErrCodeInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if !errors.Is(err, tt.code) {
				t.Errorf("Load() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if !errors.Is(err, errors.ErrCodeSourceNotFound) {
		t.Errorf("Load(missing) error = %v, want SOURCE_NOT_FOUND", err)
	}
}

func TestValidateDimensions(t *testing.T) {
	cfg := Default()
	cfg.OutputWidth = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero output width should fail")
	}

	cfg = Default()
	cfg.InputHeight = -5
	if err := cfg.Validate(); err == nil {
		t.Error("negative input height should fail")
	}
}

func TestTemplates(t *testing.T) {
	cfg := Default()
	tmpl, err := cfg.Templates()
	if err != nil {
		t.Fatalf("Templates: %v", err)
	}

	name, err := tmpl.Name(7)
	if err != nil {
		t.Fatalf("Name: %v", err)
	}
	if name != "Jungle Creatures #0007" {
		t.Errorf("Name(7) = %q", name)
	}

	desc, err := tmpl.Describe(nil)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if desc != DefaultDescription {
		t.Errorf("Describe() = %q", desc)
	}
}

func TestTemplatesSprigAndAttributes(t *testing.T) {
	cfg := Default()
	cfg.Name = `{{ "creature" | upper }}-{{ .Index }}`
	cfg.Description = `A {{ .Attributes.fur | default "plain" }} creature`

	tmpl, err := cfg.Templates()
	if err != nil {
		t.Fatalf("Templates: %v", err)
	}

	if name, _ := tmpl.Name(3); name != "CREATURE-3" {
		t.Errorf("Name(3) = %q", name)
	}
	if desc, _ := tmpl.Describe(map[string]any{"fur": "golden"}); desc != "A golden creature" {
		t.Errorf("Describe(golden) = %q", desc)
	}
	if desc, _ := tmpl.Describe(nil); desc != "A plain creature" {
		t.Errorf("Describe(nil) = %q", desc)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	var sb strings.Builder
	if err := Write(&sb, Default()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	path := writeConfig(t, sb.String())
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(written default): %v\n%s", err, sb.String())
	}
	if cfg.Name != DefaultName || cfg.OutputQuality != DefaultOutputQuality {
		t.Errorf("round trip lost values: %+v", cfg)
	}
}
