package transcode

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/matzehuels/layerpress/pkg/errors"
)

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		image   string
		wantErr bool
	}{
		{"minimal", `{"image":"0.png"}`, "0.png", false},
		{"with fields", `{"name":"x","image":"sub/1.png","attributes":[]}`, "sub/1.png", false},
		{"invalid json", `{"image":`, "", true},
		{"array", `["image"]`, "", true},
		{"missing image", `{"name":"x"}`, "", true},
		{"numeric image", `{"image":7}`, "", true},
		{"empty image", `{"image":"  "}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseRecord("r.json", []byte(tt.data))
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeInvalidRecord) {
					t.Fatalf("ParseRecord(%s) error = %v, want INVALID_RECORD", tt.data, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRecord(%s): %v", tt.data, err)
			}
			if rec.Image != tt.image {
				t.Errorf("Image = %q, want %q", rec.Image, tt.image)
			}
		})
	}
}

func TestRecordSetImagePreservesOtherFields(t *testing.T) {
	raw := `{"name":"Jungle Creatures #0010","description":"d","image":"0.png","edition":10,"attributes":[{"trait_type":"eyes","value":"blue"}],"compiler":"x"}`
	rec, err := ParseRecord("r.json", []byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if err := rec.SetImage("0.webp"); err != nil {
		t.Fatal(err)
	}

	out := rec.Bytes()
	var keys []string
	gjson.ParseBytes(out).ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.String())
		return true
	})
	wantKeys := []string{"name", "description", "image", "edition", "attributes", "compiler"}
	if len(keys) != len(wantKeys) {
		t.Fatalf("keys = %v, want %v", keys, wantKeys)
	}
	for i := range wantKeys {
		if keys[i] != wantKeys[i] {
			t.Fatalf("keys = %v, want %v", keys, wantKeys)
		}
	}

	var before, after map[string]any
	if err := json.Unmarshal([]byte(raw), &before); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(out, &after); err != nil {
		t.Fatal(err)
	}
	if after["image"] != "0.webp" {
		t.Errorf("image = %v", after["image"])
	}
	delete(before, "image")
	delete(after, "image")
	b1, _ := json.Marshal(before)
	b2, _ := json.Marshal(after)
	if string(b1) != string(b2) {
		t.Errorf("other fields changed:\n%s\n%s", b1, b2)
	}
}

func TestRecordBytesIndentsTwoSpaces(t *testing.T) {
	rec, err := ParseRecord("r.json", []byte(`{"name":"x","image":"0.png","edition":0}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := rec.SetImage("0.webp"); err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"name\": \"x\",\n  \"image\": \"0.webp\",\n  \"edition\": 0\n}\n"
	if got := string(rec.Bytes()); got != want {
		t.Errorf("Bytes() =\n%q\nwant\n%q", got, want)
	}
}

func TestRecordWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "3.json")
	if err := os.WriteFile(path, []byte(`{"image":"3.png"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	rec, err := ReadRecord(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := rec.SetImage("3.webp"); err != nil {
		t.Fatal(err)
	}
	if err := rec.Write(); err != nil {
		t.Fatal(err)
	}

	again, err := ReadRecord(path)
	if err != nil {
		t.Fatal(err)
	}
	if again.Image != "3.webp" {
		t.Errorf("reloaded image = %q", again.Image)
	}
}

func TestReadRecordMissingFile(t *testing.T) {
	_, err := ReadRecord(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, errors.ErrCodeIO) {
		t.Errorf("error = %v, want IO_FAILURE", err)
	}
}
