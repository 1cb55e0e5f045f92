package transcode

import (
	"os"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/matzehuels/layerpress/pkg/errors"
	"github.com/matzehuels/layerpress/pkg/raster"
)

// imageField is the record key naming the artifact.
const imageField = "image"

// Width 0 keeps arrays expanded one element per line.
var indentOpts = &pretty.Options{Width: 0, Prefix: "", Indent: "  ", SortKeys: false}

// Record is one metadata file. Raw holds the document exactly as read so
// that fields this package does not know about survive a rewrite.
type Record struct {
	Path  string
	Raw   []byte
	Image string
}

// ReadRecord loads and validates the record at path.
func ReadRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read %s", path)
	}
	return ParseRecord(path, data)
}

// ParseRecord validates data as a record. The document must be a JSON object
// whose "image" field is a non-empty string.
func ParseRecord(path string, data []byte) (*Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New(errors.ErrCodeInvalidRecord, "%s: not valid JSON", path)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, errors.New(errors.ErrCodeInvalidRecord, "%s: expected a JSON object", path)
	}
	img := doc.Get(imageField)
	if !img.Exists() {
		return nil, errors.New(errors.ErrCodeInvalidRecord, "%s: missing %q", path, imageField)
	}
	if img.Type != gjson.String || strings.TrimSpace(img.String()) == "" {
		return nil, errors.New(errors.ErrCodeInvalidRecord, "%s: %q must be a non-empty string", path, imageField)
	}
	return &Record{Path: path, Raw: data, Image: img.String()}, nil
}

// SetImage points the record at name, leaving every other field untouched.
func (r *Record) SetImage(name string) error {
	out, err := sjson.SetBytes(r.Raw, imageField, name)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidRecord, err, "%s: update %q", r.Path, imageField)
	}
	r.Raw = out
	r.Image = name
	return nil
}

// Bytes returns the record indented with two spaces and a trailing newline.
func (r *Record) Bytes() []byte {
	return pretty.PrettyOptions(r.Raw, indentOpts)
}

// Write replaces the file at r.Path with r.Bytes().
func (r *Record) Write() error {
	return raster.WriteBytes(r.Path, r.Bytes())
}
