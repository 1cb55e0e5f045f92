// Package transcode rewrites a generated collection into its delivery form.
//
// The generation engine leaves one JSON record per item in a metadata
// directory, each naming its artifact through the "image" field. For every
// record whose artifact exists, [Transcoder.Transcode] cover-fits the image
// to the output size, re-encodes it (WebP by default), points the record at
// the new file and removes the original.
//
// Records are edited in place: only "image" changes, every other field keeps
// its position and value, and the file is re-indented with two spaces.
//
// Writes are ordered so that an interrupted run never leaves a record
// pointing at a file that does not exist: the new artifact is written first,
// then the record, and the original is removed last.
package transcode
