// Package assets prepares layer directories for the composition engine.
//
// The engine composes layers in the order it enumerates category
// directories, and it cannot composite layers larger than its canvas. This
// package turns an arbitrary asset tree into one that is safe on both counts:
//
//	data/                       data_sorted/
//	  fur_z2/                     000__background/
//	  eyes_z1/          ──►       001__eyes_z1/
//	  background/                 002__fur_z2/
//
// Categories are ordered by the z-index hint embedded in their name
// (`_z<digits>`, case-insensitive, default 0) and then by name, and each
// destination directory is prefixed with its zero-padded position so even a
// naive lexicographic listing sees the intended stacking order.
//
// Inside each category every PNG larger than the configured bound is
// scaled down to fit inside it; everything else is copied byte for byte. One
// level of variant-group subdirectories is supported. A file that cannot be
// probed or resized is copied verbatim instead, and a file that cannot even
// be copied is skipped and reported, so one corrupt asset never aborts the
// pass.
//
// The destination is deleted and rebuilt on every call, which makes reruns
// idempotent.
package assets
