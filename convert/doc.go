// Package convert moves bitmaps between the WAH encoding and other bitmap
// representations.
//
// Roaring bitmaps (32- and 64-bit) and bits-and-blooms bitsets are
// supported. Conversions out of WAH walk runs of set bits with
// ForEachRange, so long runs cost one AddRange call rather than one call per
// position.
package convert
