// Package chunked enhances files too long for a single pass. It reads
// fixed windows with a left overlap, enhances each one independently and
// stitches them back with linear crossfades into one scratch WAV file.
package chunked
