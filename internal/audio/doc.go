// Package audio handles audio decoding, encoding and windowing.
// It decodes WAV and Ogg Vorbis files into planar float buffers with ranged
// frame reads, writes 16-bit PCM WAV output, and plans overlapping chunk
// windows that are stitched back together with a linear crossfade.
package audio
