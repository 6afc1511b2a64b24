package config

import "github.com/docker/go-units"

// SizeArgument parses human byte sizes ("512k", "1.5G") with binary
// multiples, so "1k" is 1024 bytes.
type SizeArgument struct {
	Size int64 `arg:"" help:"size in bytes"`
}

func (s *SizeArgument) UnmarshalText(text []byte) (err error) {
	s.Size, err = units.RAMInBytes(string(text))
	return
}
