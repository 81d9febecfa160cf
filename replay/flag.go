// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package replay

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danjacques/gomcreplay/archive"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// PacketIDListFlag is a pflag.Value implementation that accumulates packet
// identifiers for filter mask construction.
//
// Identifiers may be decimal or "0x"-prefixed hex, separated by commas
// and/or supplied across repeated flag instances.
type PacketIDListFlag []uint8

var _ pflag.Value = (*PacketIDListFlag)(nil)

func (f *PacketIDListFlag) String() string {
	parts := make([]string, len(*f))
	for i, id := range *f {
		parts[i] = fmt.Sprintf("0x%02x", id)
	}
	return strings.Join(parts, ",")
}

// Set implements pflag.Value.
func (f *PacketIDListFlag) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		base := 10
		if strings.HasPrefix(strings.ToLower(part), "0x") {
			part, base = part[2:], 16
		}

		id, err := strconv.ParseUint(part, base, 8)
		if err != nil {
			return errors.Wrapf(err, "invalid packet id %q", part)
		}
		*f = append(*f, uint8(id))
	}
	return nil
}

// Type implements pflag.Value.
func (f *PacketIDListFlag) Type() string { return "replay.PacketIDList" }

// IDs returns the accumulated identifiers.
func (f PacketIDListFlag) IDs() []uint8 { return f }

// CompressionLevelFlag is a pflag.Value implementation holding a deflate
// compression level for archive output.
type CompressionLevelFlag int

var _ pflag.Value = (*CompressionLevelFlag)(nil)

// DefaultCompressionLevelFlag returns a flag holding the default level.
func DefaultCompressionLevelFlag() CompressionLevelFlag {
	return CompressionLevelFlag(archive.DefaultCompressionLevel)
}

func (cf *CompressionLevelFlag) String() string { return strconv.Itoa(int(*cf)) }

// Set implements pflag.Value.
func (cf *CompressionLevelFlag) Set(v string) error {
	level, err := strconv.Atoi(v)
	if err != nil {
		return errors.Wrapf(err, "invalid compression level %q", v)
	}
	if level < flate.HuffmanOnly || level > flate.BestCompression {
		return errors.Errorf("compression level %d outside [%d, %d]",
			level, flate.HuffmanOnly, flate.BestCompression)
	}
	*cf = CompressionLevelFlag(level)
	return nil
}

// Type implements pflag.Value.
func (cf *CompressionLevelFlag) Type() string { return "replay.CompressionLevel" }

// Level returns the compression level held by this flag.
func (cf CompressionLevelFlag) Level() int { return int(cf) }
