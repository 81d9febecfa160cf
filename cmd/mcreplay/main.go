// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Command mcreplay trims, filters, concatenates, and inspects replay
// containers.
//
// Inputs and the optional output are selected by path shape: a ".mcpr" or
// ".zip" path is a compressed archive, anything else a plain directory.
// Without an output, admitted packets are only counted (dry-run mode).
package main

import (
	"fmt"
	"os"

	"github.com/danjacques/gomcreplay/archive"
	"github.com/danjacques/gomcreplay/replay"

	"github.com/pterm/pterm"
	"github.com/spf13/pflag"
)

type application struct {
	inputs        []string
	output        string
	includeIDs    replay.PacketIDListFlag
	excludeIDs    replay.PacketIDListFlag
	unknownPacket bool
	packetDetails bool
	compression   replay.CompressionLevelFlag
	interval      uint32
	respawnID     int32
}

func (app *application) addFlags(fs *pflag.FlagSet) {
	fs.StringArrayVarP(&app.inputs, "input", "i", nil,
		"Input replay path. May be specified multiple times; inputs are stitched in order.")
	fs.StringVarP(&app.output, "output", "o", "",
		"Output replay path. If omitted, no output is written.")
	fs.VarP(&app.includeIDs, "include-packets", "n",
		"Packet ids to admit (decimal or 0x-hex). Setting this rejects unlisted ids.")
	fs.VarP(&app.excludeIDs, "exclude-packets", "e",
		"Packet ids to reject (decimal or 0x-hex).")
	fs.BoolVarP(&app.unknownPacket, "unknown-packets", "u", true,
		"Admit packet ids outside the filter table.")
	fs.BoolVarP(&app.packetDetails, "packet-details", "p", false,
		"Collect and print per-packet-id statistics.")
	fs.VarP(&app.compression, "compression-level", "c",
		"Deflate level for archive output.")
	fs.Uint32VarP(&app.interval, "interval", "t", 0,
		"Gap, in milliseconds, inserted between stitched inputs.")
	fs.Int32VarP(&app.respawnID, "respawn-id", "r", replay.DefaultRespawnID,
		"Respawn packet id suppressed from non-first inputs. Negative disables.")
}

func (app *application) buildMask() *replay.FilterMask {
	// An explicit include list flips the default to reject-all, mirroring
	// the filter's historical behavior.
	mask := replay.NewFilterMask(len(app.includeIDs) == 0, app.unknownPacket)
	mask.Include(app.includeIDs.IDs()...)
	mask.Exclude(app.excludeIDs.IDs()...)
	return mask
}

func (app *application) run() error {
	if len(app.inputs) == 0 {
		return fmt.Errorf("at least one --input is required")
	}

	inputs := make([]archive.Reader, 0, len(app.inputs))
	defer func() {
		for _, in := range inputs {
			_ = in.Close()
		}
	}()
	for _, path := range app.inputs {
		in, err := archive.OpenPath(path)
		if err != nil {
			return fmt.Errorf("opening input %q: %w", path, err)
		}
		inputs = append(inputs, in)
	}

	var output archive.Writer
	if app.output != "" {
		out, err := archive.CreatePath(app.output, app.compression.Level())
		if err != nil {
			return fmt.Errorf("creating output %q: %w", app.output, err)
		}
		output = out
	}

	merger := replay.NewMerger(app.buildMask())
	merger.Interval = app.interval
	merger.RespawnID = app.respawnID

	var stats replay.PacketStats
	if app.packetDetails {
		merger.Visitor = stats.Observe
	}

	md, err := merger.Merge(inputs, output)
	if err != nil {
		if output != nil {
			_ = output.Close()
		}
		return err
	}
	if output != nil {
		if err := output.Close(); err != nil {
			return fmt.Errorf("finalizing output %q: %w", app.output, err)
		}
	}

	pterm.Success.Printfln("Merged %d input(s); total duration %dms, %d participant(s).",
		len(app.inputs), md.Duration, len(md.Players))

	if app.packetDetails {
		printStats(&stats)
	}
	return nil
}

func printStats(stats *replay.PacketStats) {
	rows := pterm.TableData{{"packet", "count", "total size", "avg size"}}
	for _, row := range stats.Rows() {
		rows = append(rows, []string{
			fmt.Sprintf("0x%02x", row.ID),
			fmt.Sprintf("%d", row.Count),
			fmt.Sprintf("%d", row.Bytes),
			fmt.Sprintf("%.2f", row.AvgBytes()),
		})
	}

	if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
		pterm.Error.Printfln("rendering statistics: %s", err)
	}
}

func main() {
	app := application{
		compression: replay.DefaultCompressionLevelFlag(),
	}

	fs := pflag.NewFlagSet("mcreplay", pflag.ExitOnError)
	app.addFlags(fs)
	_ = fs.Parse(os.Args[1:])

	if err := app.run(); err != nil {
		pterm.Error.Printfln("%s", err)
		os.Exit(1)
	}
}
