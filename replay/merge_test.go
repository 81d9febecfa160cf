// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package replay

import (
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/danjacques/gomcreplay/archive"
	"github.com/danjacques/gomcreplay/protocol"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Merger", func() {
	playerA := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	playerB := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	playerC := uuid.MustParse("00000000-0000-0000-0000-00000000000c")

	var tdir string

	BeforeEach(func() {
		var err error
		tdir, err = ioutil.TempDir("", "merge_test")
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		if tdir != "" {
			_ = os.RemoveAll(tdir)
			tdir = ""
		}
	})

	// writeContainer builds a container under tdir and returns its backend.
	writeContainer := func(name string, md *MetaData, packets ...*Packet) *archive.Dir {
		path := filepath.Join(tdir, name)
		Expect(os.MkdirAll(path, 0755)).To(Succeed())

		d := archive.NewDir(path)
		w := NewWriter(d)
		for _, p := range packets {
			Expect(w.WritePacket(p)).To(Succeed())
		}
		Expect(w.WriteMetadata(md)).To(Succeed())
		return d
	}

	metadataWith := func(duration uint64, players ...uuid.UUID) *MetaData {
		md := DefaultMetaData()
		md.ServerName = "mc.example.net"
		md.MCVersion = "1.20.4"
		md.Protocol = 765
		md.Duration = duration
		for _, p := range players {
			md.Players.Add(p)
		}
		return md
	}

	type tagged struct {
		time  uint32
		id    int32
		phase protocol.Phase
	}

	readContainer := func(name string) []tagged {
		sc, err := NewScanner(archive.NewDir(filepath.Join(tdir, name)))
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			_ = sc.Close()
		}()

		var out []tagged
		for {
			pkt, phase, err := sc.Next()
			if err == io.EOF {
				return out
			}
			Expect(err).ToNot(HaveOccurred())
			out = append(out, tagged{pkt.Time, pkt.ID, phase})
		}
	}

	// Input one establishes a session: login, configuration, then play
	// traffic including a respawn.
	inputOnePackets := []*Packet{
		{Time: 0, ID: 0x00, Data: []byte("login")},
		{Time: 10, ID: 0x02, Data: []byte("login success")},
		{Time: 20, ID: 0x03, Data: []byte("finish config")},
		{Time: 30, ID: 0x10, Data: []byte("play")},
		{Time: 40, ID: DefaultRespawnID, Data: []byte("respawn")},
	}

	// Input two re-records its own handshake before reaching play.
	inputTwoPackets := []*Packet{
		{Time: 0, ID: 0x00, Data: []byte("re-login")},
		{Time: 2, ID: 0x02, Data: []byte("login success")},
		{Time: 5, ID: 0x03, Data: []byte("finish config")},
		{Time: 10, ID: 0x10, Data: []byte("play")},
		{Time: 15, ID: DefaultRespawnID, Data: []byte("respawn")},
		{Time: 20, ID: 0x11, Data: []byte("more play")},
	}

	It("stitches two inputs with deterministic offsets and unioned metadata", func() {
		in1 := writeContainer("in1", metadataWith(1000, playerA, playerB), inputOnePackets...)
		in2 := writeContainer("in2", metadataWith(500, playerB, playerC), inputTwoPackets...)
		Expect(os.MkdirAll(filepath.Join(tdir, "out"), 0755)).To(Succeed())
		out := archive.NewDir(filepath.Join(tdir, "out"))

		m := NewMerger(nil)
		m.Interval = 20

		md, err := m.Merge([]archive.Reader{in1, in2}, out)
		Expect(err).ToNot(HaveOccurred())

		// Duration is declared-duration arithmetic, not packet arithmetic:
		// 1000 + 20 + 500, regardless of last packet timestamps.
		Expect(md.Duration).To(Equal(uint64(1520)))

		Expect(md.Players).To(HaveLen(3))
		Expect(md.Players.Contains(playerA)).To(BeTrue())
		Expect(md.Players.Contains(playerB)).To(BeTrue())
		Expect(md.Players.Contains(playerC)).To(BeTrue())

		// Fixed tags are stamped; the rest comes from the first input.
		Expect(md.FileFormat).To(Equal("MCPR"))
		Expect(md.FileFormatVersion).To(Equal(uint32(14)))
		Expect(md.Generator).To(Equal(Generator))
		Expect(md.ServerName).To(Equal("mc.example.net"))
		Expect(md.Protocol).To(Equal(uint32(765)))

		// The written metadata matches the returned one.
		onDisk, err := ReadMetadata(out)
		Expect(err).ToNot(HaveOccurred())
		Expect(onDisk).To(Equal(md))

		// First input survives whole (its early phases included); the second
		// contributes only its Play traffic, minus the respawn, re-based by
		// 1000 + 20.
		Expect(readContainer("out")).To(Equal([]tagged{
			{0, 0x00, protocol.PhaseLogin},
			{10, 0x02, protocol.PhaseLogin},
			{20, 0x03, protocol.PhaseConfiguration},
			{30, 0x10, protocol.PhasePlay},
			{40, DefaultRespawnID, protocol.PhasePlay},
			{1030, 0x10, protocol.PhasePlay},
			{1040, 0x11, protocol.PhasePlay},
		}))
	})

	It("applies the filter mask on top of phase suppression", func() {
		in1 := writeContainer("in1", metadataWith(1000), inputOnePackets...)
		in2 := writeContainer("in2", metadataWith(500), inputTwoPackets...)

		mask := NewFilterMask(true, true).Exclude(0x10)
		m := NewMerger(mask)

		var ids []int32
		m.Visitor = func(phase protocol.Phase, pkt *Packet) bool {
			ids = append(ids, pkt.ID)
			return false
		}

		_, err := m.Merge([]archive.Reader{in1, in2}, nil)
		Expect(err).ToNot(HaveOccurred())

		// 0x10 is masked everywhere; input two additionally loses its
		// non-Play packets and its respawn.
		Expect(ids).To(Equal([]int32{0x00, 0x02, 0x03, DefaultRespawnID, 0x11}))
	})

	It("writes a complete container even when every packet is filtered out", func() {
		in1 := writeContainer("in1", metadataWith(1000, playerA), inputOnePackets...)
		Expect(os.MkdirAll(filepath.Join(tdir, "out"), 0755)).To(Succeed())
		out := archive.NewDir(filepath.Join(tdir, "out"))

		md, err := NewMerger(NewFilterMask(false, false)).Merge([]archive.Reader{in1}, out)
		Expect(err).ToNot(HaveOccurred())
		Expect(md.Duration).To(Equal(uint64(1000)))

		// The recording entry exists, empty, so the container scans cleanly.
		Expect(readContainer("out")).To(BeEmpty())

		onDisk, err := ReadMetadata(out)
		Expect(err).ToNot(HaveOccurred())
		Expect(onDisk).To(Equal(md))
	})

	It("honors a custom respawn identifier", func() {
		in1 := writeContainer("in1", metadataWith(1000), inputOnePackets...)
		in2 := writeContainer("in2", metadataWith(500), inputTwoPackets...)

		m := NewMerger(nil)
		m.RespawnID = 0x11

		var ids []int32
		m.Visitor = func(phase protocol.Phase, pkt *Packet) bool {
			ids = append(ids, pkt.ID)
			return false
		}

		_, err := m.Merge([]archive.Reader{in1, in2}, nil)
		Expect(err).ToNot(HaveOccurred())

		// 0x11 is dropped from the second input only; the default respawn id
		// now passes through.
		Expect(ids).To(Equal([]int32{
			0x00, 0x02, 0x03, 0x10, DefaultRespawnID,
			0x10, DefaultRespawnID,
		}))
	})

	It("accumulates statistics through a visitor in dry-run mode", func() {
		in1 := writeContainer("in1", metadataWith(1000), inputOnePackets...)

		var stats PacketStats
		m := NewMerger(nil)
		m.Visitor = stats.Observe

		md, err := m.Merge([]archive.Reader{in1}, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(md.Duration).To(Equal(uint64(1000)))

		rows := stats.Rows()
		Expect(rows).To(HaveLen(5))
		for _, row := range rows {
			Expect(row.Count).To(Equal(int64(1)))
		}
	})

	It("stops early on visitor request, finalizing output but not metadata", func() {
		in1 := writeContainer("in1", metadataWith(1000, playerA), inputOnePackets...)
		in2 := writeContainer("in2", metadataWith(500, playerB), inputTwoPackets...)
		Expect(os.MkdirAll(filepath.Join(tdir, "out"), 0755)).To(Succeed())
		out := archive.NewDir(filepath.Join(tdir, "out"))

		m := NewMerger(nil)
		seen := 0
		m.Visitor = func(phase protocol.Phase, pkt *Packet) bool {
			seen++
			return seen == 2
		}

		md, err := m.Merge([]archive.Reader{in1, in2}, out)
		Expect(err).ToNot(HaveOccurred())
		Expect(md).To(BeNil())

		// The recording entry holds what was forwarded before the stop.
		Expect(readContainer("out")).To(HaveLen(2))

		// No metadata was written.
		_, err = ReadMetadata(out)
		Expect(errors.Cause(err)).To(Equal(archive.ErrEntryNotFound))
	})

	It("aborts on a truncated input, leaving prior output as-is", func() {
		in1 := writeContainer("in1", metadataWith(1000), inputOnePackets...)

		// A second container whose recording ends mid-record.
		path := filepath.Join(tdir, "in2")
		Expect(os.MkdirAll(path, 0755)).To(Succeed())
		Expect(ioutil.WriteFile(
			filepath.Join(path, RecordingEntryName),
			[]byte{0x00, 0x01, 0x02}, 0644)).To(Succeed())
		in2 := archive.NewDir(path)

		Expect(os.MkdirAll(filepath.Join(tdir, "out"), 0755)).To(Succeed())
		out := archive.NewDir(filepath.Join(tdir, "out"))

		_, err := NewMerger(nil).Merge([]archive.Reader{in1, in2}, out)
		Expect(errors.Cause(err)).To(Equal(ErrTruncatedRecord))

		// Already-written output remains readable; there is no rollback.
		Expect(readContainer("out")).To(HaveLen(len(inputOnePackets)))
	})

	It("fails with ErrEntryNotFound when an input has no recording", func() {
		path := filepath.Join(tdir, "empty")
		Expect(os.MkdirAll(path, 0755)).To(Succeed())

		_, err := NewMerger(nil).Merge([]archive.Reader{archive.NewDir(path)}, nil)
		Expect(errors.Cause(err)).To(Equal(archive.ErrEntryNotFound))
	})

	It("merges into a zip container end-to-end", func() {
		in1 := writeContainer("in1", metadataWith(1000, playerA), inputOnePackets...)

		outPath := filepath.Join(tdir, "out.mcpr")
		zw, err := archive.CreateZip(outPath, archive.DefaultCompressionLevel)
		Expect(err).ToNot(HaveOccurred())

		md, err := NewMerger(nil).Merge([]archive.Reader{in1}, zw)
		Expect(err).ToNot(HaveOccurred())
		Expect(zw.Close()).To(Succeed())

		zr, err := archive.OpenZip(outPath)
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			_ = zr.Close()
		}()

		onDisk, err := ReadMetadata(zr)
		Expect(err).ToNot(HaveOccurred())
		Expect(onDisk).To(Equal(md))

		sc, err := NewScanner(zr)
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			_ = sc.Close()
		}()

		count := 0
		for {
			_, _, err := sc.Next()
			if err == io.EOF {
				break
			}
			Expect(err).ToNot(HaveOccurred())
			count++
		}
		Expect(count).To(Equal(len(inputOnePackets)))
	})
})
