// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package replay

import (
	"encoding/json"
	"io/ioutil"
	"os"

	"github.com/danjacques/gomcreplay/archive"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("MetaData", func() {
	var tdir string

	BeforeEach(func() {
		var err error
		tdir, err = ioutil.TempDir("", "metadata_test")
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		if tdir != "" {
			_ = os.RemoveAll(tdir)
			tdir = ""
		}
	})

	It("marshals with the exact wire field names, flat", func() {
		d, err := json.Marshal(DefaultMetaData())
		Expect(err).ToNot(HaveOccurred())

		var doc map[string]json.RawMessage
		Expect(json.Unmarshal(d, &doc)).To(Succeed())
		Expect(doc).To(HaveLen(12))

		for _, name := range []string{
			"singleplayer", "serverName", "customServerName", "duration",
			"date", "mcversion", "fileFormat", "fileFormatVersion",
			"protocol", "generator", "selfId", "players",
		} {
			Expect(doc).To(HaveKey(name), "missing field %q", name)
		}
	})

	It("defaults selfId to -1 and players to an empty set", func() {
		md := DefaultMetaData()
		Expect(md.SelfID).To(Equal(int32(-1)))
		Expect(md.Players).To(BeEmpty())
	})

	It("round-trips through a directory backend", func() {
		d := archive.NewDir(tdir)

		md := DefaultMetaData()
		md.ServerName = "mc.example.net"
		md.Duration = 123456
		md.MCVersion = "1.20.4"
		md.Protocol = 765
		md.Players.Add(uuid.MustParse("f81d4fae-7dec-11d0-a765-00a0c91e6bf6"))

		Expect(md.WriteTo(d)).To(Succeed())

		loaded, err := ReadMetadata(d)
		Expect(err).ToNot(HaveOccurred())
		Expect(loaded).To(Equal(md))
	})

	It("fails with ErrMetadataFormat on an unparseable document", func() {
		d := archive.NewDir(tdir)
		sink, err := d.CreateEntry(MetadataEntryName)
		Expect(err).ToNot(HaveOccurred())
		_, err = sink.Write([]byte("not json"))
		Expect(err).ToNot(HaveOccurred())
		Expect(sink.Close()).To(Succeed())

		_, err = ReadMetadata(d)
		Expect(errors.Cause(err)).To(Equal(ErrMetadataFormat))
	})

	It("fails with ErrEntryNotFound when the document is absent", func() {
		_, err := ReadMetadata(archive.NewDir(tdir))
		Expect(errors.Cause(err)).To(Equal(archive.ErrEntryNotFound))
	})

	Describe("UUIDSet", func() {
		a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
		b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
		c := uuid.MustParse("00000000-0000-0000-0000-00000000000c")

		It("collapses duplicates and unions as a set", func() {
			s := UUIDSet{}
			s.Add(a)
			s.Add(b)
			s.Add(b)
			Expect(s).To(HaveLen(2))

			other := UUIDSet{}
			other.Add(b)
			other.Add(c)

			s.Union(other)
			Expect(s).To(HaveLen(3))
			Expect(s.Contains(a)).To(BeTrue())
			Expect(s.Contains(b)).To(BeTrue())
			Expect(s.Contains(c)).To(BeTrue())
		})

		It("marshals sorted", func() {
			s := UUIDSet{}
			s.Add(b)
			s.Add(a)

			d, err := json.Marshal(s)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(d)).To(Equal(
				`["00000000-0000-0000-0000-00000000000a","00000000-0000-0000-0000-00000000000b"]`))
		})
	})
})
