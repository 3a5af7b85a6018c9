package cursor_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/octorelay/octorelay/internal/cursor"
	"github.com/octorelay/octorelay/internal/model"
)

var _ = Describe("FileStore", func() {
	var (
		ctx   context.Context
		dir   string
		path  string
		store *cursor.FileStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		path = filepath.Join(dir, "last_event.json")
		store = cursor.NewFileStore(path)
	})

	It("reports absent when the file does not exist", func() {
		_, ok := store.Load(ctx)
		Expect(ok).To(BeFalse())
	})

	It("round-trips a saved cursor", func() {
		Expect(store.Save(ctx, model.Cursor{ID: "42"})).To(Succeed())

		c, ok := store.Load(ctx)
		Expect(ok).To(BeTrue())
		Expect(c.ID).To(Equal("42"))
	})

	It("writes the documented file format", func() {
		Expect(store.Save(ctx, model.Cursor{ID: "26175963211"})).To(Succeed())

		data, err := os.ReadFile(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(data)).To(MatchJSON(`{"id":"26175963211"}`))
	})

	It("leaves no temp files behind", func() {
		Expect(store.Save(ctx, model.Cursor{ID: "1"})).To(Succeed())
		Expect(store.Save(ctx, model.Cursor{ID: "2"})).To(Succeed())

		entries, err := os.ReadDir(dir)
		Expect(err).ToNot(HaveOccurred())
		Expect(entries).To(HaveLen(1))
	})

	It("survives a new store instance, as after a restart", func() {
		Expect(store.Save(ctx, model.Cursor{ID: "2"})).To(Succeed())

		c, ok := cursor.NewFileStore(path).Load(ctx)
		Expect(ok).To(BeTrue())
		Expect(c.ID).To(Equal("2"))
	})

	It("degrades a corrupt file to absent", func() {
		Expect(os.WriteFile(path, []byte("{not json"), 0o600)).To(Succeed())

		_, ok := store.Load(ctx)
		Expect(ok).To(BeFalse())
	})

	It("degrades an empty id to absent", func() {
		Expect(os.WriteFile(path, []byte(`{"id":""}`), 0o600)).To(Succeed())

		_, ok := store.Load(ctx)
		Expect(ok).To(BeFalse())
	})

	It("returns a PersistenceError when the directory is missing", func() {
		store = cursor.NewFileStore(filepath.Join(dir, "missing", "last_event.json"))

		err := store.Save(ctx, model.Cursor{ID: "3"})

		var perr *cursor.PersistenceError
		Expect(errors.As(err, &perr)).To(BeTrue())
		Expect(perr.Backend).To(Equal("file"))
		Expect(perr.ID).To(Equal("3"))
	})
})
