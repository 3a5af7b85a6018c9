package cursor_test

import (
	"context"
	"errors"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"github.com/octorelay/octorelay/internal/cursor"
	"github.com/octorelay/octorelay/internal/model"
)

var _ = Describe("RedisStore", func() {
	var (
		ctx    context.Context
		mr     *miniredis.Miniredis
		client *redis.Client
		store  *cursor.RedisStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		mr, err = miniredis.Run()
		Expect(err).ToNot(HaveOccurred())
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		store = cursor.NewRedisStore(client, "octorelay:cursor")
	})

	AfterEach(func() {
		_ = client.Close()
		mr.Close()
	})

	It("reports absent when the key does not exist", func() {
		_, ok := store.Load(ctx)
		Expect(ok).To(BeFalse())
	})

	It("round-trips a saved cursor", func() {
		Expect(store.Save(ctx, model.Cursor{ID: "99"})).To(Succeed())

		c, ok := store.Load(ctx)
		Expect(ok).To(BeTrue())
		Expect(c.ID).To(Equal("99"))

		stored, err := mr.Get("octorelay:cursor")
		Expect(err).ToNot(HaveOccurred())
		Expect(stored).To(MatchJSON(`{"id":"99"}`))
	})

	It("degrades a corrupt value to absent", func() {
		Expect(mr.Set("octorelay:cursor", "garbage")).To(Succeed())

		_, ok := store.Load(ctx)
		Expect(ok).To(BeFalse())
	})

	It("degrades an unreachable server to absent on load and fails saves", func() {
		mr.Close()

		_, ok := store.Load(ctx)
		Expect(ok).To(BeFalse())

		var perr *cursor.PersistenceError
		Expect(errors.As(store.Save(ctx, model.Cursor{ID: "1"}), &perr)).To(BeTrue())
		Expect(perr.Backend).To(Equal("redis"))
	})
})
