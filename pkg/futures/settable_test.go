package futures_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errs "github.com/zmarkan/threadly/pkg/errors"
	"github.com/zmarkan/threadly/pkg/futures"
)

var _ = Describe("SettableFuture", func() {
	var f *futures.SettableFuture[string]

	BeforeEach(func() {
		f = futures.NewSettableFuture[string]()
	})

	Describe("Set", func() {
		It("should complete the future and deliver callbacks exactly once", func() {
			var results []string
			f.AddCallback(futures.Callback[string]{
				OnResult: func(v string) { results = append(results, v) },
			})

			f.Set("x")

			Expect(results).To(Equal([]string{"x"}))
			Expect(f.IsDone()).To(BeTrue())

			v, err := f.Get(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("x"))
		})

		It("should panic with illegal state on a second completion", func() {
			f.Set("x")
			Expect(func() { f.Set("y") }).To(PanicWith(MatchError(errs.ErrIllegalState)))
			Expect(func() { f.SetFailure(errors.New("nope")) }).To(PanicWith(MatchError(errs.ErrIllegalState)))
		})

		It("should fire a callback added after completion synchronously", func() {
			f.Set("x")

			var got string
			f.AddCallback(futures.Callback[string]{
				OnResult: func(v string) { got = v },
			})
			Expect(got).To(Equal("x"))
		})
	})

	Describe("SetFailure", func() {
		It("should surface the cause wrapped as an execution failure on Get", func() {
			boom := errors.New("boom")
			f.SetFailure(boom)

			_, err := f.Get(context.Background())
			var ee *errs.ExecutionError
			Expect(errors.As(err, &ee)).To(BeTrue())
			Expect(ee.Cause).To(Equal(boom))
		})

		It("should substitute a synthetic cause for nil", func() {
			f.SetFailure(nil)

			_, err := f.Get(context.Background())
			var ee *errs.ExecutionError
			Expect(errors.As(err, &ee)).To(BeTrue())
			Expect(ee.Cause).To(HaveOccurred())
		})

		It("should deliver the unwrapped cause to failure callbacks", func() {
			boom := errors.New("boom")
			var got error
			f.AddCallback(futures.Callback[string]{
				OnFailure: func(err error) { got = err },
			})

			f.SetFailure(boom)
			Expect(got).To(Equal(boom))
		})
	})

	Describe("Get", func() {
		It("should block until the future is completed from another goroutine", func() {
			go func() {
				time.Sleep(20 * time.Millisecond)
				f.Set("late")
			}()

			v, err := f.Get(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("late"))
		})

		It("should time out without mutating the future", func() {
			_, err := f.GetTimeout(20 * time.Millisecond)
			Expect(err).To(MatchError(errs.ErrTimeout))
			Expect(f.IsDone()).To(BeFalse())
		})
	})

	Describe("listeners", func() {
		It("should fire in registration order", func() {
			var order []int
			f.AddListener(func() { order = append(order, 1) })
			f.AddListener(func() { order = append(order, 2) })
			f.AddListener(func() { order = append(order, 3) })

			f.Set("x")
			Expect(order).To(Equal([]int{1, 2, 3}))
		})
	})

	Describe("cancellation", func() {
		It("should not be cancellable", func() {
			Expect(f.Cancel(true)).To(BeFalse())
			Expect(f.IsCancelled()).To(BeFalse())
		})
	})
})
