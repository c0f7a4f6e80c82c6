package futures_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errs "github.com/zmarkan/threadly/pkg/errors"
	"github.com/zmarkan/threadly/pkg/futures"
)

var _ = Describe("TaskFuture", func() {
	Describe("Run", func() {
		It("should complete with the task's result", func() {
			f := futures.NewTaskFuture(func() (int, error) { return 42, nil })

			Expect(f.Run()).To(Succeed())
			Expect(f.IsDone()).To(BeTrue())

			v, err := f.Get(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(42))
		})

		It("should run the work only once", func() {
			runs := 0
			f := futures.NewTaskFuture(func() (int, error) {
				runs++
				return runs, nil
			})

			Expect(f.Run()).To(Succeed())
			Expect(f.Run()).To(Succeed())
			Expect(runs).To(Equal(1))
		})

		It("should capture a task error as the future's failure", func() {
			boom := errors.New("boom")
			f := futures.NewTaskFuture(func() (int, error) { return 0, boom })

			Expect(f.Run()).To(MatchError(boom))

			_, err := f.Get(context.Background())
			var ee *errs.ExecutionError
			Expect(errors.As(err, &ee)).To(BeTrue())
			Expect(ee.Cause).To(Equal(boom))
		})

		It("should recover a panic in the work as a failure", func() {
			f := futures.NewTaskFuture(func() (int, error) { panic("kaboom") })

			Expect(f.Run()).To(HaveOccurred())

			_, err := f.Get(context.Background())
			Expect(err).To(HaveOccurred())
		})

		It("should yield the fixed result of a wrapped runnable", func() {
			ran := false
			f := futures.NewRunnableFuture(func() { ran = true }, "done")

			Expect(f.Run()).To(Succeed())
			Expect(ran).To(BeTrue())

			v, err := f.Get(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("done"))
		})
	})

	Describe("Cancel", func() {
		It("should cancel a pending future and skip its run", func() {
			ran := false
			f := futures.NewTaskFuture(func() (int, error) {
				ran = true
				return 0, nil
			})

			Expect(f.Cancel(false)).To(BeTrue())
			Expect(f.IsCancelled()).To(BeTrue())
			Expect(f.Run()).To(Succeed())
			Expect(ran).To(BeFalse())

			_, err := f.Get(context.Background())
			Expect(err).To(MatchError(errs.ErrCancelled))
		})

		It("should refuse to cancel a completed future", func() {
			f := futures.NewTaskFuture(func() (int, error) { return 1, nil })
			Expect(f.Run()).To(Succeed())
			Expect(f.Cancel(false)).To(BeFalse())
		})
	})

	Describe("recurring futures", func() {
		It("should fire listeners once per terminal transition", func() {
			f := futures.NewRecurringTaskFuture(func() (int, error) { return 1, nil })

			fired := 0
			f.AddListener(func() { fired++ })

			Expect(f.Run()).To(Succeed())
			Expect(fired).To(Equal(1))

			Expect(f.Reset()).To(BeTrue())
			Expect(f.IsDone()).To(BeFalse())

			Expect(f.Run()).To(Succeed())
			Expect(fired).To(Equal(2))
		})

		It("should end the recurrence when cancelled", func() {
			f := futures.NewRecurringTaskFuture(func() (int, error) { return 1, nil })
			Expect(f.Run()).To(Succeed())
			// completed futures cannot be cancelled, so reset first
			Expect(f.Reset()).To(BeTrue())
			Expect(f.Cancel(false)).To(BeTrue())
			Expect(f.Reset()).To(BeFalse())
		})

		It("should panic when resetting a one-shot future", func() {
			f := futures.NewTaskFuture(func() (int, error) { return 1, nil })
			Expect(func() { f.Reset() }).To(PanicWith(MatchError(errs.ErrIllegalState)))
		})
	})

	Describe("immediate futures", func() {
		It("should expose a result without blocking", func() {
			f := futures.ImmediateResult("v")
			Expect(f.IsDone()).To(BeTrue())

			v, err := f.GetTimeout(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("v"))

			fired := false
			f.AddListener(func() { fired = true })
			Expect(fired).To(BeTrue())
		})

		It("should expose a failure wrapped as an execution failure", func() {
			boom := errors.New("boom")
			f := futures.ImmediateFailure[string](boom)

			_, err := f.Get(context.Background())
			var ee *errs.ExecutionError
			Expect(errors.As(err, &ee)).To(BeTrue())
			Expect(ee.Cause).To(Equal(boom))
		})
	})
})
