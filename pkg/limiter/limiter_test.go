package limiter_test

import (
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errs "github.com/zmarkan/threadly/pkg/errors"
	"github.com/zmarkan/threadly/pkg/event"
	"github.com/zmarkan/threadly/pkg/limiter"
)

var _ = Describe("ExecutorLimiter", func() {
	Describe("construction", func() {
		It("should reject a nil executor and a non-positive cap", func() {
			_, err := limiter.NewExecutorLimiter(nil, 2)
			Expect(err).To(MatchError(errs.ErrInvalidArgument))

			_, err = limiter.NewExecutorLimiter(event.GoExecutor, 0)
			Expect(err).To(MatchError(errs.ErrInvalidArgument))
		})
	})

	Describe("Execute", func() {
		It("should never run more tasks than the cap at once", func() {
			l, err := limiter.NewExecutorLimiter(event.GoExecutor, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(l.MaxConcurrency()).To(Equal(2))

			var running, peak, completed atomic.Int32
			for i := 0; i < 8; i++ {
				Expect(l.Execute(func() {
					n := running.Add(1)
					for {
						p := peak.Load()
						if n <= p || peak.CompareAndSwap(p, n) {
							break
						}
					}
					time.Sleep(10 * time.Millisecond)
					running.Add(-1)
					completed.Add(1)
				})).To(Succeed())
			}

			Eventually(func() int32 { return completed.Load() }, 2*time.Second).Should(Equal(int32(8)))
			Expect(peak.Load()).To(BeNumerically("<=", 2))
			Eventually(l.CurrentlyRunning, time.Second).Should(Equal(0))
		})

		It("should reject a nil task", func() {
			l, err := limiter.NewExecutorLimiter(event.GoExecutor, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(l.Execute(nil)).To(MatchError(errs.ErrInvalidArgument))
		})
	})

	Describe("Submit", func() {
		It("should complete the future once the task has run", func() {
			l, err := limiter.NewExecutorLimiter(event.GoExecutor, 1)
			Expect(err).NotTo(HaveOccurred())

			ran := make(chan struct{})
			f, err := l.Submit(func() { close(ran) })
			Expect(err).NotTo(HaveOccurred())

			Eventually(ran, time.Second).Should(BeClosed())
			_, err = f.GetTimeout(time.Second)
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
