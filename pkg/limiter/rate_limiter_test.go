package limiter_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errs "github.com/zmarkan/threadly/pkg/errors"
	"github.com/zmarkan/threadly/pkg/futures"
	"github.com/zmarkan/threadly/pkg/limiter"
	"github.com/zmarkan/threadly/pkg/scheduler"
)

var _ = Describe("RateLimiterExecutor", func() {
	var s *scheduler.PriorityScheduler

	BeforeEach(func() {
		var err error
		s, err = scheduler.NewPriorityScheduler(scheduler.Config{PoolSize: 2})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		s.ShutdownNow()
		s.AwaitTermination(2 * time.Second)
	})

	Describe("construction", func() {
		It("should reject a nil scheduler and a non-positive rate", func() {
			_, err := limiter.NewRateLimiterExecutor(nil, 10)
			Expect(err).To(MatchError(errs.ErrInvalidArgument))

			_, err = limiter.NewRateLimiterExecutor(s, 0)
			Expect(err).To(MatchError(errs.ErrInvalidArgument))
		})
	})

	Describe("permit accounting", func() {
		It("should space submissions by their permit cost", func() {
			rl, err := limiter.NewRateLimiterExecutor(s, 10)
			Expect(err).NotTo(HaveOccurred())

			futs := make([]futures.ScheduledFuture[any], 0, 5)
			for i := 0; i < 5; i++ {
				f, err := rl.Submit(func() {})
				Expect(err).NotTo(HaveOccurred())
				futs = append(futs, f)
			}

			// 10 permits/sec puts each 1-permit task 100ms after the previous
			for i, f := range futs {
				expected := time.Duration(i) * 100 * time.Millisecond
				Expect(f.Delay()).To(BeNumerically("~", expected, 40*time.Millisecond))
			}

			Expect(rl.MinimumDelay()).To(BeNumerically("~", 500*time.Millisecond, 50*time.Millisecond))
		})

		It("should reserve no budget for zero permits", func() {
			rl, err := limiter.NewRateLimiterExecutor(s, 10)
			Expect(err).NotTo(HaveOccurred())

			Expect(rl.ExecutePermits(0, func() {})).To(Succeed())
			Expect(rl.MinimumDelay()).To(Equal(time.Duration(0)))
		})

		It("should reject negative permits and nil tasks", func() {
			rl, err := limiter.NewRateLimiterExecutor(s, 10)
			Expect(err).NotTo(HaveOccurred())

			Expect(rl.ExecutePermits(-1, func() {})).To(MatchError(errs.ErrInvalidArgument))
			Expect(rl.Execute(nil)).To(MatchError(errs.ErrInvalidArgument))
		})

		It("should run the submitted tasks", func() {
			rl, err := limiter.NewRateLimiterExecutor(s, 1000)
			Expect(err).NotTo(HaveOccurred())

			f, err := rl.SubmitPermitsWithResult(1, func() {}, "ran")
			Expect(err).NotTo(HaveOccurred())

			v, err := f.GetTimeout(2 * time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("ran"))
		})
	})

	Describe("FutureTillDelay", func() {
		It("should complete immediately when the limiter is not backed up", func() {
			rl, err := limiter.NewRateLimiterExecutor(s, 10)
			Expect(err).NotTo(HaveOccurred())

			f := rl.FutureTillDelay(0)
			Expect(f.IsDone()).To(BeTrue())
		})

		It("should unblock once the backlog falls below the maximum", func() {
			rl, err := limiter.NewRateLimiterExecutor(s, 10)
			Expect(err).NotTo(HaveOccurred())

			// build up ~300ms of backlog
			for i := 0; i < 3; i++ {
				Expect(rl.Execute(func() {})).To(Succeed())
			}

			f := rl.FutureTillDelay(100 * time.Millisecond)
			Expect(f.IsDone()).To(BeFalse())

			start := time.Now()
			_, err = f.GetTimeout(2 * time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(time.Since(start)).To(BeNumerically("~", 200*time.Millisecond, 80*time.Millisecond))
		})
	})
})
