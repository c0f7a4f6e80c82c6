// Package scheduler implements a priority-aware worker pool for one-shot
// and recurring tasks, built on a dynamically-reorderable delay queue.
//
// The scheduler manages a fixed pool of workers that all consume a single
// delay queue. Work is submitted via the Execute/Submit/Schedule family and
// returns a listenable future that can be observed, cancelled while
// pending, and queried for its remaining delay.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────────────────────────────┐
//	│                       PriorityScheduler                             │
//	│                                                                     │
//	│  ┌──────────────┐      ┌──────────────┐      ┌──────────────┐       │
//	│  │   Worker 1   │      │   Worker 2   │      │   Worker N   │       │
//	│  └──────────────┘      └──────────────┘      └──────────────┘       │
//	│         ▲                     ▲                     ▲               │
//	│         │                     │                     │               │
//	│         └─────────────────────┼─────────────────────┘               │
//	│                               │                                     │
//	│                        ┌──────┴──────┐                              │
//	│                        │ nextTask()  │  blocks until head is ready, │
//	│                        └──────┬──────┘  prefers ready High tasks    │
//	│                               │                                     │
//	│  ┌────────────────────────────┴────────────────────────────┐        │
//	│  │                  DynamicDelayQueue                      │        │
//	│  │  [ready high] [ready low] [due in 5ms] [due in 2s] ...  │        │
//	│  └─────────────────────────────────────────────────────────┘        │
//	│                               ▲                                     │
//	│                               │                                     │
//	│             Submit / Schedule / ScheduleAtFixedRate                 │
//	└─────────────────────────────────────────────────────────────────────┘
//
// # Task Lifecycle
//
//  1. A submission wraps the work in a task future and a queue element
//     carrying (priority, ready time, recurrence mode).
//     │
//     ▼
//  2. The element enters the queue with max delay (AddLast) and is then
//     repositioned to its real ready time under the queue lock.
//     │
//     ▼
//  3. A worker blocks in nextTask until the head is ready. Among ready
//     tasks, High dispatches before Low; a Low task that has waited past
//     MaxWaitForLowPriority is dispatched regardless.
//     │
//     ▼
//  4. The worker runs the task outside the queue lock. One-shot tasks
//     finish in a terminal future state.
//     │
//     ▼
//  5. Recurring tasks are re-enqueued after completion: fixed-delay at
//     now+period, fixed-rate at scheduledStart+period (an overrun fires
//     one immediate catch-up run; runs never overlap themselves). A run
//     that fails halts the recurrence and reports to the uncaught
//     failure handler.
//
// # Shutdown
//
// Shutdown stops intake and lets workers drain the queue, waiting out any
// remaining delays. ShutdownNow additionally drains the queue immediately,
// cancels the drained futures and returns them; in-flight tasks still run
// to completion. AwaitTermination blocks until every worker has exited.
package scheduler
