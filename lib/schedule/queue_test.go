// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schedule

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/digestd/lib/testutil"
)

func newJob(requester int64, length uint64) *Job {
	return &Job{ID: NewJobID(), Requester: requester, Length: length}
}

func dequeueNow(t *testing.T, queue *Queue) *Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := queue.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	return job
}

func TestFCFSDequeuesInArrivalOrder(t *testing.T) {
	queue := NewQueue(FCFS)
	lengths := []uint64{900, 5, 300, 5, 0, 1 << 20}
	for i, length := range lengths {
		if err := queue.Enqueue(newJob(int64(i+1), length)); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	for i := range lengths {
		job := dequeueNow(t, queue)
		if job.Requester != int64(i+1) {
			t.Fatalf("dequeue %d returned requester %d, want %d", i, job.Requester, i+1)
		}
		if job.Sequence != uint64(i+1) {
			t.Errorf("job %d sequence = %d, want %d", i, job.Sequence, i+1)
		}
	}
}

func TestSJFDequeuesShortestFirstWithArrivalTieBreak(t *testing.T) {
	queue := NewQueue(SJF)
	jobs := []struct {
		requester int64
		length    uint64
	}{
		{1, 500}, {2, 10}, {3, 500}, {4, 10}, {5, 0}, {6, 70},
	}
	for _, job := range jobs {
		if err := queue.Enqueue(newJob(job.requester, job.length)); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	want := []int64{5, 2, 4, 6, 1, 3}
	for i, requester := range want {
		job := dequeueNow(t, queue)
		if job.Requester != requester {
			t.Fatalf("dequeue %d returned requester %d (length %d), want %d", i, job.Requester, job.Length, requester)
		}
	}
}

func TestSJFLargeJobOvertakenByLaterArrivals(t *testing.T) {
	queue := NewQueue(SJF)
	queue.Enqueue(newJob(1, 4<<20))
	for requester := int64(2); requester <= 4; requester++ {
		queue.Enqueue(newJob(requester, 16))
	}

	for i := 0; i < 3; i++ {
		if job := dequeueNow(t, queue); job.Requester == 1 {
			t.Fatalf("large job dequeued at position %d ahead of smaller arrivals", i)
		}
	}
	queue.Enqueue(newJob(5, 8))
	if job := dequeueNow(t, queue); job.Requester != 5 {
		t.Fatalf("small arrival did not overtake the large head job: got %d", job.Requester)
	}
	if job := dequeueNow(t, queue); job.Requester != 1 {
		t.Fatalf("large job not dequeued last: got %d", job.Requester)
	}
}

func TestSJFInvariantUnderRandomArrivals(t *testing.T) {
	queue := NewQueue(SJF)
	random := rand.New(rand.NewPCG(7, 11))
	remaining := map[int64]uint64{}
	requester := int64(0)

	for round := 0; round < 200; round++ {
		for i := random.IntN(4); i >= 0; i-- {
			requester++
			length := uint64(random.IntN(64))
			remaining[requester] = length
			queue.Enqueue(newJob(requester, length))
		}
		if random.IntN(3) == 0 {
			continue
		}
		job := dequeueNow(t, queue)
		delete(remaining, job.Requester)
		for other, length := range remaining {
			if job.Length > length {
				t.Fatalf("dequeued length %d while requester %d with length %d still queued", job.Length, other, length)
			}
		}
	}
}

func TestDequeueBlocksUntilEnqueue(t *testing.T) {
	queue := NewQueue(FCFS)
	result := make(chan *Job, 1)
	go func() {
		job, err := queue.Dequeue(context.Background())
		if err == nil {
			result <- job
		}
	}()

	testutil.RequireNoReceive(t, result, 20*time.Millisecond, "Dequeue returned from an empty queue")
	queue.Enqueue(newJob(42, 1))
	job := testutil.RequireReceive(t, result, 5*time.Second, "waiting for blocked consumer")
	if job.Requester != 42 {
		t.Errorf("requester = %d, want 42", job.Requester)
	}
}

func TestDequeueHonorsContext(t *testing.T) {
	queue := NewQueue(SJF)
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		_, err := queue.Dequeue(ctx)
		result <- err
	}()

	cancel()
	err := testutil.RequireReceive(t, result, 5*time.Second, "waiting for cancelled Dequeue")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Dequeue error = %v, want context.Canceled", err)
	}
}

func TestCloseReturnsRemainingAndWakesConsumers(t *testing.T) {
	queue := NewQueue(SJF)
	idle := NewQueue(FCFS)

	waiters := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, err := idle.Dequeue(context.Background())
			waiters <- err
		}()
	}

	queue.Enqueue(newJob(1, 30))
	queue.Enqueue(newJob(2, 10))
	remaining := queue.Close()
	if len(remaining) != 2 || remaining[0].Requester != 2 || remaining[1].Requester != 1 {
		t.Fatalf("Close returned %v, want requesters [2 1]", remaining)
	}
	if queue.Close() != nil {
		t.Error("second Close returned jobs")
	}
	if err := queue.Enqueue(newJob(3, 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("Enqueue after Close = %v, want ErrClosed", err)
	}

	idle.Close()
	for i := 0; i < 3; i++ {
		err := testutil.RequireReceive(t, waiters, 5*time.Second, "waiting for consumer %d", i)
		if !errors.Is(err, ErrClosed) {
			t.Errorf("consumer %d error = %v, want ErrClosed", i, err)
		}
	}
}

func TestConcurrentProducersConsumersDeliverEachJobOnce(t *testing.T) {
	for _, policy := range []Policy{FCFS, SJF} {
		t.Run(policy.String(), func(t *testing.T) {
			queue := NewQueue(policy)
			const producers, perProducer, consumers = 4, 250, 6

			var seenMu sync.Mutex
			seen := map[int64]int{}
			var consumerGroup sync.WaitGroup
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			for i := 0; i < consumers; i++ {
				consumerGroup.Add(1)
				go func() {
					defer consumerGroup.Done()
					for {
						job, err := queue.Dequeue(ctx)
						if err != nil {
							return
						}
						seenMu.Lock()
						seen[job.Requester]++
						seenMu.Unlock()
					}
				}()
			}

			var producerGroup sync.WaitGroup
			for p := 0; p < producers; p++ {
				producerGroup.Add(1)
				go func(p int) {
					defer producerGroup.Done()
					for i := 0; i < perProducer; i++ {
						queue.Enqueue(newJob(int64(p*perProducer+i+1), uint64(i%17)))
					}
				}(p)
			}
			producerGroup.Wait()

			testutil.Eventually(t, 5*time.Second, func() bool {
				seenMu.Lock()
				defer seenMu.Unlock()
				return len(seen) == producers*perProducer
			}, "consumers drained %d jobs", producers*perProducer)
			queue.Close()
			consumerGroup.Wait()

			for requester, count := range seen {
				if count != 1 {
					t.Errorf("requester %d delivered %d times", requester, count)
				}
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	for input, want := range map[string]Policy{"FCFS": FCFS, "fcfs": FCFS, "SJF": SJF, "sjf": SJF} {
		got, err := ParsePolicy(input)
		if err != nil || got != want {
			t.Errorf("ParsePolicy(%q) = %v, %v; want %v", input, got, err, want)
		}
	}
	if _, err := ParsePolicy("round-robin"); err == nil {
		t.Error("ParsePolicy accepted round-robin")
	}
}
