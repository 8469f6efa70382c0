// timer/timer.go
package timer

import (
	"container/heap"
	"sync"
	"time"
)

// Task 定时任务. Interval > 0 makes it periodic.
type Task struct {
	ID       int64
	Due      time.Time
	Interval time.Duration
	Run      func()
	index    int
}

type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	return q[i].Due.Before(q[j].Due)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	task := x.(*Task)
	task.index = len(*q)
	*q = append(*q, task)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	task := old[n-1]
	old[n-1] = nil
	task.index = -1
	*q = old[:n-1]
	return task
}

// Scheduler runs callbacks off a min-heap checked once per tick.
type Scheduler struct {
	queue    taskQueue
	mutex    sync.Mutex
	nextID   int64
	tick     time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewScheduler starts a scheduler with the given resolution.
func NewScheduler(tick time.Duration) *Scheduler {
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	s := &Scheduler{
		queue:    make(taskQueue, 0),
		nextID:   1,
		tick:     tick,
		stopChan: make(chan struct{}),
	}
	heap.Init(&s.queue)
	go s.loop()
	return s
}

// After runs fn once after delay.
func (s *Scheduler) After(delay time.Duration, fn func()) int64 {
	return s.add(delay, 0, fn)
}

// Every runs fn each interval, first after one interval.
func (s *Scheduler) Every(interval time.Duration, fn func()) int64 {
	return s.add(interval, interval, fn)
}

func (s *Scheduler) add(delay, interval time.Duration, fn func()) int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	task := &Task{
		ID:       s.nextID,
		Due:      time.Now().Add(delay),
		Interval: interval,
		Run:      fn,
	}
	s.nextID++
	heap.Push(&s.queue, task)
	return task.ID
}

// Cancel removes a pending task. Unknown ids are ignored.
func (s *Scheduler) Cancel(id int64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i, task := range s.queue {
		if task.ID == id {
			heap.Remove(&s.queue, i)
			return
		}
	}
}

// Pending returns the number of queued tasks.
func (s *Scheduler) Pending() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.queue.Len()
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case now := <-ticker.C:
			for _, run := range s.due(now) {
				go run()
			}
		}
	}
}

// due pops every task whose time has come and re-queues periodic ones.
func (s *Scheduler) due(now time.Time) []func() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var runs []func()
	for s.queue.Len() > 0 {
		task := s.queue[0]
		if task.Due.After(now) {
			break
		}
		heap.Pop(&s.queue)
		runs = append(runs, task.Run)

		if task.Interval > 0 {
			task.Due = now.Add(task.Interval)
			heap.Push(&s.queue, task)
		}
	}
	return runs
}
