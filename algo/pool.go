package algo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// RunBounded 并发执行 task，同时运行的任务数不超过 limit
// 任务按 items 的顺序依次放行，任意任务结束后放行下一个;
// 所有任务结束后才返回。单个任务返回错误或 panic 不影响其余任务，
// 这些错误合并后返回
func RunBounded[T any](items []T, limit int, task func(T) error) error {
	if limit < 1 {
		limit = 1
	}
	sem := semaphore.NewWeighted(int64(limit))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, item := range items {
		// Background 不会被取消，Acquire 只会阻塞等待空位
		_ = sem.Acquire(context.Background(), 1)
		wg.Add(1)
		go func(item T) {
			defer wg.Done()
			defer sem.Release(1)
			if err := runTask(task, item); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(item)
	}
	wg.Wait()
	return errors.Join(errs...)
}

func runTask[T any](task func(T) error, item T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task(item)
}
