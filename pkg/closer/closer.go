// Package closer останавливает ресурсы приложения в обратном порядке регистрации.
package closer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	// successIdx - индекс, который возвращается в случае успешного закрытия всех ресурсов
	successIdx = -1

	defaultForcedTimeout = 2 * time.Second
)

// Func - сигнатура функции закрытия ресурса.
type Func func(ctx context.Context) error

type entry struct {
	name string
	fn   Func
}

// Closer обеспечивает потокобезопасное закрытие ресурсов.
type Closer struct {
	entries       []entry
	mu            sync.Mutex
	once          sync.Once
	forcedTimeout time.Duration
}

// NewCloser создает новый экземпляр Closer.
// forcedTimeout - время на принудительное закрытие оставшихся ресурсов, если контекст Close истёк.
func NewCloser(forcedTimeout time.Duration) *Closer {
	if forcedTimeout <= 0 {
		forcedTimeout = defaultForcedTimeout
	}

	return &Closer{
		forcedTimeout: forcedTimeout,
	}
}

// Add регистрирует ресурс. name попадает в текст ошибки закрытия.
func (c *Closer) Add(name string, f Func) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry{name: name, fn: f})
}

// Len возвращает число зарегистрированных ресурсов.
func (c *Closer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close последовательно закрывает ресурсы (LIFO). Повторные вызовы ничего не делают.
// Если ctx истекает раньше, оставшиеся ресурсы закрываются параллельно с forcedTimeout.
func (c *Closer) Close(ctx context.Context) error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		entries := c.entries
		c.mu.Unlock()

		stopIdx, errs := c.gracefulClose(ctx, entries)
		if stopIdx == successIdx {
			if len(errs) > 0 {
				err = fmt.Errorf("shutdown finished with error(s):\n%s", strings.Join(errs, "\n"))
			}
			return
		}

		remaining := entries[:stopIdx+1]
		errs = append(errs, c.forcedClose(remaining)...)

		err = fmt.Errorf(
			"shutdown interrupted after %d/%d funcs:\n%s",
			len(entries)-1-stopIdx,
			len(entries),
			strings.Join(errs, "\n"),
		)
	})

	return err
}

// gracefulClose возвращает индекс ресурса, на котором истёк ctx, или successIdx.
func (c *Closer) gracefulClose(ctx context.Context, entries []entry) (int, []string) {
	var errs []string
	for i := len(entries) - 1; i >= 0; i-- {
		var (
			en   = entries[i]
			done = make(chan error, 1)
		)

		go func() {
			done <- en.fn(ctx)
		}()

		select {
		case err := <-done:
			if err != nil {
				errs = append(errs, fmt.Sprintf("[!] %s: %v", en.name, err))
			}
		case <-ctx.Done():
			return i, errs
		}
	}

	return successIdx, errs
}

func (c *Closer) forcedClose(entries []entry) []string {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []string
	)

	ctx, cancel := context.WithTimeout(context.Background(), c.forcedTimeout)
	defer cancel()

	for _, en := range entries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := en.fn(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Sprintf("[FORCED] %s: %v", en.name, err))
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	return errs
}
