package syncx

import (
	"errors"
	"sync"
	"testing"
)

func TestMutexPoisonAndAdopt(t *testing.T) {
	var m Mutex
	adopted, err := m.Do(func() { panic("boom") })
	if adopted {
		t.Fatal("fresh lock reported as poisoned")
	}
	var pe *PanicError
	if !errors.As(err, &pe) || pe.Value != "boom" || len(pe.Stack) == 0 {
		t.Fatalf("err = %v", err)
	}
	if !m.Poisoned() {
		t.Fatal("lock not poisoned")
	}

	ran := false
	adopted, err = m.Do(func() { ran = true })
	if !adopted || err != nil || !ran {
		t.Fatalf("adopted=%v err=%v ran=%v", adopted, err, ran)
	}

	m.ClearPoison()
	if adopted, _ := m.Do(func() {}); adopted {
		t.Fatal("ClearPoison had no effect")
	}
}

func TestRWMutexReadPanicDoesNotPoison(t *testing.T) {
	var m RWMutex
	if _, err := m.DoRead(func() { panic(1) }); err == nil {
		t.Fatal("read panic not reported")
	}
	if m.Poisoned() {
		t.Fatal("read panic poisoned the lock")
	}
	if _, err := m.Do(func() { panic(2) }); err == nil || !m.Poisoned() {
		t.Fatal("write panic did not poison the lock")
	}
	adopted, err := m.DoRead(func() {})
	if !adopted || err != nil {
		t.Fatalf("adopted=%v err=%v", adopted, err)
	}
}

func TestRWMutexExclusion(t *testing.T) {
	var (
		m     RWMutex
		count int
		wg    sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = m.Do(func() { count++ })
		}()
		go func() {
			defer wg.Done()
			_, _ = m.DoRead(func() { _ = count })
		}()
	}
	wg.Wait()
	if count != 50 {
		t.Fatalf("count = %d", count)
	}
}
