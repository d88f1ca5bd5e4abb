package thing

import (
	"sync"
	"testing"
)

func TestValue_Get(t *testing.T) {
	v := NewValue(42)
	if got := v.Get(); got != 42 {
		t.Errorf("Get() = %v, want 42", got)
	}
}

func TestValue_Set(t *testing.T) {
	t.Run("commits and notifies on change", func(t *testing.T) {
		v := NewValue(1)
		var seen []any
		v.OnUpdate(func(val any) { seen = append(seen, val) })

		v.Set(2)

		if got := v.Get(); got != 2 {
			t.Errorf("Get() = %v, want 2", got)
		}
		if len(seen) != 1 || seen[0] != 2 {
			t.Errorf("observed = %v, want [2]", seen)
		}
	})

	t.Run("equal write commits nothing", func(t *testing.T) {
		v := NewValue(5)
		calls := 0
		v.OnUpdate(func(any) { calls++ })

		v.Set(5)

		if calls != 0 {
			t.Errorf("observer calls = %d, want 0", calls)
		}
	})

	t.Run("structural equality for decoded JSON", func(t *testing.T) {
		v := NewValue(map[string]any{"a": 1.0})
		calls := 0
		v.OnUpdate(func(any) { calls++ })

		v.Set(map[string]any{"a": 1.0})
		if calls != 0 {
			t.Errorf("observer calls after equal map = %d, want 0", calls)
		}

		v.Set(map[string]any{"a": 2.0})
		if calls != 1 {
			t.Errorf("observer calls after changed map = %d, want 1", calls)
		}
	})
}

func TestValue_NotifyOfExternalUpdate(t *testing.T) {
	v := NewValue(10.0)
	var seen []any
	v.OnUpdate(func(val any) { seen = append(seen, val) })

	v.NotifyOfExternalUpdate(11.5)
	v.NotifyOfExternalUpdate(11.5)

	if got := v.Get(); got != 11.5 {
		t.Errorf("Get() = %v, want 11.5", got)
	}
	if len(seen) != 1 {
		t.Errorf("observer calls = %d, want 1", len(seen))
	}
}

func TestValue_ObserverOrder(t *testing.T) {
	v := NewValue(0)
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		v.OnUpdate(func(any) { order = append(order, i) })
	}

	v.Set(1)

	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("observer order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("observer order = %v, want %v", order, want)
		}
	}
}

func TestValue_ObserverPanicIsolation(t *testing.T) {
	v := NewValue(0)
	v.OnUpdate(func(any) { panic("observer bug") })
	after := 0
	v.OnUpdate(func(any) { after++ })

	v.Set(1)

	if got := v.Get(); got != 1 {
		t.Errorf("Get() after panicking observer = %v, want 1", got)
	}
	if after != 1 {
		t.Errorf("later observer calls = %d, want 1", after)
	}
}

func TestValue_ConcurrentCommits(t *testing.T) {
	v := NewValue(0)
	var mu sync.Mutex
	var seen []any
	v.OnUpdate(func(val any) {
		mu.Lock()
		seen = append(seen, val)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			v.Set(n)
		}(i)
	}
	wg.Wait()

	// Every observed value is distinct from its predecessor: equal writes
	// never notify, and dispatch is serialised in commit order.
	mu.Lock()
	defer mu.Unlock()
	prev := any(0)
	for i, val := range seen {
		if val == prev {
			t.Fatalf("observation %d repeated value %v", i, val)
		}
		prev = val
	}
}
