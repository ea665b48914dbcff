package cell_test

import (
	"sync"
	"testing"

	"github.com/zuriscript/signalstory-sub000/cell"
)

func TestCell_ReadWrite(t *testing.T) {
	c := cell.New(10)

	if got := c.Read(); got != 10 {
		t.Errorf("Read() = %d, want 10", got)
	}

	c.Write(22)
	if got := c.Read(); got != 22 {
		t.Errorf("Read() after Write = %d, want 22", got)
	}
}

func TestCell_SubscribeOrder(t *testing.T) {
	c := cell.New("a")

	var seen []string
	c.Subscribe(func(v string) { seen = append(seen, "first:"+v) })
	c.Subscribe(func(v string) { seen = append(seen, "second:"+v) })

	c.Write("b")

	want := []string{"first:b", "second:b"}
	if len(seen) != len(want) {
		t.Fatalf("got %d notifications, want %d", len(seen), len(want))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("seen[%d] = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestCell_Unsubscribe(t *testing.T) {
	c := cell.New(0)

	calls := 0
	unsubscribe := c.Subscribe(func(int) { calls++ })

	c.Write(1)
	unsubscribe()
	unsubscribe()
	c.Write(2)

	if calls != 1 {
		t.Errorf("subscriber called %d times, want 1", calls)
	}
}

func TestCell_SubscriberMayWrite(t *testing.T) {
	c := cell.New(0)

	c.Subscribe(func(v int) {
		if v == 1 {
			c.Write(2)
		}
	})

	c.Write(1)
	if got := c.Read(); got != 2 {
		t.Errorf("Read() = %d, want 2", got)
	}
}

func TestCell_ConcurrentWrites(t *testing.T) {
	c := cell.New(0)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			c.Write(v)
			_ = c.Read()
		}(i)
	}
	wg.Wait()
}
