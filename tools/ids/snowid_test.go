package ids

import (
	"strings"
	"sync"
	"testing"
)

func TestGenerateUniqueAndMonotonic(t *testing.T) {
	prev := Generate()
	for i := 0; i < 1000; i++ {
		id := Generate()
		if id <= prev {
			t.Fatalf("id %d not greater than previous %d", id, prev)
		}
		prev = id
	}
}

func TestGenerateConcurrentNoDuplicates(t *testing.T) {
	const workers, perWorker = 8, 500
	var mu sync.Mutex
	seen := make(map[int64]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int64, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				local = append(local, Generate())
			}
			mu.Lock()
			for _, id := range local {
				if _, dup := seen[id]; dup {
					t.Errorf("duplicate id %d", id)
				}
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
}

func TestGenerateClientMsgID(t *testing.T) {
	a := GenerateClientMsgID()
	b := GenerateClientMsgID()
	if !strings.HasPrefix(a, "client_") {
		t.Fatalf("id %q missing prefix", a)
	}
	if a == b {
		t.Fatalf("ids collide: %q", a)
	}
}
