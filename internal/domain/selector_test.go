package domain

import (
	"errors"
	"sync"
	"testing"
)

func TestSelectorNext_RoundRobin(t *testing.T) {
	r := NewRegistry(testSpecs(ProviderConvertAPI, "sk_aaaa1111", "sk_bbbb2222", "sk_cccc3333"))
	s := NewSelector(r)

	expected := []string{"convertapi:1", "convertapi:2", "convertapi:3"}
	for i := 0; i < 9; i++ {
		c, err := s.Next(ProviderConvertAPI)
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if c.ID != expected[i%3] {
			t.Errorf("iteration %d: got %s, want %s", i, c.ID, expected[i%3])
		}
	}
}

func TestSelectorNext_FairDistribution(t *testing.T) {
	r := NewRegistry(testSpecs(ProviderConvertAPI, "sk_aaaa1111", "sk_bbbb2222", "sk_cccc3333"))
	s := NewSelector(r)

	counts := make(map[string]int)
	for i := 0; i < 300; i++ {
		c, err := s.Next(ProviderConvertAPI)
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		counts[c.ID]++
	}

	for id, n := range counts {
		if n != 100 {
			t.Errorf("credential %s selected %d times, want exactly 100", id, n)
		}
	}
}

func TestSelectorNext_SkipsUnavailable(t *testing.T) {
	r := NewRegistry(testSpecs(ProviderConvertAPI, "sk_aaaa1111", "sk_bbbb2222", "sk_cccc3333"))
	s := NewSelector(r)

	r.MarkExhausted("convertapi:2")

	for i := 0; i < 10; i++ {
		c, err := s.Next(ProviderConvertAPI)
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if c.ID == "convertapi:2" {
			t.Error("Next() returned an exhausted credential")
		}
	}
}

func TestSelectorNext_Empty(t *testing.T) {
	s := NewSelector(NewRegistry(nil))

	_, err := s.Next(ProviderConvertAPI)
	if !errors.Is(err, ErrNoCredentialAvailable) {
		t.Errorf("Next() error = %v, want %v", err, ErrNoCredentialAvailable)
	}
}

func TestSelectorNext_AllUnavailable(t *testing.T) {
	r := NewRegistry(testSpecs(ProviderConvertAPI, "sk_aaaa1111", "sk_bbbb2222"))
	s := NewSelector(r)

	r.MarkExhausted("convertapi:1")
	r.MarkDisabled("convertapi:2")

	_, err := s.Next(ProviderConvertAPI)
	if !errors.Is(err, ErrNoCredentialAvailable) {
		t.Errorf("Next() error = %v, want %v", err, ErrNoCredentialAvailable)
	}
}

func TestSelectorNext_ConcurrentDistinct(t *testing.T) {
	r := NewRegistry(testSpecs(ProviderConvertAPI, "sk_aaaa1111", "sk_bbbb2222", "sk_cccc3333", "sk_dddd4444"))
	s := NewSelector(r)

	const workers = 4
	results := make(chan string, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			c, err := s.Next(ProviderConvertAPI)
			if err != nil {
				t.Errorf("Next() error = %v", err)
				return
			}
			results <- c.ID
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for id := range results {
		if seen[id] {
			t.Errorf("credential %s handed out twice across %d concurrent selections of a %d-key pool", id, workers, workers)
		}
		seen[id] = true
	}
}

func TestSelectorNext_ReturnsCopy(t *testing.T) {
	r := NewRegistry(testSpecs(ProviderConvertAPI, "sk_aaaa1111"))
	s := NewSelector(r)

	c, err := s.Next(ProviderConvertAPI)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	c.State = KeyDisabled

	stored, _ := r.Get("convertapi:1")
	if stored.State != KeyActive {
		t.Error("mutating the selected copy changed registry state")
	}
}

func TestSelectorNext_CursorSurvivesReload(t *testing.T) {
	r := NewRegistry(testSpecs(ProviderConvertAPI, "sk_aaaa1111", "sk_bbbb2222", "sk_cccc3333", "sk_dddd4444"))
	s := NewSelector(r)

	// Advance the cursor to the tail, reload a smaller configuration,
	// then knock out the carried tail keys.
	for i := 0; i < 4; i++ {
		if _, err := s.Next(ProviderConvertAPI); err != nil {
			t.Fatalf("Next() error = %v", err)
		}
	}
	r.Reload(testSpecs(ProviderConvertAPI, "sk_aaaa1111", "sk_bbbb2222"))
	r.MarkExhausted("convertapi:3")
	r.MarkExhausted("convertapi:4")

	c, err := s.Next(ProviderConvertAPI)
	if err != nil {
		t.Fatalf("Next() after reload error = %v", err)
	}
	if c.State != KeyActive {
		t.Errorf("Next() returned %s in state %q, want an active credential", c.ID, c.State)
	}
}

func TestSelectorNext_IndependentProviderCursors(t *testing.T) {
	specs := append(
		testSpecs(ProviderConvertAPI, "sk_aaaa1111", "sk_bbbb2222"),
		testSpecs(ProviderPDFCo, "pk_aaaa1111", "pk_bbbb2222")...,
	)
	s := NewSelector(NewRegistry(specs))

	c1, _ := s.Next(ProviderConvertAPI)
	p1, _ := s.Next(ProviderPDFCo)
	c2, _ := s.Next(ProviderConvertAPI)

	if c1.ID != "convertapi:1" || c2.ID != "convertapi:2" {
		t.Errorf("convertapi rotation = %s, %s; want convertapi:1, convertapi:2", c1.ID, c2.ID)
	}
	if p1.ID != "pdfco:1" {
		t.Errorf("pdfco first selection = %s, want pdfco:1", p1.ID)
	}
}
