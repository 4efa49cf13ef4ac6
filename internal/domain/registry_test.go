package domain

import (
	"context"
	"sync"
	"testing"
)

func testSpecs(provider ProviderType, secrets ...string) []CredentialSpec {
	specs := make([]CredentialSpec, 0, len(secrets))
	for _, s := range secrets {
		specs = append(specs, CredentialSpec{Provider: provider, Secret: s})
	}
	return specs
}

func TestNewRegistry(t *testing.T) {
	tests := []struct {
		name     string
		specs    []CredentialSpec
		provider ProviderType
		expected int
	}{
		{
			name:     "normal specs",
			specs:    testSpecs(ProviderConvertAPI, "sk_aaaa1111", "sk_bbbb2222", "sk_cccc3333"),
			provider: ProviderConvertAPI,
			expected: 3,
		},
		{
			name:     "empty slice",
			specs:    nil,
			provider: ProviderConvertAPI,
			expected: 0,
		},
		{
			name:     "empty secrets skipped",
			specs:    testSpecs(ProviderPDFCo, "sk_aaaa1111", "", "sk_bbbb2222"),
			provider: ProviderPDFCo,
			expected: 2,
		},
		{
			name:     "duplicate secrets collapse",
			specs:    testSpecs(ProviderTextGears, "sk_aaaa1111", "sk_bbbb2222", "sk_aaaa1111"),
			provider: ProviderTextGears,
			expected: 2,
		},
		{
			name: "unknown provider skipped",
			specs: []CredentialSpec{
				{Provider: "mystery", Secret: "sk_aaaa1111"},
				{Provider: ProviderConvertAPI, Secret: "sk_bbbb2222"},
			},
			provider: ProviderConvertAPI,
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(tt.specs)
			if got := r.ConfiguredCount(tt.provider); got != tt.expected {
				t.Errorf("ConfiguredCount() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestNewRegistry_PositionalIDs(t *testing.T) {
	r := NewRegistry(testSpecs(ProviderConvertAPI, "sk_aaaa1111", "sk_bbbb2222"))

	first, ok := r.Get("convertapi:1")
	if !ok {
		t.Fatal("Get(convertapi:1) not found")
	}
	if first.Secret != "sk_aaaa1111" {
		t.Errorf("convertapi:1 secret = %q, want first configured secret", first.Secret)
	}
	if first.State != KeyActive {
		t.Errorf("new credential state = %q, want %q", first.State, KeyActive)
	}

	if _, ok := r.Get("convertapi:3"); ok {
		t.Error("Get(convertapi:3) found, want absent")
	}
}

func TestMarkSuccess_Counters(t *testing.T) {
	r := NewRegistry(testSpecs(ProviderConvertAPI, "sk_aaaa1111"))

	r.MarkTransientFailure("convertapi:1")
	r.MarkTransientFailure("convertapi:1")
	r.MarkSuccess("convertapi:1")

	c, _ := r.Get("convertapi:1")
	if c.UsedCount != 1 {
		t.Errorf("UsedCount = %d, want 1", c.UsedCount)
	}
	if c.ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0 after success", c.ConsecutiveFailures)
	}
	if c.LastUsedAt.IsZero() {
		t.Error("LastUsedAt is zero after success")
	}
}

func TestMarkSuccess_Concurrent(t *testing.T) {
	r := NewRegistry(testSpecs(ProviderConvertAPI, "sk_aaaa1111"))

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			r.MarkSuccess("convertapi:1")
		}()
	}
	wg.Wait()

	c, _ := r.Get("convertapi:1")
	if c.UsedCount != workers {
		t.Errorf("UsedCount = %d after %d concurrent successes, want %d", c.UsedCount, workers, workers)
	}
}

func TestMarkExhausted(t *testing.T) {
	r := NewRegistry(testSpecs(ProviderConvertAPI, "sk_aaaa1111", "sk_bbbb2222"))

	r.MarkExhausted("convertapi:1")
	r.MarkExhausted("convertapi:1") // idempotent

	c, _ := r.Get("convertapi:1")
	if c.State != KeyExhausted {
		t.Errorf("State = %q, want %q", c.State, KeyExhausted)
	}
	if c.LastFailureAt.IsZero() {
		t.Error("LastFailureAt is zero after exhaustion")
	}
	if got := r.ActiveCount(ProviderConvertAPI); got != 1 {
		t.Errorf("ActiveCount() = %d, want 1", got)
	}
}

func TestMarkDisabled(t *testing.T) {
	r := NewRegistry(testSpecs(ProviderPDFCo, "sk_aaaa1111"))

	r.MarkDisabled("pdfco:1")

	c, _ := r.Get("pdfco:1")
	if c.State != KeyDisabled {
		t.Errorf("State = %q, want %q", c.State, KeyDisabled)
	}
	if got := r.ActiveCount(ProviderPDFCo); got != 0 {
		t.Errorf("ActiveCount() = %d, want 0", got)
	}
}

func TestMarkTransientFailure_KeepsRotation(t *testing.T) {
	r := NewRegistry(testSpecs(ProviderConvertAPI, "sk_aaaa1111"))

	r.MarkTransientFailure("convertapi:1")

	c, _ := r.Get("convertapi:1")
	if c.State != KeyActive {
		t.Errorf("State = %q after transient failure, want %q", c.State, KeyActive)
	}
	if c.ConsecutiveFailures != 1 {
		t.Errorf("ConsecutiveFailures = %d, want 1", c.ConsecutiveFailures)
	}
	if c.UsedCount != 0 {
		t.Errorf("UsedCount = %d after failure, want 0", c.UsedCount)
	}
}

func TestMark_UnknownID(t *testing.T) {
	r := NewRegistry(testSpecs(ProviderConvertAPI, "sk_aaaa1111"))

	// Unknown IDs are ignored across all mark operations.
	r.MarkSuccess("convertapi:99")
	r.MarkExhausted("pdfco:1")
	r.MarkDisabled("bogus")

	if got := r.ActiveCount(ProviderConvertAPI); got != 1 {
		t.Errorf("ActiveCount() = %d after unknown marks, want 1", got)
	}
}

func TestResetFailed(t *testing.T) {
	r := NewRegistry(testSpecs(ProviderConvertAPI, "sk_aaaa1111", "sk_bbbb2222", "sk_cccc3333"))

	r.MarkSuccess("convertapi:1")
	r.MarkExhausted("convertapi:1")
	r.MarkDisabled("convertapi:2")

	restored := r.ResetFailed(ProviderConvertAPI)
	if restored != 2 {
		t.Errorf("ResetFailed() = %d, want 2", restored)
	}

	c, _ := r.Get("convertapi:1")
	if c.State != KeyActive {
		t.Errorf("exhausted key state after reset = %q, want %q", c.State, KeyActive)
	}
	if c.UsedCount != 0 || c.ConsecutiveFailures != 0 {
		t.Errorf("counters after reset = used %d, failures %d, want zeros", c.UsedCount, c.ConsecutiveFailures)
	}

	c2, _ := r.Get("convertapi:2")
	if c2.State != KeyActive {
		t.Errorf("disabled key state after reset = %q, want %q", c2.State, KeyActive)
	}

	if again := r.ResetFailed(ProviderConvertAPI); again != 0 {
		t.Errorf("second ResetFailed() = %d, want 0", again)
	}
}

func TestReload_MergeByID(t *testing.T) {
	r := NewRegistry(testSpecs(ProviderConvertAPI, "sk_aaaa1111", "sk_bbbb2222"))
	r.MarkSuccess("convertapi:1")
	r.MarkExhausted("convertapi:2")

	summary := r.Reload(testSpecs(ProviderConvertAPI, "sk_aaaa1111", "sk_bbbb2222", "sk_cccc3333"))

	if summary.Added != 1 {
		t.Errorf("Added = %d, want 1", summary.Added)
	}
	if summary.Refreshed != 0 {
		t.Errorf("Refreshed = %d, want 0", summary.Refreshed)
	}

	// Existing credentials keep health across the reload.
	c1, _ := r.Get("convertapi:1")
	if c1.UsedCount != 1 {
		t.Errorf("convertapi:1 UsedCount = %d after reload, want 1", c1.UsedCount)
	}
	c2, _ := r.Get("convertapi:2")
	if c2.State != KeyExhausted {
		t.Errorf("convertapi:2 state = %q after reload, want %q", c2.State, KeyExhausted)
	}
	c3, _ := r.Get("convertapi:3")
	if c3.State != KeyActive {
		t.Errorf("convertapi:3 state = %q, want %q", c3.State, KeyActive)
	}
}

func TestReload_Idempotent(t *testing.T) {
	specs := testSpecs(ProviderConvertAPI, "sk_aaaa1111", "sk_bbbb2222")
	r := NewRegistry(specs)
	r.MarkExhausted("convertapi:2")

	first := r.Reload(specs)
	second := r.Reload(specs)

	if first != (ReloadSummary{}) || second != (ReloadSummary{}) {
		t.Errorf("reload of identical specs changed something: first=%+v second=%+v", first, second)
	}
	c, _ := r.Get("convertapi:2")
	if c.State != KeyExhausted {
		t.Errorf("state after idempotent reloads = %q, want %q", c.State, KeyExhausted)
	}
}

func TestReload_CarriesRemovedCredentials(t *testing.T) {
	r := NewRegistry(testSpecs(ProviderConvertAPI, "sk_aaaa1111", "sk_bbbb2222"))
	r.MarkSuccess("convertapi:2")

	summary := r.Reload(testSpecs(ProviderConvertAPI, "sk_aaaa1111"))
	if summary.Carried != 1 {
		t.Errorf("Carried = %d, want 1", summary.Carried)
	}

	c, ok := r.Get("convertapi:2")
	if !ok {
		t.Fatal("convertapi:2 dropped by reload, want carried")
	}
	if c.UsedCount != 1 {
		t.Errorf("carried credential UsedCount = %d, want 1", c.UsedCount)
	}
	if got := r.ConfiguredCount(ProviderConvertAPI); got != 2 {
		t.Errorf("ConfiguredCount() = %d, want 2", got)
	}
}

func TestRestoreHealth(t *testing.T) {
	records := map[string]KeyHealth{
		"convertapi:1": {
			CredentialID: "convertapi:1",
			Provider:     ProviderConvertAPI,
			State:        KeyExhausted,
			UsedCount:    41,
		},
		"convertapi:9": { // no such slot configured
			CredentialID: "convertapi:9",
			Provider:     ProviderConvertAPI,
			State:        KeyDisabled,
		},
	}

	r := NewRegistry(testSpecs(ProviderConvertAPI, "sk_aaaa1111", "sk_bbbb2222"))
	r.RestoreHealth(records)

	c, _ := r.Get("convertapi:1")
	if c.State != KeyExhausted {
		t.Errorf("restored state = %q, want %q", c.State, KeyExhausted)
	}
	if c.UsedCount != 41 {
		t.Errorf("restored UsedCount = %d, want 41", c.UsedCount)
	}

	c2, _ := r.Get("convertapi:2")
	if c2.State != KeyActive {
		t.Errorf("credential without record state = %q, want %q", c2.State, KeyActive)
	}
}

// recordingSink captures health write-throughs for assertions.
type recordingSink struct {
	mu      sync.Mutex
	records []KeyHealth
}

func (s *recordingSink) SaveKeyHealth(_ context.Context, health KeyHealth) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, health)
	return nil
}

func (s *recordingSink) last() (KeyHealth, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) == 0 {
		return KeyHealth{}, false
	}
	return s.records[len(s.records)-1], true
}

func TestRegistry_HealthWriteThrough(t *testing.T) {
	sink := &recordingSink{}
	r := NewRegistry(testSpecs(ProviderConvertAPI, "sk_aaaa1111"), WithHealthSink(sink))

	r.MarkSuccess("convertapi:1")
	r.MarkExhausted("convertapi:1")

	rec, ok := sink.last()
	if !ok {
		t.Fatal("no health records written")
	}
	if rec.CredentialID != "convertapi:1" {
		t.Errorf("record id = %q, want convertapi:1", rec.CredentialID)
	}
	if rec.State != KeyExhausted {
		t.Errorf("record state = %q, want %q", rec.State, KeyExhausted)
	}
	if rec.UsedCount != 1 {
		t.Errorf("record UsedCount = %d, want 1", rec.UsedCount)
	}
}

func TestStatus_MasksSecrets(t *testing.T) {
	r := NewRegistry(testSpecs(ProviderConvertAPI, "sk_live_abcdef123456"))

	statuses := r.Status(ProviderConvertAPI)
	if len(statuses) != 1 {
		t.Fatalf("len(Status()) = %d, want 1", len(statuses))
	}
	if statuses[0].Secret == "sk_live_abcdef123456" {
		t.Error("Status() exposes the raw secret")
	}
	if statuses[0].Secret != "sk_l...3456" {
		t.Errorf("masked secret = %q, want sk_l...3456", statuses[0].Secret)
	}
}

func TestSummary(t *testing.T) {
	specs := []CredentialSpec{
		{Provider: ProviderConvertAPI, Secret: "sk_aaaa1111", QuotaLimit: 100},
		{Provider: ProviderConvertAPI, Secret: "sk_bbbb2222", QuotaLimit: 50},
		{Provider: ProviderConvertAPI, Secret: "sk_cccc3333"},
	}
	r := NewRegistry(specs)

	r.MarkSuccess("convertapi:1")
	r.MarkSuccess("convertapi:1")
	r.MarkExhausted("convertapi:2")
	r.MarkDisabled("convertapi:3")

	s := r.Summary(ProviderConvertAPI)
	if s.Configured != 3 || s.Active != 1 || s.Exhausted != 1 || s.Disabled != 1 {
		t.Errorf("counts = %+v, want 3 configured / 1 active / 1 exhausted / 1 disabled", s)
	}
	if s.UsedTotal != 2 {
		t.Errorf("UsedTotal = %d, want 2", s.UsedTotal)
	}
	if !s.QuotaKnown {
		t.Error("QuotaKnown = false, want true")
	}
	if s.QuotaTotal != 150 {
		t.Errorf("QuotaTotal = %d, want 150", s.QuotaTotal)
	}
	if s.Remaining != 148 {
		t.Errorf("Remaining = %d, want 148", s.Remaining)
	}
}
