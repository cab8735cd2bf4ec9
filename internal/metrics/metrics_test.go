package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"phaeton/internal/config"
)

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu sync.Mutex

	callsCounters   []counterCall
	callsHistograms []histCall
	flushCount      int
}

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type histCall struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsCounters = append(f.callsCounters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsHistograms = append(f.callsHistograms, histCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCount++
	return nil
}

// swapBackend installs fb for the duration of the test.
func swapBackend(t *testing.T, fb Backend) {
	t.Helper()
	orig := backend
	t.Cleanup(func() { backend = orig })
	backend = fb
}

func TestRecordStep_SuccessAndFailure(t *testing.T) {
	fb := &fakeBackend{}
	swapBackend(t, fb)

	RecordStep("jobA", "compile", nil, 2*time.Second)
	RecordStep("jobB", "run", errors.New("boom"), 1500*time.Millisecond)

	if len(fb.callsCounters) != 2 {
		t.Fatalf("expected 2 counter calls, got %d", len(fb.callsCounters))
	}
	if len(fb.callsHistograms) != 2 {
		t.Fatalf("expected 2 histogram calls, got %d", len(fb.callsHistograms))
	}

	cc0 := fb.callsCounters[0]
	if cc0.name != StepTotal || cc0.delta != 1 {
		t.Fatalf("counter[0] = %#v; want name=%s, delta=1", cc0, StepTotal)
	}
	if cc0.labels["job"] != "jobA" || cc0.labels["step"] != "compile" || cc0.labels["status"] != "success" {
		t.Fatalf("counter[0].labels = %v", cc0.labels)
	}

	h0 := fb.callsHistograms[0]
	if h0.name != StepDuration {
		t.Fatalf("hist[0].name=%q; want %s", h0.name, StepDuration)
	}
	if h0.value < 2.0-0.001 || h0.value > 2.0+0.001 {
		t.Fatalf("hist[0].value=%v; want ~2.0", h0.value)
	}

	cc1 := fb.callsCounters[1]
	if cc1.labels["job"] != "jobB" || cc1.labels["step"] != "run" || cc1.labels["status"] != "failure" {
		t.Fatalf("counter[1].labels = %v; want jobB/run/failure", cc1.labels)
	}
	if h1 := fb.callsHistograms[1]; h1.value < 1.5-0.001 || h1.value > 1.5+0.001 {
		t.Fatalf("hist[1].value=%v; want ~1.5", h1.value)
	}
}

func TestRecordRowsAndBatches(t *testing.T) {
	fb := &fakeBackend{}
	swapBackend(t, fb)

	RecordRows("jobX", "processed", 3)
	RecordRows("jobX", "saved", 0) // ignored
	RecordRows("jobY", "quarantined", 5)
	RecordBatches("jobZ", 2)
	RecordBatches("jobZ", 0) // ignored

	if len(fb.callsCounters) != 3 {
		t.Fatalf("expected 3 counter calls, got %d", len(fb.callsCounters))
	}
	want := []counterCall{
		{RowsTotal, 3, Labels{"job": "jobX", "kind": "processed"}},
		{RowsTotal, 5, Labels{"job": "jobY", "kind": "quarantined"}},
		{BatchesTotal, 2, Labels{"job": "jobZ"}},
	}
	for i, w := range want {
		got := fb.callsCounters[i]
		if got.name != w.name || got.delta != w.delta {
			t.Fatalf("counter[%d] = %#v; want %#v", i, got, w)
		}
		for k, v := range w.labels {
			if got.labels[k] != v {
				t.Fatalf("counter[%d].labels[%s]=%q; want %q", i, k, got.labels[k], v)
			}
		}
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	swapBackend(t, backend)

	fb := &fakeBackend{}
	SetBackend(fb)
	if backend != fb {
		t.Fatal("SetBackend did not replace global backend")
	}
	if err := Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if fb.flushCount != 1 {
		t.Fatalf("expected flushCount=1, got %d", fb.flushCount)
	}

	SetBackend(nil)
	if backend != fb {
		t.Fatal("SetBackend(nil) should not change backend")
	}
}

func TestOpen(t *testing.T) {
	for _, kind := range []string{"", "none"} {
		b, err := Open(config.MetricsConfig{Backend: kind}, "j")
		if err != nil {
			t.Fatalf("Open(%q) error = %v", kind, err)
		}
		if _, ok := b.(nopBackend); !ok {
			t.Fatalf("Open(%q) = %T; want nopBackend", kind, b)
		}
	}

	if _, err := Open(config.MetricsConfig{Backend: "carrier-pigeon"}, "j"); err == nil {
		t.Fatal("Open(unknown) expected error")
	}

	fb := &fakeBackend{}
	var gotJob string
	Register("fake", func(job string, _ config.MetricsConfig) (Backend, error) { gotJob = job; return fb, nil })
	t.Cleanup(func() { delete(factories, "fake") })

	b, err := Open(config.MetricsConfig{Backend: "fake"}, "orders")
	if err != nil {
		t.Fatalf("Open(fake) error = %v", err)
	}
	if b != fb || gotJob != "orders" {
		t.Fatalf("Open(fake) = %v job=%q", b, gotJob)
	}

	if _, err := Open(config.MetricsConfig{Backend: "fake"}, ""); err != nil || gotJob != DefaultJobLabel {
		t.Fatalf("Open(fake, \"\") job=%q err=%v; want default job label", gotJob, err)
	}
}
