package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHostCollectorDisk(t *testing.T) {
	dir := t.TempDir()
	c := NewHostCollector(func() string { return dir })

	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatal(err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, mf := range families {
		if mf.GetName() != "videosqueeze_host_workdir_free_bytes" {
			continue
		}
		found = true
		m := mf.GetMetric()
		if len(m) != 1 || m[0].GetLabel()[0].GetValue() != dir {
			t.Errorf("unexpected series %v", m)
		}
		if m[0].GetGauge().GetValue() <= 0 {
			t.Errorf("free bytes = %v", m[0].GetGauge().GetValue())
		}
	}
	if !found {
		t.Error("workdir free bytes not reported")
	}
}

func TestHostCollectorWithoutWorkDir(t *testing.T) {
	c := NewHostCollector(nil)
	if _, err := testutil.CollectAndLint(c); err != nil {
		t.Fatal(err)
	}
	// Memory is readable on every supported platform; disk is skipped.
	n := testutil.CollectAndCount(c, "videosqueeze_host_memory_total_bytes", "videosqueeze_host_workdir_free_bytes")
	if n != 1 {
		t.Errorf("collected %d series, want only memory total", n)
	}
	names := []string{}
	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)
	for d := range ch {
		names = append(names, d.String())
	}
	if !strings.Contains(strings.Join(names, " "), "videosqueeze_host_load1") {
		t.Errorf("descriptors = %v", names)
	}
}
