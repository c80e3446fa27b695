package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersNormaliseLabels(t *testing.T) {
	IncJob(" Vocal_Removal ", "COMPLETED")
	if got := testutil.ToFloat64(jobsTotal.WithLabelValues("vocal_removal", "completed")); got < 1 {
		t.Fatalf("expected normalised job counter, got %v", got)
	}
	IncCacheLookup("mute_video", "Hit")
	if got := testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("mute_video", "hit")); got < 1 {
		t.Fatalf("expected cache lookup counted, got %v", got)
	}
	SetRecommendations(7)
	if got := testutil.ToFloat64(recommendationsGenerated); got != 7 {
		t.Fatalf("expected gauge 7, got %v", got)
	}
	ObserveStep("composite_dubbing", "mix_audio", 2*time.Second)
	IncLoopError("dubbing")
}

func TestCollectorsRegisterCleanly(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	MustRegister()
	MustRegister()
}
