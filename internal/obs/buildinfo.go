package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var buildInfoReg sync.Once

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Collabhub API build information.",
	},
	[]string{"version", "commit"},
)

// InitBuildInfo publishes the build_info gauge. Safe to call more than once;
// registration happens on the first call only.
func InitBuildInfo(version, commit string) {
	buildInfoReg.Do(func() {
		prometheus.MustRegister(buildInfo)
	})
	buildInfo.WithLabelValues(version, commit).Set(1)
}
