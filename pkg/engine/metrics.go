// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// cfgMetricsTextfile names the node-exporter textfile written after each stage.
const cfgMetricsTextfile = "metrics_textfile"

var (
	probeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "condense_datasource_probe_total",
			Help: "Data source probes by provider and result",
		},
		[]string{"provider", "result"}, // found, not_found, error
	)

	moduleRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "condense_module_runs_total",
			Help: "Config module runs by module and result",
		},
		[]string{"module", "result"}, // succeeded, skipped, failed
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "condense_stage_duration_seconds",
			Help:    "Time taken by a boot stage",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)

	stageModuleFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "condense_stage_module_failures",
			Help: "Number of failed config modules in the last run of a stage",
		},
		[]string{"stage"},
	)
)

func observeProbe(provider, result string) {
	probeTotal.WithLabelValues(provider, result).Inc()
}

func observeModule(module, result string) {
	moduleRunsTotal.WithLabelValues(module, result).Inc()
}

// writeMetrics writes the default registry in text format to path.
func writeMetrics(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
