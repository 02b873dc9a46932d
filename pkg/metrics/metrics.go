// Copyright 2025 UMH Systems GmbH
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

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	// Component labels.
	ComponentGateway   = "gateway"
	ComponentFileStore = "filestore"
	ComponentBootstrap = "bootstrap"
	ComponentIPC       = "ipc"
	ComponentBridge    = "http_bridge"

	// Outcome labels.
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	namespace = "htapp"
	subsystem = "core"

	errorCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "errors_total",
			Help:      "Total number of errors encountered by component",
		},
		[]string{"component", "operation"},
	)

	gatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "gateway_requests_total",
			Help:      "Requests handled by the access gateway, by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	gatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "gateway_request_duration_seconds",
			Help:      "Time taken to handle a gateway request",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"channel"},
	)

	fileStoreBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "filestore_bytes_total",
			Help:      "Bytes written to or read from the local file store",
		},
		[]string{"direction", "bucket"},
	)

	gatewayState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "gateway_serving",
			Help:      "1 while the access gateway accepts requests, 0 otherwise",
		},
	)
)

// IncErrorCount increments the error counter for a component.
func IncErrorCount(component, operation string) {
	errorCounter.WithLabelValues(component, operation).Inc()
}

// IncErrorCountAndLog increments the error counter and logs the error.
func IncErrorCountAndLog(component, operation string, err error, logger *zap.SugaredLogger) {
	IncErrorCount(component, operation)

	if logger != nil {
		logger.Errorf("%s failed: %v", operation, err)
	}
}

// ObserveGatewayRequest records one handled gateway request.
func ObserveGatewayRequest(channel string, failed bool, duration time.Duration) {
	outcome := OutcomeOK
	if failed {
		outcome = OutcomeError
	}

	gatewayRequests.WithLabelValues(channel, outcome).Inc()
	gatewayDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// AddFileStoreBytes records bytes moved through the file store. Direction is "write" or "read".
func AddFileStoreBytes(direction, bucket string, n int) {
	fileStoreBytes.WithLabelValues(direction, bucket).Add(float64(n))
}

// SetGatewayServing reports whether the gateway currently accepts requests.
func SetGatewayServing(serving bool) {
	if serving {
		gatewayState.Set(1)

		return
	}

	gatewayState.Set(0)
}
