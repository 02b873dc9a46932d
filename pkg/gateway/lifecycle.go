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

package gateway

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/united-manufacturing-hub/htapp/pkg/metrics"
)

// Lifecycle states, in start-up order.
const (
	StateCreated      = "created"
	StateStoreOpen    = "store_open"
	StateSchemaReady  = "schema_ready"
	StateStorageReady = "storage_ready"
	StateServing      = "serving"
	StateClosed       = "closed"
)

// Lifecycle events.
const (
	EventOpenStore      = "open_store"
	EventBootstrap      = "bootstrap"
	EventPrepareStorage = "prepare_storage"
	EventServe          = "serve"
	EventClose          = "close"
)

func (s *Service) newLifecycle() *fsm.FSM {
	return fsm.NewFSM(
		StateCreated,
		fsm.Events{
			{Name: EventOpenStore, Src: []string{StateCreated}, Dst: StateStoreOpen},
			{Name: EventBootstrap, Src: []string{StateStoreOpen}, Dst: StateSchemaReady},
			{Name: EventPrepareStorage, Src: []string{StateSchemaReady}, Dst: StateStorageReady},
			{Name: EventServe, Src: []string{StateStorageReady}, Dst: StateServing},
			{Name: EventClose, Src: []string{StateCreated, StateStoreOpen, StateSchemaReady, StateStorageReady, StateServing}, Dst: StateClosed},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				s.logger.Debugf("gateway %s -> %s", e.Src, e.Dst)
			},
			"enter_" + StateServing: func(_ context.Context, _ *fsm.Event) {
				metrics.SetGatewayServing(true)
				s.logger.Infof("gateway accepting requests")
			},
			"leave_" + StateServing: func(_ context.Context, _ *fsm.Event) {
				metrics.SetGatewayServing(false)
			},
		},
	)
}

// State returns the current lifecycle state.
func (s *Service) State() string {
	return s.lifecycle.Current()
}

func (s *Service) serving() bool {
	return s.lifecycle.Current() == StateServing
}
