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

// Package school implements the application's record keeping on top of the
// client query builder: classes, students, instructors, lessons and their
// progress, tests and results, and attendance.
package school

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/htapp/pkg/client"
	"github.com/united-manufacturing-hub/htapp/pkg/credentials"
	"github.com/united-manufacturing-hub/htapp/pkg/logger"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidCredentials is returned by Login on an unknown login or a wrong password.
	ErrInvalidCredentials = errors.New("invalid login or password")
)

// Service runs school operations through a client.
type Service struct {
	db      *client.DB
	storage *client.Storage
	creds   credentials.Comparator
	now     func() time.Time
	logger  *zap.SugaredLogger
}

// New returns a service using creds for instructor passwords and the admin PIN.
func New(db *client.DB, creds credentials.Comparator) *Service {
	return &Service{
		db:      db,
		storage: db.Storage(),
		creds:   creds,
		now:     time.Now,
		logger:  logger.For(logger.ComponentSchool),
	}
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}

func one[T any](res client.Result[client.Row]) (*T, error) {
	if res.Err != nil {
		return nil, res.Err
	}

	return client.DecodeOne[T](res.Data)
}

func many[T any](res client.Result[[]client.Row]) ([]T, error) {
	if res.Err != nil {
		return nil, res.Err
	}

	return client.Decode[T](res.Data)
}

func optional(s string) any {
	if s == "" {
		return nil
	}

	return s
}
