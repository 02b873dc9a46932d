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

package school

import (
	"context"
	"errors"
	"strings"

	"github.com/united-manufacturing-hub/htapp/pkg/client"
	"github.com/united-manufacturing-hub/htapp/pkg/models"
	"github.com/united-manufacturing-hub/htapp/pkg/persistence/schema"
)

// ActiveClassNames returns the names of active classes in display order.
// When no class is active every class name is returned.
func (s *Service) ActiveClassNames(ctx context.Context) ([]string, error) {
	classes, err := many[models.GradeClass](s.db.From(schema.GradeClasses).Select().Order("display_order", true).Execute(ctx))
	if err != nil {
		return nil, err
	}

	all := make([]string, 0, len(classes))
	active := make([]string, 0, len(classes))

	for _, c := range classes {
		if c.Name == "" {
			continue
		}

		all = append(all, c.Name)
		if c.IsActive {
			active = append(active, c.Name)
		}
	}

	if len(active) > 0 {
		return active, nil
	}

	return all, nil
}

// Register creates a student record.
func (s *Service) Register(ctx context.Context, fullName, className string) (*models.Student, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, errors.New("student name is required")
	}

	return one[models.Student](s.db.From(schema.Students).InsertOne(client.Row{
		"full_name":  fullName,
		"class_name": optional(strings.TrimSpace(className)),
	}).Single(ctx))
}

// TouchLastActive records that a student is using the application now.
func (s *Service) TouchLastActive(ctx context.Context, studentID string) error {
	return s.db.From(schema.Students).
		Update(client.Row{"last_active_at": s.timestamp()}).
		Eq("id", studentID).
		Execute(ctx).Err
}
