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
	"fmt"
	"regexp"
	"strings"

	"github.com/united-manufacturing-hub/htapp/pkg/client"
	"github.com/united-manufacturing-hub/htapp/pkg/constants"
	"github.com/united-manufacturing-hub/htapp/pkg/models"
	"github.com/united-manufacturing-hub/htapp/pkg/persistence/schema"
)

var pinPattern = regexp.MustCompile(`^[0-9]{4}$`)

// NewInstructor describes an instructor account to create.
type NewInstructor struct {
	FullName        string
	Login           string
	Password        string
	Subject         string
	AssignedClasses []string
	AssignedGrades  []int
}

// CreateInstructor stores an active instructor with the default permission preset.
func (s *Service) CreateInstructor(ctx context.Context, in NewInstructor) (*models.Instructor, error) {
	login := strings.TrimSpace(in.Login)
	if login == "" || in.Password == "" || strings.TrimSpace(in.FullName) == "" {
		return nil, errors.New("name, login and password are required")
	}

	hash, err := s.creds.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	row := client.Row{
		"full_name":        strings.TrimSpace(in.FullName),
		"login":            login,
		"password_hash":    hash,
		"subject":          strings.TrimSpace(in.Subject),
		"is_active":        true,
		"assigned_classes": nonNil(in.AssignedClasses),
		"assigned_grades":  nonNil(in.AssignedGrades),
	}

	for _, p := range schema.InstructorPermissions {
		row[p.Column] = p.Default
	}

	return one[models.Instructor](s.db.From(schema.Instructors).InsertOne(row).Single(ctx))
}

// Login returns the active instructor whose login and password match.
func (s *Service) Login(ctx context.Context, login, password string) (*models.Instructor, error) {
	instructor, err := one[models.Instructor](s.db.From(schema.Instructors).
		Select().
		Eq("login", strings.TrimSpace(login)).
		Eq("is_active", true).
		MaybeSingle(ctx))
	if err != nil {
		return nil, err
	}

	if instructor == nil || !s.creds.Matches(instructor.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return instructor, nil
}

// DeleteInstructor removes an instructor account.
func (s *Service) DeleteInstructor(ctx context.Context, id string) error {
	return s.db.From(schema.Instructors).Delete().Eq("id", id).Execute(ctx).Err
}

func (s *Service) adminSettings() *client.QueryBuilder {
	return s.db.From(schema.AdminSettings).Eq("id", constants.SingletonRowID)
}

// VerifyPIN reports whether pin matches the stored admin PIN.
func (s *Service) VerifyPIN(ctx context.Context, pin string) (bool, error) {
	settings, err := one[models.AdminSettings](s.adminSettings().Select("pin_hash").MaybeSingle(ctx))
	if err != nil {
		return false, err
	}

	if settings == nil {
		return false, fmt.Errorf("admin settings: %w", ErrNotFound)
	}

	return s.creds.Matches(settings.PinHash, pin), nil
}

// SetPIN replaces the admin PIN. A PIN is exactly four digits.
func (s *Service) SetPIN(ctx context.Context, pin string) error {
	if !pinPattern.MatchString(pin) {
		return errors.New("the PIN must be exactly four digits")
	}

	hash, err := s.creds.Hash(pin)
	if err != nil {
		return err
	}

	return s.adminSettings().Update(client.Row{"pin_hash": hash}).Execute(ctx).Err
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}

	return s
}
