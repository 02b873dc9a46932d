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
	"fmt"
	"sort"

	"github.com/united-manufacturing-hub/htapp/pkg/client"
	"github.com/united-manufacturing-hub/htapp/pkg/models"
	"github.com/united-manufacturing-hub/htapp/pkg/persistence/schema"
)

// DateLayout is the layout of attendance dates.
const DateLayout = "2006-01-02"

// SaveAttendance records the status of each student on date, updating the
// student's existing record for that day when there is one.
func (s *Service) SaveAttendance(ctx context.Context, instructorID, date string, statuses map[string]models.AttendanceStatus) error {
	studentIDs := make([]string, 0, len(statuses))

	for id, st := range statuses {
		if !st.Valid() {
			return fmt.Errorf("invalid attendance status %q for student %s", st, id)
		}

		studentIDs = append(studentIDs, id)
	}

	if len(studentIDs) == 0 {
		return nil
	}

	sort.Strings(studentIDs)

	existing, err := s.Attendance(ctx, date, studentIDs)
	if err != nil {
		return err
	}

	recordOf := make(map[string]string, len(existing))
	for _, r := range existing {
		recordOf[r.StudentID] = r.ID
	}

	for _, id := range studentIDs {
		status := string(statuses[id])

		var res client.Result[[]client.Row]
		if recordID, ok := recordOf[id]; ok {
			res = s.db.From(schema.Attendance).Update(client.Row{"status": status}).Eq("id", recordID).Execute(ctx)
		} else {
			res = s.db.From(schema.Attendance).InsertOne(client.Row{
				"student_id":    id,
				"instructor_id": instructorID,
				"date":          date,
				"status":        status,
			}).Execute(ctx)
		}

		if res.Err != nil {
			return fmt.Errorf("failed to save attendance of %s: %w", id, res.Err)
		}
	}

	return nil
}

// Attendance returns the records of the given students on date.
func (s *Service) Attendance(ctx context.Context, date string, studentIDs []string) ([]models.Attendance, error) {
	return many[models.Attendance](s.db.From(schema.Attendance).
		Select().
		Eq("date", date).
		In("student_id", studentIDs).
		Execute(ctx))
}
