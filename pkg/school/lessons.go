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
	"strings"

	"github.com/united-manufacturing-hub/htapp/pkg/client"
	"github.com/united-manufacturing-hub/htapp/pkg/filestore"
	"github.com/united-manufacturing-hub/htapp/pkg/models"
	"github.com/united-manufacturing-hub/htapp/pkg/persistence/schema"
)

// NewLesson describes a lesson to create.
type NewLesson struct {
	Title        string
	Content      string
	ClassName    string
	Grade        *int
	OrderIndex   int
	InstructorID string
	Attachments  []models.Attachment
}

// CreateLesson stores a lesson.
func (s *Service) CreateLesson(ctx context.Context, in NewLesson) (*models.Lesson, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, errors.New("lesson title is required")
	}

	return one[models.Lesson](s.db.From(schema.Lessons).InsertOne(client.Row{
		"title":         strings.TrimSpace(in.Title),
		"content":       in.Content,
		"class_name":    optional(in.ClassName),
		"grade":         in.Grade,
		"order_index":   in.OrderIndex,
		"instructor_id": optional(in.InstructorID),
		"attachments":   nonNil(in.Attachments),
	}).Single(ctx))
}

// Lesson loads a lesson by id.
func (s *Service) Lesson(ctx context.Context, id string) (*models.Lesson, error) {
	lesson, err := one[models.Lesson](s.db.From(schema.Lessons).Select().Eq("id", id).MaybeSingle(ctx))
	if err != nil {
		return nil, err
	}

	if lesson == nil {
		return nil, fmt.Errorf("lesson %s: %w", id, ErrNotFound)
	}

	return lesson, nil
}

// AddAttachment uploads a file and appends it to the lesson's attachments.
func (s *Service) AddAttachment(ctx context.Context, lessonID, fileName string, data []byte, contentType string) (*models.Lesson, error) {
	lesson, err := s.Lesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	up, err := s.storage.Upload(ctx, filestore.BucketLessonAttachments, fileName, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload attachment: %w", err)
	}

	attachments := append(lesson.Attachments, models.Attachment{
		Name: fileName,
		URL:  up.URL,
		Type: contentType,
		Size: int64(len(data)),
	})

	updated, err := s.setAttachments(ctx, lessonID, attachments)
	if err != nil {
		if cleanupErr := s.storage.DeleteURL(ctx, up.URL); cleanupErr != nil {
			s.logger.Warnf("failed to remove orphaned upload %s: %v", up.URL, cleanupErr)
		}

		return nil, err
	}

	return updated, nil
}

// RemoveAttachment drops the attachment at index from the lesson, then
// deletes its stored file. A file that cannot be deleted is only logged.
func (s *Service) RemoveAttachment(ctx context.Context, lessonID string, index int) (*models.Lesson, error) {
	lesson, err := s.Lesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(lesson.Attachments) {
		return nil, fmt.Errorf("attachment %d of lesson %s: %w", index, lessonID, ErrNotFound)
	}

	removed := lesson.Attachments[index]
	attachments := append(lesson.Attachments[:index:index], lesson.Attachments[index+1:]...)

	updated, err := s.setAttachments(ctx, lessonID, attachments)
	if err != nil {
		return nil, err
	}

	if err := s.deleteAttachmentFile(ctx, removed); err != nil {
		s.logger.Warnf("lesson %s: failed to delete attachment file %s: %v", lessonID, removed.URL, err)
	}

	return updated, nil
}

func (s *Service) setAttachments(ctx context.Context, lessonID string, attachments []models.Attachment) (*models.Lesson, error) {
	return one[models.Lesson](s.db.From(schema.Lessons).
		Update(client.Row{"attachments": nonNil(attachments), "updated_at": s.timestamp()}).
		Eq("id", lessonID).
		Single(ctx))
}

// DeleteLesson removes every stored attachment file, then the lesson.
func (s *Service) DeleteLesson(ctx context.Context, id string) error {
	lesson, err := s.Lesson(ctx, id)
	if err != nil {
		return err
	}

	for _, a := range lesson.Attachments {
		if err := s.deleteAttachmentFile(ctx, a); err != nil {
			return err
		}
	}

	return s.db.From(schema.Lessons).Delete().Eq("id", id).Execute(ctx).Err
}

// deleteAttachmentFile removes a locally stored attachment. Links to
// anything else are left alone.
func (s *Service) deleteAttachmentFile(ctx context.Context, a models.Attachment) error {
	err := s.storage.DeleteURL(ctx, a.URL)
	if errors.Is(err, client.ErrInvalidURL) {
		s.logger.Debugf("attachment %q is not stored locally", a.URL)

		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to delete attachment %s: %w", a.Name, err)
	}

	return nil
}

// MarkComplete records that a student finished a lesson, updating the
// existing progress record when there is one.
func (s *Service) MarkComplete(ctx context.Context, studentID, lessonID string) error {
	existing := s.db.From(schema.LessonProgress).
		Select("id").
		Eq("student_id", studentID).
		Eq("lesson_id", lessonID).
		MaybeSingle(ctx)
	if existing.Err != nil {
		return existing.Err
	}

	values := client.Row{"completed": true, "completed_at": s.timestamp()}

	if existing.Data != nil {
		return s.db.From(schema.LessonProgress).
			Update(values).
			Eq("student_id", studentID).
			Eq("lesson_id", lessonID).
			Execute(ctx).Err
	}

	values["student_id"] = studentID
	values["lesson_id"] = lessonID

	return s.db.From(schema.LessonProgress).InsertOne(values).Execute(ctx).Err
}

// CompletedLessonIDs returns the ids of lessons a student has completed.
func (s *Service) CompletedLessonIDs(ctx context.Context, studentID string) ([]string, error) {
	res := s.db.From(schema.LessonProgress).
		Select("lesson_id").
		Eq("student_id", studentID).
		Eq("completed", true).
		Execute(ctx)
	if res.Err != nil {
		return nil, res.Err
	}

	ids := make([]string, 0, len(res.Data))
	for _, r := range res.Data {
		if id, ok := r["lesson_id"].(string); ok {
			ids = append(ids, id)
		}
	}

	return ids, nil
}
