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
	"math"
	"strings"

	"github.com/united-manufacturing-hub/htapp/pkg/client"
	"github.com/united-manufacturing-hub/htapp/pkg/models"
	"github.com/united-manufacturing-hub/htapp/pkg/persistence/schema"
)

// NewTest describes a test to create.
type NewTest struct {
	Title            string
	Description      string
	ClassName        string
	Grade            *int
	TimeLimitMinutes *int
	LessonID         string
	InstructorID     string
}

// NewQuestion is one question of a new test. Answer is either the option
// text or its letter, A for the first option.
type NewQuestion struct {
	Text    string
	Options []string
	Answer  string
	Points  int
}

// ResolveAnswer maps an answer letter or option text to the option text.
func ResolveAnswer(answer string, options []string) (string, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", errors.New("no correct answer given")
	}

	if len(answer) == 1 {
		if i := int(strings.ToUpper(answer)[0]) - 'A'; i >= 0 && i < len(options) {
			return options[i], nil
		}
	}

	for _, o := range options {
		if strings.EqualFold(o, answer) {
			return o, nil
		}
	}

	return "", fmt.Errorf("answer %q is not among the options", answer)
}

func prepareQuestions(questions []NewQuestion) ([]client.Row, error) {
	if len(questions) == 0 {
		return nil, errors.New("a test needs at least one question")
	}

	rows := make([]client.Row, 0, len(questions))

	for i, q := range questions {
		options := make([]string, 0, len(q.Options))
		for _, o := range q.Options {
			if o = strings.TrimSpace(o); o != "" {
				options = append(options, o)
			}
		}

		if strings.TrimSpace(q.Text) == "" {
			return nil, fmt.Errorf("question %d has no text", i+1)
		}

		if len(options) < 2 {
			return nil, fmt.Errorf("question %d needs at least two options", i+1)
		}

		answer, err := ResolveAnswer(q.Answer, options)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}

		points := q.Points
		if points <= 0 {
			points = 1
		}

		rows = append(rows, client.Row{
			"question_text":  strings.TrimSpace(q.Text),
			"options":        options,
			"correct_answer": answer,
			"points":         points,
			"order_index":    i,
		})
	}

	return rows, nil
}

// CreateTestWithQuestions validates every question, then stores the test and
// its questions. If storing a question fails the test is removed again.
func (s *Service) CreateTestWithQuestions(ctx context.Context, in NewTest, questions []NewQuestion) (*models.Test, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, errors.New("test title is required")
	}

	rows, err := prepareQuestions(questions)
	if err != nil {
		return nil, err
	}

	test, err := one[models.Test](s.db.From(schema.Tests).InsertOne(client.Row{
		"title":              strings.TrimSpace(in.Title),
		"description":        optional(strings.TrimSpace(in.Description)),
		"class_name":         optional(in.ClassName),
		"grade":              in.Grade,
		"time_limit_minutes": in.TimeLimitMinutes,
		"lesson_id":          optional(in.LessonID),
		"instructor_id":      optional(in.InstructorID),
		"question_count":     len(rows),
	}).Single(ctx))
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		r["test_id"] = test.ID
	}

	if res := s.db.From(schema.Questions).Insert(rows...).Execute(ctx); res.Err != nil {
		if cleanup := s.DeleteTest(ctx, test.ID); cleanup != nil {
			s.logger.Warnf("failed to remove incomplete test %s: %v", test.ID, cleanup)
		}

		return nil, fmt.Errorf("failed to store questions: %w", res.Err)
	}

	return test, nil
}

// Questions returns the questions of a test in order.
func (s *Service) Questions(ctx context.Context, testID string) ([]models.Question, error) {
	return many[models.Question](s.db.From(schema.Questions).
		Select().
		Eq("test_id", testID).
		Order("order_index", true).
		Execute(ctx))
}

// DeleteTest removes the questions of a test, then the test.
func (s *Service) DeleteTest(ctx context.Context, id string) error {
	if err := s.db.From(schema.Questions).Delete().Eq("test_id", id).Execute(ctx).Err; err != nil {
		return err
	}

	return s.db.From(schema.Tests).Delete().Eq("id", id).Execute(ctx).Err
}

// SyncQuestionCount sets question_count to the number of stored questions.
func (s *Service) SyncQuestionCount(ctx context.Context, testID string) (int, error) {
	res := s.db.From(schema.Questions).Select("id").Eq("test_id", testID).Execute(ctx)
	if res.Err != nil {
		return 0, res.Err
	}

	n := len(res.Data)

	if err := s.db.From(schema.Tests).Update(client.Row{"question_count": n}).Eq("id", testID).Execute(ctx).Err; err != nil {
		return 0, err
	}

	return n, nil
}

// Score totals the points of correctly answered questions. answers maps
// question id to the chosen option. The percentage is rounded and is zero
// when there are no points to score.
func Score(questions []models.Question, answers map[string]string) (score, maxScore int, percentage float64) {
	for _, q := range questions {
		maxScore += q.Points
		if a, ok := answers[q.ID]; ok && a == q.CorrectAnswer {
			score += q.Points
		}
	}

	if maxScore == 0 {
		return score, maxScore, 0
	}

	return score, maxScore, math.Round(float64(score) / float64(maxScore) * 100)
}

// SubmitResult scores a student's answers and stores the result with a
// snapshot of the student's name, class and grade.
func (s *Service) SubmitResult(ctx context.Context, testID string, student models.Student, answers map[string]string) (*models.TestResult, error) {
	questions, err := s.Questions(ctx, testID)
	if err != nil {
		return nil, err
	}

	score, maxScore, percentage := Score(questions, answers)

	if answers == nil {
		answers = map[string]string{}
	}

	return one[models.TestResult](s.db.From(schema.TestResults).InsertOne(client.Row{
		"test_id":       testID,
		"student_id":    student.ID,
		"student_name":  student.FullName,
		"student_class": student.ClassName,
		"student_grade": student.Grade,
		"score":         score,
		"max_score":     maxScore,
		"percentage":    percentage,
		"answers":       answers,
		"completed_at":  s.timestamp(),
	}).Single(ctx))
}
