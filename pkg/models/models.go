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

// Package models holds typed views of the stored rows. Timestamps stay in
// their stored ISO-8601 text form.
package models

// Attachment is one entry of a lesson's attachment list.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
	Size int64  `json:"size,omitempty"`
}

type AdminSettings struct {
	ID        string `json:"id"`
	PinHash   string `json:"pin_hash"`
	CreatedAt string `json:"created_at"`
}

type AppSettings struct {
	ID                    string   `json:"id"`
	AppName               string   `json:"app_name"`
	AppDescription        *string  `json:"app_description"`
	AppMission            *string  `json:"app_mission"`
	AppLogoURL            *string  `json:"app_logo_url"`
	LoginBgImageURL       *string  `json:"login_bg_image_url"`
	LoginBgOverlayOpacity float64  `json:"login_bg_overlay_opacity"`
	AvailableClasses      []string `json:"available_classes"`
	AvailableGrades       []int    `json:"available_grades"`
	SidebarFontSize       int      `json:"sidebar_font_size"`
	BodyFontSize          int      `json:"body_font_size"`
	HeadingFontSize       int      `json:"heading_font_size"`
	CreatedAt             string   `json:"created_at"`
	UpdatedAt             string   `json:"updated_at"`
}

type GradeClass struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DisplayOrder int    `json:"display_order"`
	IsActive     bool   `json:"is_active"`
	CreatedAt    string `json:"created_at"`
}

type Student struct {
	ID           string  `json:"id"`
	FullName     string  `json:"full_name"`
	ClassName    *string `json:"class_name"`
	Grade        int     `json:"grade"`
	CreatedAt    string  `json:"created_at"`
	LastActiveAt *string `json:"last_active_at"`
}

// Permissions are the instructor capability flags.
type Permissions struct {
	CanViewStatistics    bool `json:"can_view_statistics"`
	CanAddLessons        bool `json:"can_add_lessons"`
	CanAddTests          bool `json:"can_add_tests"`
	CanEditGrades        bool `json:"can_edit_grades"`
	CanViewAllStudents   bool `json:"can_view_all_students"`
	CanExportReports     bool `json:"can_export_reports"`
	CanManageOwnStudents bool `json:"can_manage_own_students"`
	CanCompareWithOthers bool `json:"can_compare_with_others"`
	CanSendNotifications bool `json:"can_send_notifications"`
	CanCreateHomework    bool `json:"can_create_homework"`
	CanGradeHomework     bool `json:"can_grade_homework"`
	CanViewAttendance    bool `json:"can_view_attendance"`
	CanManageAttendance  bool `json:"can_manage_attendance"`
}

type Instructor struct {
	ID              string   `json:"id"`
	FullName        string   `json:"full_name"`
	Login           string   `json:"login"`
	PasswordHash    string   `json:"password_hash"`
	Subject         string   `json:"subject"`
	IsActive        bool     `json:"is_active"`
	AssignedClasses []string `json:"assigned_classes"`
	AssignedGrades  []int    `json:"assigned_grades"`
	Permissions
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type Lesson struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Content      string       `json:"content"`
	ClassName    *string      `json:"class_name"`
	Grade        *int         `json:"grade"`
	OrderIndex   int          `json:"order_index"`
	Attachments  []Attachment `json:"attachments"`
	InstructorID *string      `json:"instructor_id"`
	CreatedAt    string       `json:"created_at"`
	UpdatedAt    string       `json:"updated_at"`
}

type LessonProgress struct {
	ID          string  `json:"id"`
	StudentID   string  `json:"student_id"`
	LessonID    string  `json:"lesson_id"`
	Completed   bool    `json:"completed"`
	CompletedAt *string `json:"completed_at"`
	CreatedAt   string  `json:"created_at"`
}

type Test struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Description      *string `json:"description"`
	ClassName        *string `json:"class_name"`
	Grade            *int    `json:"grade"`
	TimeLimitMinutes *int    `json:"time_limit_minutes"`
	IsActive         bool    `json:"is_active"`
	QuestionCount    int     `json:"question_count"`
	LessonID         *string `json:"lesson_id"`
	InstructorID     *string `json:"instructor_id"`
	CreatedAt        string  `json:"created_at"`
}

type Question struct {
	ID            string   `json:"id"`
	TestID        string   `json:"test_id"`
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Points        int      `json:"points"`
	OrderIndex    int      `json:"order_index"`
}

type TestResult struct {
	ID           string            `json:"id"`
	TestID       string            `json:"test_id"`
	StudentID    string            `json:"student_id"`
	StudentName  *string           `json:"student_name"`
	StudentClass *string           `json:"student_class"`
	StudentGrade *int              `json:"student_grade"`
	Score        int               `json:"score"`
	MaxScore     int               `json:"max_score"`
	Percentage   float64           `json:"percentage"`
	Answers      map[string]string `json:"answers"`
	StartedAt    string            `json:"started_at"`
	CompletedAt  *string           `json:"completed_at"`
}

// AttendanceStatus is the recorded presence of a student on a day.
type AttendanceStatus string

const (
	Present AttendanceStatus = "present"
	Absent  AttendanceStatus = "absent"
	Late    AttendanceStatus = "late"
	Excused AttendanceStatus = "excused"
)

// Valid reports whether s is one of the four known statuses.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case Present, Absent, Late, Excused:
		return true
	}

	return false
}

type Attendance struct {
	ID           string           `json:"id"`
	StudentID    string           `json:"student_id"`
	InstructorID string           `json:"instructor_id"`
	Date         string           `json:"date"`
	Status       AttendanceStatus `json:"status"`
	Notes        *string          `json:"notes"`
	CreatedAt    string           `json:"created_at"`
}

type Homework struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  *string `json:"description"`
	ClassName    *string `json:"class_name"`
	Grade        int     `json:"grade"`
	DueDate      *string `json:"due_date"`
	IsActive     bool    `json:"is_active"`
	InstructorID string  `json:"instructor_id"`
	CreatedAt    string  `json:"created_at"`
}

type HomeworkSubmission struct {
	ID             string  `json:"id"`
	HomeworkID     string  `json:"homework_id"`
	StudentID      string  `json:"student_id"`
	SubmissionText *string `json:"submission_text"`
	Grade          *int    `json:"grade"`
	Feedback       *string `json:"feedback"`
	GradedBy       *string `json:"graded_by"`
	GradedAt       *string `json:"graded_at"`
	SubmittedAt    string  `json:"submitted_at"`
}
