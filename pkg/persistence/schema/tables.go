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

package schema

// TableName identifies a table. Known tables are the constants below; any
// other value is an ad-hoc table without declared encodings.
type TableName string

const (
	AdminSettings       TableName = "admin_settings"
	AppSettings         TableName = "app_settings"
	GradeClasses        TableName = "grade_classes"
	Students            TableName = "students"
	Instructors         TableName = "instructors"
	Lessons             TableName = "lessons"
	LessonProgress      TableName = "lesson_progress"
	Tests               TableName = "tests"
	Questions           TableName = "questions"
	TestResults         TableName = "test_results"
	Attendance          TableName = "attendance"
	Homework            TableName = "homework"
	HomeworkSubmissions TableName = "homework_submissions"
)

const (
	generatedID = "(lower(hex(randomblob(16))))"
	now         = "(datetime('now'))"
	today       = "(date('now'))"
)

func id() Column {
	return Column{Name: "id", Type: TypeText, PrimaryKey: true, Default: generatedID}
}

func text(name string) Column {
	return Column{Name: name, Type: TypeText}
}

func requiredText(name string) Column {
	return Column{Name: name, Type: TypeText, NotNull: true}
}

func integer(name string, def string) Column {
	return Column{Name: name, Type: TypeInteger, Default: def}
}

func flag(name string, def bool) Column {
	d := "0"
	if def {
		d = "1"
	}

	return Column{Name: name, Type: TypeInteger, Encoding: BoolInt, Default: d}
}

func jsonText(name string, def string) Column {
	return Column{Name: name, Type: TypeText, Encoding: JSONText, Default: def}
}

func timestamp(name string) Column {
	return Column{Name: name, Type: TypeText, NotNull: true, Default: now}
}

func fk(column string, ref TableName) ForeignKey {
	return ForeignKey{Column: column, RefTable: ref, RefColumn: "id"}
}

// InstructorPermission is one of the permission flag columns of instructors
// together with its default.
type InstructorPermission struct {
	Column  string
	Default bool
}

// InstructorPermissions is the default permission preset, in column order.
var InstructorPermissions = []InstructorPermission{
	{"can_view_statistics", true},
	{"can_add_lessons", true},
	{"can_add_tests", true},
	{"can_edit_grades", false},
	{"can_view_all_students", true},
	{"can_export_reports", false},
	{"can_manage_own_students", true},
	{"can_compare_with_others", false},
	{"can_send_notifications", false},
	{"can_create_homework", true},
	{"can_grade_homework", true},
	{"can_view_attendance", true},
	{"can_manage_attendance", false},
}

func instructorColumns() []Column {
	cols := []Column{
		id(),
		requiredText("full_name"),
		{Name: "login", Type: TypeText, NotNull: true, Unique: true},
		requiredText("password_hash"),
		requiredText("subject"),
		flag("is_active", true),
		jsonText("assigned_classes", "'[]'"),
		jsonText("assigned_grades", "'[]'"),
	}

	for _, p := range InstructorPermissions {
		cols = append(cols, flag(p.Column, p.Default))
	}

	return append(cols, timestamp("created_at"), timestamp("updated_at"))
}

var tables = []*Table{
	{
		Name: AdminSettings,
		Columns: []Column{
			id(),
			{Name: "pin_hash", Type: TypeText, NotNull: true, Default: "'1234'"},
			timestamp("created_at"),
		},
	},
	{
		Name: AppSettings,
		Columns: []Column{
			id(),
			{Name: "app_name", Type: TypeText, NotNull: true, Default: "'HTApp'"},
			{Name: "app_description", Type: TypeText, Default: "'O''quv platformasi'"},
			{Name: "app_mission", Type: TypeText, Default: "'Zamonaviy ta''lim tizimi'"},
			text("app_logo_url"),
			text("login_bg_image_url"),
			{Name: "login_bg_overlay_opacity", Type: TypeReal, Default: "0.7"},
			jsonText("available_classes", "'[]'"),
			jsonText("available_grades", "'[1,2,3,4,5,6,7,8,9,10,11]'"),
			integer("sidebar_font_size", "14"),
			integer("body_font_size", "16"),
			integer("heading_font_size", "32"),
			timestamp("created_at"),
			timestamp("updated_at"),
		},
	},
	{
		Name: GradeClasses,
		Columns: []Column{
			id(),
			requiredText("name"),
			integer("display_order", "0"),
			flag("is_active", true),
			timestamp("created_at"),
		},
	},
	{
		Name: Students,
		Columns: []Column{
			id(),
			requiredText("full_name"),
			text("class_name"),
			integer("grade", "1"),
			timestamp("created_at"),
			{Name: "last_active_at", Type: TypeText, Default: now},
		},
	},
	{
		Name:    Instructors,
		Columns: instructorColumns(),
	},
	{
		Name: Lessons,
		Columns: []Column{
			id(),
			requiredText("title"),
			requiredText("content"),
			text("class_name"),
			integer("grade", ""),
			integer("order_index", "0"),
			jsonText("attachments", "'[]'"),
			text("instructor_id"),
			timestamp("created_at"),
			timestamp("updated_at"),
		},
		ForeignKeys: []ForeignKey{fk("instructor_id", Instructors)},
	},
	{
		Name: LessonProgress,
		Columns: []Column{
			id(),
			requiredText("student_id"),
			requiredText("lesson_id"),
			flag("completed", false),
			text("completed_at"),
			timestamp("created_at"),
		},
		ForeignKeys:    []ForeignKey{fk("student_id", Students), fk("lesson_id", Lessons)},
		UniqueTogether: [][]string{{"student_id", "lesson_id"}},
	},
	{
		Name: Tests,
		Columns: []Column{
			id(),
			requiredText("title"),
			text("description"),
			text("class_name"),
			integer("grade", ""),
			integer("time_limit_minutes", ""),
			flag("is_active", true),
			integer("question_count", "0"),
			text("lesson_id"),
			text("instructor_id"),
			timestamp("created_at"),
		},
		ForeignKeys: []ForeignKey{fk("lesson_id", Lessons), fk("instructor_id", Instructors)},
	},
	{
		Name: Questions,
		Columns: []Column{
			id(),
			requiredText("test_id"),
			requiredText("question_text"),
			{Name: "options", Type: TypeText, Encoding: JSONText, NotNull: true},
			requiredText("correct_answer"),
			integer("points", "1"),
			integer("order_index", "0"),
		},
		ForeignKeys: []ForeignKey{{Column: "test_id", RefTable: Tests, RefColumn: "id", OnDelete: "CASCADE"}},
	},
	{
		Name: TestResults,
		Columns: []Column{
			id(),
			requiredText("test_id"),
			requiredText("student_id"),
			text("student_name"),
			text("student_class"),
			integer("student_grade", ""),
			integer("score", "0"),
			integer("max_score", "0"),
			{Name: "percentage", Type: TypeReal, Default: "0"},
			jsonText("answers", "'{}'"),
			timestamp("started_at"),
			text("completed_at"),
		},
		ForeignKeys: []ForeignKey{fk("test_id", Tests), fk("student_id", Students)},
	},
	{
		Name: Attendance,
		Columns: []Column{
			id(),
			requiredText("student_id"),
			requiredText("instructor_id"),
			{Name: "date", Type: TypeText, NotNull: true, Default: today},
			requiredText("status"),
			text("notes"),
			timestamp("created_at"),
		},
		ForeignKeys: []ForeignKey{fk("student_id", Students), fk("instructor_id", Instructors)},
	},
	{
		Name: Homework,
		Columns: []Column{
			id(),
			requiredText("title"),
			text("description"),
			text("class_name"),
			{Name: "grade", Type: TypeInteger, NotNull: true},
			text("due_date"),
			flag("is_active", true),
			requiredText("instructor_id"),
			timestamp("created_at"),
		},
		ForeignKeys: []ForeignKey{fk("instructor_id", Instructors)},
	},
	{
		Name: HomeworkSubmissions,
		Columns: []Column{
			id(),
			requiredText("homework_id"),
			requiredText("student_id"),
			text("submission_text"),
			integer("grade", ""),
			text("feedback"),
			text("graded_by"),
			text("graded_at"),
			timestamp("submitted_at"),
		},
		ForeignKeys: []ForeignKey{fk("homework_id", Homework), fk("student_id", Students), fk("graded_by", Instructors)},
	},
}

var registry = func() map[TableName]*Table {
	m := make(map[TableName]*Table, len(tables))
	for _, t := range tables {
		m[t.Name] = t
	}

	return m
}()

// Lookup returns the definition of a known table.
func Lookup(name TableName) (*Table, bool) {
	t, ok := registry[name]

	return t, ok
}

// All returns every known table in creation order.
func All() []*Table {
	out := make([]*Table, len(tables))
	copy(out, tables)

	return out
}
