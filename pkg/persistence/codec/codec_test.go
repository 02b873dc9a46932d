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

package codec_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/htapp/pkg/persistence/basic"
	"github.com/united-manufacturing-hub/htapp/pkg/persistence/codec"
	"github.com/united-manufacturing-hub/htapp/pkg/persistence/schema"
)

func TestCodec(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Codec Suite")
}

type attachment struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

type status string

var _ = Describe("EncodeValue", func() {
	DescribeTable("converts values for binding",
		func(in any, expected any) {
			out, err := codec.EncodeValue(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(expected))
		},
		Entry("nil", nil, nil),
		Entry("true", true, int64(1)),
		Entry("false", false, int64(0)),
		Entry("time", time.Date(2025, 3, 4, 5, 6, 7, 8_000_000, time.FixedZone("UZT", 5*3600)), "2025-03-04T00:06:07.008Z"),
		Entry("string slice", []string{"5-sinf", "6-sinf"}, `["5-sinf","6-sinf"]`),
		Entry("nil slice", []string(nil), "[]"),
		Entry("map", map[string]any{"q1": "A"}, `{"q1":"A"}`),
		Entry("struct", attachment{Name: "a.pdf", Size: 3}, `{"name":"a.pdf","size":3}`),
		Entry("bytes", []byte("raw"), []byte("raw")),
		Entry("int", 42, 42),
		Entry("float", 0.7, 0.7),
		Entry("named string", status("present"), "present"),
		Entry("nil pointer", (*attachment)(nil), nil),
	)

	It("encodes maps without touching the input", func() {
		in := map[string]any{"is_active": true, "tags": []string{"x"}}
		out, err := codec.EncodeMap(in)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(map[string]any{"is_active": int64(1), "tags": `["x"]`}))
		Expect(in["is_active"]).To(BeTrue())
	})

	It("encodes positional params including list elements", func() {
		out, err := codec.EncodeParams([]any{true, "a", []int{1}})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal([]any{int64(1), "a", "[1]"}))
	})
})

var _ = Describe("DecodeRow", func() {
	lessons, _ := schema.Lookup(schema.Lessons)

	It("parses declared JSON columns", func() {
		row := codec.DecodeRow(lessons, basic.Row{"attachments": `[{"name":"a.pdf","size":3}]`, "title": `["not json column"]`})
		Expect(row["attachments"]).To(Equal([]any{map[string]any{"name": "a.pdf", "size": int64(3)}}))
		Expect(row["title"]).To(Equal(`["not json column"]`))
	})

	It("leaves unparsable JSON as the raw string", func() {
		row := codec.DecodeRow(lessons, basic.Row{"attachments": `[{broken`})
		Expect(row["attachments"]).To(Equal(`[{broken`))
	})

	DescribeTable("coerces boolean-like columns",
		func(column string, raw any, expected any) {
			row := codec.DecodeRow(nil, basic.Row{column: raw})
			Expect(row[column]).To(Equal(expected))
		},
		Entry("completed", "completed", int64(1), true),
		Entry("is_ prefix", "is_active", int64(0), false),
		Entry("can_ prefix", "can_add_tests", int64(1), true),
		Entry("_enabled suffix", "sound_enabled", int64(0), false),
		Entry("out of range stays", "is_active", int64(2), int64(2)),
		Entry("other names stay", "score", int64(1), int64(1)),
		Entry("text stays", "is_active", "1", "1"),
	)

	It("does not mutate the input row", func() {
		in := basic.Row{"is_active": int64(1)}
		_ = codec.DecodeRow(nil, in)
		Expect(in["is_active"]).To(Equal(int64(1)))
	})

	It("returns nil for a nil row", func() {
		Expect(codec.DecodeRow(lessons, nil)).To(BeNil())
	})
})

var _ = Describe("Round trip through the store", func() {
	var (
		ctx   context.Context
		store basic.Store
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		store, err = basic.NewSQLiteStore(filepath.Join(GinkgoT().TempDir(), "rt.db"))
		Expect(err).NotTo(HaveOccurred())
		Expect(schema.Bootstrap(ctx, store)).To(Succeed())
	})

	AfterEach(func() {
		_ = store.Close()
	})

	DescribeTable("JSON columns read back deep-equal",
		func(value any, expected any) {
			encoded, err := codec.EncodeValue(value)
			Expect(err).NotTo(HaveOccurred())

			_, err = store.Exec(ctx, `INSERT INTO questions (id, test_id, question_text, options, correct_answer) VALUES ('q', 't', 'x', ?, 'a')`, encoded)
			Expect(err).NotTo(HaveOccurred())

			questions, _ := schema.Lookup(schema.Questions)
			row, err := store.QueryRow(ctx, `SELECT options FROM questions WHERE id = 'q'`)
			Expect(err).NotTo(HaveOccurred())
			Expect(codec.DecodeRow(questions, row)["options"]).To(Equal(expected))
		},
		Entry("string list", []string{"a", "b"}, []any{"a", "b"}),
		Entry("empty list", []any{}, []any{}),
		Entry("nested object", map[string]any{"k": []any{int64(1), 2.5, nil, true}}, map[string]any{"k": []any{int64(1), 2.5, nil, true}}),
		Entry("unicode", []string{"O'zbek", "ҳа"}, []any{"O'zbek", "ҳа"}),
	)

	It("reads booleans back as booleans", func() {
		encoded, err := codec.EncodeValue(true)
		Expect(err).NotTo(HaveOccurred())

		_, err = store.Exec(ctx, `INSERT INTO lesson_progress (student_id, lesson_id, completed) VALUES ('s', 'l', ?)`, encoded)
		Expect(err).NotTo(HaveOccurred())

		progress, _ := schema.Lookup(schema.LessonProgress)
		row, err := store.QueryRow(ctx, `SELECT completed FROM lesson_progress`)
		Expect(err).NotTo(HaveOccurred())
		Expect(codec.DecodeRow(progress, row)["completed"]).To(BeTrue())
	})
})
