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

package client_test

import (
	"context"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/htapp/pkg/client"
	"github.com/united-manufacturing-hub/htapp/pkg/gateway"
	"github.com/united-manufacturing-hub/htapp/pkg/ipc"
	"github.com/united-manufacturing-hub/htapp/pkg/models"
	"github.com/united-manufacturing-hub/htapp/pkg/persistence/schema"
)

func TestClient(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Client Suite")
}

// host is a gateway served over the in-process transport.
type host struct {
	svc    *gateway.Service
	cancel context.CancelFunc
	served chan error
	db     *client.DB
}

func startHost() *host {
	dir := GinkgoT().TempDir()

	svc, err := gateway.Open(context.Background(), gateway.Options{
		DatabasePath: filepath.Join(dir, "htapp.db"),
		StoragePath:  filepath.Join(dir, "storage"),
	})
	Expect(err).NotTo(HaveOccurred())

	ctx, cancel := context.WithCancel(context.Background())
	server := ipc.NewServer(svc, 4)
	served := make(chan error, 1)

	go func() { served <- server.Serve(ctx) }()

	db, err := client.New(server.Transport())
	Expect(err).NotTo(HaveOccurred())

	return &host{svc: svc, cancel: cancel, served: served, db: db}
}

func (h *host) stop() {
	h.cancel()
	Eventually(h.served).Should(Receive(BeNil()))
	Expect(h.svc.Close()).To(Succeed())
}

var _ = Describe("New", func() {
	It("fails fast without a host", func() {
		_, err := client.New(nil)
		Expect(err).To(MatchError(client.ErrOfflineOnly))
	})
})

var _ = Describe("QueryBuilder", func() {
	var (
		ctx context.Context
		h   *host
		db  *client.DB
	)

	BeforeEach(func() {
		ctx = context.Background()
		h = startHost()
		db = h.db
	})

	AfterEach(func() {
		h.stop()
	})

	insertStudents := func(rows ...client.Row) []client.Row {
		res := db.From(schema.Students).Insert(rows...).Execute(ctx)
		Expect(res.Err).NotTo(HaveOccurred())

		return res.Data
	}

	Describe("select", func() {
		BeforeEach(func() {
			insertStudents(
				client.Row{"id": "s1", "full_name": "Aziza Karimova", "class_name": "5-A", "grade": 5},
				client.Row{"id": "s2", "full_name": "Bekzod Aliyev", "class_name": "5-B", "grade": 5},
				client.Row{"id": "s3", "full_name": "Dilnoza Rahimova", "class_name": "7-A", "grade": 7},
			)
		})

		It("returns every row and column by default", func() {
			res := db.From(schema.Students).Select().Execute(ctx)
			Expect(res.Err).NotTo(HaveOccurred())
			Expect(res.Data).To(HaveLen(3))
			Expect(res.Data[0]).To(HaveKey("last_active_at"))
		})

		It("projects, filters, orders and limits", func() {
			res := db.From(schema.Students).
				Select("id, full_name").
				Eq("grade", 5).
				Order("full_name", false).
				Limit(1).
				Execute(ctx)
			Expect(res.Err).NotTo(HaveOccurred())
			Expect(res.Data).To(Equal([]client.Row{{"id": "s2", "full_name": "Bekzod Aliyev"}}))
		})

		DescribeTable("compiles each operator",
			func(build func(*client.QueryBuilder) *client.QueryBuilder, ids []string) {
				res := build(db.From(schema.Students).Select("id").Order("id", true)).Execute(ctx)
				Expect(res.Err).NotTo(HaveOccurred())

				got := make([]string, 0, len(res.Data))
				for _, r := range res.Data {
					got = append(got, r["id"].(string))
				}
				Expect(got).To(Equal(ids))
			},
			Entry("neq", func(b *client.QueryBuilder) *client.QueryBuilder { return b.Neq("grade", 5) }, []string{"s3"}),
			Entry("gt", func(b *client.QueryBuilder) *client.QueryBuilder { return b.Gt("grade", 5) }, []string{"s3"}),
			Entry("gte", func(b *client.QueryBuilder) *client.QueryBuilder { return b.Gte("grade", 5) }, []string{"s1", "s2", "s3"}),
			Entry("lt", func(b *client.QueryBuilder) *client.QueryBuilder { return b.Lt("grade", 7) }, []string{"s1", "s2"}),
			Entry("lte", func(b *client.QueryBuilder) *client.QueryBuilder { return b.Lte("grade", 4) }, []string{}),
			Entry("like", func(b *client.QueryBuilder) *client.QueryBuilder { return b.Like("class_name", "5-%") }, []string{"s1", "s2"}),
			Entry("ilike", func(b *client.QueryBuilder) *client.QueryBuilder { return b.ILike("full_name", "%RAHIM%") }, []string{"s3"}),
			Entry("in", func(b *client.QueryBuilder) *client.QueryBuilder { return b.In("id", []string{"s1", "s3"}) }, []string{"s1", "s3"}),
			Entry("empty in", func(b *client.QueryBuilder) *client.QueryBuilder { return b.In("id", []string{}) }, []string{}),
		)

		It("distinguishes single from maybeSingle", func() {
			res := db.From(schema.Students).Select().Eq("id", "nobody").Single(ctx)
			Expect(res.Err).To(MatchError("No rows found"))
			Expect(res.Data).To(BeNil())

			maybe := db.From(schema.Students).Select().Eq("id", "nobody").MaybeSingle(ctx)
			Expect(maybe.Err).NotTo(HaveOccurred())
			Expect(maybe.Data).To(BeNil())

			one := db.From(schema.Students).Select().Eq("id", "s1").Single(ctx)
			Expect(one.Err).NotTo(HaveOccurred())
			Expect(one.Data["full_name"]).To(Equal("Aziza Karimova"))
		})

		It("reports unknown columns as errors", func() {
			res := db.From(schema.Students).Select("nickname").Execute(ctx)
			Expect(res.Err).To(MatchError(ContainSubstring("no such column")))
		})

		It("rejects injected identifiers before sending", func() {
			res := db.From(schema.Students).Select().Eq("id = id OR 1", 1).Execute(ctx)
			Expect(res.Err).To(HaveOccurred())
		})
	})

	Describe("insert", func() {
		It("assigns distinct ids to rows without one", func() {
			rows := insertStudents(client.Row{"full_name": "A"}, client.Row{"full_name": "B"})
			Expect(rows).To(HaveLen(2))
			Expect(rows[0]["id"]).NotTo(Equal(rows[1]["id"]))
		})

		It("keeps rows stored before a failing row", func() {
			res := db.From(schema.Students).Insert(
				client.Row{"id": "ok", "full_name": "First"},
				client.Row{"id": "bad"},
				client.Row{"id": "never", "full_name": "Third"},
			).Execute(ctx)
			Expect(res.Err).To(MatchError(ContainSubstring("NOT NULL")))
			Expect(res.Data).To(HaveLen(1))

			all := db.From(schema.Students).Select("id").Execute(ctx)
			Expect(all.Data).To(Equal([]client.Row{{"id": "ok"}}))
		})

		It("does not see later changes to the caller's map", func() {
			row := client.Row{"id": "copy", "full_name": "Before"}
			b := db.From(schema.Students).InsertOne(row)
			row["full_name"] = "After"

			res := b.Execute(ctx)
			Expect(res.Err).NotTo(HaveOccurred())
			Expect(res.Data[0]["full_name"]).To(Equal("Before"))
		})

		It("round-trips booleans and JSON columns", func() {
			res := db.From(schema.Lessons).InsertOne(client.Row{
				"id":          "l1",
				"title":       "Kasrlar",
				"content":     "...",
				"grade":       5,
				"attachments": []models.Attachment{{Name: "a.pdf", URL: "local-file://lesson-attachments/a.pdf"}},
			}).Execute(ctx)
			Expect(res.Err).NotTo(HaveOccurred())
			Expect(res.Data[0]["attachments"]).To(Equal([]any{
				map[string]any{"name": "a.pdf", "url": "local-file://lesson-attachments/a.pdf"},
			}))

			lesson, err := client.DecodeOne[models.Lesson](res.Data[0])
			Expect(err).NotTo(HaveOccurred())
			Expect(lesson.Attachments).To(HaveLen(1))
			Expect(*lesson.Grade).To(Equal(5))

			progress := db.From(schema.LessonProgress).InsertOne(client.Row{
				"student_id": "s1", "lesson_id": "l1", "completed": true,
			}).Execute(ctx)
			Expect(progress.Err).NotTo(HaveOccurred())
			Expect(progress.Data[0]["completed"]).To(BeTrue())
		})

		It("matches JSON array columns with contains", func() {
			res := db.From(schema.Instructors).Insert(
				client.Row{"id": "i1", "full_name": "A", "login": "a", "password_hash": "x", "subject": "Math", "assigned_grades": []int{5, 6}},
				client.Row{"id": "i2", "full_name": "B", "login": "b", "password_hash": "x", "subject": "Art", "assigned_grades": []int{7}},
			).Execute(ctx)
			Expect(res.Err).NotTo(HaveOccurred())

			found := db.From(schema.Instructors).Select("id").Contains("assigned_grades", []int{7}).Execute(ctx)
			Expect(found.Err).NotTo(HaveOccurred())
			Expect(found.Data).To(Equal([]client.Row{{"id": "i2"}}))

			instructors, err := client.Decode[models.Instructor](db.From(schema.Instructors).Select().Order("id", true).Execute(ctx).Data)
			Expect(err).NotTo(HaveOccurred())
			Expect(instructors[0].AssignedGrades).To(Equal([]int{5, 6}))
			Expect(instructors[0].IsActive).To(BeTrue())
			Expect(instructors[0].CanAddLessons).To(BeTrue())
			Expect(instructors[0].CanEditGrades).To(BeFalse())
		})

		It("requires at least one row", func() {
			Expect(db.From(schema.Students).Insert().Execute(ctx).Err).To(HaveOccurred())
		})

		It("keeps the write when Select follows Insert", func() {
			res := db.From(schema.Students).
				InsertOne(client.Row{"id": "s9", "full_name": "Nodira", "grade": 4}).
				Select("id, full_name").
				Single(ctx)
			Expect(res.Err).NotTo(HaveOccurred())
			Expect(res.Data).To(Equal(client.Row{"id": "s9", "full_name": "Nodira"}))

			stored := db.From(schema.Students).Select("grade").Eq("id", "s9").Single(ctx)
			Expect(stored.Err).NotTo(HaveOccurred())
			Expect(stored.Data["grade"]).To(Equal(int64(4)))
		})
	})

	Describe("update and delete", func() {
		BeforeEach(func() {
			insertStudents(
				client.Row{"id": "a", "full_name": "A", "grade": 3},
				client.Row{"id": "b", "full_name": "B", "grade": 3},
			)
		})

		It("updates by eq filters and returns the updated row", func() {
			res := db.From(schema.Students).Update(client.Row{"class_name": "3-A"}).Eq("id", "a").Execute(ctx)
			Expect(res.Err).NotTo(HaveOccurred())
			Expect(res.Data).To(HaveLen(1))
			Expect(res.Data[0]["class_name"]).To(Equal("3-A"))
		})

		It("refuses non-eq filters and empty conditions", func() {
			res := db.From(schema.Students).Update(client.Row{"grade": 4}).Gt("grade", 1).Execute(ctx)
			Expect(res.Err).To(MatchError(ContainSubstring("only Eq")))

			res = db.From(schema.Students).Delete().Execute(ctx)
			Expect(res.Err).To(MatchError(ContainSubstring("at least one Eq")))

			left := db.From(schema.Students).Select().Execute(ctx)
			Expect(left.Data).To(HaveLen(2))
		})

		It("keeps the write when Select follows Update", func() {
			res := db.From(schema.Students).Update(client.Row{"grade": 5}).Eq("id", "a").Select("grade").Single(ctx)
			Expect(res.Err).NotTo(HaveOccurred())
			Expect(res.Data).To(Equal(client.Row{"grade": int64(5)}))

			stored := db.From(schema.Students).Select("grade").Eq("id", "a").Single(ctx)
			Expect(stored.Data["grade"]).To(Equal(int64(5)))
		})

		It("deletes matching rows", func() {
			res := db.From(schema.Students).Delete().Eq("id", "b").Execute(ctx)
			Expect(res.Err).NotTo(HaveOccurred())
			Expect(res.Data).To(BeEmpty())

			left := db.From(schema.Students).Select("id").Execute(ctx)
			Expect(left.Data).To(Equal([]client.Row{{"id": "a"}}))
		})
	})

	It("runs raw statements", func() {
		res := db.Raw(ctx, "SELECT COUNT(*) AS n FROM grade_classes WHERE is_active = ?", true)
		Expect(res.Err).NotTo(HaveOccurred())
		Expect(res.Data[0]["n"]).To(Equal(int64(11)))
	})

	It("reports changed rows of executed statements", func() {
		res := db.Exec(ctx, "UPDATE grade_classes SET is_active = ? WHERE display_order > ?", false, 9)
		Expect(res.Err).NotTo(HaveOccurred())
		Expect(res.Data.Changes).To(Equal(int64(2)))

		raw := db.Raw(ctx, "UPDATE grade_classes SET is_active = 1")
		Expect(raw.Err).NotTo(HaveOccurred())
		Expect(raw.Data).To(BeEmpty())

		Expect(db.Exec(ctx, "SELECT 1").Err).To(MatchError(ContainSubstring("use Raw")))
	})
})

var _ = Describe("Storage", func() {
	var (
		ctx     context.Context
		h       *host
		storage *client.Storage
	)

	BeforeEach(func() {
		ctx = context.Background()
		h = startHost()
		storage = h.db.Storage()
	})

	AfterEach(func() {
		h.stop()
	})

	It("uploads, resolves, reads and deletes by logical URL", func() {
		up, err := storage.Upload(ctx, "lesson-attachments", "notes.txt", []byte("salom"), "")
		Expect(err).NotTo(HaveOccurred())
		Expect(up.URL).To(Equal(up.Path))
		Expect(up.URL).To(HavePrefix("local-file://lesson-attachments/"))

		content, err := storage.Read(ctx, "ignored", up.URL)
		Expect(err).NotTo(HaveOccurred())
		Expect(content).NotTo(BeNil())
		Expect(content.Size).To(Equal(5))

		resolved := storage.ResolveURL(ctx, up.URL)
		Expect(resolved).To(HavePrefix("file://"))
		Expect(storage.ResolveURL(ctx, resolved)).To(Equal(resolved))
		Expect(storage.ResolveURL(ctx, "https://example.com/a.png")).To(Equal("https://example.com/a.png"))

		Expect(storage.DeleteURL(ctx, up.URL)).To(Succeed())

		content, err = storage.Read(ctx, "lesson-attachments", up.FileName)
		Expect(err).NotTo(HaveOccurred())
		Expect(content).To(BeNil())

		u, err := storage.URL(ctx, "lesson-attachments", up.FileName)
		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(BeEmpty())
		Expect(storage.ResolveURL(ctx, up.URL)).To(Equal(up.URL))
	})

	It("strips data URL prefixes", func() {
		up, err := storage.UploadBase64(ctx, "images", "dot.png", "data:image/png;base64,aGk=", "image/png")
		Expect(err).NotTo(HaveOccurred())

		files, err := storage.List(ctx, "app-assets")
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(HaveLen(1))
		Expect(files[0].Name).To(Equal(up.FileName))
		Expect(files[0].Size).To(Equal(int64(2)))
	})

	It("lists an unknown bucket as empty and refuses foreign URLs on delete", func() {
		files, err := storage.List(ctx, "videos")
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(BeEmpty())

		Expect(storage.DeleteURL(ctx, "https://example.com/a.png")).To(MatchError(client.ErrInvalidURL))
	})

	It("reports storage info", func() {
		info, err := storage.Info(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.ImagesPath).To(HaveSuffix("images"))
	})
})
