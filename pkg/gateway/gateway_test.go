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

package gateway_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/htapp/pkg/filestore"
	"github.com/united-manufacturing-hub/htapp/pkg/gateway"
	"github.com/united-manufacturing-hub/htapp/pkg/ipc"
	"github.com/united-manufacturing-hub/htapp/pkg/persistence/basic"
	"github.com/united-manufacturing-hub/htapp/pkg/safejson"
)

func TestGateway(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Gateway Suite")
}

func openGateway(dir string) *gateway.Service {
	svc, err := gateway.Open(context.Background(), gateway.Options{
		DatabasePath: filepath.Join(dir, "htapp.db"),
		StoragePath:  filepath.Join(dir, "storage"),
	})
	Expect(err).NotTo(HaveOccurred())

	return svc
}

func rows(res gateway.Result) []basic.Row {
	Expect(res.Error).To(BeNil())
	Expect(res.Data).To(BeAssignableToTypeOf([]basic.Row{}))

	return res.Data.([]basic.Row)
}

func row(res gateway.Result) basic.Row {
	Expect(res.Error).To(BeNil())
	Expect(res.Data).To(BeAssignableToTypeOf(basic.Row{}))

	return res.Data.(basic.Row)
}

var _ = Describe("Service", func() {
	var (
		ctx context.Context
		dir string
		svc *gateway.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		svc = openGateway(dir)
	})

	AfterEach(func() {
		Expect(svc.Close()).To(Succeed())
	})

	Describe("lifecycle", func() {
		It("serves after a successful open", func() {
			Expect(svc.State()).To(Equal(gateway.StateServing))
		})

		It("rejects requests once closed and tolerates a second close", func() {
			Expect(svc.Close()).To(Succeed())
			Expect(svc.State()).To(Equal(gateway.StateClosed))

			res := svc.Query(ctx, "SELECT 1", nil)
			Expect(res.Failed()).To(BeTrue())
			Expect(*res.Error).To(ContainSubstring("not serving"))
		})

		It("bootstraps idempotently across reopen", func() {
			Expect(svc.Close()).To(Succeed())
			svc = openGateway(dir)

			got := rows(svc.Query(ctx, "SELECT COUNT(*) AS n FROM grade_classes", nil))
			Expect(got[0]["n"]).To(Equal(int64(11)))

			got = rows(svc.Query(ctx, "SELECT COUNT(*) AS n FROM app_settings", nil))
			Expect(got[0]["n"]).To(Equal(int64(1)))
		})

		It("fails to open when the storage root is a file", func() {
			blocker := filepath.Join(dir, "blocked")
			Expect(svc.Files()).NotTo(BeNil())
			Expect(writeFile(blocker)).To(Succeed())

			_, err := gateway.Open(ctx, gateway.Options{
				DatabasePath: filepath.Join(dir, "other.db"),
				StoragePath:  blocker,
			})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("query and get", func() {
		It("returns rows for SELECT and a change summary otherwise", func() {
			res := svc.Query(ctx, "INSERT INTO students (id, full_name, grade) VALUES (?, ?, ?)", []any{"s1", "Ali", 5})
			Expect(res.Error).To(BeNil())
			Expect(res.Data).To(Equal(basic.ExecResult{Changes: 1, LastInsertRowID: 1}))

			got := rows(svc.Query(ctx, "  select full_name, grade from students where id = ?", []any{"s1"}))
			Expect(got).To(HaveLen(1))
			Expect(got[0]["full_name"]).To(Equal("Ali"))
			Expect(got[0]["grade"]).To(Equal(int64(5)))
		})

		It("returns an empty list when nothing matches", func() {
			got := rows(svc.Query(ctx, "SELECT * FROM students", nil))
			Expect(got).To(BeEmpty())
		})

		It("returns nil data from get when no row matches", func() {
			res := svc.Get(ctx, "SELECT * FROM students WHERE id = ?", []any{"missing"})
			Expect(res.Error).To(BeNil())
			Expect(res.Data).To(BeNil())
		})

		It("reports statement errors without panicking", func() {
			res := svc.Query(ctx, "SELECT * FROM nowhere", nil)
			Expect(res.Failed()).To(BeTrue())
			Expect(*res.Error).To(ContainSubstring("no such table"))
		})
	})

	Describe("insert", func() {
		It("generates an id when none is given", func() {
			got := row(svc.Insert(ctx, "students", map[string]any{"full_name": "Vali"}))
			_, err := uuid.Parse(got["id"].(string))
			Expect(err).NotTo(HaveOccurred())
			Expect(got["grade"]).To(Equal(int64(1)))
		})

		It("treats an empty id as missing", func() {
			got := row(svc.Insert(ctx, "students", map[string]any{"id": "", "full_name": "Vali"}))
			Expect(got["id"]).NotTo(BeEmpty())
		})

		It("keeps a caller supplied id", func() {
			got := row(svc.Insert(ctx, "students", map[string]any{"id": "fixed", "full_name": "Vali"}))
			Expect(got["id"]).To(Equal("fixed"))
		})

		It("stores booleans as integers and structured values as JSON text", func() {
			got := row(svc.Insert(ctx, "lessons", map[string]any{
				"title":       "Fractions",
				"content":     "...",
				"attachments": []any{map[string]any{"name": "a.pdf"}},
			}))
			Expect(got["attachments"]).To(Equal(`[{"name":"a.pdf"}]`))

			got = row(svc.Insert(ctx, "lesson_progress", map[string]any{
				"student_id": "s1", "lesson_id": got["id"], "completed": true,
			}))
			Expect(got["completed"]).To(Equal(int64(1)))
		})

		It("rejects unsafe identifiers", func() {
			res := svc.Insert(ctx, "students; DROP TABLE students", map[string]any{"full_name": "x"})
			Expect(res.Failed()).To(BeTrue())

			res = svc.Insert(ctx, "students", map[string]any{"full_name) --": "x"})
			Expect(res.Failed()).To(BeTrue())
		})

		It("surfaces constraint violations", func() {
			row(svc.Insert(ctx, "students", map[string]any{"id": "dup", "full_name": "A"}))
			res := svc.Insert(ctx, "students", map[string]any{"id": "dup", "full_name": "B"})
			Expect(res.Failed()).To(BeTrue())
			Expect(*res.Error).To(ContainSubstring("UNIQUE"))
		})
	})

	Describe("update and delete", func() {
		BeforeEach(func() {
			row(svc.Insert(ctx, "students", map[string]any{"id": "a", "full_name": "A", "grade": 3}))
			row(svc.Insert(ctx, "students", map[string]any{"id": "b", "full_name": "B", "grade": 3}))
		})

		It("updates matching rows and returns the first", func() {
			got := row(svc.Update(ctx, "students", map[string]any{"class_name": "3-A"}, map[string]any{"id": "b"}))
			Expect(got["id"]).To(Equal("b"))
			Expect(got["class_name"]).To(Equal("3-A"))

			other := row(svc.Get(ctx, "SELECT * FROM students WHERE id = ?", []any{"a"}))
			Expect(other["class_name"]).To(BeNil())
		})

		It("returns nil data when the update matched nothing", func() {
			res := svc.Update(ctx, "students", map[string]any{"grade": 4}, map[string]any{"id": "zzz"})
			Expect(res.Error).To(BeNil())
			Expect(res.Data).To(BeNil())
		})

		It("requires data and a where condition", func() {
			Expect(svc.Update(ctx, "students", nil, map[string]any{"id": "a"}).Failed()).To(BeTrue())
			Expect(svc.Update(ctx, "students", map[string]any{"grade": 4}, nil).Failed()).To(BeTrue())
			Expect(svc.Delete(ctx, "students", map[string]any{}).Failed()).To(BeTrue())

			got := rows(svc.Query(ctx, "SELECT * FROM students WHERE grade = 3", nil))
			Expect(got).To(HaveLen(2))
		})

		It("deletes every row matching all conditions", func() {
			res := svc.Delete(ctx, "students", map[string]any{"grade": 3, "full_name": "A"})
			Expect(res.Error).To(BeNil())
			Expect(res.Data).To(BeTrue())

			got := rows(svc.Query(ctx, "SELECT id FROM students", nil))
			Expect(got).To(ConsistOf(basic.Row{"id": "b"}))
		})
	})

	Describe("boundary requests", func() {
		handle := func(channel ipc.Channel, payload any) ipc.Response {
			req, err := ipc.NewRequest("r1", channel, payload)
			Expect(err).NotTo(HaveOccurred())

			return svc.Handle(ctx, req)
		}

		It("decodes integral JSON numbers as integers", func() {
			resp := handle(ipc.ChannelInsert, ipc.InsertPayload{
				Table: "students",
				Data:  map[string]any{"id": "n", "full_name": "N", "grade": 7},
			})
			Expect(resp.Failed()).To(BeFalse(), resp.ErrorMessage())
			Expect(resp.ID).To(Equal("r1"))

			got := row(svc.Get(ctx, "SELECT typeof(grade) AS t FROM students WHERE id = 'n'", nil))
			Expect(got["t"]).To(Equal("integer"))
		})

		It("answers unknown channels and malformed payloads with errors", func() {
			resp := svc.Handle(ctx, ipc.Request{ID: "x", Channel: "db:drop", Payload: []byte(`{}`)})
			Expect(resp.ErrorMessage()).To(ContainSubstring("unknown channel"))

			resp = svc.Handle(ctx, ipc.Request{ID: "y", Channel: ipc.ChannelQuery, Payload: []byte(`{"sql":`)})
			Expect(resp.Failed()).To(BeTrue())
			Expect(string(resp.Data)).To(Equal("null"))
		})

		It("saves, reads, lists and deletes files", func() {
			data := []byte("hello world")
			resp := handle(ipc.ChannelSaveFile, ipc.SaveFilePayload{
				Bucket:     filestore.BucketLessonAttachments,
				FileName:   "notes.txt",
				Base64Data: base64.StdEncoding.EncodeToString(data),
			})
			Expect(resp.Failed()).To(BeFalse(), resp.ErrorMessage())

			var saved filestore.SavedFile
			Expect(safejson.Unmarshal(resp.Data, &saved)).To(Succeed())
			Expect(saved.URL).To(HavePrefix("local-file://lesson-attachments/notes_"))
			Expect(saved.Size).To(Equal(len(data)))

			resp = handle(ipc.ChannelReadFile, ipc.FilePayload{Bucket: filestore.BucketAttachments, FileName: saved.FileName})
			var content filestore.FileContent
			Expect(safejson.Unmarshal(resp.Data, &content)).To(Succeed())
			Expect(content.Base64Data).To(Equal(base64.StdEncoding.EncodeToString(data)))
			Expect(content.ContentType).To(Equal("text/plain"))

			resp = handle(ipc.ChannelGetFileURL, ipc.FilePayload{Bucket: filestore.BucketAttachments, FileName: saved.FileName})
			var u string
			Expect(safejson.Unmarshal(resp.Data, &u)).To(Succeed())
			Expect(u).To(HavePrefix("file://"))

			resp = handle(ipc.ChannelListFiles, ipc.BucketPayload{Bucket: filestore.BucketAttachments})
			var listed []filestore.FileInfo
			Expect(safejson.Unmarshal(resp.Data, &listed)).To(Succeed())
			Expect(listed).To(HaveLen(1))

			resp = handle(ipc.ChannelDeleteFile, ipc.FilePayload{Bucket: filestore.BucketAttachments, FileName: saved.FileName})
			Expect(string(resp.Data)).To(Equal("true"))
		})

		It("resolves missing files to null data without an error", func() {
			for _, ch := range []ipc.Channel{ipc.ChannelReadFile, ipc.ChannelGetFileURL} {
				resp := handle(ch, ipc.FilePayload{Bucket: filestore.BucketImages, FileName: "nope.png"})
				Expect(resp.Failed()).To(BeFalse())
				Expect(string(resp.Data)).To(Equal("null"))
			}
		})

		It("rejects invalid base64 and path traversal", func() {
			resp := handle(ipc.ChannelSaveFile, ipc.SaveFilePayload{Bucket: "images", FileName: "a.png", Base64Data: "%%%"})
			Expect(resp.ErrorMessage()).To(ContainSubstring("base64"))

			resp = handle(ipc.ChannelReadFile, ipc.FilePayload{Bucket: "images", FileName: "../htapp.db"})
			Expect(resp.Failed()).To(BeTrue())
		})

		It("reports storage paths", func() {
			resp := handle(ipc.ChannelStorageInfo, struct{}{})
			var info filestore.Info
			Expect(safejson.Unmarshal(resp.Data, &info)).To(Succeed())
			Expect(info.BasePath).To(Equal(filepath.Join(dir, "storage")))
			Expect(info.AttachmentsPath).To(Equal(filepath.Join(dir, "storage", "attachments")))
		})
	})

	Describe("backup", func() {
		It("round-trips the database through a compressed snapshot", func() {
			row(svc.Insert(ctx, "students", map[string]any{"id": "kept", "full_name": "K"}))

			var buf bytes.Buffer
			Expect(svc.Backup(ctx, &buf)).To(Succeed())
			Expect(buf.Len()).To(BeNumerically(">", 0))

			restored := GinkgoT().TempDir()
			Expect(gateway.Restore(&buf, filepath.Join(restored, "htapp.db"))).To(Succeed())

			other := openGateway(restored)
			defer func() { Expect(other.Close()).To(Succeed()) }()

			got := row(other.Get(ctx, "SELECT full_name FROM students WHERE id = ?", []any{"kept"}))
			Expect(got["full_name"]).To(Equal("K"))
		})
	})
})
