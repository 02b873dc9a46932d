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

package ipc_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/htapp/pkg/ipc"
)

type transportFunc func(ctx context.Context, req ipc.Request) (ipc.Response, error)

func (f transportFunc) RoundTrip(ctx context.Context, req ipc.Request) (ipc.Response, error) {
	return f(ctx, req)
}

var _ = Describe("Bridge", func() {
	var seen []ipc.Request

	recording := transportFunc(func(_ context.Context, req ipc.Request) (ipc.Response, error) {
		seen = append(seen, req)

		return ipc.DataResponse(req.ID, true), nil
	})

	BeforeEach(func() {
		seen = nil
	})

	It("sends each call on its channel with a fresh id", func() {
		b := ipc.NewBridge(recording)

		Expect(b.Query(context.Background(), "SELECT 1", nil).Failed()).To(BeFalse())
		Expect(b.Delete(context.Background(), "students", map[string]any{"id": "a"}).Failed()).To(BeFalse())
		Expect(b.StorageInfo(context.Background()).Failed()).To(BeFalse())

		Expect(seen).To(HaveLen(3))
		Expect(seen[0].Channel).To(Equal(ipc.ChannelQuery))
		Expect(string(seen[1].Payload)).To(MatchJSON(`{"table":"students","where":{"id":"a"}}`))
		Expect(seen[2].Channel).To(Equal(ipc.ChannelStorageInfo))
		Expect(seen[0].ID).NotTo(Equal(seen[1].ID))
	})

	It("turns transport failures into error responses", func() {
		b := ipc.NewBridge(transportFunc(func(context.Context, ipc.Request) (ipc.Response, error) {
			return ipc.Response{}, errors.New("host unavailable")
		}))

		resp := b.ReadFile(context.Background(), "images", "a.png")
		Expect(resp.Failed()).To(BeTrue())
		Expect(resp.ErrorMessage()).To(Equal("host unavailable"))
	})

	It("refuses unknown channels without sending", func() {
		resp := ipc.NewBridge(recording).Call(context.Background(), "db:drop", nil)
		Expect(resp.Failed()).To(BeTrue())
		Expect(seen).To(BeEmpty())
	})
})
