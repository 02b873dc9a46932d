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

package env_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/htapp/pkg/env"
)

func TestEnv(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Env Suite")
}

var _ = Describe("Env", func() {
	Describe("GetAsString", func() {
		It("returns the default when unset", func() {
			GinkgoT().Setenv("HTAPP_TEST_STRING", "")
			value, err := env.GetAsString("HTAPP_TEST_STRING", false, "fallback")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("fallback"))
		})

		It("fails when a required key is unset", func() {
			GinkgoT().Setenv("HTAPP_TEST_STRING", "")
			_, err := env.GetAsString("HTAPP_TEST_STRING", true, "")
			Expect(err).To(MatchError(ContainSubstring("HTAPP_TEST_STRING")))
		})

		It("trims surrounding whitespace", func() {
			GinkgoT().Setenv("HTAPP_TEST_STRING", "  /data  ")
			value, err := env.GetAsString("HTAPP_TEST_STRING", false, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("/data"))
		})
	})

	Describe("GetAsInt", func() {
		It("parses integers", func() {
			GinkgoT().Setenv("HTAPP_TEST_INT", "8")
			value, err := env.GetAsInt("HTAPP_TEST_INT", false, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal(8))
		})

		It("falls back on garbage when optional", func() {
			GinkgoT().Setenv("HTAPP_TEST_INT", "eight")
			value, err := env.GetAsInt("HTAPP_TEST_INT", false, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal(4))
		})

		It("fails on garbage when required", func() {
			GinkgoT().Setenv("HTAPP_TEST_INT", "eight")
			_, err := env.GetAsInt("HTAPP_TEST_INT", true, 4)
			Expect(err).To(HaveOccurred())
		})
	})

	DescribeTable("GetAsBool",
		func(raw string, expected bool) {
			GinkgoT().Setenv("HTAPP_TEST_BOOL", raw)
			value, err := env.GetAsBool("HTAPP_TEST_BOOL", false, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal(expected))
		},
		Entry("true", "true", true),
		Entry("yes", "YES", true),
		Entry("one", "1", true),
		Entry("off", "off", false),
		Entry("unset", "", false),
		Entry("garbage", "maybe", false),
	)
})
