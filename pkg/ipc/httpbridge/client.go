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

package httpbridge

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/united-manufacturing-hub/htapp/pkg/constants"
	"github.com/united-manufacturing-hub/htapp/pkg/ipc"
	"github.com/united-manufacturing-hub/htapp/pkg/safejson"
)

// Client is an ipc.Transport talking to a Server.
type Client struct {
	rest *resty.Client
}

// NewClient returns a client for the bridge at baseURL, e.g. http://127.0.0.1:7311.
func NewClient(baseURL string) *Client {
	rest := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(constants.DefaultBridgeTimeout).
		SetHeader("Content-Type", jsonContentType)

	return &Client{rest: rest}
}

// HTTPClient returns the underlying client.
func (c *Client) HTTPClient() *http.Client {
	return c.rest.GetClient()
}

// RoundTrip posts the request payload and decodes the response envelope.
func (c *Client) RoundTrip(ctx context.Context, req ipc.Request) (ipc.Response, error) {
	payload := []byte(req.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	res, err := c.rest.R().
		SetContext(ctx).
		SetHeader(RequestIDHeader, req.ID).
		SetPathParam("channel", string(req.Channel)).
		SetBody(payload).
		Post("/ipc/{channel}")
	if err != nil {
		return ipc.Response{}, fmt.Errorf("bridge request failed: %w", err)
	}

	if res.StatusCode() != http.StatusOK {
		return ipc.Response{}, fmt.Errorf("bridge returned %s: %s", res.Status(), res.String())
	}

	var resp ipc.Response
	if err := safejson.Unmarshal(res.Body(), &resp); err != nil {
		return ipc.Response{}, fmt.Errorf("failed to decode bridge response: %w", err)
	}

	if resp.ID == "" {
		resp.ID = req.ID
	}

	return resp, nil
}
