package keyring

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// BridgeClient 通过本地 HTTP bridge 与硬件设备通信:
//
//	POST {baseURL}/call/{method}  body: DeviceRequest  ->  DeviceResponse
type BridgeClient struct {
	client *resty.Client
}

func NewBridgeClient(baseURL string, timeout time.Duration) *BridgeClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &BridgeClient{client: client}
}

func (b *BridgeClient) Call(ctx context.Context, method string, req DeviceRequest) (*DeviceResponse, error) {
	var out DeviceResponse
	resp, err := b.client.R().
		SetContext(ctx).
		SetPathParam("method", method).
		SetBody(req).
		Post("/call/{method}")
	if err != nil {
		return nil, errors.Wrapf(err, "bridge request %s", method)
	}
	if resp.IsError() {
		// bridge 本身的错误 (不是设备返回的 success=false)
		return nil, errors.Errorf("bridge %s returned HTTP %d: %s", method, resp.StatusCode(), resp.String())
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, errors.Wrapf(err, "decode bridge response %s", method)
	}
	return &out, nil
}
