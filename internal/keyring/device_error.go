package keyring

import (
	"encoding/json"
	"fmt"

	"chain-vault/pkg/errno"
)

// ConvertDeviceError 把设备返回的失败载荷 ({code, error, message}) 转换为 HardwareDeviceError。
// 所有设备调用失败都经过这里，保证上层拿到的错误结构一致。
func ConvertDeviceError(payload json.RawMessage) error {
	var fields map[string]any
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &fields); err != nil {
			fields = map[string]any{"error": string(payload)}
		}
	}
	if fields == nil {
		fields = map[string]any{}
	}

	msg := firstString(fields, "error", "message")
	if msg == "" {
		msg = "unknown device error"
	}
	if code, ok := fields["code"]; ok && code != nil {
		msg = fmt.Sprintf("%s (code %v)", msg, code)
	}
	return errno.HardwareDeviceError.WithMessage("hardware device error: %s", msg).WithPayload(fields)
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
