package errno

import (
	"errors"
	"fmt"
)

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
	// Payload 携带外部返回的原始信息 (例如硬件设备的错误载荷)，用于展示
	Payload map[string]any
}

func (e Errno) Error() string {
	return e.Message
}

// Is 按错误码比较，WithMessage / WithPayload 派生出来的错误仍然匹配原始定义
func (e Errno) Is(target error) bool {
	var t Errno
	switch typed := target.(type) {
	case Errno:
		t = typed
	case *Errno:
		if typed == nil {
			return false
		}
		t = *typed
	default:
		return false
	}
	return e.Code == t.Code
}

// WithMessage 返回同错误码、不同描述的副本
func (e Errno) WithMessage(format string, args ...any) Errno {
	e.Message = fmt.Sprintf(format, args...)
	return e
}

// WithPayload 返回携带 payload 的副本
func (e Errno) WithPayload(payload map[string]any) Errno {
	e.Payload = payload
	return e
}

// Decode tries to convert an error to Errno
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	var typed Errno
	if errors.As(err, &typed) {
		return typed.Code, typed.Message
	}
	var ptr *Errno
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code, ptr.Message
	}
	return InternalError.Code, err.Error()
}

// Common Errors
var (
	OK            = Errno{Code: 0, Message: "Success"}
	InternalError = Errno{Code: 10001, Message: "Internal error"}
	ErrDatabase   = Errno{Code: 10004, Message: "Database error"}
)

// Capability Errors (20000+)
var (
	NotImplemented    = Errno{Code: 20001, Message: "Not implemented"}
	UnsupportedMethod = Errno{Code: 20002, Message: "Unsupported method"}
	MethodNotFound    = Errno{Code: 20003, Message: "Method not found"}
)

// Validation Errors (30000+)
var (
	InvalidAddress    = Errno{Code: 30001, Message: "Invalid address"}
	InvalidAmount     = Errno{Code: 30002, Message: "Invalid amount"}
	TokenNotFound     = Errno{Code: 30101, Message: "Token not found"}
	AccountNotFound   = Errno{Code: 30102, Message: "Account not found"}
	NetworkNotFound   = Errno{Code: 30103, Message: "Network not found"}
	PasswordIncorrect = Errno{Code: 30104, Message: "Password incorrect"}
)

// External Errors (40000+)
var (
	HardwareDeviceError = Errno{Code: 40001, Message: "Hardware device error"}
	// JsonRPCError 节点返回的 JSON-RPC 错误，Payload["code"] 保留节点错误码
	JsonRPCError = Errno{Code: 40002, Message: "JSON-RPC error"}
)
