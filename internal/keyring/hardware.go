package keyring

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"chain-vault/internal/store"
	"chain-vault/pkg/logger"
	"chain-vault/pkg/utils/lock"
)

// DeviceRequest 发给硬件设备的请求，Payload 为各方法自己的参数
type DeviceRequest struct {
	ConnectID       string         `json:"connectId"`
	DeviceID        string         `json:"deviceId"`
	Path            string         `json:"path,omitempty"`
	PassphraseState string         `json:"passphraseState,omitempty"`
	Payload         map[string]any `json:"payload,omitempty"`
}

// DeviceResponse 设备响应，Success 为 false 时 Payload 为 {code, error}
type DeviceResponse struct {
	Success bool            `json:"success"`
	Payload json.RawMessage `json:"payload"`
}

// DeviceRPC 硬件设备通道 (bridge / 模拟器)，对本包来说是不透明的请求响应
type DeviceRPC interface {
	Call(ctx context.Context, method string, req DeviceRequest) (*DeviceResponse, error)
}

// 设备方法
const (
	MethodEvmGetAddress        = "evmGetAddress"
	MethodEvmSignTransaction   = "evmSignTransaction"
	MethodEvmSignMessage       = "evmSignMessage"
	MethodEvmSignMessageEIP712 = "evmSignMessageEIP712"
)

// HardwareSession 一个硬件钱包的调用入口，各链的硬件 Keyring 共用。
// 同一台设备一次只能处理一个请求，所有调用按 deviceId 串行 (跨账户、跨 Keyring 共享同一个 Locker)。
type HardwareSession struct {
	walletID string
	devices  store.DeviceStore
	rpc      DeviceRPC
	locker   lock.Locker
	log      *zap.Logger
}

func NewHardwareSession(walletID string, devices store.DeviceStore, rpc DeviceRPC, locker lock.Locker, log *zap.Logger) *HardwareSession {
	return &HardwareSession{
		walletID: walletID,
		devices:  devices,
		rpc:      rpc,
		locker:   locker,
		log:      logger.OrNop(log).With(zap.String("wallet", walletID)),
	}
}

// Call 发起一次设备调用，成功时把 payload 解码到 out (可为 nil)。
// 设备返回 success=false 时经 ConvertDeviceError 转换，out 不会被写入。
func (s *HardwareSession) Call(ctx context.Context, method, path string, payload map[string]any, out any) error {
	info, err := s.devices.GetHardwareInfo(ctx, s.walletID)
	if err != nil {
		return err
	}
	passphraseState, err := s.devices.GetPassphraseState(ctx, s.walletID)
	if err != nil {
		return err
	}

	lockKey := info.DeviceID
	if lockKey == "" {
		lockKey = info.ConnectID
	}
	unlock, err := s.locker.Lock(ctx, "device:"+lockKey)
	if err != nil {
		return fmt.Errorf("wait for device %s: %w", lockKey, err)
	}
	defer unlock()

	s.log.Debug("device call", zap.String("method", method), zap.String("path", path))
	resp, err := s.rpc.Call(ctx, method, DeviceRequest{
		ConnectID:       info.ConnectID,
		DeviceID:        info.DeviceID,
		Path:            path,
		PassphraseState: passphraseState,
		Payload:         payload,
	})
	if err != nil {
		return fmt.Errorf("device call %s: %w", method, err)
	}
	if !resp.Success {
		s.log.Warn("device call failed", zap.String("method", method), zap.ByteString("payload", resp.Payload))
		return ConvertDeviceError(resp.Payload)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Payload, out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}
