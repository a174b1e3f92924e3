package types

// FeeInfo 手续费信息，数值均为十进制字符串
type FeeInfo struct {
	Limit              string   `json:"limit"`
	Prices             []string `json:"prices"` // 以 FeeSymbol 为单位 (例如 Gwei)
	NativeSymbol       string   `json:"nativeSymbol"`
	NativeDecimals     int32    `json:"nativeDecimals"`
	FeeSymbol          string   `json:"feeSymbol"`
	FeeDecimals        int32    `json:"feeDecimals"`
	DefaultPresetIndex string   `json:"defaultPresetIndex"`
}

// FeeInfoUnit 调用方选择的手续费，两个字段独立可选
type FeeInfoUnit struct {
	Limit *string `json:"limit,omitempty"`
	Price *string `json:"price,omitempty"`
}
