package types

type MessageType int

const (
	MessageEthSign      MessageType = 0
	MessagePersonalSign MessageType = 1
	MessageTypedDataV1  MessageType = 2
	MessageTypedDataV3  MessageType = 3
	MessageTypedDataV4  MessageType = 4
)

func (t MessageType) String() string {
	switch t {
	case MessageEthSign:
		return "ETH_SIGN"
	case MessagePersonalSign:
		return "PERSONAL_SIGN"
	case MessageTypedDataV1:
		return "TYPED_DATA_V1"
	case MessageTypedDataV3:
		return "TYPED_DATA_V3"
	case MessageTypedDataV4:
		return "TYPED_DATA_V4"
	}
	return "UNKNOWN"
}

// Message 待签名消息，TypedData 时 Message 为 JSON 字符串
type Message struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}
