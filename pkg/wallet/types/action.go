package types

import "strings"

type ActionType string

const (
	ActionNativeTransfer ActionType = "NATIVE_TRANSFER"
	ActionTokenTransfer  ActionType = "TOKEN_TRANSFER"
	ActionTokenApprove   ActionType = "TOKEN_APPROVE"
	ActionFunctionCall   ActionType = "FUNCTION_CALL"
	ActionUnknown        ActionType = "UNKNOWN"
)

type ActionDirection string

const (
	DirectionIn    ActionDirection = "IN"
	DirectionOut   ActionDirection = "OUT"
	DirectionSelf  ActionDirection = "SELF"
	DirectionOther ActionDirection = "OTHER"
)

// Action 交易中的一个动作。Type 决定哪个字段有值，其余字段为 nil。
type Action struct {
	Type      ActionType      `json:"type"`
	Direction ActionDirection `json:"direction,omitempty"`

	NativeTransfer *NativeTransferAction `json:"nativeTransfer,omitempty"`
	TokenTransfer  *TokenTransferAction  `json:"tokenTransfer,omitempty"`
	TokenApprove   *TokenApproveAction   `json:"tokenApprove,omitempty"`
	FunctionCall   *FunctionCallAction   `json:"functionCall,omitempty"`
	Unknown        *UnknownAction        `json:"unknown,omitempty"`
}

type NativeTransferAction struct {
	TokenInfo   Token  `json:"tokenInfo"`
	From        string `json:"from"`
	To          string `json:"to"`
	Amount      string `json:"amount"`      // 人类可读
	AmountValue string `json:"amountValue"` // 链上整数
}

type TokenTransferAction struct {
	TokenInfo   Token  `json:"tokenInfo"`
	From        string `json:"from"`
	To          string `json:"to"`
	Amount      string `json:"amount"`
	AmountValue string `json:"amountValue"`
}

type TokenApproveAction struct {
	TokenInfo   Token  `json:"tokenInfo"`
	Owner       string `json:"owner"`
	Spender     string `json:"spender"`
	Amount      string `json:"amount"`
	AmountValue string `json:"amountValue"`
	IsMax       bool   `json:"isMax"`
}

type FunctionCallAction struct {
	Target       string   `json:"target"`
	FunctionName string   `json:"functionName"`
	FunctionHash string   `json:"functionHash"`
	Args         []string `json:"args,omitempty"`
}

type UnknownAction struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	Data string `json:"data,omitempty"`
}

// Direction 根据参与方和当前账户地址判断方向
func Direction(owner, from, to string) ActionDirection {
	fromOwner := equalAddr(owner, from)
	toOwner := equalAddr(owner, to)
	switch {
	case fromOwner && toOwner:
		return DirectionSelf
	case fromOwner:
		return DirectionOut
	case toOwner:
		return DirectionIn
	default:
		return DirectionOther
	}
}

func NewNativeTransfer(owner string, a NativeTransferAction) Action {
	return Action{
		Type:           ActionNativeTransfer,
		Direction:      Direction(owner, a.From, a.To),
		NativeTransfer: &a,
	}
}

func NewTokenTransfer(owner string, a TokenTransferAction) Action {
	return Action{
		Type:          ActionTokenTransfer,
		Direction:     Direction(owner, a.From, a.To),
		TokenTransfer: &a,
	}
}

func NewTokenApprove(owner string, a TokenApproveAction) Action {
	return Action{
		Type:         ActionTokenApprove,
		Direction:    Direction(owner, a.Owner, a.Spender),
		TokenApprove: &a,
	}
}

func NewFunctionCall(owner, from string, a FunctionCallAction) Action {
	return Action{
		Type:         ActionFunctionCall,
		Direction:    Direction(owner, from, a.Target),
		FunctionCall: &a,
	}
}

func NewUnknown(owner string, a UnknownAction) Action {
	return Action{
		Type:      ActionUnknown,
		Direction: Direction(owner, a.From, a.To),
		Unknown:   &a,
	}
}

func equalAddr(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}
