// Copyright (c) 2025 BVK Chaitanya

package gobs

import "fmt"

// KeyValue is one database item in a backup file.
type KeyValue struct {
	Key   string
	Value []byte
}

type TelegramState struct {
	UserChatIDMap map[string]int64
}

func NewByTypename(typename string) (any, error) {
	var v any
	switch typename {
	case "RunRecord":
		v = new(RunRecord)
	case "TelegramState":
		v = new(TelegramState)
	case "KeyValue":
		v = new(KeyValue)
	default:
		return nil, fmt.Errorf("unsupported type name %q", typename)
	}
	return v, nil
}
