package redisstore

import "fmt"

// Key prefix for all hall data
const keyPrefix = "hallchat"

// messagesKey returns the key of the LIST holding JSON message records, oldest first
func messagesKey() string {
	return fmt.Sprintf("%s:messages", keyPrefix)
}

// messageSeqKey returns the key of the counter that assigns message ids
func messageSeqKey() string {
	return fmt.Sprintf("%s:messages:seq", keyPrefix)
}
