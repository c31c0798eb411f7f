package executor

import "errors"

var (
	// Config validation errors
	ErrStoreRequired   = errors.New("store is required")
	ErrGatewayRequired = errors.New("gateway is required")

	// Turn errors
	ErrNilRequest           = errors.New("request is required")
	ErrConversationBusy     = errors.New("conversation already has a reply in progress")
	ErrConversationNotFound = errors.New("conversation not found")
)

const (
	// GenericErrorText is shown when a failure carries no upstream message
	GenericErrorText = "Something went wrong. Please try again."

	// MemoryAckText replaces an empty reply after a memory update
	MemoryAckText = "Got it, I'll remember that."
)
