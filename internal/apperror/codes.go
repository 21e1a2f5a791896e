package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeConfigurationError Code = "CONFIGURATION_ERROR"
	CodeServiceTimeout     Code = "SERVICE_TIMEOUT"
	CodeUnknownError       Code = "UNKNOWN_ERROR"
)

// Arbitrage-specific error codes
const (
	// Chain client errors
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumSubscribeFailed  Code = "ETHEREUM_SUBSCRIBE_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeSignerError              Code = "SIGNER_ERROR"
	CodeContractCallFailed       Code = "CONTRACT_CALL_FAILED"
	CodeABIEncodingFailed        Code = "ABI_ENCODING_FAILED"

	// WebSocket errors
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"

	// Quote source errors
	CodeNoQuote      Code = "NO_QUOTE"
	CodeInvalidQuote Code = "INVALID_QUOTE"
	CodeUnknownAsset Code = "UNKNOWN_ASSET"

	// Flashloan registry errors
	CodeFlashloanDiscoveryFailed Code = "FLASHLOAN_DISCOVERY_FAILED"

	// Execution errors
	CodeGasTooHigh          Code = "GAS_TOO_HIGH"
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
	CodeStaleOpportunity    Code = "STALE_OPPORTUNITY"
	CodeTransactionReverted Code = "TRANSACTION_REVERTED"
	CodeSubmissionFailed    Code = "SUBMISSION_FAILED"

	// Event delivery and storage
	CodeSubscriberSendFailed Code = "SUBSCRIBER_SEND_FAILED"
	CodeStorageError         Code = "STORAGE_ERROR"
)
