package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeConfigurationError: "Configuration error",
	CodeServiceTimeout:     "Service request timeout",
	CodeUnknownError:       "An unknown error occurred",

	// Chain client errors
	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumSubscribeFailed:  "Failed to subscribe to Ethereum events",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeSignerError:              "Transaction signer error",
	CodeContractCallFailed:       "Smart contract call failed",
	CodeABIEncodingFailed:        "ABI encoding or decoding failed",

	// WebSocket errors
	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",

	// Quote source errors
	CodeNoQuote:      "No quote available for pair on DEX",
	CodeInvalidQuote: "Invalid quote data",
	CodeUnknownAsset: "Unknown asset",

	// Flashloan registry errors
	CodeFlashloanDiscoveryFailed: "Flashloan capacity discovery failed",

	// Execution errors
	CodeGasTooHigh:          "Gas price exceeds configured ceiling",
	CodeInsufficientBalance: "Signer balance below required minimum",
	CodeStaleOpportunity:    "Opportunity is too far behind chain head",
	CodeTransactionReverted: "Transaction reverted on-chain",
	CodeSubmissionFailed:    "Transaction submission or confirmation failed",

	// Event delivery and storage
	CodeSubscriberSendFailed: "Failed to deliver event to subscriber",
	CodeStorageError:         "Storage operation failed",
}
