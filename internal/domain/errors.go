package domain

// ErrorCode classifies failures surfaced to wallet users.
type ErrorCode string

const (
	CodeNoWallet           ErrorCode = "NO_WALLET"
	CodeConnectionFailed   ErrorCode = "CONNECTION_FAILED"
	CodeNetworkMismatch    ErrorCode = "NETWORK_MISMATCH"
	CodeSignatureFailed    ErrorCode = "SIGNATURE_FAILED"
	CodeInvalidAddress     ErrorCode = "INVALID_ADDRESS"
	CodeUserRejected       ErrorCode = "USER_REJECTED"
	CodeBuildFailed        ErrorCode = "BUILD_FAILED"
	CodeSubmissionFailed   ErrorCode = "SUBMISSION_FAILED"
	CodeInvalidTransaction ErrorCode = "INVALID_TRANSACTION"
	CodeInsufficientFunds  ErrorCode = "INSUFFICIENT_FUNDS"
	CodeTimeout            ErrorCode = "TIMEOUT"
	CodeUnknown            ErrorCode = "UNKNOWN"
)

var codeMessages = map[ErrorCode]string{
	CodeNoWallet:           "No CIP-30 wallet detected. Please install Nami, Lace, Eternl, or Flint.",
	CodeConnectionFailed:   "Failed to connect to wallet. Please try again.",
	CodeNetworkMismatch:    "Wallet network mismatch. Please switch to the correct network.",
	CodeSignatureFailed:    "Transaction signature failed. Please try again.",
	CodeInvalidAddress:     "Address could not be processed. Please check your wallet addresses.",
	CodeUserRejected:       "Transaction was rejected by the user.",
	CodeBuildFailed:        "Failed to build transaction. Please check your inputs.",
	CodeSubmissionFailed:   "Failed to submit transaction to the network.",
	CodeInvalidTransaction: "Invalid transaction. Please check your inputs.",
	CodeInsufficientFunds:  "Insufficient funds to complete the transaction.",
	CodeTimeout:            "Operation timed out. Please try again.",
	CodeUnknown:            "An unexpected error occurred. Please try again.",
}

// Message is the default user-facing text for the code.
func (c ErrorCode) Message() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return codeMessages[CodeUnknown]
}

// Suggestions lists follow-up hints shown next to an error.
func (c ErrorCode) Suggestions() []string {
	switch c {
	case CodeNoWallet:
		return []string{
			"Install a CIP-30 compatible wallet like Nami, Lace, Eternl, or Flint",
			"Make sure the wallet extension is enabled in your browser",
		}
	case CodeNetworkMismatch:
		return []string{
			"Switch your wallet to the correct network (testnet/mainnet)",
			"Check your wallet settings and network configuration",
		}
	case CodeConnectionFailed:
		return []string{
			"Refresh the page and try again",
			"Check if your wallet extension is working properly",
		}
	case CodeInsufficientFunds:
		return []string{
			"Add more ADA to your wallet",
			"Check your wallet balance",
		}
	case CodeTimeout:
		return []string{
			"Check your internet connection",
			"Try again in a few moments",
		}
	default:
		return []string{
			"Try refreshing the page",
			"Contact support if the problem persists",
		}
	}
}

// NetworkName maps a CIP-30 network id to its conventional name.
func NetworkName(id int) string {
	if id == 0 {
		return "testnet"
	}
	return "mainnet"
}
