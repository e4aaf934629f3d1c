package common

// GetAccountFromArgs extracts the account name from request arguments,
// defaulting to "default" when absent or empty.
func GetAccountFromArgs(args map[string]interface{}) string {
	if accountVal, ok := args["account"].(string); ok && accountVal != "" {
		return accountVal
	}
	return "default"
}
