package redis

const (
	SystemTotalCostKey   = "system_totals:cost"
	SystemTotalTokensKey = "system_totals:tokens"
	SystemStatusKey      = "system-status"
	NudgeSummaryKey      = "nudge:last-summary"
)

func AuthTokenKey(tokenHash string) string {
	return "auth:token:" + tokenHash
}

func UserTotalCostKey(userID string) string {
	return userID + ":total_cost"
}

func UserTotalTokensKey(userID string) string {
	return userID + ":total_tokens"
}
