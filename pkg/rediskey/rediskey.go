package rediskey

import "fmt"

// Payout account keys (global convention across services)
const (
	PayoutAccountPrefix = "payoutaccount"
	SequencePrefix      = "seq"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildPayoutAccountKey returns "payoutaccount:{recruiterID}"
func BuildPayoutAccountKey(recruiterID string) string {
	return NamespaceKey(PayoutAccountPrefix, recruiterID)
}

// BuildSequenceKey returns "seq:{prefix}:{date}"
func BuildSequenceKey(prefix, date string) string {
	return NamespaceKey(SequencePrefix, NamespaceKey(prefix, date))
}
