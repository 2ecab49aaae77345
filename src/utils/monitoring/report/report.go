package report

type Report struct {
	Ledger         *LedgerReport         `json:"ledger,omitempty"`
	Verifier       *VerifierReport       `json:"verifier,omitempty"`
	RedisPublisher *RedisPublisherReport `json:"redis_publisher,omitempty"`
}
