package taskname

const (
	// Payout tasks
	PayoutScheduleSweep = "payout:schedule:sweep"

	// Escrow tasks
	EscrowReleaseDue = "escrow:release:due"
)
