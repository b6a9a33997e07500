package service

import (
	"github.com/shopspring/decimal"

	"github.com/sigmapool/stats-backend/internal/model"
)

// Classify reduces a transaction to its meaning for the tracked wallet.
//
// If any input spends from the wallet, the transfer is outbound: the amount is
// what left the wallet minus change returned to it (change is not
// recipient-facing distribution), and the recipient count is the number of
// outputs paying other addresses. Otherwise, if any output pays the wallet,
// the transfer is inbound and the amount is the sum of matching outputs.
// Transactions touching the wallet on neither side classify as unknown with
// zero amount.
//
// Pure and deterministic: the same transaction always classifies identically.
func Classify(tx model.Transaction, walletAddress string) model.ClassifiedTransfer {
	transfer := model.ClassifiedTransfer{
		TxID:      tx.ID,
		Direction: model.DirectionUnknown,
		Amount:    decimal.Zero,
		Height:    tx.InclusionHeight,
		Timestamp: tx.Timestamp(),
	}

	var fromWallet int64
	for _, in := range tx.Inputs {
		if in.Address == walletAddress {
			fromWallet += in.Value
		}
	}

	if fromWallet > 0 {
		var change int64
		var recipients int
		for _, out := range tx.Outputs {
			if out.Address == walletAddress {
				change += out.Value
			} else {
				recipients++
			}
		}

		outbound := fromWallet - change
		if outbound < 0 {
			outbound = 0
		}

		transfer.Direction = model.DirectionOutbound
		transfer.Amount = model.NanoToErg(outbound)
		transfer.RecipientCount = recipients
		return transfer
	}

	var inbound int64
	var paysWallet bool
	for _, out := range tx.Outputs {
		if out.Address == walletAddress {
			inbound += out.Value
			paysWallet = true
		}
	}
	if paysWallet {
		transfer.Direction = model.DirectionInbound
		transfer.Amount = model.NanoToErg(inbound)
	}
	return transfer
}
