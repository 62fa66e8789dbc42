// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package ledger

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/stellar/go/ingest"
	"github.com/stellar/go/toid"
	"github.com/stellar/go/xdr"

	"github.com/tomtom215/paycorridor/internal/models"
)

// Operation type names stored on payments.
const (
	OpPayment                  = "payment"
	OpPathPaymentStrictReceive = "path_payment_strict_receive"
	OpPathPaymentStrictSend    = "path_payment_strict_send"
)

// DecodeLedgerCloseMeta parses the base64 metadata returned by getLedgers.
func DecodeLedgerCloseMeta(b64 string) (xdr.LedgerCloseMeta, error) {
	var lcm xdr.LedgerCloseMeta
	if err := xdr.SafeUnmarshalBase64(b64, &lcm); err != nil {
		return lcm, fmt.Errorf("failed to decode ledger close meta: %w", err)
	}
	return lcm, nil
}

// ExtractPayments returns every payment-like operation in lcm, including
// those of failed transactions, which are kept with Successful=false.
func ExtractPayments(passphrase string, lcm xdr.LedgerCloseMeta) ([]models.RawPayment, error) {
	seq := lcm.LedgerSequence()
	closedAt := time.Unix(int64(lcm.LedgerHeaderHistoryEntry().Header.ScpValue.CloseTime), 0).UTC()

	reader, err := ingest.NewLedgerTransactionReaderFromLedgerCloseMeta(passphrase, lcm)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction reader for ledger %d: %w", seq, err)
	}
	defer reader.Close() //nolint:errcheck

	var out []models.RawPayment
	for {
		tx, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read transaction in ledger %d: %w", seq, err)
		}

		txHash := hex.EncodeToString(tx.Result.TransactionHash[:])
		successful := tx.Result.Successful()
		txSource := tx.Envelope.SourceAccount().ToAccountId().Address()
		results, _ := tx.Result.OperationResults()

		for i, op := range tx.Envelope.Operations() {
			var result *xdr.OperationResult
			if i < len(results) {
				result = &results[i]
			}
			raw, ok := paymentFromOperation(op, result, txSource)
			if !ok {
				continue
			}
			raw.ID = strconv.FormatInt(toid.New(int32(seq), int32(tx.Index), int32(i+1)).ToInt64(), 10) //nolint:gosec // ledger and tx indexes fit int32
			raw.LedgerSequence = seq
			raw.OccurredAt = closedAt
			raw.TxHash = txHash
			raw.Successful = successful
			out = append(out, raw)
		}
	}
	return out, nil
}

// paymentFromOperation maps the payment-family operations. Amount is always
// in units of the destination asset: the fixed DestAmount for strict-receive,
// and for strict-send the amount the result says was delivered, or DestMin
// when the operation has no successful result.
func paymentFromOperation(op xdr.Operation, result *xdr.OperationResult, txSource string) (models.RawPayment, bool) {
	source := txSource
	if op.SourceAccount != nil {
		source = op.SourceAccount.ToAccountId().Address()
	}
	raw := models.RawPayment{SourceAccount: source}

	switch op.Body.Type {
	case xdr.OperationTypePayment:
		p, ok := op.Body.GetPaymentOp()
		if !ok {
			return raw, false
		}
		raw.OperationType = OpPayment
		raw.DestinationAccount = p.Destination.ToAccountId().Address()
		raw.SourceAsset = p.Asset.StringCanonical()
		raw.DestinationAsset = raw.SourceAsset
		raw.Amount = int64(p.Amount)
	case xdr.OperationTypePathPaymentStrictReceive:
		p, ok := op.Body.GetPathPaymentStrictReceiveOp()
		if !ok {
			return raw, false
		}
		raw.OperationType = OpPathPaymentStrictReceive
		raw.DestinationAccount = p.Destination.ToAccountId().Address()
		raw.SourceAsset = p.SendAsset.StringCanonical()
		raw.DestinationAsset = p.DestAsset.StringCanonical()
		raw.Amount = int64(p.DestAmount)
	case xdr.OperationTypePathPaymentStrictSend:
		p, ok := op.Body.GetPathPaymentStrictSendOp()
		if !ok {
			return raw, false
		}
		raw.OperationType = OpPathPaymentStrictSend
		raw.DestinationAccount = p.Destination.ToAccountId().Address()
		raw.SourceAsset = p.SendAsset.StringCanonical()
		raw.DestinationAsset = p.DestAsset.StringCanonical()
		raw.Amount = int64(p.DestMin)
		if delivered, ok := deliveredAmount(result); ok {
			raw.Amount = delivered
		}
	default:
		return raw, false
	}
	return raw, true
}

// deliveredAmount reads the destination amount of a successful strict-send.
func deliveredAmount(result *xdr.OperationResult) (int64, bool) {
	if result == nil {
		return 0, false
	}
	tr, ok := result.GetTr()
	if !ok {
		return 0, false
	}
	r, ok := tr.GetPathPaymentStrictSendResult()
	if !ok {
		return 0, false
	}
	success, ok := r.GetSuccess()
	if !ok {
		return 0, false
	}
	return int64(success.Last.Amount), true
}
