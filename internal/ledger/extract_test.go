// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package ledger

import (
	"testing"

	"github.com/stellar/go/xdr"
)

const (
	testIssuer = "GA5ZSEJYB37JRC5AVCIA5MOP4RHTM335X2KGX3IHOJAPP5RE34K4KZVN"
	testDest   = "GAAZI4TCR3TY5OJHCTJC2A4QSY6CJWJH5IAJTGKIN2ER7LBNVKOCCWN7"
	testSource = "GDHU6WRG4IEQXM5NZ4BMPKOXHW76MZM4Y2IEMFDVXBSDP6SJY4ITNPP2"
)

func TestPaymentFromOperation(t *testing.T) {
	usdc := xdr.MustNewCreditAsset("USDC", testIssuer)
	native := xdr.MustNewNativeAsset()
	dest := xdr.MustMuxedAddress(testDest)
	opSource := xdr.MustMuxedAddress(testIssuer)

	strictSend := xdr.Operation{Body: xdr.OperationBody{
		Type: xdr.OperationTypePathPaymentStrictSend,
		PathPaymentStrictSendOp: &xdr.PathPaymentStrictSendOp{
			SendAsset: usdc, SendAmount: 77, Destination: dest, DestAsset: native, DestMin: 60,
		},
	}}
	sendResult := func(code xdr.PathPaymentStrictSendResultCode, delivered xdr.Int64) *xdr.OperationResult {
		r := xdr.PathPaymentStrictSendResult{Code: code}
		if code == xdr.PathPaymentStrictSendResultCodePathPaymentStrictSendSuccess {
			r.Success = &xdr.PathPaymentStrictSendResultSuccess{
				Last: xdr.SimplePaymentResult{Destination: dest.ToAccountId(), Asset: native, Amount: delivered},
			}
		}
		return &xdr.OperationResult{
			Code: xdr.OperationResultCodeOpInner,
			Tr: &xdr.OperationResultTr{
				Type:                        xdr.OperationTypePathPaymentStrictSend,
				PathPaymentStrictSendResult: &r,
			},
		}
	}

	tests := []struct {
		name       string
		op         xdr.Operation
		result     *xdr.OperationResult
		wantOK     bool
		wantType   string
		wantSrc    string
		wantDst    string
		wantAmount int64
		wantFrom   string
	}{
		{
			name: "payment",
			op: xdr.Operation{Body: xdr.OperationBody{
				Type:      xdr.OperationTypePayment,
				PaymentOp: &xdr.PaymentOp{Destination: dest, Asset: usdc, Amount: 1_000_000},
			}},
			wantOK: true, wantType: OpPayment,
			wantSrc: "USDC:" + testIssuer, wantDst: "USDC:" + testIssuer,
			wantAmount: 1_000_000, wantFrom: testSource,
		},
		{
			name: "strict receive uses destination amount",
			op: xdr.Operation{
				SourceAccount: &opSource,
				Body: xdr.OperationBody{
					Type: xdr.OperationTypePathPaymentStrictReceive,
					PathPaymentStrictReceiveOp: &xdr.PathPaymentStrictReceiveOp{
						SendAsset: native, SendMax: 50, Destination: dest, DestAsset: usdc, DestAmount: 42,
					},
				},
			},
			wantOK: true, wantType: OpPathPaymentStrictReceive,
			wantSrc: "native", wantDst: "USDC:" + testIssuer,
			wantAmount: 42, wantFrom: testIssuer,
		},
		{
			name:   "strict send uses delivered destination amount",
			op:     strictSend,
			result: sendResult(xdr.PathPaymentStrictSendResultCodePathPaymentStrictSendSuccess, 64),
			wantOK: true, wantType: OpPathPaymentStrictSend,
			wantSrc: "USDC:" + testIssuer, wantDst: "native",
			wantAmount: 64, wantFrom: testSource,
		},
		{
			name:   "failed strict send falls back to destination minimum",
			op:     strictSend,
			result: sendResult(xdr.PathPaymentStrictSendResultCodePathPaymentStrictSendUnderDestmin, 0),
			wantOK: true, wantType: OpPathPaymentStrictSend,
			wantSrc: "USDC:" + testIssuer, wantDst: "native",
			wantAmount: 60, wantFrom: testSource,
		},
		{
			name:   "strict send without result",
			op:     strictSend,
			wantOK: true, wantType: OpPathPaymentStrictSend,
			wantSrc: "USDC:" + testIssuer, wantDst: "native",
			wantAmount: 60, wantFrom: testSource,
		},
		{
			name:   "non-payment operation",
			op:     xdr.Operation{Body: xdr.OperationBody{Type: xdr.OperationTypeInflation}},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, ok := paymentFromOperation(tt.op, tt.result, testSource)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if raw.OperationType != tt.wantType {
				t.Errorf("OperationType = %s, want %s", raw.OperationType, tt.wantType)
			}
			if raw.SourceAsset != tt.wantSrc || raw.DestinationAsset != tt.wantDst {
				t.Errorf("assets = (%s, %s), want (%s, %s)", raw.SourceAsset, raw.DestinationAsset, tt.wantSrc, tt.wantDst)
			}
			if raw.Amount != tt.wantAmount {
				t.Errorf("Amount = %d, want %d", raw.Amount, tt.wantAmount)
			}
			if raw.SourceAccount != tt.wantFrom {
				t.Errorf("SourceAccount = %s, want %s", raw.SourceAccount, tt.wantFrom)
			}
			if raw.DestinationAccount != testDest {
				t.Errorf("DestinationAccount = %s, want %s", raw.DestinationAccount, testDest)
			}
		})
	}
}

func TestDecodeLedgerCloseMeta_Invalid(t *testing.T) {
	for _, in := range []string{"", "not base64!", "AAAA"} {
		if _, err := DecodeLedgerCloseMeta(in); err == nil {
			t.Errorf("DecodeLedgerCloseMeta(%q) expected error", in)
		}
	}
}
