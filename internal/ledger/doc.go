// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

/*
Package ledger provides paginated sources of payment operations.

Implementations:

  - RPCSource: Stellar RPC getLedgers, decoding LedgerCloseMeta XDR and
    extracting payment, path_payment_strict_receive and
    path_payment_strict_send operations. Requests are rate limited.
  - MockSource: deterministic in-memory records for local runs and tests.
  - CircuitBreakerSource: decorator that stops calling a failing source
    until its open timeout elapses.

Delivery is at-least-once. A page may repeat records of the previous page,
and consumers must deduplicate by RawPayment.ID, which is the operation's
TOID (ledger, transaction and operation index packed into an int64).

Position ordering:

RPC and mock positions are decimal sequences. Both implement
PositionComparer, and ComparerOf finds it through decorators, so the
ingestion service can reject a next position that would move backward.
*/
package ledger
