// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

/*
Package auth authenticates the operator who triggers runs through the API.

There is one account, configured as a username and a bcrypt hash. Login
returns a short-lived access token and a long-lived refresh token, both HS256
JWTs carrying sub, username, token_type and a random jti.

Refresh tokens are single use: Refresh revokes the presented token's jti and
issues a new pair. Logout revokes without reissuing. Revoked ids are held in
a RevocationCache until the token would have expired:

  - MemoryRevocationCache: process memory
  - BadgerRevocationCache: BadgerDB on disk (or in memory with an empty path)
  - RedisRevocationCache: shared between instances

Middleware.Authenticate guards the run-trigger endpoints and answers 401
INVALID_TOKEN on any token problem.
*/
package auth
