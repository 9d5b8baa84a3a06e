// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse parses configuration from CLI flags and environment
variables.

Flags take precedence; environment variables are the fallback. Secrets
(ADMIN_KEY_SALT, VOTER_TOKEN_SALT, RECEIPT_SIGNING_SEED) should come from
the environment in production; the flag form exists for development only.

Tunables:

  - IDENTITY_TIMEOUT: bound on identity-provider calls (default 5s)
  - REVOCATION_FRESHNESS: max age of a cached credential before the
    revocation flag must be re-checked live (default 60s)
*/
package cliparse
