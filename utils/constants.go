// File: utils/constants.go
package utils

import "time"

// AttemptCachePrefix is the prefix used for Redis booking attempt keys.
const AttemptCachePrefix = "booking:attempt:"

// AttemptLockPrefix prefixes the per-attempt mutation lock.
const AttemptLockPrefix = "booking:lock:"

// OrderIndexPrefix maps an order id back to its attempt.
const OrderIndexPrefix = "booking:order:"

// PaymentSessionPrefix prefixes tracked gateway sessions.
const PaymentSessionPrefix = "payment:session:"

// AttemptLockTTL bounds how long a crashed holder can block an attempt.
const AttemptLockTTL = 15 * time.Second

// AttemptTokenHeader carries the attempt token on attempt-scoped routes.
const AttemptTokenHeader = "Authorization"
