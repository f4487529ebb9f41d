// Package service contains the progression engine's use cases. Each service
// coordinates domain rules with the stores defined in internal/store and owns
// the transactional boundary of its operations.
//
// Services that take part in another service's unit of work expose an
// ...In variant accepting transaction-bound store.Stores, so that a review
// submission can schedule the card, credit XP and debit hearts atomically.
//
// Errors returned from this package wrap the sentinels of internal/domain and
// internal/store; callers classify them with errors.Is.
package service
