package compliance

import "errors"

// Sentinel errors per §4.2.5, matched with errors.Is.
var (
	ErrInvalidRuleCondition  = errors.New("invalid_rule_condition")
	ErrExternalCheckUnavailable = errors.New("external_check_unavailable")
	ErrStoreError            = errors.New("store_error")
	ErrNotFound              = errors.New("not_found")
	ErrAlreadyProcessed      = errors.New("already_processed")
	ErrExpired               = errors.New("expired")
	ErrDuplicateSignature    = errors.New("duplicate_signature")
)
