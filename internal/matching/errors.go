package matching

import "errors"

// Error taxonomy per §4.3.5.
var (
	ErrPairNotFound         = errors.New("pair_not_found")
	ErrInvalidPrice         = errors.New("invalid_price")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrOrderNotFound        = errors.New("order_not_found")
	ErrOrderAlreadyCancelled = errors.New("order_already_cancelled")
	ErrOrderAlreadyFilled   = errors.New("order_already_filled")
	ErrSelfTradeNotAllowed  = errors.New("self_trade_not_allowed")
	ErrPairAlreadyExists    = errors.New("pair_already_exists")
)
