package services

import "errors"

var (
	ErrNotFound               = errors.New("record not found")
	ErrForbidden              = errors.New("user does not administer this restaurant")
	ErrModuleDisabled         = errors.New("check-in program is not enabled for this restaurant")
	ErrMissingIdentifier      = errors.New("required customer identifier is missing")
	ErrDuplicateActiveSession = errors.New("customer already has an active check-in at this restaurant")
	ErrCouponRequired         = errors.New("a coupon is required to check in at this restaurant")
	ErrInvalidCoupon          = errors.New("coupon is invalid, inactive or expired")
	ErrRewardNotUsable        = errors.New("customer cannot use this reward")
	ErrNotSpinTheWheel        = errors.New("reward is not a spin-the-wheel reward")
	ErrWheelConfigInvalid     = errors.New("wheel configuration is empty or has no winnable items")
)
