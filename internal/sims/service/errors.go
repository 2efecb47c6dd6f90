package service

import "errors"

// 业务错误分类，handler 层经 errors.Is 映射为响应码
var (
	// ErrValidation 入参或业务规则校验失败，调用方修正后重试
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientStock 可用库存不足，预占失败
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrFinalized 订单已处于终态
	ErrFinalized = errors.New("order finalized")

	// ErrInvariantViolation 库存计数器不变式被破坏（reserved > current 或出现负数）
	ErrInvariantViolation = errors.New("stock invariant violation")

	// ErrService 内部服务错误
	ErrService = errors.New("internal service error")
)
