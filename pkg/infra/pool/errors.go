// Package pool provides bounded worker pools backed by ants.
package pool

import "errors"

// 池相关错误定义
var (
	// ErrPoolClosed 池已关闭
	ErrPoolClosed = errors.New("pool is closed")

	// ErrPoolOverload 池已满（仅非阻塞模式）
	ErrPoolOverload = errors.New("pool is overloaded")
)
