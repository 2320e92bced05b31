package errors

import "errors"

// ErrDuplicateKey 唯一约束冲突：原子 insert-if-absent 落败（记录已存在）
var ErrDuplicateKey = errors.New("记录已存在，写入被唯一约束拒绝")

// ErrNoRowsAffected 条件更新未命中任何行（前置状态已被并发修改）
var ErrNoRowsAffected = errors.New("更新未生效，记录状态已被其他操作修改")
