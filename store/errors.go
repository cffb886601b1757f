package store

import (
	"errors"
	"fmt"
)

// sentinel 是预期内的业务错误，gormtool 日志按 info 级别记录
type sentinel string

func (s sentinel) Error() string  { return string(s) }
func (s sentinel) Expected() bool { return true }

var (
	// ErrNotFound 记录不存在
	ErrNotFound error = sentinel("not found")

	// ErrDuplicate 违反唯一约束
	ErrDuplicate error = sentinel("already exists")

	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrTaskNotFound       = fmt.Errorf("task %w", ErrNotFound)
	ErrAssignmentNotFound = fmt.Errorf("assignment %w", ErrNotFound)

	// ErrAssignmentExists 同一 (user_id, task_id) 已经存在
	ErrAssignmentExists = fmt.Errorf("assignment %w", ErrDuplicate)
)

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
