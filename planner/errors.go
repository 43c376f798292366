package planner

import "fmt"

// StatusError 路径规划服务返回了非成功状态码
type StatusError struct {
	Provider string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Provider, e.Code)
}
