package logger

import "fmt"

type ErrorInfo struct {
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

func errorType(err error) string {
	return fmt.Sprintf("%T", err)
}
