// Package response renders the API's uniform JSON envelope. Every
// handler reply goes through Success or Error so search, chat, and
// conversation responses all share the same code/message/data shape.
package response

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"
)

type codeErr struct {
	code uint32
	msg  string
}

func (e codeErr) Error() string {
	return e.msg
}

func (e codeErr) Code() uint32 {
	return e.code
}

// AsCodeErr pairs an errcode value with a caller-facing message.
func AsCodeErr(code uint32, msg string) error {
	return codeErr{code: code, msg: msg}
}

func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

// Error replies with an errcode and message. The HTTP status stays 200;
// clients read the envelope code, not the status line.
func Error(c *gin.Context, code int, message string) {
	proxyutil.FailJson(c, 200, AsCodeErr(uint32(code), message))
}
