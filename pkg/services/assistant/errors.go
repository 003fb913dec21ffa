package assistant

import (
	"errors"

	"github.com/liut/campus-assistant/pkg/services/predict"
)

var (
	// ErrBusy rejects a submission while another one awaits its response
	ErrBusy    = errors.New("awaiting response")
	ErrRender  = errors.New("render failure")
	ErrPersist = errors.New("persistence failure")
)

// visible texts
const (
	msgRequestFailed = "请求失败: "
	msgUnknownReply  = "收到未知格式的响应"
	msgNavError      = "导航错误: "
	msgMapFailed     = "地图加载失败: "
	msgNoContent     = "无内容"
)

// errorKind names the failure for logs
func errorKind(err error) string {
	var se *predict.StatusError
	switch {
	case errors.Is(err, predict.ErrNetwork), errors.As(err, &se):
		return "network"
	case errors.Is(err, predict.ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrRender):
		return "render"
	case errors.Is(err, ErrPersist):
		return "persist"
	}
	return "other"
}
