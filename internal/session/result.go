package session

import (
	"github.com/existflow/stockdash/internal/api"
	"github.com/existflow/stockdash/internal/model"
)

// Result is what every session operation returns. Failures never escape
// as errors or panics.
type Result struct {
	Success bool
	User    *model.User
	Message string
	Error   string
	Kind    api.ErrorKind
}

func failure(err error) Result {
	kind := api.KindOf(err)
	msg := api.MessageOf(err)
	if kind == api.KindNetwork {
		msg += ". " + api.Guidance(kind)
	}
	return Result{Error: msg, Kind: kind}
}

func success(message string) Result {
	return Result{Success: true, Message: message}
}
