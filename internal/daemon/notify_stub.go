//go:build !linux

package daemon

import "github.com/chimekit/chime/pkg/logx"

func notifyReady(logx.Logger)    {}
func notifyStopping(logx.Logger) {}
