package inbound

import "github.com/goliatone/go-callbridge/core"

var _ CallAdmitter = (*core.Service)(nil)
