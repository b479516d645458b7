package email

import (
	"context"
	"errors"
)

// ErrUnavailable is returned while the SMTP circuit is open.
var ErrUnavailable = errors.New("email: smtp relay unavailable")

type Message struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
}

type Service interface {
	Send(ctx context.Context, msg *Message) error
}
