package exception

import "github.com/yanun0323/errors"

// Router errors
var (
	ErrRouterUnsubscribed         = errors.New("router: unsubscribed")
	ErrRouterNoAuthenticator      = errors.New("router: no authenticator")
	ErrRouterAuthenticationFailed = errors.New("router: authentication failed")
	ErrRouterSubscriptionRejected = errors.New("router: subscription rejected")
	ErrRouterEmptyHash            = errors.New("router: empty message hash")
	ErrRouterUnexpectedType       = errors.New("router: unexpected resolved type")
)
