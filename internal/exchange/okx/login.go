package okx

import (
	"context"
	"strconv"

	"github.com/yanun0323/errors"
)

const verifyPath = "/users/self/verify"

// loginCodes are the error codes OKX answers a failed login with.
var loginCodes = map[string]struct{}{
	"60001": {}, "60002": {}, "60003": {}, "60004": {}, "60005": {}, "60006": {},
	"60007": {}, "60008": {}, "60009": {}, "60011": {}, "60024": {},
}

func isLoginCode(code string) bool {
	_, ok := loginCodes[code]
	return ok
}

// login signs timestamp + GET + /users/self/verify with the API secret.
func (e *Exchange) login(context.Context) (any, error) {
	signer := e.cfg.Signer
	ts := strconv.FormatInt(e.cfg.Now().Unix(), 10)
	sign, err := signer.HMACSHA256Base64(ts + "GET" + verifyPath)
	if err != nil {
		return nil, errors.Wrap(err, "sign login")
	}
	return loginRequest{
		Op: opLogin,
		Args: []loginArg{{
			APIKey:     signer.Key(),
			Passphrase: signer.Passphrase(),
			Timestamp:  ts,
			Sign:       sign,
		}},
	}, nil
}
