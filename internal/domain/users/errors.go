package users

import "errors"

var (
	ErrUnauthenticated = errors.New("user not authenticated")
	ErrNotFound        = errors.New("not found")
	ErrBadRequest      = errors.New("bad request")
)

func IsErrUnauthenticated(err error) bool { return errors.Is(err, ErrUnauthenticated) }
func IsErrNotFound(err error) bool        { return errors.Is(err, ErrNotFound) }
func IsErrBadRequest(err error) bool      { return errors.Is(err, ErrBadRequest) }
