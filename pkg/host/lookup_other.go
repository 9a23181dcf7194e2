//go:build !darwin && !dragonfly && !freebsd && (android || !linux) && !netbsd && !openbsd && !solaris

package host

import "errors"

var errNoUserDatabase = errors.New("user database not available on this platform")

func lookupUser(string) (int, error) { return -1, errNoUserDatabase }

func lookupGroup(string) (int, error) { return -1, errNoUserDatabase }
