//go:build darwin || dragonfly || freebsd || (!android && linux) || netbsd || openbsd || solaris

package host

import "github.com/moby/sys/user"

func lookupUser(name string) (int, error) {
	u, err := user.LookupUser(name)
	if err != nil {
		return -1, err
	}
	return u.Uid, nil
}

func lookupGroup(name string) (int, error) {
	g, err := user.LookupGroup(name)
	if err != nil {
		return -1, err
	}
	return g.Gid, nil
}
