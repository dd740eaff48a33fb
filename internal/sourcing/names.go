package sourcing

import "fmt"

// nameSet hands out unique document names. Names join documents to their
// upload targets at submission, so a clash gets a numbered suffix.
type nameSet map[string]struct{}

func newNameSet() nameSet { return nameSet{} }

func (s nameSet) claim(name string) string {
	candidate := name
	for n := 2; ; n++ {
		if _, taken := s[candidate]; !taken {
			s[candidate] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s (%d)", name, n)
	}
}
