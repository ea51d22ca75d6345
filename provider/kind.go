package provider

import "fmt"

// Kind identifies one backend implementation of a capability. Each
// capability declares its own Kind type; values are used as registry keys.
type Kind interface {
	comparable
	fmt.Stringer
}
