// Package guard forces test mode on for any package importing it,
// keeping test binaries from touching real infrastructure.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("SADDLE_TEST_MODE") == "" {
			_ = os.Setenv("SADDLE_TEST_MODE", "1")
		}
	})
}
