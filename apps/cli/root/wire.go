package root

import (
	"github.com/wundergunder/gunderats/apps/cli/cmd/auth"
	"github.com/wundergunder/gunderats/apps/cli/cmd/bootstrap"
)

func init() {
	Root().AddCommand(auth.Command())
	Root().AddCommand(bootstrap.Command())
}
