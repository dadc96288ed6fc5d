package synapse

import (
	"fmt"

	"github.com/fatih/color"
)

const bannerText = `
  ____
 / ___| _   _ _ __   __ _ _ __  ___  ___
 \___ \| | | | '_ \ / _' | '_ \/ __|/ _ \
  ___) | |_| | | | | (_| | |_) \__ \  __/
 |____/ \__, |_| |_|\__,_| .__/|___/\___|
        |___/            |_|

        Synapse Memory Server
`

// Banner returns the CLI banner string.
func Banner() string {
	return fmt.Sprintf("%s\n  Version: %s\n", color.CyanString(bannerText), Version)
}
