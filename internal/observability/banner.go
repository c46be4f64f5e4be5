package observability

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	colorReset    = "\033[0m"
	colorNeonCyan = "\033[96m"
)

func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return w
}

// PrintBanner clears the screen and prints the startup banner centered on
// the current terminal width.
func PrintBanner(appName string) {
	fmt.Print("\033[2J\033[H")

	banner := `
   ___   _____ _____ ________________    _   ________
  /   | / ___// ___//  _/ ___/_  __/   | / | / /_  __/
 / /| | \__ \ \__ \ / / \__ \ / / / /| |/  |/ / / /
/ ___ |___/ /___/ // / ___/ // / / ___ / /|  / / /
/_/  |_/____//____/___//____//_/ /_/  |_/_/ |_/ /_/

     >> TASK AUTOMATION FOR EMAIL, CRM & CALENDAR <<
`

	width := termWidth()
	lines := strings.Split(banner, "\n")

	for _, l := range lines {
		padding := (width - len(l)) / 2
		if padding < 0 {
			padding = 0
		}
		fmt.Printf("%s%s%s\n", strings.Repeat(" ", padding), colorNeonCyan+l, colorReset)
	}
	if appName != "" {
		fmt.Printf("%s[%s]%s\n\n", colorNeonCyan, appName, colorReset)
	}
}
