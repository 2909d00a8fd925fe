// snapdeck captures a screen region on a timer and keeps the frames that
// changed, producing an ordered slide deck.
package main

import "github.com/snapdeck/snapdeck/internal/cli"

func main() {
	cli.Execute()
}
