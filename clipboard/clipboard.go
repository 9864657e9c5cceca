// Package clipboard copies transcripts to the system clipboard and inserts
// them at the cursor by synthesizing the platform paste keystroke.
package clipboard

import cb "github.com/atotto/clipboard"

func Read() (string, error) {
	return cb.ReadAll()
}

func Copy(text string) error {
	return cb.WriteAll(text)
}
