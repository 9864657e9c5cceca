package clipboard

// Type copies text to the system clipboard and pastes it at the cursor.
func Type(text string) error {
	if err := Copy(text); err != nil {
		return err
	}
	return Paste()
}
