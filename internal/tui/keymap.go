package tui

// Key binding constants used in handleKey.
const (
	KeyQuit   = "q"
	KeyCtrlC  = "ctrl+c"
	KeyUp     = "up"
	KeyDown   = "down"
	KeyJ      = "j"
	KeyK      = "k"
	KeyEdit   = "e"
	KeyDelete = "d"
	KeyReload = "r"
	KeyYes    = "y"
	KeyNo     = "n"
	KeyEnter  = "enter"
	KeyEsc    = "esc"
)
