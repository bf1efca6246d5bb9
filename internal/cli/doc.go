// Package cli implements the docktree command-line interface.
//
// Every command reads an image list (stdin, --file, --tarball or a stored
// snapshot), builds the layer forest and does one thing with it:
//
//   - tree: print the forest as text, JSON, YAML, DOT, SVG, PDF or PNG
//   - browse: fold and scroll through the forest in the terminal
//   - serve: answer forest queries over HTTP
//   - snapshot: keep image lists for later (save, list, show, export, rm)
//   - cache: clear the record and render cache or print its location
//
// Settings come from ~/.config/docktree/config.toml, a .env file and
// DOCKTREE_* variables; flags override all three.
//
// Status lines go to stderr through lipgloss styles. Logs go through a
// charmbracelet logger that the root command attaches to the command
// context; --verbose lowers its level to debug.
package cli
