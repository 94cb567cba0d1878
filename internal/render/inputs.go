package render

// Input is one physical ffmpeg input with its per-input flags.
type Input struct {
	Path string
	Args []string
}

// InputManager assigns zero-based input indices in strict registration
// order. Optional files that are absent are simply never registered, so they
// consume no index. The map is append-only and read in full when building
// the command line.
type InputManager struct {
	inputs []Input
}

// Add registers path with optional per-input flags and returns its index.
func (m *InputManager) Add(path string, args ...string) int {
	m.inputs = append(m.inputs, Input{Path: path, Args: args})
	return len(m.inputs) - 1
}

// Count reports the number of registered inputs.
func (m *InputManager) Count() int {
	return len(m.inputs)
}

// CommandArgs flattens all inputs into ffmpeg argument order: each input's
// flags immediately before its -i.
func (m *InputManager) CommandArgs() []string {
	var args []string
	for _, input := range m.inputs {
		args = append(args, input.Args...)
		args = append(args, "-i", input.Path)
	}
	return args
}
