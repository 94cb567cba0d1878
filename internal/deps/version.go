package deps

import (
	"os/exec"
	"strings"
)

// versionOutput is swapped in tests to avoid spawning real tools.
var versionOutput = func(binary string, arg string) (string, bool) {
	out, err := exec.Command(binary, arg).CombinedOutput()
	if err != nil && len(out) == 0 {
		return "", false
	}
	return string(out), true
}

// ToolVersion returns a one-line version string for a resolved binary, or ""
// when the tool does not answer a version query.
func ToolVersion(binary string) string {
	// ffmpeg and ffprobe answer -version, whisper-ctranslate2 answers
	// --version. Try both and keep whichever responds first.
	for _, arg := range []string{"-version", "--version"} {
		out, ok := versionOutput(binary, arg)
		if !ok {
			continue
		}
		if line := firstLine(out); line != "" {
			return line
		}
	}
	return ""
}

func firstLine(out string) string {
	line, _, _ := strings.Cut(out, "\n")
	return strings.TrimSpace(line)
}
