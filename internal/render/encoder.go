package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"clipforge/internal/logging"
)

// Runner executes an external command and returns stdout and stderr.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)

// RunCommand is the default Runner, backed by os/exec.
func RunCommand(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Encoder is a selected video encoder plus its quality arguments.
type Encoder struct {
	Name string
	Args []string
}

// Hardware encoders probed in preference order.
var hardwareEncoders = []string{"h264_nvenc", "h264_videotoolbox", "h264_qsv"}

// SelectEncoder picks a hardware H.264 encoder when one appears in the
// ffmpeg encoder capability list, otherwise falls back to libx264 at the
// given CRF. Probe failures also fall back to software.
func SelectEncoder(ctx context.Context, runner Runner, ffmpegBinary string, preferHardware bool, crf int, logger *slog.Logger) Encoder {
	logger = logging.NewComponentLogger(logger, "encoder")
	software := Encoder{
		Name: "libx264",
		Args: []string{"-preset", "medium", "-crf", fmt.Sprintf("%d", crf)},
	}
	if !preferHardware {
		return software
	}

	stdout, stderr, err := runner(ctx, ffmpegBinary, "-hide_banner", "-encoders")
	if err != nil {
		logger.Warn("encoder probe failed, using software encoder", logging.Args(logging.Error(err))...)
		return software
	}
	available := stdout
	if strings.TrimSpace(available) == "" {
		available = stderr
	}
	for _, name := range hardwareEncoders {
		if strings.Contains(available, " "+name+" ") {
			logger.Info("hardware encoder selected", logging.Args(logging.String("encoder", name))...)
			return Encoder{Name: name, Args: []string{"-b:v", "8M"}}
		}
	}
	logger.Debug("no hardware encoder found, using software encoder")
	return software
}
